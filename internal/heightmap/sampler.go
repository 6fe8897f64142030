package heightmap

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Sampler answers height queries against the current bake. Bakes are
// published by swapping a pointer, so readers always see a complete grid.
type Sampler struct {
	grid     atomic.Pointer[Grid]
	version  atomic.Uint64
	position mgl32.Vec3
	bilinear bool
}

// NewSampler creates a sampler for terrain placed at position. The grid is
// centered on position's x and z and offset by its y.
func NewSampler(position mgl32.Vec3, bilinear bool) *Sampler {
	return &Sampler{position: position, bilinear: bilinear}
}

// Swap publishes g as the current bake.
func (s *Sampler) Swap(g *Grid) {
	s.grid.Store(g)
	s.version.Add(1)
}

// Current returns the current bake, or nil before the first one.
func (s *Sampler) Current() *Grid {
	return s.grid.Load()
}

// Version increases with every Swap.
func (s *Sampler) Version() uint64 {
	return s.version.Load()
}

// Position returns the terrain placement.
func (s *Sampler) Position() mgl32.Vec3 {
	return s.position
}

// UV maps a world position to normalized grid coordinates for g.
func (s *Sampler) UV(g *Grid, x, z float64) (u, v float64) {
	size := g.Params.PhysicalSize
	u = (x - float64(s.position[0]) + size/2) / size
	v = (z - float64(s.position[2]) + size/2) / size
	return u, v
}

// HeightAt returns the terrain elevation at world (x, z), or ErrOutOfCoverage
// if the position is outside [0,1] in grid space or not a number. The edges
// are covered.
func (s *Sampler) HeightAt(x, z float64) (float64, error) {
	g := s.grid.Load()
	if g == nil {
		return 0, ErrOutOfCoverage
	}
	u, v := s.UV(g, x, z)
	if !(u >= 0 && u <= 1 && v >= 0 && v <= 1) {
		return 0, ErrOutOfCoverage
	}
	var h float32
	if s.bilinear {
		h = g.Bilinear(u, v)
	} else {
		h = g.Nearest(u, v)
	}
	return float64(h + s.position[1]), nil
}

// HeightOr returns HeightAt, or fallback when the position is not covered.
func (s *Sampler) HeightOr(x, z, fallback float64) float64 {
	h, err := s.HeightAt(x, z)
	if err != nil {
		return fallback
	}
	return h
}

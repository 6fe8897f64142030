// Package ocean implements a Gerstner wave surface. The wave list is replaced
// as a whole so readers never see a half-updated set.
package ocean

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxWaves is the longest wave list a surface accepts.
	MaxWaves = 4
	gravity  = 9.8
)

var (
	ErrTooManyWaves = errors.New("too many waves")
	ErrInvalidWave  = errors.New("invalid wave")
)

// Wave is one traveling wave. Direction is normalized on replacement.
type Wave struct {
	Amplitude  float64
	Wavelength float64
	Direction  mgl32.Vec2
	Speed      float64
	Steepness  float64
}

// Validate reports whether w can be evaluated.
func (w Wave) Validate() error {
	switch {
	case !(w.Wavelength > 0):
		return fmt.Errorf("%w: wavelength %g", ErrInvalidWave, w.Wavelength)
	case w.Steepness < 0 || w.Steepness > 1:
		return fmt.Errorf("%w: steepness %g outside [0,1]", ErrInvalidWave, w.Steepness)
	case w.Direction.Len() == 0:
		return fmt.Errorf("%w: zero direction", ErrInvalidWave)
	}
	return nil
}

// DefaultWaves is a calm swell with two shorter chop waves.
func DefaultWaves() []Wave {
	return []Wave{
		{Amplitude: 0.5, Wavelength: 20, Direction: mgl32.Vec2{1, 0}, Speed: 1, Steepness: 0.3},
		{Amplitude: 0.25, Wavelength: 10, Direction: mgl32.Vec2{0.7, 0.7}, Speed: 1.2, Steepness: 0.25},
		{Amplitude: 0.1, Wavelength: 4, Direction: mgl32.Vec2{-0.3, 1}, Speed: 0.8, Steepness: 0.2},
	}
}

// Surface holds the current wave list.
type Surface struct {
	waves atomic.Pointer[[]Wave]
	level float64
}

// NewSurface returns a surface at rest height level carrying waves.
func NewSurface(level float64, waves []Wave) (*Surface, error) {
	s := &Surface{level: level}
	if err := s.Replace(waves); err != nil {
		return nil, err
	}
	return s, nil
}

// Level is the rest height of the surface.
func (s *Surface) Level() float64 { return s.level }

// Replace validates waves and swaps them in. On error the previous list
// stays active.
func (s *Surface) Replace(waves []Wave) error {
	if len(waves) > MaxWaves {
		return fmt.Errorf("%w: %d > %d", ErrTooManyWaves, len(waves), MaxWaves)
	}
	next := make([]Wave, len(waves))
	for i, w := range waves {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("wave %d: %w", i, err)
		}
		w.Direction = w.Direction.Normalize()
		next[i] = w
	}
	s.waves.Store(&next)
	return nil
}

// Waves returns a copy of the active list.
func (s *Surface) Waves() []Wave {
	p := s.waves.Load()
	if p == nil {
		return nil
	}
	return append([]Wave(nil), *p...)
}

// Displacement is the result of evaluating the surface at one point.
type Displacement struct {
	Offset   mgl32.Vec3 // x, height, z
	Tangent  mgl32.Vec3 // d(position)/dx
	Binormal mgl32.Vec3 // d(position)/dz
}

// Normal is normalize(cross(binormal, tangent)).
func (d Displacement) Normal() mgl32.Vec3 {
	n := d.Binormal.Cross(d.Tangent)
	if n.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return n.Normalize()
}

// Displace evaluates the active waves at surface position (x, z) and time t.
func (s *Surface) Displace(x, z, t float64) Displacement {
	p := s.waves.Load()
	if p == nil {
		return Displace(nil, x, z, t)
	}
	return Displace(*p, x, z, t)
}

// Displace sums the Gerstner contributions of waves at (x, z) and time t.
// Directions are expected to be unit length.
func Displace(waves []Wave, x, z, t float64) Displacement {
	var off, tan, bin [3]float64
	tan[0], bin[2] = 1, 1
	for _, w := range waves {
		k := 2 * math.Pi / w.Wavelength
		c := math.Sqrt(gravity/k) * w.Speed
		dx, dz := float64(w.Direction[0]), float64(w.Direction[1])
		phase := k * (dx*x + dz*z - c*t)
		sin, cos := math.Sincos(phase)
		q := w.Steepness / k

		off[0] += q * dx * cos
		off[1] += w.Amplitude * sin
		off[2] += q * dz * cos

		ss := w.Steepness * sin
		ak := w.Amplitude * k * cos
		tan[0] -= dx * dx * ss
		tan[1] += dx * ak
		tan[2] -= dx * dz * ss
		bin[0] -= dx * dz * ss
		bin[1] += dz * ak
		bin[2] -= dz * dz * ss
	}
	return Displacement{Offset: vec3(off), Tangent: vec3(tan), Binormal: vec3(bin)}
}

func vec3(v [3]float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

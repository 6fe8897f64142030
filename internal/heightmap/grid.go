// Package heightmap bakes terrain elevation into a grid and serves height
// queries from the most recent complete bake.
package heightmap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"procworld/internal/noise"
)

// ErrOutOfCoverage is returned for positions outside the baked square, and
// for any query before the first bake completes.
var ErrOutOfCoverage = errors.New("heightmap: position outside baked coverage")

// Params describes a bake.
type Params struct {
	Seed         int64
	Scale        float64 // noise frequency per world unit
	Amplitude    float64
	Octaves      int
	PhysicalSize float64 // edge of the covered square in world units
	Resolution   int     // texels per edge
}

// Validate checks the parameters can produce a grid.
func (p Params) Validate() error {
	switch {
	case p.Resolution < 2:
		return fmt.Errorf("resolution %d: must be at least 2", p.Resolution)
	case p.PhysicalSize <= 0:
		return fmt.Errorf("physical size %v: must be positive", p.PhysicalSize)
	case p.Octaves < 1 || p.Octaves > noise.MaxOctaves:
		return fmt.Errorf("octaves %d: must be within [1,%d]", p.Octaves, noise.MaxOctaves)
	}
	return nil
}

// Grid is a completed bake. It is never modified after Bake returns.
type Grid struct {
	Params  Params
	Heights []float32 // row-major, z rows of x texels
	Min     float32
	Max     float32
}

// Bake evaluates fbm for every texel center. Rows are computed in parallel.
func Bake(ctx context.Context, p Params) (*Grid, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	field := noise.New(p.Seed)
	res := p.Resolution
	heights := make([]float32, res*res)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runtime.NumCPU(), 1))
	for row := 0; row < res; row++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			wz := p.texelWorld(row)
			for col := 0; col < res; col++ {
				wx := p.texelWorld(col)
				h := field.FBM(wx*p.Scale, wz*p.Scale, 0, p.Octaves) * p.Amplitude
				heights[row*res+col] = float32(h)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}

	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, h := range heights {
		lo = min(lo, h)
		hi = max(hi, h)
	}
	return &Grid{Params: p, Heights: heights, Min: lo, Max: hi}, nil
}

// texelWorld maps a texel index to the world coordinate of its center,
// relative to the grid center.
func (p Params) texelWorld(i int) float64 {
	return (float64(i)+0.5)/float64(p.Resolution)*p.PhysicalSize - p.PhysicalSize/2
}

// At returns the texel at column ix, row iz, clamped to the grid.
func (g *Grid) At(ix, iz int) float32 {
	res := g.Params.Resolution
	ix = min(max(ix, 0), res-1)
	iz = min(max(iz, 0), res-1)
	return g.Heights[iz*res+ix]
}

// Nearest returns the texel covering normalized coordinates (u, v). u = 1 maps
// to the last texel.
func (g *Grid) Nearest(u, v float64) float32 {
	res := float64(g.Params.Resolution)
	return g.At(int(math.Floor(u*res)), int(math.Floor(v*res)))
}

// Bilinear interpolates between the four texel centers around (u, v).
func (g *Grid) Bilinear(u, v float64) float32 {
	res := float64(g.Params.Resolution)
	fx := u*res - 0.5
	fz := v*res - 0.5
	x0 := math.Floor(fx)
	z0 := math.Floor(fz)
	tx := float32(fx - x0)
	tz := float32(fz - z0)
	ix, iz := int(x0), int(z0)
	h00 := g.At(ix, iz)
	h10 := g.At(ix+1, iz)
	h01 := g.At(ix, iz+1)
	h11 := g.At(ix+1, iz+1)
	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz
}

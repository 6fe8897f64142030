package city

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/meshing"
	"procworld/internal/noise"
)

// Block is an axis-aligned box: X and Z give the footprint center, Y the base.
type Block struct {
	X, Y, Z float64
	W, H, D float64
}

// Massing expresses a shape as blocks sized relative to the building's
// width, height and depth, centered on the origin.
func Massing(s Shape, w, h, d float64) []Block {
	switch s {
	case LShape:
		return []Block{
			{X: 0, Y: 0, Z: -0.3 * d, W: w, H: h, D: 0.4 * d},
			{X: -0.3 * w, Y: 0, Z: 0.2 * d, W: 0.4 * w, H: h, D: 0.6 * d},
		}
	case Stepped:
		return []Block{
			{W: w, H: 0.4 * h, D: d},
			{Y: 0.4 * h, W: 0.7 * w, H: 0.3 * h, D: 0.7 * d},
			{Y: 0.7 * h, W: 0.4 * w, H: 0.3 * h, D: 0.4 * d},
		}
	case Tower:
		return []Block{
			{W: w, H: 0.1 * h, D: d},
			{Y: 0.1 * h, W: 0.6 * w, H: 0.8 * h, D: 0.6 * d},
			{Y: 0.9 * h, W: 0.4 * w, H: 0.1 * h, D: 0.4 * d},
		}
	default:
		return []Block{{W: w, H: h, D: d}}
	}
}

// Facades meshes blocks with window cells. The color channel of each vertex
// holds (window mask, emission phase, 0); the wall tint travels with the
// instance.
func Facades(blocks []Block, windowDensity, floorHeight float64) *meshing.Mesh {
	m := meshing.NewColored()
	for _, b := range blocks {
		x0, x1 := b.X-b.W/2, b.X+b.W/2
		z0, z1 := b.Z-b.D/2, b.Z+b.D/2
		y0, y1 := b.Y, b.Y+b.H
		// Walls run counterclockwise seen from above so every face points out.
		wall(m, mgl32.Vec2{f32(x0), f32(z1)}, mgl32.Vec2{f32(x1), f32(z1)}, y0, y1, mgl32.Vec3{0, 0, 1}, windowDensity, floorHeight)
		wall(m, mgl32.Vec2{f32(x1), f32(z1)}, mgl32.Vec2{f32(x1), f32(z0)}, y0, y1, mgl32.Vec3{1, 0, 0}, windowDensity, floorHeight)
		wall(m, mgl32.Vec2{f32(x1), f32(z0)}, mgl32.Vec2{f32(x0), f32(z0)}, y0, y1, mgl32.Vec3{0, 0, -1}, windowDensity, floorHeight)
		wall(m, mgl32.Vec2{f32(x0), f32(z0)}, mgl32.Vec2{f32(x0), f32(z1)}, y0, y1, mgl32.Vec3{-1, 0, 0}, windowDensity, floorHeight)
		flat(m, f32(x0), f32(z0), f32(x1), f32(z1), f32(y1), mgl32.Vec3{})
	}
	return m
}

// wall splits the face from a to b into a floor by column grid. A cell is a
// window when the hash of its lower corner falls below windowDensity.
func wall(m *meshing.Mesh, a, b mgl32.Vec2, y0, y1 float64, normal mgl32.Vec3, windowDensity, floorHeight float64) {
	h := y1 - y0
	length := float64(b.Sub(a).Len())
	floors := max(1, int(math.Floor(h/floorHeight)))
	cols := max(1, int(math.Floor(length/2)))
	dy := h / float64(floors)
	for f := range floors {
		ya := y0 + float64(f)*dy
		yb := ya + dy
		for c := range cols {
			p := a.Add(b.Sub(a).Mul(float32(c) / float32(cols)))
			q := a.Add(b.Sub(a).Mul(float32(c+1) / float32(cols)))
			hash := noise.Hash3(float64(p[0]), ya, float64(p[1]))
			var mask mgl32.Vec3
			if hash < windowDensity {
				mask = mgl32.Vec3{1, f32(hash), 0}
			}
			m.Quad(
				mgl32.Vec3{p[0], f32(ya), p[1]},
				mgl32.Vec3{q[0], f32(ya), q[1]},
				mgl32.Vec3{p[0], f32(yb), p[1]},
				mgl32.Vec3{q[0], f32(yb), q[1]},
				normal, mask, false,
			)
		}
	}
}

// WindowCount counts window cells in a facade mesh.
func WindowCount(m *meshing.Mesh) int {
	n := 0
	for i := 0; i < len(m.Colors); i += 12 {
		if m.Colors[i] > 0.5 {
			n++
		}
	}
	return n
}

func f32(v float64) float32 { return float32(v) }

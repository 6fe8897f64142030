package scatter

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/meshing"
	"procworld/internal/world"
)

// FlowerColor is a petal tint range; petals are white in the mesh and tinted
// by the renderer between Dark and Light.
type FlowerColor struct {
	Name  string
	Dark  mgl32.Vec3
	Light mgl32.Vec3
}

// FlowerPalette is indexed by a flower instance's Variant.
var FlowerPalette = [4]FlowerColor{
	{Name: "red", Dark: rgb(0x8B, 0x00, 0x00), Light: rgb(0xFF, 0x00, 0x00)},
	{Name: "pink", Dark: rgb(0xC7, 0x15, 0x85), Light: rgb(0xFF, 0x69, 0xB4)},
	{Name: "yellow", Dark: rgb(0xDA, 0xA5, 0x20), Light: rgb(0xFF, 0xD7, 0x00)},
	{Name: "white", Dark: rgb(0xD3, 0xD3, 0xD3), Light: rgb(0xFF, 0xFF, 0xFF)},
}

func rgb(r, g, b uint8) mgl32.Vec3 {
	return mgl32.Vec3{float32(r) / 255, float32(g) / 255, float32(b) / 255}
}

const (
	bladeWidth  = 0.1
	bladeHeight = 0.4
)

// GrassBlade is the grass prototype: one double sided quad facing +z, plus a
// second one facing +x when crossQuad is set.
func GrassBlade(crossQuad bool) *meshing.Mesh {
	m := meshing.New()
	hw := float32(bladeWidth / 2)
	h := float32(bladeHeight)
	white := mgl32.Vec3{1, 1, 1}
	m.Quad(mgl32.Vec3{-hw, 0, 0}, mgl32.Vec3{hw, 0, 0}, mgl32.Vec3{-hw, h, 0}, mgl32.Vec3{hw, h, 0}, mgl32.Vec3{0, 0, 1}, white, true)
	if crossQuad {
		m.Quad(mgl32.Vec3{0, 0, -hw}, mgl32.Vec3{0, 0, hw}, mgl32.Vec3{0, h, -hw}, mgl32.Vec3{0, h, hw}, mgl32.Vec3{1, 0, 0}, white, true)
	}
	return m
}

var (
	stemColor   = mgl32.Vec3{0.3, 0.5, 0.2}
	centerColor = mgl32.Vec3{1.0, 0.8, 0.2}
	petalColor  = mgl32.Vec3{1, 1, 1}
)

// Flower is the flower prototype: a crossed stem, a flat center and
// petalCount petals radiating from it. Petals are white for tinting.
func Flower(petalCount int) *meshing.Mesh {
	const (
		stemHeight   = 0.15
		stemWidth    = 0.01
		petalLength  = 0.1
		petalWidth   = 0.08
		centerRadius = 0.03
		petalLift    = 0.02
	)
	petalCount = max(petalCount, 1)
	m := meshing.NewColored()

	sw := float32(stemWidth / 2)
	sh := float32(stemHeight)
	m.Quad(mgl32.Vec3{-sw, 0, 0}, mgl32.Vec3{sw, 0, 0}, mgl32.Vec3{-sw, sh, 0}, mgl32.Vec3{sw, sh, 0}, mgl32.Vec3{0, 0, 1}, stemColor, true)
	m.Quad(mgl32.Vec3{0, 0, -sw}, mgl32.Vec3{0, 0, sw}, mgl32.Vec3{0, sh, -sw}, mgl32.Vec3{0, sh, sw}, mgl32.Vec3{1, 0, 0}, stemColor, true)

	cr := float32(centerRadius)
	m.Quad(mgl32.Vec3{-cr, sh, -cr}, mgl32.Vec3{cr, sh, -cr}, mgl32.Vec3{-cr, sh, cr}, mgl32.Vec3{cr, sh, cr}, mgl32.Vec3{0, 1, 0}, centerColor, true)

	up := mgl32.Vec3{0, 1, 0}
	for i := 0; i < petalCount; i++ {
		a := float64(i) / float64(petalCount) * 2 * math.Pi
		dir := mgl32.Vec3{float32(math.Cos(a)), 0, float32(math.Sin(a))}
		perp := mgl32.Vec3{-dir[2], 0, dir[0]}
		half := float32(petalWidth / 2)

		base := dir.Mul(cr * 0.8).Add(mgl32.Vec3{0, sh, 0})
		tip := dir.Mul(cr + petalLength).Add(mgl32.Vec3{0, sh + petalLift, 0})
		m.Quad(
			base.Sub(perp.Mul(half*0.3)), base.Add(perp.Mul(half*0.3)),
			tip.Sub(perp.Mul(half)), tip.Add(perp.Mul(half)),
			up, petalColor, true)
	}
	return m
}

// GrassPrototype holds the blade at High and Mid and a patch billboard at Low.
func GrassPrototype(crossQuad bool) *world.Prototype {
	blade := GrassBlade(crossQuad)
	patch := meshing.New()
	patch.CrossedQuads(1, bladeHeight, mgl32.Vec3{1, 1, 1})
	return &world.Prototype{Variants: []world.Variant{
		{Name: "blade", Tiers: [3]*meshing.Mesh{blade, blade, patch}},
	}}
}

// FlowerPrototype holds one flower mesh per palette entry; the mesh is shared
// and the renderer tints petals by variant.
func FlowerPrototype(petalCount int) *world.Prototype {
	f := Flower(petalCount)
	p := &world.Prototype{Variants: make([]world.Variant, len(FlowerPalette))}
	for i, c := range FlowerPalette {
		p.Variants[i] = world.Variant{Name: c.Name, Tiers: [3]*meshing.Mesh{f, f, f}}
	}
	return p
}

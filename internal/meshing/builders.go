package meshing

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Quad appends the quad p1 p2 p3 p4 (p1-p2 bottom edge, p3-p4 top edge) with uv
// corners (0,0) (1,0) (0,1) (1,1). A double sided quad repeats the triangles with
// reversed winding.
func (m *Mesh) Quad(p1, p2, p3, p4, normal mgl32.Vec3, color mgl32.Vec3, doubleSided bool) {
	a := m.Add(Vertex{Pos: p1, Normal: normal, UV: mgl32.Vec2{0, 0}, Color: color})
	b := m.Add(Vertex{Pos: p2, Normal: normal, UV: mgl32.Vec2{1, 0}, Color: color})
	c := m.Add(Vertex{Pos: p3, Normal: normal, UV: mgl32.Vec2{0, 1}, Color: color})
	d := m.Add(Vertex{Pos: p4, Normal: normal, UV: mgl32.Vec2{1, 1}, Color: color})
	m.Triangle(a, b, c)
	m.Triangle(c, b, d)
	if doubleSided {
		m.Triangle(a, c, b)
		m.Triangle(c, d, b)
	}
}

// Cylinder appends an open tapered tube from start to end with the given ring
// segment count. The ring frame is derived from the segment direction.
func (m *Mesh) Cylinder(start, end mgl32.Vec3, rBottom, rTop float32, segments int, color mgl32.Vec3) {
	if segments < 3 {
		segments = 3
	}
	dir := end.Sub(start)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	tangent := mgl32.Vec3{0, 1, 0}
	if abs32(dir[1]) > 0.9 {
		tangent = mgl32.Vec3{1, 0, 0}
	}
	binormal := dir.Cross(tangent).Normalize()
	tangent = binormal.Cross(dir).Normalize()

	first := uint32(m.VertexCount())
	for i := 0; i <= segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		sin, cos := float32(math.Sin(theta)), float32(math.Cos(theta))
		radial := tangent.Mul(cos).Add(binormal.Mul(sin))
		u := float32(i) / float32(segments)
		m.Add(Vertex{Pos: start.Add(radial.Mul(rBottom)), Normal: radial, UV: mgl32.Vec2{u, 0}, Color: color})
		m.Add(Vertex{Pos: end.Add(radial.Mul(rTop)), Normal: radial, UV: mgl32.Vec2{u, 1}, Color: color})
	}
	for i := 0; i < segments; i++ {
		base := first + uint32(i*2)
		m.Triangle(base, base+1, base+2)
		m.Triangle(base+1, base+3, base+2)
	}
}

// Plane appends a size x size grid in the XZ plane centered at the origin with
// segments x segments cells, normals up. Vertices are laid out row-major along
// z then x, so vertex (ix, iz) is at index iz*(segments+1)+ix.
func (m *Mesh) Plane(size float32, segments int, color mgl32.Vec3) {
	if segments < 1 {
		segments = 1
	}
	first := uint32(m.VertexCount())
	step := size / float32(segments)
	half := size / 2
	for iz := 0; iz <= segments; iz++ {
		for ix := 0; ix <= segments; ix++ {
			m.Add(Vertex{
				Pos:    mgl32.Vec3{-half + float32(ix)*step, 0, -half + float32(iz)*step},
				Normal: mgl32.Vec3{0, 1, 0},
				UV:     mgl32.Vec2{float32(ix) / float32(segments), float32(iz) / float32(segments)},
				Color:  color,
			})
		}
	}
	row := uint32(segments + 1)
	for iz := 0; iz < segments; iz++ {
		for ix := 0; ix < segments; ix++ {
			a := first + uint32(iz)*row + uint32(ix)
			b := a + 1
			c := a + row
			d := c + 1
			m.Triangle(a, c, b)
			m.Triangle(b, c, d)
		}
	}
}

// CrossedQuads appends two vertical double sided quads crossing at the origin,
// the cheap stand-in used for distant vegetation.
func (m *Mesh) CrossedQuads(width, height float32, color mgl32.Vec3) {
	hw := width / 2
	m.Quad(
		mgl32.Vec3{-hw, 0, 0}, mgl32.Vec3{hw, 0, 0},
		mgl32.Vec3{-hw, height, 0}, mgl32.Vec3{hw, height, 0},
		mgl32.Vec3{0, 0, 1}, color, true)
	m.Quad(
		mgl32.Vec3{0, 0, -hw}, mgl32.Vec3{0, 0, hw},
		mgl32.Vec3{0, height, -hw}, mgl32.Vec3{0, height, hw},
		mgl32.Vec3{1, 0, 0}, color, true)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

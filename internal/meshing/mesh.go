package meshing

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is a single mesh vertex. Color is only stored when the mesh carries a
// color channel.
type Vertex struct {
	Pos    mgl32.Vec3
	Normal mgl32.Vec3
	UV     mgl32.Vec2
	Color  mgl32.Vec3
}

// Mesh holds flat vertex buffers ready for upload by a renderer.
type Mesh struct {
	Positions []float32 // xyz
	Normals   []float32 // xyz
	UVs       []float32 // uv
	Colors    []float32 // rgb, empty unless colored
	Indices   []uint32

	colored bool
}

// New returns an empty mesh without a color channel.
func New() *Mesh {
	return &Mesh{}
}

// NewColored returns an empty mesh with a per-vertex color channel.
func NewColored() *Mesh {
	return &Mesh{colored: true}
}

// Colored reports whether the mesh carries vertex colors.
func (m *Mesh) Colored() bool {
	return m.colored
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// TriangleCount returns the number of indexed triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Add appends v and returns its index.
func (m *Mesh) Add(v Vertex) uint32 {
	idx := uint32(m.VertexCount())
	m.Positions = append(m.Positions, v.Pos[0], v.Pos[1], v.Pos[2])
	m.Normals = append(m.Normals, v.Normal[0], v.Normal[1], v.Normal[2])
	m.UVs = append(m.UVs, v.UV[0], v.UV[1])
	if m.colored {
		m.Colors = append(m.Colors, v.Color[0], v.Color[1], v.Color[2])
	}
	return idx
}

// Triangle appends one indexed triangle.
func (m *Mesh) Triangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

// Position returns vertex i's position.
func (m *Mesh) Position(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2]}
}

// SetPosition overwrites vertex i's position.
func (m *Mesh) SetPosition(i int, p mgl32.Vec3) {
	m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2] = p[0], p[1], p[2]
}

// Normal returns vertex i's normal.
func (m *Mesh) Normal(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2]}
}

// SetNormal overwrites vertex i's normal.
func (m *Mesh) SetNormal(i int, n mgl32.Vec3) {
	m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2] = n[0], n[1], n[2]
}

// Append copies all of o into m, rebasing o's indices. Colors are filled with
// white when only one side is colored.
func (m *Mesh) Append(o *Mesh) {
	if o == nil {
		return
	}
	base := uint32(m.VertexCount())
	m.Positions = append(m.Positions, o.Positions...)
	m.Normals = append(m.Normals, o.Normals...)
	m.UVs = append(m.UVs, o.UVs...)
	if m.colored {
		if o.colored {
			m.Colors = append(m.Colors, o.Colors...)
		} else {
			for range o.VertexCount() {
				m.Colors = append(m.Colors, 1, 1, 1)
			}
		}
	}
	for _, i := range o.Indices {
		m.Indices = append(m.Indices, base+i)
	}
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{colored: m.colored}
	c.Positions = append([]float32(nil), m.Positions...)
	c.Normals = append([]float32(nil), m.Normals...)
	c.UVs = append([]float32(nil), m.UVs...)
	c.Colors = append([]float32(nil), m.Colors...)
	c.Indices = append([]uint32(nil), m.Indices...)
	return c
}

// Transformed returns a copy of m with positions multiplied by mat and normals
// by its rotation part.
func (m *Mesh) Transformed(mat mgl32.Mat4) *Mesh {
	c := m.Clone()
	normalMat := mat.Mat3().Inv().Transpose()
	for i := range c.VertexCount() {
		c.SetPosition(i, mgl32.TransformCoordinate(c.Position(i), mat))
		n := normalMat.Mul3x1(c.Normal(i))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		c.SetNormal(i, n)
	}
	return c
}

// Bounds returns the axis-aligned bounding box. An empty mesh returns zero vectors.
func (m *Mesh) Bounds() (lo, hi mgl32.Vec3) {
	if m.VertexCount() == 0 {
		return
	}
	lo = mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi = mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := range m.VertexCount() {
		p := m.Position(i)
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	return lo, hi
}

// Validate checks buffer lengths and index ranges.
func (m *Mesh) Validate() error {
	n := m.VertexCount()
	if len(m.Positions)%3 != 0 {
		return fmt.Errorf("positions length %d not a multiple of 3", len(m.Positions))
	}
	if len(m.Normals) != n*3 || len(m.UVs) != n*2 {
		return fmt.Errorf("attribute length mismatch: %d vertices, %d normals, %d uvs", n, len(m.Normals)/3, len(m.UVs)/2)
	}
	if m.colored && len(m.Colors) != n*3 {
		return fmt.Errorf("color length mismatch: %d vertices, %d colors", n, len(m.Colors)/3)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d not a multiple of 3", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("index %d at %d out of range (%d vertices)", idx, i, n)
		}
	}
	return nil
}

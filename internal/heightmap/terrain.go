package heightmap

import (
	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/lod"
	"procworld/internal/meshing"
)

// TerrainMesh tessellates the current bake around (centerX, centerZ) at the
// given detail. Positions are in world space; uncovered vertices sit at y=0.
// Normals come from central differences of the sampled heights.
func (s *Sampler) TerrainMesh(centerX, centerZ float64, d lod.MeshDetail) *meshing.Mesh {
	m := meshing.New()
	m.Plane(float32(d.Size), d.Segments, mgl32.Vec3{1, 1, 1})

	step := d.Size / float64(d.Segments)
	for i := range m.VertexCount() {
		p := m.Position(i)
		wx := centerX + float64(p[0])
		wz := centerZ + float64(p[2])
		h := s.HeightOr(wx, wz, 0)
		m.SetPosition(i, mgl32.Vec3{float32(wx), float32(h), float32(wz)})

		hl := s.HeightOr(wx-step, wz, h)
		hr := s.HeightOr(wx+step, wz, h)
		hd := s.HeightOr(wx, wz-step, h)
		hu := s.HeightOr(wx, wz+step, h)
		n := mgl32.Vec3{float32(hl - hr), float32(2 * step), float32(hd - hu)}
		m.SetNormal(i, n.Normalize())
	}
	return m
}

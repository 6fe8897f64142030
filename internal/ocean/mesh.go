package ocean

import (
	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/lod"
	"procworld/internal/meshing"
)

// Mesh tessellates the surface around (centerX, centerZ) at the detail for
// tier and displaces it to time t. Positions are in world space.
func (s *Surface) Mesh(centerX, centerZ float64, tier lod.Tier, t float64) *meshing.Mesh {
	d := lod.OceanDetail(tier)
	m := meshing.New()
	m.Plane(float32(d.Size), d.Segments, mgl32.Vec3{1, 1, 1})
	p := s.waves.Load()
	var waves []Wave
	if p != nil {
		waves = *p
	}
	for i := range m.VertexCount() {
		v := m.Position(i)
		x := centerX + float64(v[0])
		z := centerZ + float64(v[2])
		disp := Displace(waves, x, z, t)
		m.SetPosition(i, mgl32.Vec3{
			float32(x) + disp.Offset[0],
			float32(s.level) + disp.Offset[1],
			float32(z) + disp.Offset[2],
		})
		m.SetNormal(i, disp.Normal())
	}
	return m
}

// Package lod maps observer distance to a detail tier. Every function here is
// pure; the renderer owns visibility toggling.
package lod

// Tier is a discrete detail level.
type Tier uint8

const (
	High Tier = iota
	Mid
	Low
)

func (t Tier) String() string {
	switch t {
	case High:
		return "high"
	case Mid:
		return "mid"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

// Thresholds selects High below Near, Mid below Far, Low otherwise. A zero Far
// disables the Mid tier.
type Thresholds struct {
	Near float64
	Far  float64
}

// Select returns the tier for distance d.
func (th Thresholds) Select(d float64) Tier {
	switch {
	case d < th.Near:
		return High
	case th.Far > 0 && d < th.Far:
		return Mid
	default:
		return Low
	}
}

var (
	Terrain = Thresholds{Near: 30, Far: 60}
	Ocean   = Thresholds{Near: 40, Far: 80}
	Trees   = Thresholds{Near: 15, Far: 30}
	// Grass has no mid tier: close blades or a billboard.
	Grass = Thresholds{Near: 30}
)

// MeshDetail is the plane size and subdivision used to tessellate a surface
// at a tier.
type MeshDetail struct {
	Size     float64
	Segments int
}

var terrainDetail = [...]MeshDetail{
	High: {Size: 30, Segments: 256},
	Mid:  {Size: 60, Segments: 128},
	Low:  {Size: 100, Segments: 64},
}

var oceanDetail = [...]MeshDetail{
	High: {Size: 60, Segments: 200},
	Mid:  {Size: 100, Segments: 100},
	Low:  {Size: 150, Segments: 50},
}

// TerrainDetail returns the terrain tessellation for a tier.
func TerrainDetail(t Tier) MeshDetail {
	return terrainDetail[clamp(t)]
}

// OceanDetail returns the ocean tessellation for a tier.
func OceanDetail(t Tier) MeshDetail {
	return oceanDetail[clamp(t)]
}

// TreeIterationsAt returns the L-system depth used at a tier. Low renders a
// billboard and reports 0.
func TreeIterationsAt(t Tier, full int) int {
	switch t {
	case High:
		return full
	case Mid:
		return max(1, full-1)
	default:
		return 0
	}
}

func clamp(t Tier) Tier {
	if t > Low {
		return Low
	}
	return t
}

// Package scatter places grass and flowers by thresholding noise on a jittered
// sub-grid of each chunk.
package scatter

import (
	"math"
	"math/rand"

	"procworld/internal/noise"
	"procworld/internal/world"
)

const (
	// GrassSeedOffset and FlowerSeedOffset decorrelate the two layers.
	GrassSeedOffset  = 1000
	FlowerSeedOffset = 2000

	placementFrequency = 0.05
	colorFrequency     = 0.2
	colorSeedOffset    = 123
)

// Params configures one scatter layer. Values are copied into each request.
type Params struct {
	Seed       int64
	SeedOffset int64
	Density    float64
	Threshold  float64
}

type layer struct {
	step     float64
	jitter   float64
	perUnit  float64 // instances per unit density
	hardCap  int
	scaleXZ  [2]float64 // min, span
	scaleY   [2]float64
	coloured bool
}

var (
	grassLayer = layer{
		step: 0.2, jitter: 0.1, perUnit: 250, hardCap: 500,
		scaleXZ: [2]float64{0.9, 0.2}, scaleY: [2]float64{0.7, 0.6},
	}
	flowerLayer = layer{
		step: 0.3, jitter: 0.2, perUnit: 30, hardCap: 100,
		scaleXZ: [2]float64{0.8, 0.4}, scaleY: [2]float64{0.8, 0.4},
		coloured: true,
	}
)

// MaxGrass is the per-chunk grass instance cap for a density.
func MaxGrass(density float64) int { return grassLayer.limit(density) }

// MaxFlowers is the per-chunk flower instance cap for a density.
func MaxFlowers(density float64) int { return flowerLayer.limit(density) }

func (l layer) limit(density float64) int {
	return max(min(int(math.Floor(density*l.perUnit)), l.hardCap), 0)
}

// ChunkSeed is the per-chunk seed for a layer.
func ChunkSeed(p Params, id world.ChunkID) int64 {
	return p.Seed + p.SeedOffset + int64(id.X)*73 + int64(id.Z)*37
}

// Grass generates the grass instances of a chunk in chunk-local coordinates.
func Grass(id world.ChunkID, p Params) *world.Payload {
	return grassLayer.scatter(id, p)
}

// Flowers generates the flower instances of a chunk. Variant is the palette
// index.
func Flowers(id world.ChunkID, p Params) *world.Payload {
	return flowerLayer.scatter(id, p)
}

func (l layer) scatter(id world.ChunkID, p Params) *world.Payload {
	seed := ChunkSeed(p, id)
	field := noise.New(seed)
	rng := rand.New(rand.NewSource(seed))

	limit := l.limit(p.Density)
	out := &world.Payload{Instances: make([]world.Instance, 0, min(limit, 64))}
	if limit == 0 {
		return out
	}

	ox, oz := id.Origin()
	cells := int(math.Floor(world.ChunkSize / l.step))
	z3 := float64(p.Seed)
	for ix := 0; ix < cells; ix++ {
		for iz := 0; iz < cells; iz++ {
			x := float64(ix)*l.step + rng.Float64()*l.jitter
			z := float64(iz)*l.step + rng.Float64()*l.jitter
			wx, wz := ox+x, oz+z

			if field.Sample3(wx*placementFrequency, wz*placementFrequency, z3) <= p.Threshold {
				continue
			}
			inst := world.Instance{
				X:        float32(x),
				Z:        float32(z),
				Rotation: float32(rng.Float64() * 2 * math.Pi),
				ScaleXZ:  float32(l.scaleXZ[0] + rng.Float64()*l.scaleXZ[1]),
				ScaleY:   float32(l.scaleY[0] + rng.Float64()*l.scaleY[1]),
			}
			if l.coloured {
				n := field.Sample3(wx*colorFrequency, wz*colorFrequency, z3+colorSeedOffset)
				inst.Variant = ColorIndex(n)
			}
			out.Instances = append(out.Instances, inst)
			if len(out.Instances) >= limit {
				return out
			}
		}
	}
	return out
}

// ColorIndex maps a noise sample in [-1, 1] to one of the palette entries.
func ColorIndex(n float64) int {
	i := int(math.Floor((n+1)*2)) % len(FlowerPalette)
	if i < 0 {
		i = -i
	}
	return i
}

package lsystem

import (
	"cmp"
	"context"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"procworld/internal/lod"
	"procworld/internal/meshing"
	"procworld/internal/noise"
	"procworld/internal/world"
)

// ForestParams configures tree placement for one chunk.
type ForestParams struct {
	Seed      int64
	Density   float64
	SizeRange [2]float64
	Species   int // number of varieties; Instance.Variant indexes them
}

// MaxTrees is the number of candidate positions tried per chunk.
func MaxTrees(density float64) int {
	return max(int(math.Floor(density*100)), 0)
}

// Forest places tree instances in a chunk. Candidates are scattered at
// random and kept where the placement noise is positive.
func Forest(id world.ChunkID, p ForestParams) *world.Payload {
	seed := p.Seed + int64(id.X)*100 + int64(id.Z)
	field := noise.New(seed)
	rng := rand.New(rand.NewSource(seed))
	out := &world.Payload{}
	if p.Species <= 0 {
		return out
	}
	lo, hi := p.SizeRange[0], p.SizeRange[1]
	ox, oz := id.Origin()
	for range MaxTrees(p.Density) {
		x := rng.Float64() * world.ChunkSize
		z := rng.Float64() * world.ChunkSize
		n := field.Sample3((ox+x)*0.05, (oz+z)*0.05, float64(p.Seed))
		if n <= 0 {
			continue
		}
		variant := rng.Intn(p.Species)
		scale := float32(lo + rng.Float64()*(hi-lo))
		out.Instances = append(out.Instances, world.Instance{
			X:        float32(x),
			Z:        float32(z),
			Rotation: float32(rng.Float64() * 2 * math.Pi),
			ScaleXZ:  scale,
			ScaleY:   scale,
			Variant:  variant,
		})
	}
	return out
}

// Billboard builds the Low tier stand-in for a grown tree: two crossed quads
// matching its footprint and height.
func Billboard(high *meshing.Mesh, color mgl32.Vec3) *meshing.Mesh {
	lo, hi := high.Bounds()
	width := max(hi[0]-lo[0], hi[2]-lo[2], 0.5)
	height := max(hi[1], 0.5)
	m := meshing.NewColored()
	m.CrossedQuads(width, height, color)
	return m
}

// Prototypes grows every species at High and Mid in parallel and derives the
// Low billboards. A species whose grammar is malformed gets a Variant with
// Err set instead of meshes; the call only fails if ctx is cancelled.
func Prototypes(ctx context.Context, species []Species, seed int64) (*world.Prototype, error) {
	proto := &world.Prototype{Variants: make([]world.Variant, len(species))}
	errs := make([][2]error, len(species))
	g, ctx := errgroup.WithContext(ctx)
	for i, sp := range species {
		proto.Variants[i].Name = sp.Name
		for _, tier := range []lod.Tier{lod.High, lod.Mid} {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				// each goroutine writes only its own slots
				proto.Variants[i].Tiers[tier], errs[i][tier] = Grow(sp, tier, seed)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range proto.Variants {
		v := &proto.Variants[i]
		if err := cmp.Or(errs[i][lod.High], errs[i][lod.Mid]); err != nil {
			v.Err = err
			v.Tiers = [3]*meshing.Mesh{}
			continue
		}
		v.Tiers[lod.Low] = Billboard(v.Tiers[lod.High], species[i].LeafColor)
	}
	return proto, nil
}

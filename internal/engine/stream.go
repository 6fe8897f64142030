package engine

import (
	"errors"
	"fmt"

	"procworld/internal/config"
	"procworld/internal/lod"
	"procworld/internal/lsystem"
	"procworld/internal/pipeline"
	"procworld/internal/scatter"
	"procworld/internal/world"
)

type coupling uint8

const (
	// vegetation is dropped off the baked terrain and below the ocean level.
	coupleVegetation coupling = iota
	// ground content sits on the terrain, or at 0 where it is not covered.
	coupleGround
)

// stream is one domain's chunk window and generation state.
type stream struct {
	domain   pipeline.Domain
	grid     *world.Grid
	gen      uint64
	tiers    lod.Thresholds
	coupling coupling

	chunkParams any
	protoParams any // nil when the domain has no prototype

	proto    *world.Prototype
	future   *pipeline.Future
	deferred []pipeline.Response

	stale  uint64 // responses dropped on arrival
	failed uint64 // chunks whose generation returned an error

	// observer and grid ModCount at the last distance and tier refresh
	seenX, seenZ float64
	seenMod      uint64
	seen         bool
}

// settings derives a domain's window and request parameters from cfg.
func settings(d pipeline.Domain, cfg *config.Config) (sc config.StreamConfig, chunk, proto any, err error) {
	switch d {
	case pipeline.Grass:
		g := cfg.Grass
		return g.StreamConfig, scatterParams(g.ScatterConfig), grassPrototype{CrossQuad: g.CrossQuad}, nil
	case pipeline.Flowers:
		f := cfg.Flowers
		return f.StreamConfig, scatterParams(f.ScatterConfig), flowerPrototype{Petals: f.Petals}, nil
	case pipeline.Trees:
		t := cfg.Trees
		species, err := t.Species()
		if err != nil {
			return sc, nil, nil, err
		}
		chunk = lsystem.ForestParams{
			Seed:      t.Seed,
			Density:   t.Density,
			SizeRange: t.SizeRange,
			Species:   len(species),
		}
		return t.StreamConfig, chunk, treePrototype{Species: species, Seed: t.Seed}, nil
	case pipeline.Roads:
		return cfg.Roads.StreamConfig, roadParams{Seed: cfg.Roads.Seed}, nil, nil
	case pipeline.Buildings:
		archetypes, err := cfg.Buildings.CityArchetypes()
		if err != nil {
			return sc, nil, nil, err
		}
		return cfg.Buildings.StreamConfig, buildingParams{Seed: cfg.Buildings.Seed, Archetypes: archetypes}, nil, nil
	}
	return sc, nil, nil, fmt.Errorf("unknown domain %q", d)
}

func scatterParams(c config.ScatterConfig) scatter.Params {
	return scatter.Params{
		Seed:       c.Seed,
		SeedOffset: c.SeedOffset,
		Density:    c.Density,
		Threshold:  c.Threshold,
	}
}

var domainTiers = map[pipeline.Domain]lod.Thresholds{
	pipeline.Grass:     lod.Grass,
	pipeline.Flowers:   lod.Grass,
	pipeline.Trees:     lod.Trees,
	pipeline.Roads:     lod.Terrain,
	pipeline.Buildings: lod.Terrain,
}

func newStream(d pipeline.Domain, cfg *config.Config, gen uint64) (*stream, error) {
	sc, chunk, proto, err := settings(d, cfg)
	if err != nil {
		return nil, err
	}
	grid, err := world.NewGrid(sc.Neighborhood, sc.UnloadRadius)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d, err)
	}
	s := &stream{
		domain:      d,
		grid:        grid,
		gen:         gen,
		tiers:       domainTiers[d],
		chunkParams: chunk,
		protoParams: proto,
	}
	if d == pipeline.Roads || d == pipeline.Buildings {
		s.coupling = coupleGround
	}
	return s, nil
}

// ready reports whether chunks of this domain may be applied.
func (s *stream) ready() bool {
	return s.protoParams == nil || s.proto != nil
}

// advance moves the window to the observer and refreshes distances and
// tiers. It returns the number of chunks created and evicted.
func (s *stream) advance(x, z float64) (loaded, evicted int) {
	plan := s.grid.Plan(x, z)
	removed := s.grid.Apply(plan, s.gen)
	if s.seen && s.seenX == x && s.seenZ == z && s.seenMod == s.grid.ModCount() {
		return len(plan.Load), len(removed)
	}
	s.grid.UpdateDistances(x, z)
	for _, c := range s.grid.Chunks() {
		c.Tier = s.tiers.Select(c.Distance)
	}
	s.seenX, s.seenZ, s.seenMod, s.seen = x, z, s.grid.ModCount(), true
	return len(plan.Load), len(removed)
}

// accepts reports whether resp is the answer to c's outstanding request.
func (s *stream) accepts(c *world.Chunk, resp pipeline.Response) bool {
	return c.State == world.Generating &&
		c.RequestID == resp.ID &&
		c.Generation == s.gen &&
		resp.Generation == s.gen
}

// resolvePrototype installs the prototype once its future resolves. A failed
// prototype installs an empty one so chunks still settle, without content.
func (s *stream) resolvePrototype() (justReady bool, err error) {
	if s.ready() || s.future == nil || !s.future.Ready() {
		return false, nil
	}
	val, err := s.future.Result()
	if err != nil {
		s.proto = &world.Prototype{}
		if errors.Is(err, pipeline.ErrClosed) {
			return false, nil
		}
		return true, err
	}
	proto, ok := val.(*world.Prototype)
	if !ok {
		s.proto = &world.Prototype{}
		return true, fmt.Errorf("prototype payload %T", val)
	}
	s.proto = proto
	return true, nil
}

func (s *stream) counts() (requested, generating, resident, instances int) {
	for _, c := range s.grid.Chunks() {
		switch c.State {
		case world.Requested:
			requested++
		case world.Generating:
			generating++
		case world.Resident:
			resident++
			if c.Placed != nil {
				instances += len(c.Placed.Instances)
			}
		}
	}
	return
}

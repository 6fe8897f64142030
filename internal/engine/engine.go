// Package engine runs the control loop: it streams each domain's chunks around
// the observer, dispatches generation to the worker pool, applies responses,
// couples content to the terrain and follows configuration changes.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/config"
	"procworld/internal/heightmap"
	"procworld/internal/lod"
	"procworld/internal/meshing"
	"procworld/internal/ocean"
	"procworld/internal/pipeline"
	"procworld/internal/profiling"
	"procworld/internal/world"
)

// Options configures an Engine. Zero values pick defaults.
type Options struct {
	Logger  *log.Logger
	Tracker *profiling.Tracker
}

// Engine owns all chunk state. Tick, Snapshot and the other methods must be
// called from a single goroutine.
type Engine struct {
	store      *config.Store
	cfg        config.Config
	cfgVersion uint64

	pool    *pipeline.Pool
	streams map[pipeline.Domain]*stream

	sampler        *heightmap.Sampler
	rebaker        *heightmap.Rebaker
	coupledSampler *heightmap.Sampler
	coupledVersion uint64

	surface *ocean.Surface

	observer mgl32.Vec3
	elapsed  time.Duration
	ticks    uint64

	logger  *log.Logger
	tracker *profiling.Tracker
	closed  bool
}

// New bakes the initial terrain and starts the worker pool.
func New(ctx context.Context, store *config.Store, opt Options) (*Engine, error) {
	if opt.Logger == nil {
		opt.Logger = log.New(os.Stderr, "engine ", log.LstdFlags|log.Lmicroseconds)
	}
	if opt.Tracker == nil {
		opt.Tracker = &profiling.Tracker{}
	}
	cfg, version := store.Get()
	e := &Engine{
		store:      store,
		cfg:        cfg,
		cfgVersion: version,
		streams:    make(map[pipeline.Domain]*stream, len(pipeline.Domains)),
		logger:     opt.Logger,
		tracker:    opt.Tracker,
	}

	for _, d := range pipeline.Domains {
		s, err := newStream(d, &e.cfg, 1)
		if err != nil {
			return nil, err
		}
		e.streams[d] = s
	}

	surface, err := ocean.NewSurface(cfg.Ocean.Level, cfg.Ocean.OceanWaves())
	if err != nil {
		return nil, fmt.Errorf("ocean: %w", err)
	}
	e.surface = surface

	e.sampler = heightmap.NewSampler(cfg.Terrain.Offset(), cfg.Terrain.Bilinear)
	e.rebaker = heightmap.NewRebaker(e.sampler, cfg.Terrain.RebakeDebounce.Std(), e.logger)
	start := time.Now()
	if err := e.rebaker.BakeNow(ctx, cfg.Terrain.Params()); err != nil {
		e.rebaker.Close()
		return nil, fmt.Errorf("initial terrain bake: %w", err)
	}
	e.coupledSampler, e.coupledVersion = e.sampler, e.sampler.Version()
	e.logger.Printf("terrain baked %dx%d in %v", cfg.Terrain.Resolution, cfg.Terrain.Resolution, time.Since(start).Round(time.Millisecond))

	p := cfg.Pipeline
	e.pool = pipeline.NewPool(pipeline.HandlerFunc(generate), pipeline.Options{
		Workers:           p.Workers,
		QueueSize:         p.QueueSize,
		DispatchPerSecond: p.DispatchPerSecond,
		DispatchBurst:     p.DispatchBurst,
		Logger:            e.logger,
	})
	return e, nil
}

// Tick advances the world by dt with the observer at pos. It never blocks on
// workers.
func (e *Engine) Tick(pos mgl32.Vec3, dt time.Duration) {
	if e.closed {
		return
	}
	e.tracker.Reset()
	defer e.tracker.Track("engine.Tick")()

	e.observer = pos
	e.elapsed += dt
	e.ticks++

	e.pollConfig()

	x, z := float64(pos[0]), float64(pos[2])
	func() {
		defer e.tracker.Track("engine.Stream")()
		for _, d := range pipeline.Domains {
			s := e.streams[d]
			s.advance(x, z)
			e.prototype(s)
		}
	}()

	e.applyResults()
	e.recoupleIfRebaked()

	func() {
		defer e.tracker.Track("engine.Dispatch")()
		for _, d := range pipeline.Domains {
			e.dispatch(e.streams[d])
		}
	}()
}

// prototype makes sure the domain's prototype is requested and installs it
// once it resolves, releasing deferred chunks.
func (e *Engine) prototype(s *stream) {
	if s.ready() {
		return
	}
	if s.future == nil || !s.future.Ready() {
		s.future = e.pool.EnsurePrototype(s.domain, s.gen, s.protoParams)
	}
	justReady, err := s.resolvePrototype()
	if err != nil {
		e.logger.Printf("%s prototype: %v", s.domain, err)
	}
	if !justReady {
		return
	}
	for _, v := range s.proto.Variants {
		if v.Err != nil {
			e.logger.Printf("%s: variant %s skipped: %v", s.domain, v.Name, v.Err)
		}
	}
	deferred := s.deferred
	s.deferred = nil
	for _, resp := range deferred {
		e.apply(s, resp)
	}
}

// dispatch submits requests for the domain's waiting chunks, nearest first,
// until the pool refuses.
func (e *Engine) dispatch(s *stream) {
	for _, c := range s.grid.InState(world.Requested) {
		req := pipeline.NewRequest(pipeline.GenerateChunk, s.domain, c.ID, s.gen, s.chunkParams)
		if !e.pool.Submit(req) {
			return
		}
		c.State = world.Generating
		c.RequestID = req.ID
	}
}

func (e *Engine) applyResults() {
	defer e.tracker.Track("engine.Apply")()
	for _, resp := range e.pool.Poll(e.cfg.Pipeline.MaxResultsPerTick) {
		s, ok := e.streams[resp.Domain]
		if !ok {
			continue
		}
		if !s.ready() {
			s.deferred = append(s.deferred, resp)
			continue
		}
		e.apply(s, resp)
	}
}

// apply installs a chunk response. Responses for chunks that were evicted or
// regenerated since the request went out are dropped.
func (e *Engine) apply(s *stream, resp pipeline.Response) {
	c, ok := s.grid.Get(resp.ChunkID)
	if !ok || !s.accepts(c, resp) {
		s.stale++
		return
	}
	c.RequestID = ""
	c.State = world.Resident
	if resp.Err != nil {
		s.failed++
		c.Err = resp.Err
		c.Raw, c.Placed = nil, &world.Payload{}
		e.logger.Printf("%s chunk %v: %v", s.domain, c.ID, resp.Err)
		return
	}
	raw, ok := resp.Payload.(*world.Payload)
	if !ok {
		s.failed++
		c.Err = fmt.Errorf("unexpected payload %T", resp.Payload)
		c.Raw, c.Placed = nil, &world.Payload{}
		e.logger.Printf("%s chunk %v: %v", s.domain, c.ID, c.Err)
		return
	}
	c.Err = nil
	c.Raw = raw
	c.Placed = couple(s, c, e.sampler, e.cfg.Ocean.Level)
}

func (e *Engine) recoupleIfRebaked() {
	if e.sampler == e.coupledSampler && e.sampler.Version() == e.coupledVersion {
		return
	}
	e.coupledSampler, e.coupledVersion = e.sampler, e.sampler.Version()
	e.recoupleAll()
}

// recoupleAll re-derives every resident chunk's placed payload from its raw
// payload against the current bake.
func (e *Engine) recoupleAll() {
	defer e.tracker.Track("engine.Recouple")()
	for _, d := range pipeline.Domains {
		s := e.streams[d]
		for _, c := range s.grid.Chunks() {
			if c.State == world.Resident && c.Raw != nil {
				c.Placed = couple(s, c, e.sampler, e.cfg.Ocean.Level)
			}
		}
	}
}

// ApplyConfig updates the configuration store. A rejected change returns a
// *config.ConfigurationError and leaves the running configuration alone;
// accepted changes take effect on the next tick.
func (e *Engine) ApplyConfig(fn func(*config.Config)) error {
	return e.store.Update(fn)
}

func (e *Engine) pollConfig() {
	if e.store.Version() == e.cfgVersion {
		return
	}
	next, version := e.store.Get()
	e.cfgVersion = version
	e.reconfigure(next)
}

// reconfigure applies next section by section. Domains whose section changed
// are regenerated from scratch.
func (e *Engine) reconfigure(next config.Config) {
	prev := e.cfg
	e.cfg = next
	for _, section := range config.Changed(&prev, &next) {
		switch section {
		case "terrain":
			e.retargetTerrain(prev.Terrain, next.Terrain)
		case "ocean":
			surface, err := ocean.NewSurface(next.Ocean.Level, next.Ocean.OceanWaves())
			if err != nil {
				e.logger.Printf("ocean: %v", err)
				continue
			}
			e.surface = surface
			if prev.Ocean.Level != next.Ocean.Level {
				e.recoupleAll()
			}
		case "pipeline":
			// The pool keeps the workers, queue and limiter it was built with.
			e.logger.Printf("pipeline: max_results_per_tick=%d applied; workers, queue and dispatch rate apply on restart",
				next.Pipeline.MaxResultsPerTick)
		default:
			d := pipeline.Domain(section)
			if _, ok := e.streams[d]; ok {
				e.regenerate(d)
			}
		}
	}
}

// regenerate discards a domain's chunks and prototype and starts over under a
// new generation. In-flight responses of the old generation are dropped on
// arrival.
func (e *Engine) regenerate(d pipeline.Domain) {
	old := e.streams[d]
	s, err := newStream(d, &e.cfg, old.gen+1)
	if err != nil {
		e.logger.Printf("%s: keeping previous settings: %v", d, err)
		return
	}
	s.stale, s.failed = old.stale, old.failed
	dropped := old.grid.Clear()
	e.pool.ForgetPrototypes(d, s.gen)
	e.streams[d] = s
	e.logger.Printf("%s: regenerating (generation %d, %d chunks dropped)", d, s.gen, len(dropped))
}

// retargetTerrain follows a terrain section change. Rebuilding the rebaker
// drops whatever it had pending, so the new one is scheduled whenever the live
// grid was baked from other params.
func (e *Engine) retargetTerrain(prev, next config.TerrainConfig) {
	rebake := prev.Params() != next.Params()
	if prev.Position != next.Position || prev.Bilinear != next.Bilinear || prev.RebakeDebounce != next.RebakeDebounce {
		current := e.sampler.Current()
		e.rebaker.Close()
		e.sampler = heightmap.NewSampler(next.Offset(), next.Bilinear)
		if current != nil {
			e.sampler.Swap(current)
		}
		e.rebaker = heightmap.NewRebaker(e.sampler, next.RebakeDebounce.Std(), e.logger)
		rebake = current == nil || current.Params != next.Params()
	}
	if rebake {
		e.rebaker.Schedule(next.Params())
	}
}

// Sampler returns the live height sampler.
func (e *Engine) Sampler() *heightmap.Sampler { return e.sampler }

// Surface returns the live ocean surface.
func (e *Engine) Surface() *ocean.Surface { return e.surface }

// Config returns the configuration the engine is running.
func (e *Engine) Config() config.Config { return e.cfg.Clone() }

// Chunks returns the active chunks of d ordered by id.
func (e *Engine) Chunks(d pipeline.Domain) []*world.Chunk {
	s, ok := e.streams[d]
	if !ok {
		return nil
	}
	return s.grid.Chunks()
}

// Prototype returns d's prototype, or nil while it is pending or when the
// domain has none.
func (e *Engine) Prototype(d pipeline.Domain) *world.Prototype {
	if s, ok := e.streams[d]; ok {
		return s.proto
	}
	return nil
}

// Elapsed is the simulated time passed to Tick so far.
func (e *Engine) Elapsed() time.Duration { return e.elapsed }

// TerrainMesh tessellates the current bake around the terrain position.
func (e *Engine) TerrainMesh(t lod.Tier) *meshing.Mesh {
	pos := e.sampler.Position()
	return e.sampler.TerrainMesh(float64(pos[0]), float64(pos[2]), lod.TerrainDetail(t))
}

// OceanMesh tessellates the ocean around the origin at the current time.
func (e *Engine) OceanMesh(t lod.Tier) *meshing.Mesh {
	return e.surface.Mesh(0, 0, t, e.elapsed.Seconds())
}

// Close stops the workers and any pending rebake and drops all chunks.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.pool.Shutdown()
	e.rebaker.Close()
	for _, s := range e.streams {
		s.grid.Clear()
		s.deferred = nil
	}
}

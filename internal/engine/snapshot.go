package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/lod"
	"procworld/internal/pipeline"
	"procworld/internal/world"
)

// Snapshot is what a renderer needs for one frame. Payloads are shared with
// the engine and must be treated as read-only.
type Snapshot struct {
	Tick        uint64
	Observer    mgl32.Vec3
	Time        time.Duration
	TerrainTier lod.Tier
	OceanTier   lod.Tier
	Domains     []DomainView
}

// DomainView holds a domain's renderable chunks. Prototype is nil for domains
// that carry raw geometry.
type DomainView struct {
	Domain    pipeline.Domain
	Prototype *world.Prototype
	Chunks    []ChunkView
}

type ChunkView struct {
	ID      world.ChunkID
	Tier    lod.Tier
	Payload *world.Payload
}

// Snapshot collects the resident, non-empty chunks of every domain.
func (e *Engine) Snapshot() Snapshot {
	x, z := float64(e.observer[0]), float64(e.observer[2])
	pos := e.sampler.Position()
	snap := Snapshot{
		Tick:        e.ticks,
		Observer:    e.observer,
		Time:        e.elapsed,
		TerrainTier: lod.Terrain.Select(math.Hypot(x-float64(pos[0]), z-float64(pos[2]))),
		OceanTier:   lod.Ocean.Select(math.Hypot(x, z)),
	}
	for _, d := range pipeline.Domains {
		s := e.streams[d]
		view := DomainView{Domain: d, Prototype: s.proto}
		for _, c := range s.grid.Chunks() {
			if c.State != world.Resident || c.Placed.Empty() {
				continue
			}
			view.Chunks = append(view.Chunks, ChunkView{ID: c.ID, Tier: c.Tier, Payload: c.Placed})
		}
		snap.Domains = append(snap.Domains, view)
	}
	return snap
}

// DomainStats counts one domain's chunks by state.
type DomainStats struct {
	Domain         pipeline.Domain
	Generation     uint64
	Requested      int
	Generating     int
	Resident       int
	Instances      int
	Stale          uint64
	Failed         uint64
	PrototypeReady bool
	// LoadRadius is the distance within which every chunk is active;
	// UnloadRadius the distance beyond which none is.
	LoadRadius   float64
	UnloadRadius float64
}

// Stats is a point-in-time summary for logging.
type Stats struct {
	Tick           uint64
	Domains        []DomainStats
	QueueLength    int
	InFlight       int
	TerrainVersion uint64
}

func (e *Engine) Stats() Stats {
	st := Stats{
		Tick:           e.ticks,
		QueueLength:    e.pool.QueueLength(),
		InFlight:       e.pool.InFlight(),
		TerrainVersion: e.sampler.Version(),
	}
	for _, d := range pipeline.Domains {
		s := e.streams[d]
		ds := DomainStats{
			Domain:         d,
			Generation:     s.gen,
			Stale:          s.stale,
			Failed:         s.failed,
			PrototypeReady: s.ready(),
			LoadRadius:     world.GuaranteedLoadRadius(s.grid.Neighborhood()),
			UnloadRadius:   s.grid.UnloadRadius(),
		}
		ds.Requested, ds.Generating, ds.Resident, ds.Instances = s.counts()
		st.Domains = append(st.Domains, ds)
	}
	return st
}

// String renders st on one line.
func (st Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d queue=%d inflight=%d terrain=v%d", st.Tick, st.QueueLength, st.InFlight, st.TerrainVersion)
	for _, d := range st.Domains {
		fmt.Fprintf(&b, " %s=%d/%d/%d(%d)", d.Domain, d.Resident, d.Generating, d.Requested, d.Instances)
		if !d.PrototypeReady {
			b.WriteString("*")
		}
	}
	return b.String()
}

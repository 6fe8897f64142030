package world

import (
	"errors"
	"fmt"
	"sort"
)

// ErrRadiusOverlap is returned when a grid's unload radius does not exceed the
// farthest reach of its load neighborhood.
var ErrRadiusOverlap = errors.New("unload radius must exceed load reach")

// Plan is the outcome of one streaming decision.
type Plan struct {
	Load   []ChunkID
	Unload []ChunkID
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Load) == 0 && len(p.Unload) == 0
}

// Grid tracks the active chunks of one domain around the observer. It is owned
// by the control loop and is not safe for concurrent use.
type Grid struct {
	neighborhood int
	unloadRadius float64

	chunks   map[ChunkID]*Chunk
	modCount uint64 // increases on any add/remove
}

// NewGrid creates a grid loading a (2n+1)^2 neighborhood and unloading chunks
// whose center is farther than unloadRadius.
func NewGrid(neighborhood int, unloadRadius float64) (*Grid, error) {
	if neighborhood < 0 {
		return nil, fmt.Errorf("neighborhood %d: must not be negative", neighborhood)
	}
	if reach := MaxLoadReach(neighborhood); unloadRadius <= reach {
		return nil, fmt.Errorf("unload radius %.1f, load reach %.1f: %w", unloadRadius, reach, ErrRadiusOverlap)
	}
	return &Grid{
		neighborhood: neighborhood,
		unloadRadius: unloadRadius,
		chunks:       make(map[ChunkID]*Chunk),
	}, nil
}

// Neighborhood returns the load radius in cells.
func (g *Grid) Neighborhood() int { return g.neighborhood }

// UnloadRadius returns the unload distance in world units.
func (g *Grid) UnloadRadius() float64 { return g.unloadRadius }

// Wanted lists the neighborhood around (x, z) in rings outward from the
// observer's cell, so nearer chunks are requested first.
func (g *Grid) Wanted(x, z float64) []ChunkID {
	c := ChunkOf(x, z)
	n := int32(g.neighborhood)
	out := make([]ChunkID, 0, (2*n+1)*(2*n+1))
	out = append(out, c)
	for r := int32(1); r <= n; r++ {
		x0, x1 := c.X-r, c.X+r
		z0, z1 := c.Z-r, c.Z+r
		for xk := x0; xk <= x1; xk++ {
			out = append(out, ChunkID{X: xk, Z: z0})
		}
		for zk := z0 + 1; zk <= z1-1; zk++ {
			out = append(out, ChunkID{X: x1, Z: zk})
		}
		for xk := x1; xk >= x0; xk-- {
			out = append(out, ChunkID{X: xk, Z: z1})
		}
		for zk := z1 - 1; zk >= z0+1; zk-- {
			out = append(out, ChunkID{X: x0, Z: zk})
		}
	}
	return out
}

// Plan decides which chunks to create and which to drop for an observer at
// (x, z). It does not modify the grid.
func (g *Grid) Plan(x, z float64) Plan {
	var p Plan
	wanted := g.Wanted(x, z)
	inNeighborhood := make(map[ChunkID]struct{}, len(wanted))
	for _, id := range wanted {
		inNeighborhood[id] = struct{}{}
		if _, ok := g.chunks[id]; !ok {
			p.Load = append(p.Load, id)
		}
	}
	for id := range g.chunks {
		if id.DistanceTo(x, z) <= g.unloadRadius {
			continue
		}
		// Unreachable while unloadRadius > MaxLoadReach; load wins if it happens.
		if _, ok := inNeighborhood[id]; ok {
			continue
		}
		p.Unload = append(p.Unload, id)
	}
	sortIDs(p.Unload)
	return p
}

// Apply executes a plan: unloaded chunks are marked Evicting, freed and
// returned; loaded chunks are created in the Requested state.
func (g *Grid) Apply(p Plan, generation uint64) (removed []*Chunk) {
	for _, id := range p.Unload {
		c, ok := g.chunks[id]
		if !ok {
			continue
		}
		c.State = Evicting
		c.Free()
		delete(g.chunks, id)
		removed = append(removed, c)
		g.modCount++
	}
	for _, id := range p.Load {
		if _, ok := g.chunks[id]; ok {
			continue
		}
		g.chunks[id] = &Chunk{ID: id, State: Requested, Generation: generation}
		g.modCount++
	}
	return removed
}

// Get returns the chunk with the given id.
func (g *Grid) Get(id ChunkID) (*Chunk, bool) {
	c, ok := g.chunks[id]
	return c, ok
}

// Has reports whether id is active.
func (g *Grid) Has(id ChunkID) bool {
	_, ok := g.chunks[id]
	return ok
}

// Len returns the number of active chunks.
func (g *Grid) Len() int { return len(g.chunks) }

// ModCount returns a counter that changes whenever a chunk is added or removed.
func (g *Grid) ModCount() uint64 { return g.modCount }

// Chunks returns the active chunks ordered by id.
func (g *Grid) Chunks() []*Chunk {
	out := make([]*Chunk, 0, len(g.chunks))
	for _, c := range g.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// InState returns the active chunks in state s, nearest first.
func (g *Grid) InState(s State) []*Chunk {
	var out []*Chunk
	for _, c := range g.chunks {
		if c.State == s {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out
}

// Count returns how many active chunks are in state s.
func (g *Grid) Count(s State) int {
	n := 0
	for _, c := range g.chunks {
		if c.State == s {
			n++
		}
	}
	return n
}

// UpdateDistances recomputes each chunk's distance to (x, z).
func (g *Grid) UpdateDistances(x, z float64) {
	for id, c := range g.chunks {
		c.Distance = id.DistanceTo(x, z)
	}
}

// Clear removes every chunk and returns them, freed.
func (g *Grid) Clear() []*Chunk {
	out := make([]*Chunk, 0, len(g.chunks))
	for id, c := range g.chunks {
		c.State = Evicting
		c.Free()
		out = append(out, c)
		delete(g.chunks, id)
	}
	if len(out) > 0 {
		g.modCount++
	}
	return out
}

func sortIDs(ids []ChunkID) {
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
}

func lessID(a, b ChunkID) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Z < b.Z
}

package world

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func mustGrid(t *testing.T, n int, unload float64) *Grid {
	t.Helper()
	g, err := NewGrid(n, unload)
	if err != nil {
		t.Fatalf("NewGrid(%d,%v): %v", n, unload, err)
	}
	return g
}

func TestNewGridRejectsOverlap(t *testing.T) {
	if _, err := NewGrid(1, 20); !errors.Is(err, ErrRadiusOverlap) {
		t.Errorf("expected ErrRadiusOverlap, got %v", err)
	}
	if _, err := NewGrid(2, MaxLoadReach(2)); !errors.Is(err, ErrRadiusOverlap) {
		t.Errorf("equal radius must be rejected, got %v", err)
	}
	if _, err := NewGrid(-1, 40); err == nil {
		t.Errorf("negative neighborhood accepted")
	}
}

// TestFirstTickAtOrigin checks the 3x3 neighborhood is requested around (0,0)
func TestFirstTickAtOrigin(t *testing.T) {
	g := mustGrid(t, 1, 40)
	p := g.Plan(0, 0)
	if len(p.Load) != 9 || len(p.Unload) != 0 {
		t.Fatalf("plan = %d loads %d unloads", len(p.Load), len(p.Unload))
	}
	if g.Len() != 0 {
		t.Fatalf("Plan mutated the grid")
	}
	g.Apply(p, 1)
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			c, ok := g.Get(ChunkID{x, z})
			if !ok {
				t.Fatalf("chunk %d,%d missing", x, z)
			}
			if c.State != Requested || c.Generation != 1 {
				t.Errorf("chunk %v state=%v gen=%d", c.ID, c.State, c.Generation)
			}
		}
	}
	if p2 := g.Plan(0, 0); !p2.Empty() {
		t.Errorf("second plan at same position not empty: %+v", p2)
	}
}

func TestWantedRingOrder(t *testing.T) {
	g := mustGrid(t, 2, 60)
	w := g.Wanted(5, 5)
	if len(w) != 25 {
		t.Fatalf("wanted %d chunks, want 25", len(w))
	}
	if w[0] != (ChunkID{0, 0}) {
		t.Errorf("first wanted = %v", w[0])
	}
	seen := map[ChunkID]bool{}
	for i, id := range w {
		if seen[id] {
			t.Fatalf("duplicate %v", id)
		}
		seen[id] = true
		ring := max(abs32(id.X), abs32(id.Z))
		if i < 9 && ring > 1 {
			t.Errorf("ring 2 chunk %v before ring 1 finished", id)
		}
	}
}

// TestEvictionSafety walks an observer randomly and checks the radius invariants after every tick
func TestEvictionSafety(t *testing.T) {
	for _, tc := range []struct {
		n      int
		unload float64
	}{{1, 40}, {1, 50}, {2, 60}} {
		g := mustGrid(t, tc.n, tc.unload)
		r := rand.New(rand.NewSource(int64(tc.n*100) + int64(tc.unload)))
		x, z := 0.0, 0.0
		for step := 0; step < 400; step++ {
			x += r.Float64()*30 - 15
			z += r.Float64()*30 - 15
			g.Apply(g.Plan(x, z), 1)
			g.UpdateDistances(x, z)

			for _, c := range g.Chunks() {
				if d := c.ID.DistanceTo(x, z); d > tc.unload {
					t.Fatalf("step %d: chunk %v at %.1f beyond unload %.1f", step, c.ID, d, tc.unload)
				}
			}
			lr := GuaranteedLoadRadius(tc.n)
			c := ChunkOf(x, z)
			for dx := int32(-4); dx <= 4; dx++ {
				for dz := int32(-4); dz <= 4; dz++ {
					id := c.Offset(dx, dz)
					if id.DistanceTo(x, z) < lr && !g.Has(id) {
						t.Fatalf("step %d: chunk %v within load radius %.1f missing", step, id, lr)
					}
				}
			}
			for _, id := range g.Wanted(x, z) {
				if !g.Has(id) {
					t.Fatalf("step %d: neighborhood chunk %v missing", step, id)
				}
			}
		}
	}
}

func TestApplyUnloadFrees(t *testing.T) {
	g := mustGrid(t, 1, 40)
	g.Apply(g.Plan(0, 0), 1)
	c, _ := g.Get(ChunkID{-1, -1})
	c.State = Resident
	c.Raw = &Payload{Instances: []Instance{{X: 1}}}
	before := g.ModCount()

	p := g.Plan(1000, 1000)
	if len(p.Unload) != 9 || len(p.Load) != 9 {
		t.Fatalf("plan far away: %d loads %d unloads", len(p.Load), len(p.Unload))
	}
	removed := g.Apply(p, 2)
	if len(removed) != 9 {
		t.Fatalf("removed %d", len(removed))
	}
	for _, r := range removed {
		if r.State != Evicting || r.Raw != nil || r.Placed != nil {
			t.Errorf("removed chunk %v not freed: %v", r.ID, r.State)
		}
	}
	if g.ModCount() == before {
		t.Errorf("modCount unchanged")
	}
	if g.Has(ChunkID{-1, -1}) {
		t.Errorf("old chunk still present")
	}
}

func TestInStateOrderedByDistance(t *testing.T) {
	g := mustGrid(t, 1, 40)
	g.Apply(g.Plan(5, 5), 1)
	g.UpdateDistances(5, 5)
	req := g.InState(Requested)
	if len(req) != 9 || req[0].ID != (ChunkID{0, 0}) {
		t.Fatalf("InState order wrong: first=%v len=%d", req[0].ID, len(req))
	}
	for i := 1; i < len(req); i++ {
		if req[i].Distance < req[i-1].Distance {
			t.Errorf("not sorted at %d", i)
		}
	}
	if g.Count(Requested) != 9 || g.Count(Resident) != 0 {
		t.Errorf("Count mismatch")
	}
	if math.Abs(req[8].Distance-10*math.Sqrt2) > 1e-9 {
		t.Errorf("corner distance %v", req[8].Distance)
	}
	cleared := g.Clear()
	if len(cleared) != 9 || g.Len() != 0 {
		t.Errorf("Clear left %d chunks", g.Len())
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

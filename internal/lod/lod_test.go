package lod

import "testing"

func TestSelect(t *testing.T) {
	cases := []struct {
		name string
		th   Thresholds
		d    float64
		want Tier
	}{
		{"terrain near", Terrain, 0, High},
		{"terrain edge high", Terrain, 29.999, High},
		{"terrain at 30", Terrain, 30, Mid},
		{"terrain at 60", Terrain, 60, Low},
		{"ocean 39", Ocean, 39, High},
		{"ocean 40", Ocean, 40, Mid},
		{"ocean 79", Ocean, 79, Mid},
		{"ocean 80", Ocean, 80, Low},
		{"trees 14", Trees, 14, High},
		{"trees 15", Trees, 15, Mid},
		{"trees 30", Trees, 30, Low},
		{"grass 29", Grass, 29, High},
		{"grass 30", Grass, 30, Low},
		{"grass far", Grass, 500, Low},
	}
	for _, c := range cases {
		if got := c.th.Select(c.d); got != c.want {
			t.Errorf("%s: Select(%v)=%v, want %v", c.name, c.d, got, c.want)
		}
		// Idempotent.
		if c.th.Select(c.d) != c.th.Select(c.d) {
			t.Errorf("%s: Select not idempotent", c.name)
		}
	}
}

func TestDetail(t *testing.T) {
	if d := TerrainDetail(High); d.Size != 30 || d.Segments != 256 {
		t.Errorf("terrain high detail %+v", d)
	}
	if d := TerrainDetail(Low); d.Size != 100 || d.Segments != 64 {
		t.Errorf("terrain low detail %+v", d)
	}
	if d := OceanDetail(Mid); d.Size != 100 || d.Segments != 100 {
		t.Errorf("ocean mid detail %+v", d)
	}
	if d := OceanDetail(Tier(9)); d != OceanDetail(Low) {
		t.Errorf("out of range tier not clamped: %+v", d)
	}
}

func TestTreeIterationsAt(t *testing.T) {
	if got := TreeIterationsAt(High, 5); got != 5 {
		t.Errorf("high = %d", got)
	}
	if got := TreeIterationsAt(Mid, 5); got != 4 {
		t.Errorf("mid = %d", got)
	}
	if got := TreeIterationsAt(Mid, 1); got != 1 {
		t.Errorf("mid floor = %d", got)
	}
	if got := TreeIterationsAt(Low, 5); got != 0 {
		t.Errorf("low = %d", got)
	}
}

func TestTierString(t *testing.T) {
	if High.String() != "high" || Mid.String() != "mid" || Low.String() != "low" || Tier(7).String() != "unknown" {
		t.Errorf("unexpected tier names")
	}
}

package city

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"procworld/internal/noise"
	"procworld/internal/world"
)

type constSampler float64

func (c constSampler) Sample3(x, y, z float64) float64 { return float64(c) }

func TestRoadGridScenario(t *testing.T) {
	const seed = 98765
	n := noise.New(seed).Sample3(0, 0, seed)
	got := Classify(0, 0, seed).Type
	if n > -0.5 && got != Main {
		t.Fatalf("n=%v > -0.5 but classified %v", n, got)
	}
	if n <= -0.5 && got == Main {
		t.Fatalf("n=%v <= -0.5 but classified main", n)
	}

	cases := []struct {
		n    float64
		x, z float64
		want RoadType
	}{
		{n: 0.9, x: 0, z: 0, want: Main},
		{n: -0.4, x: 0, z: 0, want: Main},
		{n: -0.6, x: 0, z: 0, want: NoRoad},
		{n: 0.1, x: 40, z: 10, want: Street},
		{n: -0.1, x: 40, z: 10, want: NoRoad},
		{n: 0.9, x: 10, z: 30, want: NoRoad},
		{n: 0.9, x: -80, z: 30, want: Main},
		{n: 0.9, x: -44, z: 30, want: Street},
	}
	for _, c := range cases {
		cl := NewClassifierWith(constSampler(c.n), seed)
		if got := cl.Type(c.x, c.z); got != c.want {
			t.Errorf("n=%v at (%v,%v): got %v want %v", c.n, c.x, c.z, got, c.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for x := -200.0; x <= 200; x += 10 {
		for z := -200.0; z <= 200; z += 10 {
			a := Classify(x, z, 4242)
			b := NewClassifier(4242).Classify(x, z)
			if a != b {
				t.Fatalf("classify(%v,%v) differs: %+v vs %+v", x, z, a, b)
			}
		}
	}
}

func TestOrientation(t *testing.T) {
	// A stub field that is positive everywhere makes every fourth row and
	// column a road.
	cl := NewClassifierWith(constSampler(0.5), 1)
	cases := []struct {
		x, z float64
		want Cell
	}{
		{0, 0, Cell{Main, Intersection}},
		{10, 0, Cell{Main, Horizontal}},
		{0, 10, Cell{Main, Vertical}},
		{40, 40, Cell{Street, Intersection}},
		{40, 10, Cell{Street, Vertical}},
		{10, 10, Cell{}},
	}
	for _, c := range cases {
		if got := cl.Classify(c.x, c.z); got != c.want {
			t.Errorf("(%v,%v): got %+v want %+v", c.x, c.z, got, c.want)
		}
	}
}

func TestRoadChunk(t *testing.T) {
	cl := NewClassifierWith(constSampler(0.5), 1)
	p := chunkWith(cl, world.ChunkID{X: 0, Z: 1})
	if len(p.Instances) != 1 {
		t.Fatalf("instances: got %d want 1", len(p.Instances))
	}
	in := p.Instances[0]
	if math.Abs(float64(in.Rotation)-math.Pi/2) > 1e-6 {
		t.Errorf("vertical piece rotation %v", in.Rotation)
	}
	if in.Flags&world.IntersectionFlag != 0 {
		t.Errorf("vertical piece flagged as intersection")
	}
	lo, hi := p.Mesh.Bounds()
	if lo[0] < 0.99 || hi[0] > 9.01 || lo[2] < -0.01 || hi[2] > 10.01 {
		t.Errorf("vertical piece bounds %v..%v", lo, hi)
	}
	if err := p.Mesh.Validate(); err != nil {
		t.Fatal(err)
	}

	cross := chunkWith(cl, world.ChunkID{})
	if cross.Instances[0].Flags&world.IntersectionFlag == 0 {
		t.Errorf("intersection not flagged")
	}

	if empty := chunkWith(cl, world.ChunkID{X: 1, Z: 1}); !empty.Empty() {
		t.Errorf("non-road chunk produced %d instances", len(empty.Instances))
	}
}

func TestPieceFacesUp(t *testing.T) {
	for _, c := range []Cell{{Main, Horizontal}, {Street, Intersection}} {
		m := Piece(c)
		for i := range m.VertexCount() {
			if m.Normal(i)[1] != 1 {
				t.Fatalf("%+v: normal %v", c, m.Normal(i))
			}
			if y := m.Position(i)[1]; y < 0.04 || y > 0.07 {
				t.Fatalf("%+v: y=%v", c, y)
			}
		}
	}
}

func TestSelectArchetype(t *testing.T) {
	cases := []struct {
		d    float64
		want int
		ok   bool
	}{
		{-0.5, -1, false},
		{-0.1, Residential, true},
		{0.1, Industrial, true},
		{0.3, Commercial, true},
		{0.5, Office, true},
		{0.9, Skyscraper, true},
		{-0.2, Residential, true},
		{0, Residential, true},
		{0.2, Industrial, true},
		{0.4, Commercial, true},
		{0.6, Office, true},
	}
	for _, c := range cases {
		got, ok := SelectArchetype(c.d)
		if got != c.want || ok != c.ok {
			t.Errorf("density %v: got (%d,%v) want (%d,%v)", c.d, got, ok, c.want, c.ok)
		}
	}
}

func TestArchetypeValidate(t *testing.T) {
	for _, a := range DefaultArchetypes() {
		if err := a.Validate(); err != nil {
			t.Errorf("%s: %v", a.Name, err)
		}
	}
	bad := DefaultArchetypes()
	bad[0].Shapes = nil
	if _, err := NewPlacer(1, bad); !errors.Is(err, ErrNoShapes) {
		t.Errorf("empty shapes: got %v", err)
	}
	bad = DefaultArchetypes()
	bad[2].Height = [2]float64{30, 10}
	if _, err := NewPlacer(1, bad); !errors.Is(err, ErrBadRange) {
		t.Errorf("reversed range: got %v", err)
	}
	if _, err := NewPlacer(1, DefaultArchetypes()[:3]); !errors.Is(err, ErrArchetypes) {
		t.Errorf("short list: got %v", err)
	}
}

func TestParseShape(t *testing.T) {
	for s := Box; s <= Tower; s++ {
		got, err := ParseShape(s.String())
		if err != nil || got != s {
			t.Errorf("%v: got %v, %v", s, got, err)
		}
	}
	if _, err := ParseShape("dome"); err == nil {
		t.Errorf("expected error for unknown shape")
	}
}

func TestPlacerRespectsRoadsAndRanges(t *testing.T) {
	archetypes := DefaultArchetypes()
	p, err := NewPlacer(12345, archetypes)
	if err != nil {
		t.Fatal(err)
	}
	roads := NewClassifier(12345)
	placed := 0
	for cx := int32(-12); cx <= 12; cx++ {
		for cz := int32(-12); cz <= 12; cz++ {
			id := world.ChunkID{X: cx, Z: cz}
			b, ok := p.Place(id)
			ox, oz := id.Origin()
			if roads.Type(ox, oz) != NoRoad {
				if ok {
					t.Fatalf("%v: building on a road cell", id)
				}
				continue
			}
			if !ok {
				continue
			}
			placed++
			a := archetypes[b.Archetype]
			if b.Width < a.Width[0] || b.Width > a.Width[1] || b.Height < a.Height[0] || b.Height > a.Height[1] || b.Depth < a.Depth[0] || b.Depth > a.Depth[1] {
				t.Errorf("%v: %s size %vx%vx%v outside ranges", id, a.Name, b.Width, b.Height, b.Depth)
			}
			found := false
			for _, s := range a.Shapes {
				found = found || s == b.Shape
			}
			if !found {
				t.Errorf("%v: shape %v not in %s", id, b.Shape, a.Name)
			}
		}
	}
	if placed == 0 {
		t.Fatalf("no buildings placed over 625 chunks")
	}
}

func TestFacingTowardRoad(t *testing.T) {
	p, err := NewPlacer(7, DefaultArchetypes())
	if err != nil {
		t.Fatal(err)
	}
	roads := NewClassifier(7)
	checked := 0
	for cx := int32(-20); cx <= 20; cx++ {
		for cz := int32(-20); cz <= 20; cz++ {
			id := world.ChunkID{X: cx, Z: cz}
			b, ok := p.Place(id)
			if !ok {
				continue
			}
			ox, oz := id.Origin()
			if roads.Type(ox, oz+10) != NoRoad {
				checked++
				if b.Rotation != 0 {
					t.Errorf("%v: road at +z but rotation %v", id, b.Rotation)
				}
			} else if roads.Type(ox-10, oz) != NoRoad {
				checked++
				if b.Rotation != -math.Pi/2 {
					t.Errorf("%v: road at -x but rotation %v", id, b.Rotation)
				}
			}
		}
	}
	if checked == 0 {
		t.Fatalf("no building next to a road")
	}
}

func TestMassingFitsFootprint(t *testing.T) {
	for s := Box; s <= Tower; s++ {
		blocks := Massing(s, 8, 40, 9)
		m := Facades(blocks, 0.5, 3.5)
		if err := m.Validate(); err != nil {
			t.Fatalf("%v: %v", s, err)
		}
		lo, hi := m.Bounds()
		if lo[0] < -4.001 || hi[0] > 4.001 || lo[2] < -4.501 || hi[2] > 4.501 {
			t.Errorf("%v: footprint %v..%v exceeds 8x9", s, lo, hi)
		}
		if lo[1] != 0 || math.Abs(float64(hi[1])-40) > 1e-3 {
			t.Errorf("%v: height span %v..%v", s, lo[1], hi[1])
		}
	}
}

func TestWindowsFollowDensity(t *testing.T) {
	blocks := Massing(Box, 8, 30, 8)
	none := Facades(blocks, 0, 3)
	if WindowCount(none) != 0 {
		t.Errorf("density 0 produced %d windows", WindowCount(none))
	}
	all := Facades(blocks, 1, 3)
	// 10 floors, 4 columns, 4 walls
	if got := WindowCount(all); got != 160 {
		t.Errorf("density 1: got %d windows want 160", got)
	}
	half := WindowCount(Facades(blocks, 0.5, 3))
	if half == 0 || half == 160 {
		t.Errorf("density 0.5 gave %d windows", half)
	}
	if again := WindowCount(Facades(blocks, 0.5, 3)); again != half {
		t.Errorf("window placement not reproducible: %d vs %d", half, again)
	}
}

func TestShortBlockStillGetsWalls(t *testing.T) {
	m := Facades([]Block{{W: 4, H: 1, D: 4}}, 0.5, 3)
	// one floor, two columns, four walls, plus the roof
	if got, want := m.VertexCount(), (4*2+1)*4; got != want {
		t.Errorf("vertices: got %d want %d", got, want)
	}
}

func digest(p *world.Payload) [32]byte {
	h := sha256.New()
	var buf [4]byte
	for _, v := range p.Mesh.Positions {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	for _, v := range p.Mesh.Colors {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func TestBuildingChunkDeterministic(t *testing.T) {
	a, _ := NewPlacer(12345, DefaultArchetypes())
	b, _ := NewPlacer(12345, DefaultArchetypes())
	for cx := int32(-6); cx <= 6; cx++ {
		for cz := int32(-6); cz <= 6; cz++ {
			id := world.ChunkID{X: cx, Z: cz}
			pa, pb := a.Chunk(id), b.Chunk(id)
			if pa.Empty() != pb.Empty() {
				t.Fatalf("%v: emptiness differs", id)
			}
			if pa.Empty() {
				continue
			}
			if digest(pa) != digest(pb) {
				t.Fatalf("%v: building mesh differs between runs", id)
			}
		}
	}
}

func BenchmarkBuildingChunk(b *testing.B) {
	p, _ := NewPlacer(12345, DefaultArchetypes())
	for i := 0; i < b.N; i++ {
		p.Chunk(world.ChunkID{X: int32(i % 32), Z: int32(i / 32 % 32)})
	}
}

package heightmap

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/lod"
)

func testParams() Params {
	return Params{Seed: 7, Scale: 0.03, Amplitude: 8, Octaves: 4, PhysicalSize: 100, Resolution: 64}
}

func mustBake(t *testing.T, p Params) *Grid {
	t.Helper()
	g, err := Bake(context.Background(), p)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	return g
}

// TestCoverageBoundary checks the exact edges succeed and just outside fails
func TestCoverageBoundary(t *testing.T) {
	s := NewSampler(mgl32.Vec3{0, -2, 0}, false)
	if _, err := s.HeightAt(0, 0); !errors.Is(err, ErrOutOfCoverage) {
		t.Fatalf("query before bake: %v", err)
	}
	s.Swap(mustBake(t, testParams()))

	const eps = 1e-6
	ok := [][2]float64{{-50, -50}, {50, 50}, {-50, 50}, {50, -50}, {0, 0}}
	for _, p := range ok {
		if _, err := s.HeightAt(p[0], p[1]); err != nil {
			t.Errorf("HeightAt(%v,%v) at edge failed: %v", p[0], p[1], err)
		}
	}
	bad := [][2]float64{{-50 - eps, 0}, {50 + eps, 0}, {0, -50 - eps}, {0, 50 + eps}, {math.NaN(), 0}, {0, math.NaN()}}
	for _, p := range bad {
		if _, err := s.HeightAt(p[0], p[1]); !errors.Is(err, ErrOutOfCoverage) {
			t.Errorf("HeightAt(%v,%v) = %v, want ErrOutOfCoverage", p[0], p[1], err)
		}
	}
	if h := s.HeightOr(1000, 0, -99); h != -99 {
		t.Errorf("HeightOr fallback = %v", h)
	}
}

func TestHeightAtOffsetAndNearest(t *testing.T) {
	g := mustBake(t, testParams())
	s := NewSampler(mgl32.Vec3{10, -2, 20}, false)
	s.Swap(g)
	// texel (0,0) covers the minimum corner
	h, err := s.HeightAt(10-50+0.1, 20-50+0.1)
	if err != nil {
		t.Fatal(err)
	}
	if want := float64(g.At(0, 0) - 2); h != want {
		t.Errorf("corner height %v, want %v", h, want)
	}
	h, _ = s.HeightAt(60, 70)
	if want := float64(g.At(63, 63) - 2); h != want {
		t.Errorf("far edge height %v, want %v", h, want)
	}
}

func TestBilinearMatchesTexelCenters(t *testing.T) {
	g := mustBake(t, testParams())
	res := float64(g.Params.Resolution)
	for _, ix := range []int{1, 10, 40} {
		u := (float64(ix) + 0.5) / res
		if got, want := g.Bilinear(u, u), g.At(ix, ix); math.Abs(float64(got-want)) > 1e-5 {
			t.Errorf("bilinear at texel center %d = %v, want %v", ix, got, want)
		}
	}
}

func TestBakeDeterministic(t *testing.T) {
	a := mustBake(t, testParams())
	b := mustBake(t, testParams())
	for i := range a.Heights {
		if a.Heights[i] != b.Heights[i] {
			t.Fatalf("bake differs at %d", i)
		}
	}
	if a.Min > a.Max {
		t.Errorf("min %v > max %v", a.Min, a.Max)
	}
	p := testParams()
	p.Seed++
	c := mustBake(t, p)
	if c.Heights[100] == a.Heights[100] && c.Heights[2000] == a.Heights[2000] {
		t.Errorf("different seed produced identical texels")
	}
}

func TestBakeValidation(t *testing.T) {
	bad := []Params{
		{Scale: 1, Octaves: 1, PhysicalSize: 10, Resolution: 1},
		{Scale: 1, Octaves: 1, PhysicalSize: 0, Resolution: 8},
		{Scale: 1, Octaves: 6, PhysicalSize: 10, Resolution: 8},
	}
	for _, p := range bad {
		if _, err := Bake(context.Background(), p); err == nil {
			t.Errorf("Bake(%+v) accepted invalid params", p)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Bake(ctx, testParams()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled bake returned %v", err)
	}
}

// TestSwapNeverTears reads heights while swapping between two constant grids
func TestSwapNeverTears(t *testing.T) {
	mk := func(v float32) *Grid {
		p := testParams()
		h := make([]float32, p.Resolution*p.Resolution)
		for i := range h {
			h[i] = v
		}
		return &Grid{Params: p, Heights: h, Min: v, Max: v}
	}
	s := NewSampler(mgl32.Vec3{}, false)
	s.Swap(mk(1))
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s.Swap(mk(float32(1 + i%2)))
		}
	}()
	for i := 0; i < 20000; i++ {
		g := s.Current()
		a, b := g.At(0, 0), g.At(63, 63)
		if a != b {
			close(stop)
			wg.Wait()
			t.Fatalf("torn read: %v vs %v", a, b)
		}
	}
	close(stop)
	wg.Wait()
}

func TestRebakerDebounce(t *testing.T) {
	s := NewSampler(mgl32.Vec3{}, false)
	r := NewRebaker(s, 0, log.New(io.Discard, "", 0))
	defer r.Close()

	if err := r.BakeNow(context.Background(), testParams()); err != nil {
		t.Fatal(err)
	}
	v0 := s.Version()

	p := testParams()
	for i := 0; i < 5; i++ {
		p.Seed = int64(100 + i)
		r.Schedule(p)
		time.Sleep(20 * time.Millisecond)
	}
	if !r.Pending() {
		t.Fatalf("rebake not pending")
	}
	if s.Version() != v0 {
		t.Fatalf("rebake published before debounce elapsed")
	}
	deadline := time.Now().Add(3 * time.Second)
	for s.Version() == v0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if s.Version() != v0+1 {
		t.Fatalf("version %d, want exactly one publish after %d", s.Version(), v0)
	}
	if got := s.Current().Params.Seed; got != 104 {
		t.Errorf("published seed %d, want last scheduled 104", got)
	}
}

func TestRebakerCloseCancelsPending(t *testing.T) {
	s := NewSampler(mgl32.Vec3{}, false)
	r := NewRebaker(s, DefaultDebounce, log.New(io.Discard, "", 0))
	r.Schedule(testParams())
	r.Close()
	time.Sleep(DefaultDebounce + 100*time.Millisecond)
	if s.Current() != nil {
		t.Errorf("bake published after Close")
	}
	r.Schedule(testParams())
	if r.Pending() {
		t.Errorf("Schedule after Close armed a timer")
	}
}

func TestWritePreview(t *testing.T) {
	g := mustBake(t, testParams())
	for _, size := range []int{0, 64, 128} {
		var buf bytes.Buffer
		if err := WritePreview(&buf, g, size); err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatal(err)
		}
		want := size
		if want == 0 {
			want = 64
		}
		if b := img.Bounds(); b.Dx() != want || b.Dy() != want {
			t.Errorf("preview size %v, want %d", b, want)
		}
	}
	if err := WritePreview(io.Discard, nil, 10); err == nil {
		t.Errorf("nil grid accepted")
	}
}

func TestTerrainMesh(t *testing.T) {
	s := NewSampler(mgl32.Vec3{0, -2, 0}, false)
	s.Swap(mustBake(t, testParams()))
	d := lod.TerrainDetail(lod.Low)
	d.Segments = 16
	m := s.TerrainMesh(5, 5, d)
	if m.VertexCount() != 17*17 {
		t.Fatalf("vertices %d", m.VertexCount())
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	p := m.Position(17*8 + 8)
	if math.Abs(float64(p[0])-5) > 1e-4 || math.Abs(float64(p[2])-5) > 1e-4 {
		t.Errorf("center vertex at %v", p)
	}
	if want := s.HeightOr(5, 5, 0); math.Abs(float64(p[1])-want) > 1e-4 {
		t.Errorf("center height %v, want %v", p[1], want)
	}
	for i := range m.VertexCount() {
		if n := m.Normal(i); n[1] <= 0 {
			t.Fatalf("normal %d points down: %v", i, n)
		}
	}
}

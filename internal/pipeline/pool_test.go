package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"procworld/internal/world"
)

var quiet = log.New(io.Discard, "", 0)

func collect(t *testing.T, p *Pool, n int) []Response {
	t.Helper()
	var out []Response
	deadline := time.Now().Add(5 * time.Second)
	for len(out) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out with %d of %d responses", len(out), n)
		}
		out = append(out, p.Poll(0)...)
		time.Sleep(time.Millisecond)
	}
	return out
}

func TestSubmitAndPoll(t *testing.T) {
	p := NewPool(HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		return req.ChunkID.X * 2, nil
	}), Options{Workers: 4, QueueSize: 32, Logger: quiet})
	defer p.Shutdown()

	ids := map[string]world.ChunkID{}
	for i := int32(0); i < 20; i++ {
		req := NewRequest(GenerateChunk, Grass, world.ChunkID{X: i}, 3, nil)
		if req.ID == "" {
			t.Fatal("request without id")
		}
		ids[req.ID] = req.ChunkID
		if !p.Submit(req) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	for _, r := range collect(t, p, 20) {
		want, ok := ids[r.ID]
		if !ok {
			t.Fatalf("unknown response id %s", r.ID)
		}
		delete(ids, r.ID)
		if r.ChunkID != want || r.Payload.(int32) != want.X*2 || r.Generation != 3 || r.Opcode != GenerateChunk {
			t.Errorf("response mismatch: %+v", r)
		}
	}
	if len(ids) != 0 {
		t.Errorf("%d requests never answered", len(ids))
	}
}

func TestSubmitRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	p := NewPool(HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		<-block
		return nil, nil
	}), Options{Workers: 1, QueueSize: 2, Logger: quiet})
	defer p.Shutdown()
	defer close(block)

	accepted := 0
	for i := 0; i < 10; i++ {
		if p.Submit(NewRequest(GenerateChunk, Trees, world.ChunkID{X: int32(i)}, 1, nil)) {
			accepted++
		}
	}
	// one running plus two queued
	if accepted < 2 || accepted > 3 {
		t.Errorf("accepted %d with a queue of 2", accepted)
	}
}

func TestDispatchRateLimit(t *testing.T) {
	p := NewPool(HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		return nil, nil
	}), Options{Workers: 2, QueueSize: 64, DispatchPerSecond: 0.001, DispatchBurst: 5, Logger: quiet})
	defer p.Shutdown()
	accepted := 0
	for i := 0; i < 20; i++ {
		if p.Submit(NewRequest(GenerateChunk, Roads, world.ChunkID{X: int32(i)}, 1, nil)) {
			accepted++
		}
	}
	if accepted != 5 {
		t.Errorf("accepted %d, want burst of 5", accepted)
	}
}

func TestErrorsAndPanicsAreIsolated(t *testing.T) {
	boom := errors.New("boom")
	p := NewPool(HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		switch req.ChunkID.X {
		case 1:
			return nil, boom
		case 2:
			panic("bad grammar")
		}
		return "ok", nil
	}), Options{Workers: 2, Logger: quiet})
	defer p.Shutdown()
	for i := int32(0); i < 4; i++ {
		p.Submit(NewRequest(GenerateChunk, Buildings, world.ChunkID{X: i}, 1, nil))
	}
	for _, r := range collect(t, p, 4) {
		switch r.ChunkID.X {
		case 1:
			if !errors.Is(r.Err, boom) {
				t.Errorf("chunk 1 err = %v", r.Err)
			}
		case 2:
			if r.Err == nil {
				t.Errorf("panic not converted to error")
			}
		default:
			if r.Err != nil || r.Payload != "ok" {
				t.Errorf("sibling chunk %d affected: %+v", r.ChunkID.X, r)
			}
		}
	}
	if n := p.InFlight(); n != 0 {
		t.Errorf("in flight = %d after all responses", n)
	}
}

func TestEnsurePrototype(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	p := NewPool(HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		if req.Opcode != GeneratePrototype {
			t.Errorf("unexpected opcode %v", req.Opcode)
		}
		mu.Lock()
		calls++
		mu.Unlock()
		return "template", nil
	}), Options{Workers: 2, Logger: quiet})
	defer p.Shutdown()

	f1 := p.EnsurePrototype(Grass, 1, nil)
	f2 := p.EnsurePrototype(Grass, 1, nil)
	if f1 != f2 {
		t.Fatal("EnsurePrototype did not reuse the future")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f1.Wait(ctx)
	if err != nil || v != "template" {
		t.Fatalf("Wait = %v, %v", v, err)
	}
	if !f1.Ready() {
		t.Fatal("resolved future not ready")
	}
	if v, err := f1.Result(); err != nil || v != "template" {
		t.Errorf("Result = %v, %v", v, err)
	}
	mu.Lock()
	if calls != 1 {
		t.Errorf("prototype generated %d times", calls)
	}
	mu.Unlock()

	f3 := p.EnsurePrototype(Grass, 2, nil)
	if f3 == f1 {
		t.Fatal("new generation reused old future")
	}
	p.ForgetPrototypes(Grass, 2)
	if f4 := p.EnsurePrototype(Grass, 1, nil); f4 == f1 {
		t.Errorf("forgotten future returned")
	}
}

func TestFutureNotReady(t *testing.T) {
	f := newFuture(Flowers, 1)
	if _, err := f.Result(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Result before resolve = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled ctx = %v", err)
	}
	f.resolve(1, nil)
	f.resolve(2, nil)
	if v, _ := f.Result(); v != 1 {
		t.Errorf("second resolve overwrote value: %v", v)
	}
}

func TestShutdownResolvesPendingPrototypes(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	p := NewPool(HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}), Options{Workers: 1, Logger: quiet})
	f := p.EnsurePrototype(Trees, 1, nil)
	g := p.EnsurePrototype(Roads, 1, nil)
	<-started
	p.Shutdown()
	if !f.Ready() || !g.Ready() {
		t.Fatal("futures unresolved after shutdown")
	}
	if _, err := g.Result(); !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
		t.Errorf("pending future err = %v", err)
	}
	if p.Submit(NewRequest(GenerateChunk, Trees, world.ChunkID{}, 1, nil)) {
		t.Errorf("submit accepted after shutdown")
	}
	if f := p.EnsurePrototype(Flowers, 9, nil); !f.Ready() {
		t.Errorf("prototype after shutdown not resolved")
	}
	p.Shutdown()
}

func TestOpcodeString(t *testing.T) {
	if GeneratePrototype.String() != "GeneratePrototype" || GenerateChunk.String() != "GenerateChunk" || Opcode(0).String() != "Unknown" {
		t.Errorf("opcode names")
	}
}

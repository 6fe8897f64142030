package heightmap

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultDebounce is the minimum quiet period before a scheduled rebake runs.
const DefaultDebounce = 300 * time.Millisecond

// Rebaker runs debounced bakes off the control loop and publishes them to a
// Sampler. Only the most recently scheduled parameters are ever published.
type Rebaker struct {
	sampler  *Sampler
	debounce time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending Params
	seq     uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRebaker creates a rebaker. A debounce below DefaultDebounce is raised to it.
func NewRebaker(s *Sampler, debounce time.Duration, logger *log.Logger) *Rebaker {
	if debounce < DefaultDebounce {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Rebaker{
		sampler:  s,
		debounce: debounce,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// BakeNow bakes synchronously and publishes the result. It supersedes any
// scheduled rebake.
func (r *Rebaker) BakeNow(ctx context.Context, p Params) error {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	g, err := Bake(ctx, p)
	if err != nil {
		return err
	}
	r.publish(seq, g)
	return nil
}

// Schedule requests a rebake with p after the debounce period. Calls within
// the period restart it.
func (r *Rebaker) Schedule(p Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return
	}
	r.pending = p
	r.seq++
	seq := r.seq
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() { r.run(seq) })
}

func (r *Rebaker) run(seq uint64) {
	r.mu.Lock()
	if seq != r.seq || r.ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	p := r.pending
	r.timer = nil
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	start := time.Now()
	g, err := Bake(r.ctx, p)
	if err != nil {
		if r.ctx.Err() == nil {
			r.logger.Printf("terrain rebake failed: %v", err)
		}
		return
	}
	if r.publish(seq, g) {
		r.logger.Printf("terrain rebaked %dx%d in %v", p.Resolution, p.Resolution, time.Since(start).Round(time.Millisecond))
	}
}

func (r *Rebaker) publish(seq uint64, g *Grid) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		// a newer request superseded this bake
		return false
	}
	r.sampler.Swap(g)
	return true
}

// Pending reports whether a scheduled rebake has not started yet.
func (r *Rebaker) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Close cancels any scheduled or running bake and waits for it to stop.
func (r *Rebaker) Close() {
	r.mu.Lock()
	r.cancel()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
}

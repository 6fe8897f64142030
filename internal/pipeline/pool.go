package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"procworld/internal/world"
)

// ErrClosed resolves prototypes that were pending when the pool shut down.
var ErrClosed = errors.New("pipeline: pool closed")

// Handler runs one request on a worker goroutine. It must only read req.
type Handler interface {
	Handle(ctx context.Context, req Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// Options configures a Pool. Zero values pick defaults.
type Options struct {
	Workers   int // defaults to NumCPU
	QueueSize int // defaults to 256
	// DispatchPerSecond limits chunk submissions; zero disables the limit.
	DispatchPerSecond float64
	DispatchBurst     int
	Logger            *log.Logger
}

type job struct {
	req    Request
	future *Future
}

type protoKey struct {
	domain Domain
	gen    uint64
}

// Pool runs generation requests on a fixed set of worker goroutines. Chunk
// results are collected with Poll; prototype results resolve their Future.
type Pool struct {
	jobs       chan job
	protoJobs  chan job
	results    chan Response
	handler    Handler
	limiter    *rate.Limiter
	logger     *log.Logger
	workers    int
	inFlight   atomic.Int64
	closed     atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	protoMu    sync.Mutex
	prototypes map[protoKey]*Future
}

// NewPool starts the workers.
func NewPool(h Handler, opt Options) *Pool {
	if opt.Workers <= 0 {
		opt.Workers = max(runtime.NumCPU(), 1)
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = 256
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:       make(chan job, opt.QueueSize),
		protoJobs:  make(chan job, 64),
		results:    make(chan Response, opt.QueueSize),
		handler:    h,
		logger:     opt.Logger,
		workers:    opt.Workers,
		ctx:        ctx,
		cancel:     cancel,
		prototypes: make(map[protoKey]*Future),
	}
	if opt.DispatchPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opt.DispatchPerSecond), max(opt.DispatchBurst, 1))
	}
	for i := range opt.Workers {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// NewRequest builds a request with a fresh id.
func NewRequest(op Opcode, d Domain, id world.ChunkID, gen uint64, params any) Request {
	return Request{
		Opcode:     op,
		ID:         uuid.NewString(),
		Domain:     d,
		ChunkID:    id,
		Generation: gen,
		Params:     params,
	}
}

// Submit queues a chunk request without blocking. It returns false when the
// queue is full, the dispatch rate is exhausted or the pool is closed; the
// caller retries on a later tick.
func (p *Pool) Submit(req Request) bool {
	if p.closed.Load() || len(p.jobs) >= cap(p.jobs) {
		return false
	}
	if p.limiter != nil && !p.limiter.Allow() {
		return false
	}
	select {
	case p.jobs <- job{req: req}:
		p.inFlight.Add(1)
		return true
	default:
		return false
	}
}

// EnsurePrototype returns the future for a domain's prototype under a config
// generation, submitting the request on first use. If the prototype queue is
// full the request is retried on the next call.
func (p *Pool) EnsurePrototype(d Domain, gen uint64, params any) *Future {
	key := protoKey{domain: d, gen: gen}
	p.protoMu.Lock()
	defer p.protoMu.Unlock()
	f, ok := p.prototypes[key]
	if !ok {
		f = newFuture(d, gen)
		p.prototypes[key] = f
	}
	if f.submitted {
		return f
	}
	if p.closed.Load() {
		f.resolve(nil, ErrClosed)
		f.submitted = true
		return f
	}
	req := NewRequest(GeneratePrototype, d, world.ChunkID{}, gen, params)
	select {
	case p.protoJobs <- job{req: req, future: f}:
		f.submitted = true
		p.inFlight.Add(1)
	default:
	}
	return f
}

// ForgetPrototypes drops the futures of every generation of d except keep.
func (p *Pool) ForgetPrototypes(d Domain, keep uint64) {
	p.protoMu.Lock()
	defer p.protoMu.Unlock()
	for k := range p.prototypes {
		if k.domain == d && k.gen != keep {
			delete(p.prototypes, k)
		}
	}
}

// Poll returns up to limit completed chunk responses without blocking. A
// limit of zero or less drains everything available.
func (p *Pool) Poll(limit int) []Response {
	var out []Response
	for limit <= 0 || len(out) < limit {
		select {
		case r := <-p.results:
			out = append(out, r)
		default:
			return out
		}
	}
	return out
}

// QueueLength returns the number of chunk requests waiting for a worker.
func (p *Pool) QueueLength() int {
	return len(p.jobs)
}

// InFlight returns requests submitted but not yet finished.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Workers returns the worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Shutdown stops the workers. Queued requests are abandoned and pending
// prototypes resolve with ErrClosed.
func (p *Pool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()

	p.protoMu.Lock()
	for _, f := range p.prototypes {
		f.resolve(nil, ErrClosed)
	}
	p.protoMu.Unlock()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		// prototypes first: chunks of a domain wait on them
		select {
		case j := <-p.protoJobs:
			p.run(id, j)
			continue
		default:
		}
		select {
		case j := <-p.protoJobs:
			p.run(id, j)
		case j := <-p.jobs:
			p.run(id, j)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) run(worker int, j job) {
	defer p.inFlight.Add(-1)
	start := time.Now()
	payload, err := p.call(j.req)
	resp := Response{
		Opcode:     j.req.Opcode,
		ID:         j.req.ID,
		Domain:     j.req.Domain,
		ChunkID:    j.req.ChunkID,
		Generation: j.req.Generation,
		Payload:    payload,
		Err:        err,
		Elapsed:    time.Since(start),
	}
	if j.future != nil {
		if err != nil {
			p.logger.Printf("worker %d: %s prototype failed: %v", worker, j.req.Domain, err)
		}
		j.future.resolve(payload, err)
		return
	}
	select {
	case p.results <- resp:
	case <-p.ctx.Done():
	}
}

// call runs the handler, turning a panic into an error so one bad chunk
// cannot take the pool down.
func (p *Pool) call(req Request) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %s %v: panic: %v", req.Opcode, req.Domain, req.ChunkID, r)
		}
	}()
	return p.handler.Handle(p.ctx, req)
}

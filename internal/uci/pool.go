package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
)

var (
	ErrPoolClosed    = errors.New("uci: pool closed")
	ErrPoolExhausted = errors.New("uci: pool exhausted")
)

type PoolConfig struct {
	BinaryPath         string
	PerProfileCapacity int
}

// Pool keeps warm worker processes grouped by spawn profile. Acquire hands
// out an idle worker or spawns one up to the per-profile capacity, then
// blocks until a worker is released.
type Pool struct {
	binaryPath string
	capacity   int
	spawn      func(ctx context.Context, binaryPath string, opt Options) (*Engine, error)

	mu      sync.Mutex
	closed  bool
	buckets map[string]*engineBucket
	leases  map[*Engine]*engineBucket
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}

	capacity := cfg.PerProfileCapacity
	if capacity <= 0 {
		capacity = defaultPerProfileCapacity()
	}

	p := &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		spawn:      NewEngine,
		buckets:    make(map[string]*engineBucket),
		leases:     make(map[*Engine]*engineBucket),
	}
	return p, nil
}

func (p *Pool) Acquire(ctx context.Context, opt Options) (*Engine, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	key := optionsKey(opt)
	bucket, ok := p.buckets[key]
	if !ok {
		bucket = newEngineBucket(p.binaryPath, opt, p.capacity, p.spawn)
		p.buckets[key] = bucket
	}
	p.mu.Unlock()

	for {
		select {
		case eng := <-bucket.idle:
			if eng == nil {
				continue
			}
			if err := eng.EnsureReady(ctx); err != nil {
				p.discard(eng, bucket)
				continue
			}
			p.track(eng, bucket)
			return eng, nil
		default:
		}

		eng, err := bucket.create(ctx)
		if err == nil {
			p.track(eng, bucket)
			return eng, nil
		}
		if !errors.Is(err, errBucketAtCapacity) {
			return nil, err
		}

		select {
		case eng := <-bucket.idle:
			if eng == nil {
				continue
			}
			if err := eng.EnsureReady(ctx); err != nil {
				p.discard(eng, bucket)
				continue
			}
			p.track(eng, bucket)
			return eng, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrPoolExhausted, ctx.Err())
		}
	}
}

// Release hands a worker back. A non-nil err marks the worker broken and it
// is killed instead of recycled.
func (p *Pool) Release(eng *Engine, err error) {
	if eng == nil {
		return
	}

	p.mu.Lock()
	bucket, ok := p.leases[eng]
	if ok {
		delete(p.leases, eng)
	}
	closed := p.closed
	p.mu.Unlock()

	if !ok {
		_ = eng.Close()
		return
	}
	if err != nil || closed {
		bucket.discard(eng)
		return
	}
	if !bucket.put(eng) {
		bucket.discard(eng)
	}
}

// Close kills every idle worker and rejects further Acquires. Leased workers
// are killed when their holders release them.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	buckets := make([]*engineBucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.leases = make(map[*Engine]*engineBucket)
	p.mu.Unlock()

	var errs []error
	for _, bucket := range buckets {
		for {
			select {
			case eng := <-bucket.idle:
				if eng == nil {
					continue
				}
				if err := eng.Close(); err != nil {
					errs = append(errs, err)
				}
				bucket.decrement()
			default:
				goto nextBucket
			}
		}
	nextBucket:
	}

	return errors.Join(errs...)
}

func (p *Pool) track(eng *Engine, bucket *engineBucket) {
	p.mu.Lock()
	p.leases[eng] = bucket
	p.mu.Unlock()
}

func (p *Pool) discard(eng *Engine, bucket *engineBucket) {
	p.mu.Lock()
	delete(p.leases, eng)
	p.mu.Unlock()
	bucket.discard(eng)
}

type engineBucket struct {
	key        string
	opt        Options
	capacity   int
	binaryPath string
	spawn      func(context.Context, string, Options) (*Engine, error)

	mu    sync.Mutex
	total int
	idle  chan *Engine
}

var errBucketAtCapacity = errors.New("engine bucket at capacity")

func newEngineBucket(binaryPath string, opt Options, capacity int, spawn func(context.Context, string, Options) (*Engine, error)) *engineBucket {
	if capacity <= 0 {
		capacity = 1
	}
	return &engineBucket{
		key:        optionsKey(opt),
		opt:        opt,
		capacity:   capacity,
		binaryPath: binaryPath,
		spawn:      spawn,
		idle:       make(chan *Engine, capacity),
	}
}

func (b *engineBucket) create(ctx context.Context) (*Engine, error) {
	b.mu.Lock()
	if b.total >= b.capacity {
		b.mu.Unlock()
		return nil, errBucketAtCapacity
	}
	b.total++
	b.mu.Unlock()

	eng, err := b.spawn(ctx, b.binaryPath, b.opt)
	if err != nil {
		b.decrement()
		return nil, err
	}
	return eng, nil
}

func (b *engineBucket) put(eng *Engine) bool {
	select {
	case b.idle <- eng:
		return true
	default:
		return false
	}
}

func (b *engineBucket) discard(eng *Engine) {
	if eng != nil {
		_ = eng.Close()
	}
	b.decrement()
}

func (b *engineBucket) decrement() {
	b.mu.Lock()
	if b.total > 0 {
		b.total--
	}
	b.mu.Unlock()
}

func optionsKey(opt Options) string {
	return fmt.Sprintf("thr=%d|hash=%d|skill=%d|think=%d|overhead=%d",
		opt.Threads,
		opt.HashMB,
		opt.SkillLevel,
		opt.MinThinkMillis,
		opt.MoveOverheadMillis)
}

func defaultPerProfileCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}

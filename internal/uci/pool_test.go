package uci

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type spawnRecorder struct {
	mu         sync.Mutex
	workers    []*scriptedWorker
	failNextGo bool
}

func (r *spawnRecorder) add(w *scriptedWorker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextGo {
		w.failGo = true
		r.failNextGo = false
	}
	r.workers = append(r.workers, w)
}

func (r *spawnRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

func (r *spawnRecorder) worker(t *testing.T, i int) *scriptedWorker {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.workers) {
		t.Fatalf("worker %d never spawned (have %d)", i, len(r.workers))
	}
	return r.workers[i]
}

func newTestPool(t *testing.T, capacity int) (*Pool, *spawnRecorder) {
	t.Helper()
	rec := &spawnRecorder{}
	p := &Pool{
		binaryPath: "scriptfish",
		capacity:   capacity,
		spawn: func(ctx context.Context, binaryPath string, opt Options) (*Engine, error) {
			eng, w := startScriptedEngine(t, "e2e4")
			rec.add(w)
			if err := eng.initialize(ctx, opt); err != nil {
				_ = eng.Close()
				return nil, err
			}
			return eng, nil
		},
		buckets: make(map[string]*engineBucket),
		leases:  make(map[*Engine]*engineBucket),
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, rec
}

func waitForCommand(t *testing.T, w *scriptedWorker, cmd string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		for _, got := range w.commands() {
			if got == cmd {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("command %q never arrived: %v", cmd, w.commands())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPoolReusesReleasedWorker(t *testing.T) {
	p, rec := newTestPool(t, 2)
	ctx := context.Background()

	a, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(a, nil)

	b, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if b != a {
		t.Fatalf("released worker not recycled")
	}
	if rec.count() != 1 {
		t.Fatalf("spawned %d workers", rec.count())
	}
}

func TestPoolDiscardsBrokenWorker(t *testing.T) {
	p, rec := newTestPool(t, 2)
	ctx := context.Background()

	a, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(a, errors.New("engine wedged"))
	waitForCommand(t, rec.worker(t, 0), "quit")

	b, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if b == a {
		t.Fatalf("broken worker recycled")
	}
	if rec.count() != 2 {
		t.Fatalf("spawned %d workers", rec.count())
	}
}

func TestPoolCapacityBlocksUntilRelease(t *testing.T) {
	p, _ := newTestPool(t, 1)
	ctx := context.Background()

	a, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(waitCtx, testOptions()); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("acquire at capacity = %v", err)
	}

	p.Release(a, nil)
	b, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if b != a {
		t.Fatalf("expected recycled worker")
	}
}

func TestPoolProfilesDoNotShareWorkers(t *testing.T) {
	p, rec := newTestPool(t, 2)
	ctx := context.Background()

	a, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(a, nil)

	other := testOptions()
	other.SkillLevel = 3
	if _, err := p.Acquire(ctx, other); err != nil {
		t.Fatalf("acquire other profile: %v", err)
	}
	if rec.count() != 2 {
		t.Fatalf("profiles shared a worker (spawned %d)", rec.count())
	}
}

func TestPoolCloseRejectsAcquire(t *testing.T) {
	p, rec := newTestPool(t, 1)
	ctx := context.Background()

	a, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := p.Acquire(ctx, testOptions()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("acquire after close = %v", err)
	}

	// A worker still leased at close time is killed on release.
	p.Release(a, nil)
	waitForCommand(t, rec.worker(t, 0), "quit")
}

func TestPoolCloseDrainsIdleWorkers(t *testing.T) {
	p, rec := newTestPool(t, 1)
	ctx := context.Background()

	a, err := p.Acquire(ctx, testOptions())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(a, nil)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitForCommand(t, rec.worker(t, 0), "quit")
}

package uci

import (
	"context"
	"sync"
	"time"

	"github.com/park285/chess-gateway/internal/engine"
	"github.com/park285/chess-gateway/internal/session"
)

// A search shorter than this is indistinguishable from noise, so movetime is
// floored here even when the configured thinking time is lower.
const minMoveTimeMillis = 10

// PoolSearcher adapts a pooled worker process to the session.Searcher
// contract. The worker is bound lazily on first use and handed back by
// Close, which is what lets a released session re-initialize later: the next
// call simply acquires a fresh worker and replays the recorded options.
type PoolSearcher struct {
	pool *Pool
	opt  Options

	mu   sync.Mutex
	eng  *Engine
	sets []optionSet
}

type optionSet struct {
	name  string
	value string
}

var _ session.Searcher = (*PoolSearcher)(nil)

func NewPoolSearcher(pool *Pool, opt Options) *PoolSearcher {
	return &PoolSearcher{pool: pool, opt: opt}
}

// SetOption records the assignment and forwards it to the live worker if one
// is bound. The record is replayed onto every freshly acquired worker, so
// session option state survives worker churn. Button presses (empty value)
// are forwarded but not replayed.
func (s *PoolSearcher) SetOption(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(name, value)
	if s.eng == nil {
		return nil
	}
	if err := s.eng.SetOption(name, value); err != nil {
		s.discardLocked(err)
		return err
	}
	return nil
}

// Search maps the request onto one position/go exchange. The standard start
// position collapses to "position startpos" on the wire.
func (s *PoolSearcher) Search(ctx context.Context, req session.SearchRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return "", err
	}

	spec := SearchSpec{
		FEN:            req.StartFEN,
		Moves:          req.Moves,
		MoveTimeMillis: moveTimeMillis(req.Limits),
	}
	if spec.FEN == engine.StartFEN {
		spec.FEN = ""
	}

	best, err := s.eng.Search(ctx, spec)
	if err != nil {
		s.discardLocked(err)
		return "", err
	}
	return best, nil
}

func (s *PoolSearcher) NewGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return err
	}
	if err := s.eng.NewGame(ctx); err != nil {
		s.discardLocked(err)
		return err
	}
	return nil
}

// Close hands the worker back to the pool. The searcher itself stays usable.
func (s *PoolSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eng == nil {
		return nil
	}
	s.pool.Release(s.eng, nil)
	s.eng = nil
	return nil
}

func (s *PoolSearcher) ensureLocked(ctx context.Context) error {
	if s.eng != nil {
		return nil
	}

	eng, err := s.pool.Acquire(ctx, s.opt)
	if err != nil {
		return err
	}
	for _, set := range s.sets {
		if err := eng.SetOption(set.name, set.value); err != nil {
			s.pool.Release(eng, err)
			return err
		}
	}
	s.eng = eng
	return nil
}

func (s *PoolSearcher) discardLocked(err error) {
	if s.eng == nil {
		return
	}
	s.pool.Release(s.eng, err)
	s.eng = nil
}

func (s *PoolSearcher) record(name, value string) {
	if value == "" {
		return
	}
	for i := range s.sets {
		if s.sets[i].name == name {
			s.sets[i].value = value
			return
		}
	}
	s.sets = append(s.sets, optionSet{name: name, value: value})
}

func moveTimeMillis(l session.Limits) int {
	ms := int(l.MinThinkTime / time.Millisecond)
	if ms < minMoveTimeMillis {
		ms = minMoveTimeMillis
	}
	return ms
}

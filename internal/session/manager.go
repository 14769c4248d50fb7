package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session: not found")

// SearcherFactory produces a fresh worker context for a new session.
type SearcherFactory func(ctx context.Context) (Searcher, error)

const sweepInterval = 30 * time.Second

type managed struct {
	sess     *Session
	lastUsed time.Time
}

// Manager is an in-memory registry of live sessions keyed by UUID. Idle
// sessions past the TTL are released by a background sweep.
type Manager struct {
	log     *zap.Logger
	factory SearcherFactory
	ttl     time.Duration

	mu       sync.RWMutex
	sessions map[string]*managed

	done chan struct{}
	once sync.Once
}

// NewManager starts the registry. A zero ttl disables expiry.
func NewManager(factory SearcherFactory, ttl time.Duration, logger *zap.Logger) (*Manager, error) {
	if factory == nil {
		return nil, fmt.Errorf("searcher factory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		log:      logger,
		factory:  factory,
		ttl:      ttl,
		sessions: make(map[string]*managed),
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go m.sweep()
	}
	return m, nil
}

// Create builds, initializes, and registers a new session, returning its ID.
func (m *Manager) Create(ctx context.Context, cfg Config, fen string, notify Notifier) (string, *Session, error) {
	searcher, err := m.factory(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("acquire searcher: %w", err)
	}

	sess, err := New(searcher, cfg, m.log, notify)
	if err != nil {
		_ = searcher.Close()
		return "", nil, err
	}
	if err := sess.Init(ctx, fen); err != nil {
		_ = searcher.Close()
		return "", nil, err
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &managed{sess: sess, lastUsed: time.Now()}
	m.mu.Unlock()

	m.log.Info("manager_session_created", zap.String("session_id", id))
	return id, sess, nil
}

// Get returns the session and refreshes its idle deadline.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	entry.lastUsed = time.Now()
	m.mu.Unlock()
	return entry.sess, nil
}

// Release shuts the session down and removes it from the registry. A
// session that refuses to release (mid-think) stays registered.
func (m *Manager) Release(id string) error {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	if err := entry.sess.Release(); err != nil && !errors.Is(err, ErrSessionReleased) {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.log.Info("manager_session_released", zap.String("session_id", id))
	return nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the sweeper and releases every remaining session.
func (m *Manager) Close() error {
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	entries := make(map[string]*managed, len(m.sessions))
	for id, entry := range m.sessions {
		entries[id] = entry
	}
	m.sessions = make(map[string]*managed)
	m.mu.Unlock()

	var errs []error
	for id, entry := range entries {
		if err := entry.sess.Release(); err != nil && !errors.Is(err, ErrSessionReleased) {
			errs = append(errs, fmt.Errorf("release %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) sweep() {
	interval := sweepInterval
	if m.ttl < interval {
		interval = m.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.expire(now)
		}
	}
}

func (m *Manager) expire(now time.Time) {
	m.mu.Lock()
	var stale []string
	for id, entry := range m.sessions {
		if now.Sub(entry.lastUsed) >= m.ttl {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		// A session mid-think is skipped and retried on the next tick.
		if err := m.Release(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.log.Warn("manager_session_expire_failed",
				zap.String("session_id", id),
				zap.Error(err))
			continue
		}
		m.log.Info("manager_session_expired", zap.String("session_id", id))
	}
}

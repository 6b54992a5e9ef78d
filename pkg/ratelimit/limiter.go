package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config describes one limiter policy applied per key.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Result reports the outcome of a limiter check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type entry struct {
	count   int
	resetAt time.Time
}

// Store is an in-memory fixed-window request counter keyed by
// namespace:identifier. Counters are process-local: with N instances a
// client can burst up to N times the configured limit, so a shared
// backend is required before scaling horizontally.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	logger  *zap.Logger

	cleanupEvery time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	started      bool
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger for lifecycle events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore constructs a limiter store. Call Start to begin the periodic
// cleanup of expired windows and Stop at shutdown.
func NewStore(cleanupEvery time.Duration, opts ...StoreOption) *Store {
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	s := &Store{
		entries:      make(map[string]*entry),
		now:          time.Now,
		logger:       zap.NewNop(),
		cleanupEvery: cleanupEvery,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Key builds the canonical limiter key for a namespace and identifier.
func Key(namespace, identifier string) string {
	return fmt.Sprintf("%s:%s", namespace, identifier)
}

// Check records a request against the key and reports whether it is
// allowed. A fresh or expired key starts a new window with count 1.
func (s *Store) Check(key string, cfg Config) Result {
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		return Result{Allowed: true, Remaining: math.MaxInt32}
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(cfg.Window)}
		s.entries[key] = e
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetAt: e.resetAt}
	}

	if e.count >= cfg.MaxRequests {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    e.resetAt,
			RetryAfter: e.resetAt.Sub(now),
		}
	}

	e.count++
	return Result{Allowed: true, Remaining: cfg.MaxRequests - e.count, ResetAt: e.resetAt}
}

// Reset drops the counter for a key. Used between test cases and by
// administrative tooling.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len reports the number of live counters.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start launches the background cleanup loop. Safe to call once.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
	s.logger.Sugar().Infow("rate limiter started", "cleanup_interval", s.cleanupEvery)
}

// Stop cancels the cleanup loop and waits for it to exit.
func (s *Store) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("rate limiter stopped")
}

func (s *Store) cleanup() {
	now := s.now()
	s.mu.Lock()
	for key, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

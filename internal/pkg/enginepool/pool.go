// Package enginepool bounds the number of concurrent rendering engine sessions.
//
// A session is started right before use by probing the engine, and returned to
// the pool on every exit path of Do. A session whose work failed is closed
// instead of being reused.
package enginepool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"report-service-go/internal/pkg/gotenberg"
	"report-service-go/internal/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrPoolClosed    = errors.New("engine pool is closed")
	ErrPoolExhausted = errors.New("engine pool exhausted")
)

// Config holds the pool limits.
type Config struct {
	// MaxSessions bounds concurrent sessions.
	MaxSessions int
	// AcquireTimeout bounds the wait for a free session.
	AcquireTimeout time.Duration
	// MaxIdle is how long an unused session is kept before it is closed.
	MaxIdle time.Duration
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MaxSessions:    4,
		AcquireTimeout: 10 * time.Second,
		MaxIdle:        2 * time.Minute,
	}
}

// DialFunc creates the converter behind a new session.
type DialFunc func(ctx context.Context) (gotenberg.Converter, error)

// Session is one engine session.
type Session struct {
	conv       gotenberg.Converter
	createdAt  time.Time
	lastUsedAt time.Time
	released   bool
}

// Converter returns the session's converter.
func (s *Session) Converter() gotenberg.Converter {
	return s.conv
}

// Stats is a snapshot of the pool.
type Stats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
	IdleSessions   int `json:"idle_sessions"`
}

// Pool hands out engine sessions.
type Pool struct {
	config Config
	logger *zap.Logger
	dial   DialFunc
	sem    *semaphore.Weighted

	mu     sync.Mutex
	idle   []*Session
	active int
	closed bool

	cleanupCtx context.Context
	cancel     context.CancelFunc
}

// NewPool creates a pool. No session is started until the first Acquire.
func NewPool(config Config, logger *zap.Logger, dial DialFunc) *Pool {
	if config.MaxSessions <= 0 {
		config.MaxSessions = DefaultConfig().MaxSessions
	}
	if config.MaxIdle <= 0 {
		config.MaxIdle = DefaultConfig().MaxIdle
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config:     config,
		logger:     logger,
		dial:       dial,
		sem:        semaphore.NewWeighted(int64(config.MaxSessions)),
		cleanupCtx: ctx,
		cancel:     cancel,
	}

	go p.cleanup()
	return p
}

// Do runs fn with a started session and releases the session however fn
// exits, including a panic.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context, conv gotenberg.Converter) error) (err error) {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			p.Release(s, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		p.Release(s, err)
	}()
	return fn(ctx, s.conv)
}

// Acquire waits for a free slot and starts a session in it. The session must
// be handed back with Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	start := time.Now()

	waitCtx := ctx
	if p.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.config.AcquireTimeout)
		defer cancel()
	}

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		metrics.EngineSessionWait.Observe(time.Since(start).Seconds())
		if ctx.Err() != nil {
			metrics.EngineSessionErrors.WithLabelValues("canceled").Inc()
			return nil, ctx.Err()
		}
		metrics.EngineSessionErrors.WithLabelValues("exhausted").Inc()
		return nil, fmt.Errorf("%w: waited %s", ErrPoolExhausted, time.Since(start).Round(time.Millisecond))
	}
	metrics.EngineSessionWait.Observe(time.Since(start).Seconds())

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}
	s := p.popIdleLocked()
	p.active++
	p.updateGaugesLocked()
	p.mu.Unlock()

	if s == nil {
		conv, err := p.dial(ctx)
		if err != nil {
			p.abandon()
			metrics.EngineSessionErrors.WithLabelValues("dial").Inc()
			return nil, fmt.Errorf("failed to start engine session: %w", err)
		}
		s = &Session{conv: conv, createdAt: time.Now()}
	}

	if err := s.conv.HealthCheck(ctx); err != nil {
		s.conv.Close()
		p.abandon()
		metrics.EngineSessionErrors.WithLabelValues("start").Inc()
		return nil, fmt.Errorf("failed to start engine session: %w", err)
	}

	s.lastUsedAt = time.Now()
	return s, nil
}

// Release returns a session. A non-nil workErr closes the session instead of
// keeping it idle. Releasing a session twice is a no-op.
func (p *Pool) Release(s *Session, workErr error) {
	p.mu.Lock()
	if s.released {
		p.mu.Unlock()
		return
	}
	s.released = true
	p.active--

	keep := workErr == nil && !p.closed
	if keep {
		s.lastUsedAt = time.Now()
		p.idle = append(p.idle, s)
	}
	p.updateGaugesLocked()
	p.mu.Unlock()

	if !keep {
		s.conv.Close()
		if workErr != nil {
			p.logger.Debug("engine session discarded", zap.Error(workErr))
		}
	}
	p.sem.Release(1)
}

// Close stops the pool and closes idle sessions. Sessions in use are closed
// when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cancel()
	idle := p.idle
	p.idle = nil
	p.updateGaugesLocked()
	p.mu.Unlock()

	for _, s := range idle {
		s.conv.Close()
	}
	return nil
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		MaxSessions:    p.config.MaxSessions,
		ActiveSessions: p.active,
		IdleSessions:   len(p.idle),
	}
}

// popIdleLocked returns the most recently used idle session that is not stale.
func (p *Pool) popIdleLocked() *Session {
	for len(p.idle) > 0 {
		s := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if p.isStale(s) {
			go s.conv.Close()
			continue
		}
		s.released = false
		return s
	}
	return nil
}

// abandon frees the slot of a session that failed to start.
func (p *Pool) abandon() {
	p.mu.Lock()
	p.active--
	p.updateGaugesLocked()
	p.mu.Unlock()
	p.sem.Release(1)
}

func (p *Pool) cleanup() {
	interval := p.config.MaxIdle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.cleanupCtx.Done():
			return
		case <-ticker.C:
			p.removeStaleSessions()
		}
	}
}

func (p *Pool) removeStaleSessions() {
	p.mu.Lock()
	var remaining, stale []*Session
	for _, s := range p.idle {
		if p.isStale(s) {
			stale = append(stale, s)
			continue
		}
		remaining = append(remaining, s)
	}
	p.idle = remaining
	p.updateGaugesLocked()
	p.mu.Unlock()

	for _, s := range stale {
		s.conv.Close()
	}
	if len(stale) > 0 {
		p.logger.Debug("closed idle engine sessions", zap.Int("count", len(stale)))
	}
}

func (p *Pool) isStale(s *Session) bool {
	return time.Since(s.lastUsedAt) > p.config.MaxIdle
}

func (p *Pool) updateGaugesLocked() {
	metrics.EngineSessions.WithLabelValues("active").Set(float64(p.active))
	metrics.EngineSessions.WithLabelValues("idle").Set(float64(len(p.idle)))
}

// Package session owns the pool of isolated headless browser sessions.
//
// The pool is the single shared mutable resource of the pipeline: it
// enforces a hard upper bound on concurrently open browser tabs and
// guarantees teardown on release. Callers should prefer With, which
// scopes acquisition and releases on every exit path.
package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/placescout/placescout/internal/metrics"
	"github.com/placescout/placescout/internal/scout"
)

// Config controls pool behavior.
type Config struct {
	Capacity       int
	AcquireTimeout time.Duration
	UserAgent      string
	Headless       bool
}

// Pool hands out exclusive browser sessions up to a fixed capacity.
type Pool struct {
	cfg         Config
	slots       chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
	closed      atomic.Bool
}

// NewPool creates a Pool backed by a shared Chrome exec allocator.
// The browser process itself is only launched on first navigation.
func NewPool(cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be > 0")
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Pool{
		cfg:         cfg,
		slots:       make(chan struct{}, cfg.Capacity),
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Capacity returns the fixed session bound.
func (p *Pool) Capacity() int { return p.cfg.Capacity }

// InUse returns the number of sessions currently checked out.
func (p *Pool) InUse() int { return len(p.slots) }

// Acquire blocks until a slot frees up or the acquisition timeout
// elapses, then opens a fresh browser tab context.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	if p.closed.Load() {
		return nil, scout.ErrPoolClosed
	}
	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case p.slots <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("acquire after %s: %w", p.cfg.AcquireTimeout, scout.ErrPoolExhausted)
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire canceled: %w", ctx.Err())
	}

	tabCtx, tabCancel := chromedp.NewContext(p.allocator)
	metrics.SessionAcquired()
	return &Session{
		pool:      p,
		ctx:       tabCtx,
		cancel:    tabCancel,
		userAgent: p.cfg.UserAgent,
	}, nil
}

// Release tears the session down and returns its slot. Releasing the
// same session twice is a programming error.
func (p *Pool) Release(s *Session) error {
	if s == nil {
		return fmt.Errorf("release nil session")
	}
	if s.released.Swap(true) {
		return scout.ErrDoubleRelease
	}
	s.cancel()
	metrics.SessionReleased()
	select {
	case <-p.slots:
	default:
		// Slot accounting is driven by Acquire; an empty channel here
		// means Release was called for a session the pool never issued.
		p.logger.Warn("release without matching acquire")
	}
	return nil
}

// With acquires a session, runs fn, and releases on every exit path.
func (p *Pool) With(ctx context.Context, fn func(scout.Session) error) error {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := p.Release(s); relErr != nil {
			p.logger.Error("session release failed", zap.Error(relErr))
		}
	}()
	return fn(s)
}

// Close shuts the pool down. In-flight sessions are canceled through
// the shared allocator context.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.allocCancel()
}

// Package poll re-runs a read on a fixed interval while its consumer is
// active.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidInterval is returned for a non-positive interval.
var ErrInvalidInterval = errors.New("poll interval must be positive")

// Poller owns at most one live subscription. Starting a new one stops the
// previous one first.
type Poller struct {
	mu     sync.Mutex
	sub    *subscription
	logger zerolog.Logger
}

type subscription struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu     sync.Mutex
	active bool
}

func (s *subscription) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *subscription) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger for swallowed iteration errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func New(opts ...Option) *Poller {
	p := &Poller{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start stops any prior subscription, runs fn immediately, then runs it on
// every tick until Stop is called or ctx is done. fn errors are logged and do
// not stop later iterations. fn receives ctx itself, so Stop ends the ticker
// without aborting a call that is already running.
func (p *Poller) Start(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	_, err := p.start(ctx, interval, func(ctx context.Context, _ *subscription) error {
		return fn(ctx)
	})
	return err
}

func (p *Poller) start(ctx context.Context, interval time.Duration, fn func(context.Context, *subscription) error) (*subscription, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		p.sub.deactivate()
	}

	sub := &subscription{stop: make(chan struct{}), done: make(chan struct{}), active: true}
	p.sub = sub

	go p.run(ctx, sub, interval, fn)
	return sub, nil
}

func (p *Poller) run(ctx context.Context, sub *subscription, interval time.Duration, fn func(context.Context, *subscription) error) {
	defer close(sub.done)
	defer func() {
		sub.mu.Lock()
		sub.active = false
		sub.mu.Unlock()
	}()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.iterate(ctx, sub, fn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		case <-ticker.C:
			// A tick and a stop can be ready together.
			if !sub.isActive() || ctx.Err() != nil {
				return
			}
			p.iterate(ctx, sub, fn)
		}
	}
}

func (p *Poller) iterate(ctx context.Context, sub *subscription, fn func(context.Context, *subscription) error) {
	if err := fn(ctx, sub); err != nil {
		if !sub.isActive() || ctx.Err() != nil {
			return
		}
		p.logger.Warn().Err(err).Msg("poll iteration failed")
	}
}

// Stop tears down the live subscription. Its ticker stops at once. An
// in-flight call is not awaited, and its result is not committed. Stop is
// safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub == nil {
		return
	}
	p.sub.deactivate()
	p.sub = nil
}

// Wait blocks until the current subscription's goroutine exits, which happens
// after Stop or when its context is done. It returns at once when nothing is
// running.
func (p *Poller) Wait() {
	p.mu.Lock()
	sub := p.sub
	p.mu.Unlock()
	if sub != nil {
		<-sub.done
	}
}

// Active reports whether a subscription is live.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sub != nil && p.sub.isActive()
}

// Watch polls fetch and hands each result to commit. A result is committed
// only if its subscription is still live and ctx is not done when fetch
// returns. Nothing is committed after Stop, after cancellation, or after a
// newer Start. commit must not call Start or Stop on p.
func Watch[T any](ctx context.Context, p *Poller, interval time.Duration, fetch func(context.Context) (T, error), commit func(T)) error {
	_, err := p.start(ctx, interval, func(ctx context.Context, sub *subscription) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.active && ctx.Err() == nil {
			commit(v)
		}
		return nil
	})
	return err
}

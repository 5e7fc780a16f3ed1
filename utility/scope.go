// Package utility provides the per-element scope for auxiliary helper
// goroutines. Helpers are never restarted; the only guarantee is that
// every helper under a scope is told to stop when the owning element
// terminates, and that teardown waits no longer than a bounded grace
// period.
package utility

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultGrace = 5 * time.Second

var (
	// ErrScopeClosed is returned when starting a helper on a scope that
	// already began teardown.
	ErrScopeClosed = errors.New("utility: scope closed")
	// ErrTeardownTimeout is returned when helpers outlive the grace
	// period; the goroutines are abandoned, not force-killed.
	ErrTeardownTimeout = errors.New("utility: helpers did not stop within grace period")
)

// HelperFunc runs a helper until its context is canceled. A nil return
// is a normal exit; an error or panic is abnormal.
type HelperFunc func(ctx context.Context) error

// LinkedFailureFunc is invoked when a linked helper exits abnormally
// while the scope is still open.
type LinkedFailureFunc func(id string, err error)

// Scope owns a set of helper goroutines tied to one element's lifetime.
type Scope struct {
	owner           string
	ctx             context.Context
	cancel          context.CancelFunc
	grace           time.Duration
	logger          *zap.Logger
	onLinkedFailure LinkedFailureFunc

	wg      sync.WaitGroup
	mu      sync.Mutex
	helpers map[string]struct{}
	closed  bool
}

// Option configures a Scope.
type Option func(*Scope)

// WithGrace sets the teardown grace period.
func WithGrace(d time.Duration) Option {
	return func(s *Scope) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithLogger sets the scope logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scope) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLinkedFailure sets the callback fired when a linked helper exits
// abnormally.
func WithLinkedFailure(fn LinkedFailureFunc) Option {
	return func(s *Scope) {
		s.onLinkedFailure = fn
	}
}

// NewScope creates a scope owned by the named element.
func NewScope(owner string, opts ...Option) *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scope{
		owner:   owner,
		ctx:     ctx,
		cancel:  cancel,
		grace:   defaultGrace,
		logger:  zap.NewNop(),
		helpers: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartChild starts an unlinked helper: its failure is logged and
// otherwise ignored.
func (s *Scope) StartChild(id string, fn HelperFunc) error {
	return s.start(id, fn, false)
}

// StartLinkedChild starts a helper whose abnormal exit is reported to
// the scope owner via the linked-failure callback.
func (s *Scope) StartLinkedChild(id string, fn HelperFunc) error {
	return s.start(id, fn, true)
}

func (s *Scope) start(id string, fn HelperFunc, linked bool) error {
	if fn == nil {
		return fmt.Errorf("utility: nil helper func for %q", id)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScopeClosed
	}
	if _, exists := s.helpers[id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("utility: helper %q already running under %q", id, s.owner)
	}
	s.helpers[id] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(id, fn, linked)
	return nil
}

func (s *Scope) run(id string, fn HelperFunc, linked bool) {
	defer s.wg.Done()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("utility: helper %q panicked: %v", id, r)
			}
		}()
		err = fn(s.ctx)
	}()

	s.mu.Lock()
	delete(s.helpers, id)
	closed := s.closed
	s.mu.Unlock()

	if err == nil || closed {
		return
	}
	s.logger.Warn("helper exited abnormally",
		zap.String("owner", s.owner),
		zap.String("helper", id),
		zap.Error(err),
	)
	if linked && s.onLinkedFailure != nil {
		s.onLinkedFailure(id, err)
	}
}

// Shutdown cancels every helper and waits up to the grace period for
// them to return. Safe to call more than once.
func (s *Scope) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.grace):
		s.logger.Warn("abandoning helpers after grace period",
			zap.String("owner", s.owner),
			zap.Duration("grace", s.grace),
		)
		return ErrTeardownTimeout
	}
}

// Done exposes the scope's cancellation to callers that want to tie
// extra work to the owner's lifetime.
func (s *Scope) Done() <-chan struct{} {
	return s.ctx.Done()
}

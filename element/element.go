// Package element implements the runtime for a single processing unit
// within a pipeline graph: a named goroutine with a mailbox, playback
// state, a utility scope for helpers and an exit-monitoring contract.
package element

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/hedisam/flowgraph/internal/mailbox"
	"github.com/hedisam/flowgraph/sysmsg"
	"github.com/hedisam/flowgraph/utility"
)

// Element is the runtime handed to Config callbacks. Its fields are
// owned by the element goroutine; user code interacts with it only from
// inside callbacks.
type Element struct {
	id     string
	name   string
	cfg    Config
	state  State
	mb     mailbox.Mailbox
	handle *Handle
	ctx    context.Context
	cancel context.CancelFunc
	scope  *utility.Scope
	router Router
	logger *zap.Logger

	mailboxCap uint64
	scopeGrace time.Duration

	// exitReason is set by the loop before returning; left nil for a
	// clean user-initiated return.
	exitReason *sysmsg.Reason
}

// Option configures a spawned element.
type Option func(*Element)

// WithRouter wires the element's notifications to a router.
func WithRouter(r Router) Option {
	return func(e *Element) {
		if r != nil {
			e.router = r
		}
	}
}

// WithLogger sets the element logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Element) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMailboxCapacity sets the element mailbox capacity.
func WithMailboxCapacity(n uint64) Option {
	return func(e *Element) {
		e.mailboxCap = n
	}
}

// WithScopeGrace bounds the utility scope's teardown wait.
func WithScopeGrace(d time.Duration) Option {
	return func(e *Element) {
		e.scopeGrace = d
	}
}

// Spawn starts a new element goroutine and returns its handle. The
// element begins in the Stopped state.
func Spawn(name string, cfg Config, opts ...Option) (*Handle, error) {
	if name == "" {
		return nil, fmt.Errorf("element: empty name")
	}
	if cfg == nil {
		return nil, fmt.Errorf("element %q: nil config", name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Element{
		id:     xid.New().String(),
		name:   name,
		cfg:    cfg,
		state:  Stopped,
		ctx:    ctx,
		cancel: cancel,
		router: nopRouter{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.mb = mailbox.NewRingBufferMailbox(e.mailboxCap)
	e.handle = newHandle(e.id, name, e.mb)
	e.scope = utility.NewScope(name,
		utility.WithGrace(e.scopeGrace),
		utility.WithLogger(e.logger),
		utility.WithLinkedFailure(func(id string, err error) {
			e.mb.Send(linkedHelperFailure{id: id, err: err})
		}),
	)

	go func() {
		defer e.handleTermination()
		e.run()
	}()

	return e.handle, nil
}

// linkedHelperFailure is injected into the owner's mailbox when a
// linked utility helper crashes.
type linkedHelperFailure struct {
	id  string
	err error
}

func (e *Element) run() {
	if err := e.cfg.HandleInit(e); err != nil {
		e.exitReason = &sysmsg.Reason{Type: sysmsg.Panic, Details: err}
		return
	}

	e.mb.Receive(func(msg interface{}) (loop bool) {
		switch m := msg.(type) {
		case transitionRequest:
			err := e.cfg.HandlePlaybackChange(e, m.from, m.to)
			if err == nil {
				e.state = m.to
			}
			m.reply <- err
			return true
		case sysmsg.Shutdown:
			e.exitReason = &sysmsg.Reason{Type: sysmsg.Kill, Details: m.Parent}
			return false
		case linkedHelperFailure:
			e.exitReason = &sysmsg.Reason{
				Type:    sysmsg.Panic,
				Details: fmt.Sprintf("linked helper %q: %v", m.id, m.err),
			}
			return false
		default:
			if err := e.cfg.HandleMessage(e, msg); err != nil {
				e.exitReason = &sysmsg.Reason{Type: sysmsg.Panic, Details: err}
				return false
			}
			return true
		}
	})
}

func (e *Element) handleTermination() {
	e.mb.Dispose()

	reason := sysmsg.Reason{Type: sysmsg.Normal}
	if r := recover(); r != nil {
		reason = sysmsg.Reason{Type: sysmsg.Panic, Details: r}
	} else if e.exitReason != nil {
		reason = *e.exitReason
	}

	e.cancel()
	if err := e.scope.Shutdown(); err != nil {
		e.logger.Warn("utility scope teardown",
			zap.String("element", e.name),
			zap.Error(err),
		)
	}

	e.logger.Debug("element terminated",
		zap.String("element", e.name),
		zap.String("reason", reason.Type),
	)
	e.handle.terminated(sysmsg.Exit{Who: e.name, Reason: reason})
}

// Name returns the element's name within its parent scope.
func (e *Element) Name() string { return e.name }

// State returns the element's current playback state.
func (e *Element) State() State { return e.state }

// Context is canceled when the element terminates.
func (e *Element) Context() context.Context { return e.ctx }

// Scope returns the element's utility scope for helper goroutines.
func (e *Element) Scope() *utility.Scope { return e.scope }

// Logger returns the element logger.
func (e *Element) Logger() *zap.Logger { return e.logger }

// Notify emits an asynchronous, non-sticky notification.
func (e *Element) Notify(payload interface{}) {
	_, _ = e.router.Route(e.name, "", payload, false, false)
}

// NotifySticky emits a notification whose latest payload is retained
// per channel for late-attaching listeners.
func (e *Element) NotifySticky(channel string, payload interface{}) {
	_, _ = e.router.Route(e.name, channel, payload, true, false)
}

// Call emits a synchronous notification, blocking the element until the
// observer has processed it, and returns the observer's result.
func (e *Element) Call(payload interface{}) (interface{}, error) {
	return e.router.Route(e.name, "", payload, false, true)
}

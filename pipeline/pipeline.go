// Package pipeline implements the control and supervision core of the
// framework: spec application, playback synchronization, crash-group
// fault containment and notification routing for one element graph.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hedisam/flowgraph/config"
	"github.com/hedisam/flowgraph/element"
	"github.com/hedisam/flowgraph/monitoring"
	"github.com/hedisam/flowgraph/sysmsg"
)

// Pipeline owns one element graph. All graph state — registry, link
// table, crash groups, playback — is owned and mutated by a single
// goroutine; the public API hands it commands and waits for replies, so
// none of that state ever needs a lock.
type Pipeline struct {
	name     string
	cfg      *config.Config
	observer Observer
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	spawner  Spawner

	router   *router
	registry *NameRegistry
	links    *LinkTable
	groups   *CrashGroupManager
	playback *playbackController
	applier  *specApplier
	children map[string]*Child
	closing  bool

	cmds     chan func()
	exits    chan exitEvent
	quit     chan struct{}
	quitOnce sync.Once
}

type exitEvent struct {
	name string
	exit sysmsg.Exit
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithConfig overrides the framework defaults.
func WithConfig(cfg *config.Config) Option {
	return func(p *Pipeline) {
		if cfg != nil {
			p.cfg = cfg
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithSpawner replaces the spawn primitive, mainly for tests.
func WithSpawner(s Spawner) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.spawner = s
		}
	}
}

// New creates a pipeline and starts its controller goroutine.
func New(name string, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:     name,
		cfg:      config.Default(),
		observer: NopObserver{},
		logger:   zap.NewNop(),
		children: make(map[string]*Child),
		cmds:     make(chan func()),
		exits:    make(chan exitEvent),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.router = newRouter(p.observer, p.logger, p.metrics)
	p.registry = NewNameRegistry()
	p.links = NewLinkTable()
	p.groups = NewCrashGroupManager(p.terminateMember, p.emitGroupDown, p.logger, p.metrics)
	p.playback = newPlaybackController(p.logger, p.metrics)
	if p.spawner == nil {
		p.spawner = &elementSpawner{router: p.router, logger: p.logger, cfg: p.cfg}
	}
	p.applier = &specApplier{
		spawner:  p.spawner,
		registry: p.registry,
		links:    p.links,
		groups:   p.groups,
		logger:   p.logger,
		metrics:  p.metrics,
	}

	go p.run()
	return p
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

func (p *Pipeline) run() {
	for {
		select {
		case cmd := <-p.cmds:
			cmd()
		case ev := <-p.exits:
			p.handleExit(ev)
		case <-p.quit:
			return
		}
	}
}

// do runs fn on the controller goroutine and waits for it.
func (p *Pipeline) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		fn()
		close(done)
	}
	select {
	case p.cmds <- cmd:
	case <-p.quit:
		return ErrPipelineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-p.quit:
		return ErrPipelineClosed
	}
}

// Apply validates and applies one spec: spawns its children, merges its
// links and registers crash-group membership. Children spawned by a
// partially failed call stay alive (and registered) for caller cleanup;
// the core never rolls back.
func (p *Pipeline) Apply(ctx context.Context, spec Spec) (ApplyRef, error) {
	var (
		ref  ApplyRef
		aerr error
	)
	err := p.do(ctx, func() {
		if p.closing {
			aerr = ErrPipelineClosed
			return
		}
		children, err := p.applier.apply(spec)
		// adopt whatever was spawned, error or not: the caller cleans
		// up through the pipeline
		for _, c := range children {
			p.children[c.name] = c
			p.watch(c)
		}
		if err != nil {
			aerr = err
			return
		}

		// late joiners are walked up to the pipeline's state before
		// they take part in any barrier
		names := make([]string, 0, len(children))
		for _, c := range children {
			names = append(names, c.name)
			aerr = multierr.Append(aerr, p.playback.syncChild(ctx, c))
		}
		if aerr != nil {
			return
		}

		ref = ApplyRef{ID: uuid.NewString(), Children: names}
		p.logger.Info("spec applied",
			zap.String("pipeline", p.name),
			zap.String("ref", ref.ID),
			zap.Strings("children", names),
		)
		p.observer.HandleSpecStarted(ref)
	})
	if err != nil {
		return ApplyRef{}, err
	}
	if aerr != nil {
		return ApplyRef{}, aerr
	}
	return ref, nil
}

// RequestState drives every live child to the target playback state,
// one barrier-synchronized step at a time. On a failed step the
// pipeline stays at the last fully-acknowledged state.
func (p *Pipeline) RequestState(ctx context.Context, target element.State) error {
	var rerr error
	err := p.do(ctx, func() {
		if p.closing {
			rerr = ErrPipelineClosed
			return
		}
		rerr = p.playback.requestState(ctx, target, p.liveChildren(), p.observer.HandleStateChange)
	})
	if err != nil {
		return err
	}
	return rerr
}

// RemoveChild shuts one child down and removes its name, edges and
// group membership. Removal never triggers the child's crash group.
func (p *Pipeline) RemoveChild(ctx context.Context, name string) error {
	var rerr error
	err := p.do(ctx, func() {
		c, ok := p.children[name]
		if !ok {
			rerr = &unknownChildError{name: name}
			return
		}
		p.groups.RemoveMember(name)
		delete(p.children, name)
		p.registry.Unregister(name)
		p.links.RemoveChild(name)
		p.metrics.ObserveChildGone()
		c.handle.Shutdown(p.name)
	})
	if err != nil {
		return err
	}
	return rerr
}

// SendTo delivers a user message to a named child's mailbox.
func (p *Pipeline) SendTo(ctx context.Context, name string, message interface{}) error {
	var serr error
	err := p.do(ctx, func() {
		c, ok := p.children[name]
		if !ok {
			serr = &unknownChildError{name: name}
			return
		}
		c.handle.Send(message)
	})
	if err != nil {
		return err
	}
	return serr
}

// Children returns the names of all live children, sorted.
func (p *Pipeline) Children() []string {
	var names []string
	_ = p.do(context.Background(), func() {
		names = p.registry.Names()
	})
	return names
}

// CurrentState returns the pipeline's playback state.
func (p *Pipeline) CurrentState() element.State {
	var s element.State
	_ = p.do(context.Background(), func() {
		s = p.playback.state()
	})
	return s
}

// LastSticky returns the latest retained sticky payload for
// (sender, channel), if any.
func (p *Pipeline) LastSticky(sender, channel string) (interface{}, bool) {
	return p.router.lastSticky(sender, channel)
}

// Shutdown cascades termination to every child, waits for their exits
// and stops the controller and router. Idempotent.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	var handles []*element.Handle
	err := p.do(ctx, func() {
		if p.closing {
			return
		}
		p.closing = true
		for _, c := range p.children {
			c.handle.Shutdown(p.name)
			handles = append(handles, c.handle)
		}
	})
	if err != nil {
		if errors.Is(err, ErrPipelineClosed) {
			return nil
		}
		return err
	}
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.quitOnce.Do(func() { close(p.quit) })
	p.router.shutdown()
	p.logger.Info("pipeline shut down", zap.String("pipeline", p.name))
	return nil
}

// watch forwards the child's exit signal into the controller loop.
func (p *Pipeline) watch(c *Child) {
	ch := c.handle.Monitor()
	name := c.name
	go func() {
		exit, ok := <-ch
		if !ok {
			return
		}
		select {
		case p.exits <- exitEvent{name: name, exit: exit}:
		case <-p.quit:
		}
	}()
}

func (p *Pipeline) handleExit(ev exitEvent) {
	c, ok := p.children[ev.name]
	if !ok {
		// already removed explicitly
		return
	}
	delete(p.children, ev.name)
	p.registry.Unregister(ev.name)
	p.links.RemoveChild(ev.name)
	p.metrics.ObserveChildGone()

	if sysmsg.Abnormal(ev.exit.Reason) {
		p.logger.Error("child exited abnormally",
			zap.String("pipeline", p.name),
			zap.String("child", ev.name),
			zap.String("group", c.groupID),
			zap.String("reason", ev.exit.Reason.Type),
		)
	} else {
		p.logger.Debug("child exited",
			zap.String("child", ev.name),
			zap.String("reason", ev.exit.Reason.Type),
		)
	}
	p.groups.OnMemberExit(ev.name, ev.exit.Reason)
}

// terminateMember is the crash-group cascade callback; it runs on the
// controller goroutine.
func (p *Pipeline) terminateMember(member string) {
	if c, ok := p.children[member]; ok {
		c.handle.Shutdown(p.name)
	}
}

func (p *Pipeline) emitGroupDown(ev GroupDownEvent) {
	p.observer.HandleGroupDown(ev)
}

func (p *Pipeline) liveChildren() []*Child {
	children := make([]*Child, 0, len(p.children))
	for _, c := range p.children {
		children = append(children, c)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].name < children[j].name })
	return children
}

// elementSpawner is the default spawn primitive, backed by the element
// runtime.
type elementSpawner struct {
	router element.Router
	logger *zap.Logger
	cfg    *config.Config
}

func (s *elementSpawner) Spawn(name string, cfg element.Config) (*element.Handle, error) {
	return element.Spawn(name, cfg,
		element.WithRouter(s.router),
		element.WithLogger(s.logger),
		element.WithMailboxCapacity(s.cfg.Mailbox.Capacity),
		element.WithScopeGrace(s.cfg.Utility.GracePeriod),
	)
}

type unknownChildError struct {
	name string
}

func (e *unknownChildError) Error() string {
	return "pipeline: " + ErrUnknownChild.Error() + ": " + e.name
}

func (e *unknownChildError) Unwrap() error { return ErrUnknownChild }

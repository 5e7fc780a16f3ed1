package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hedisam/flowgraph/internal/mailbox"
	"github.com/hedisam/flowgraph/monitoring"
)

// router delivers notifications to the observer from a single consumer
// goroutine fed by an MPSC mailbox. One consumer means per-sender order
// is preserved and the sticky store needs no locking.
type router struct {
	mb       mailbox.Mailbox
	observer Observer
	sticky   map[stickyKey]interface{}
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	stopped  chan struct{}
	stop     sync.Once
}

type stickyKey struct {
	sender  string
	channel string
}

type routeResult struct {
	value interface{}
	err   error
}

type routeMsg struct {
	n     Notification
	reply chan routeResult
}

type stickyQuery struct {
	key   stickyKey
	reply chan routeResult
}

type routerStop struct{}

func newRouter(observer Observer, logger *zap.Logger, metrics *monitoring.Metrics) *router {
	r := &router{
		mb:       mailbox.NewMPSCMailbox(),
		observer: observer,
		sticky:   make(map[stickyKey]interface{}),
		logger:   logger,
		metrics:  metrics,
		stopped:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *router) run() {
	defer close(r.stopped)
	r.mb.Receive(func(msg interface{}) (loop bool) {
		switch m := msg.(type) {
		case routeMsg:
			r.handleRoute(m)
			return true
		case stickyQuery:
			value, ok := r.sticky[m.key]
			if !ok {
				m.reply <- routeResult{err: errStickyMiss}
				return true
			}
			m.reply <- routeResult{value: value}
			return true
		case routerStop:
			return false
		default:
			r.logger.Warn("router received unknown message")
			return true
		}
	})
}

func (r *router) handleRoute(m routeMsg) {
	if m.n.Sticky {
		r.sticky[stickyKey{sender: m.n.Sender, channel: m.n.Channel}] = m.n.Payload
	}
	r.metrics.ObserveNotification(kindOf(m.n))

	value, err := r.observer.HandleNotification(m.n)
	if err != nil {
		r.logger.Warn("observer rejected notification",
			zap.String("sender", m.n.Sender),
			zap.Error(err),
		)
	}
	if m.reply != nil {
		m.reply <- routeResult{value: value, err: err}
	}
}

// Route implements element.Router. Async notifications return
// immediately; sync ones block until the observer's result arrives or
// the router stops.
func (r *router) Route(sender, channel string, payload interface{}, sticky, sync bool) (interface{}, error) {
	n := Notification{Sender: sender, Channel: channel, Payload: payload, Sticky: sticky, Sync: sync}
	if !sync {
		r.mb.Send(routeMsg{n: n})
		return nil, nil
	}
	reply := make(chan routeResult, 1)
	r.mb.Send(routeMsg{n: n, reply: reply})
	select {
	case res := <-reply:
		return res.value, res.err
	case <-r.stopped:
		return nil, ErrPipelineClosed
	}
}

// lastSticky returns the latest retained payload for (sender, channel).
func (r *router) lastSticky(sender, channel string) (interface{}, bool) {
	reply := make(chan routeResult, 1)
	r.mb.Send(stickyQuery{key: stickyKey{sender: sender, channel: channel}, reply: reply})
	select {
	case res := <-reply:
		return res.value, res.err == nil
	case <-r.stopped:
		return nil, false
	}
}

func (r *router) shutdown() {
	r.stop.Do(func() {
		r.mb.Send(routerStop{})
		<-r.stopped
		r.mb.Dispose()
	})
}

func kindOf(n Notification) string {
	switch {
	case n.Sticky:
		return "sticky"
	case n.Sync:
		return "sync"
	default:
		return "async"
	}
}

package element

import (
	"context"
	"fmt"
	"sync"

	"github.com/hedisam/flowgraph/internal/mailbox"
	"github.com/hedisam/flowgraph/sysmsg"
)

// Handle is the opaque worker handle held by the owning pipeline. It
// supports sending, single-step playback transitions, commanded
// shutdown and exit monitoring. All methods are safe after the element
// has terminated.
type Handle struct {
	id   string
	name string
	mb   mailbox.Mailbox
	done chan struct{}

	mu       sync.Mutex
	watchers []chan sysmsg.Exit
	exit     *sysmsg.Exit
}

func newHandle(id, name string, mb mailbox.Mailbox) *Handle {
	return &Handle{
		id:   id,
		name: name,
		mb:   mb,
		done: make(chan struct{}),
	}
}

// ID returns the handle's unique id.
func (h *Handle) ID() string { return h.id }

// Name returns the element's name within its parent scope.
func (h *Handle) Name() string { return h.name }

// Send delivers a user message to the element's mailbox. Messages sent
// after termination are dropped.
func (h *Handle) Send(message interface{}) {
	h.mb.Send(message)
}

// Shutdown commands the element to terminate. Idempotent; a shutdown
// sent to a dead element is a no-op.
func (h *Handle) Shutdown(parent string) {
	h.mb.Send(sysmsg.Shutdown{Parent: parent})
}

// Done is closed once the element has terminated.
func (h *Handle) Done() <-chan struct{} { return h.done }

// ExitReason returns the termination reason once the element has
// exited.
func (h *Handle) ExitReason() (sysmsg.Reason, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exit == nil {
		return sysmsg.Reason{}, false
	}
	return h.exit.Reason, true
}

// Monitor subscribes to the element's termination. The returned channel
// receives exactly one Exit and is then closed; subscribing after the
// element already exited delivers immediately.
func (h *Handle) Monitor() <-chan sysmsg.Exit {
	ch := make(chan sysmsg.Exit, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exit != nil {
		ch <- *h.exit
		close(ch)
		return ch
	}
	h.watchers = append(h.watchers, ch)
	return ch
}

type transitionRequest struct {
	from, to State
	reply    chan error
}

// Transition asks the element to perform one playback step and waits
// for its acknowledgment. An element exit or context cancellation while
// waiting fails the step.
func (h *Handle) Transition(ctx context.Context, from, to State) error {
	reply := make(chan error, 1)
	h.mb.Send(transitionRequest{from: from, to: to, reply: reply})
	select {
	case err := <-reply:
		return err
	case <-h.done:
		// the ack may have raced the exit
		select {
		case err := <-reply:
			return err
		default:
		}
		reason, _ := h.ExitReason()
		return &ExitError{Name: h.name, Reason: reason}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// terminated records the exit, closes done and fans the signal out to
// every watcher.
func (h *Handle) terminated(exit sysmsg.Exit) {
	h.mu.Lock()
	if h.exit != nil {
		h.mu.Unlock()
		return
	}
	h.exit = &exit
	watchers := h.watchers
	h.watchers = nil
	h.mu.Unlock()

	close(h.done)
	for _, ch := range watchers {
		ch <- exit
		close(ch)
	}
}

// ExitError reports an element that terminated while an acknowledgment
// was pending.
type ExitError struct {
	Name   string
	Reason sysmsg.Reason
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("element %q exited: %s", e.Name, e.Reason.Type)
}

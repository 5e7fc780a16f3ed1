package element

// Config defines an element's behavior. The runtime owns the receive
// loop and dispatches to these callbacks from the element's goroutine,
// so implementations never need their own synchronization. Embed Base
// to pick up no-op defaults.
type Config interface {
	// HandleInit runs once before any message is processed. A non-nil
	// error terminates the element abnormally.
	HandleInit(e *Element) error

	// HandlePlaybackChange is invoked for each single-step playback
	// transition. Returning an error refuses the step; the element
	// stays alive at its previous state.
	HandlePlaybackChange(e *Element, from, to State) error

	// HandleMessage processes one user message from the mailbox. A
	// non-nil error terminates the element abnormally.
	HandleMessage(e *Element, message interface{}) error
}

// Base provides no-op implementations of every Config callback.
type Base struct{}

func (Base) HandleInit(*Element) error                         { return nil }
func (Base) HandlePlaybackChange(*Element, State, State) error { return nil }
func (Base) HandleMessage(*Element, interface{}) error         { return nil }

// Router receives notifications emitted by elements. Implemented by the
// pipeline's notification router; elements only ever see this
// capability, never the router itself.
type Router interface {
	// Route delivers one notification. For sync notifications the call
	// blocks until the observer's result comes back; otherwise the
	// returned value is nil.
	Route(sender, channel string, payload interface{}, sticky, sync bool) (interface{}, error)
}

type nopRouter struct{}

func (nopRouter) Route(string, string, interface{}, bool, bool) (interface{}, error) {
	return nil, nil
}

package pipeline

import "github.com/hedisam/flowgraph/element"

// Notification is one payload emitted by a child. Sticky payloads are
// retained per (sender, channel) for late listeners; sync notifications
// block the sender until the observer's result comes back.
type Notification struct {
	Sender  string
	Channel string
	Payload interface{}
	Sticky  bool
	Sync    bool
}

// ApplyRef identifies one successful spec application.
type ApplyRef struct {
	ID       string
	Children []string
}

// GroupDownEvent reports one crash-group termination wave. Members
// lists every member of the group at trigger time, the crashed one
// included.
type GroupDownEvent struct {
	ID      string
	GroupID string
	Policy  GroupPolicy
	Members []string
}

// Observer is the capability interface a pipeline owner implements to
// receive events from the core. Notification callbacks run on the
// router goroutine, the rest on the pipeline goroutine; none of them
// may call back into the blocking pipeline API.
type Observer interface {
	// HandleNotification processes one notification. For sync
	// notifications the returned value is handed back to the blocked
	// sender as its result.
	HandleNotification(n Notification) (interface{}, error)

	// HandleStateChange fires after every completed playback step.
	HandleStateChange(from, to element.State)

	// HandleSpecStarted fires once per successful Apply.
	HandleSpecStarted(ref ApplyRef)

	// HandleGroupDown fires exactly once per crash-group termination
	// wave.
	HandleGroupDown(ev GroupDownEvent)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) HandleNotification(Notification) (interface{}, error) { return nil, nil }
func (NopObserver) HandleStateChange(element.State, element.State)       {}
func (NopObserver) HandleSpecStarted(ApplyRef)                           {}
func (NopObserver) HandleGroupDown(GroupDownEvent)                       {}

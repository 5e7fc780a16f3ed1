package pipeline

import (
	"fmt"
	"sync"

	"github.com/hedisam/flowgraph/element"
)

// testObserver records every event it receives; safe for use from the
// router and controller goroutines.
type testObserver struct {
	mu            sync.Mutex
	notifications []Notification
	stateChanges  [][2]element.State
	specsStarted  []ApplyRef
	groupDowns    []GroupDownEvent
	syncResult    interface{}
}

func (o *testObserver) HandleNotification(n Notification) (interface{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifications = append(o.notifications, n)
	return o.syncResult, nil
}

func (o *testObserver) HandleStateChange(from, to element.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stateChanges = append(o.stateChanges, [2]element.State{from, to})
}

func (o *testObserver) HandleSpecStarted(ref ApplyRef) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.specsStarted = append(o.specsStarted, ref)
}

func (o *testObserver) HandleGroupDown(ev GroupDownEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.groupDowns = append(o.groupDowns, ev)
}

func (o *testObserver) groupDownCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.groupDowns)
}

func (o *testObserver) lastGroupDown() (GroupDownEvent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.groupDowns) == 0 {
		return GroupDownEvent{}, false
	}
	return o.groupDowns[len(o.groupDowns)-1], true
}

func (o *testObserver) notificationCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.notifications)
}

// stepLog records playback steps across elements in arrival order.
type stepLog struct {
	mu      sync.Mutex
	entries []stepEntry
}

type stepEntry struct {
	child string
	to    element.State
}

func (l *stepLog) record(child string, to element.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, stepEntry{child: child, to: to})
}

func (l *stepLog) snapshot() []stepEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]stepEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// steppingConfig records each transition; it can be told to refuse one
// particular step.
type steppingConfig struct {
	element.Base
	log      *stepLog
	refuseTo element.State
	refuse   bool
}

func (c *steppingConfig) HandlePlaybackChange(e *element.Element, from, to element.State) error {
	if c.refuse && to == c.refuseTo {
		return fmt.Errorf("refusing %s", to)
	}
	if c.log != nil {
		c.log.record(e.Name(), to)
	}
	return nil
}

// crashOnConfig terminates abnormally when it receives the trigger
// message.
type crashOnConfig struct {
	element.Base
	trigger interface{}
}

func (c *crashOnConfig) HandleMessage(_ *element.Element, message interface{}) error {
	if message == c.trigger {
		return fmt.Errorf("crashed on %v", message)
	}
	return nil
}

// flakySpawner fails to spawn one particular name and delegates the
// rest to the element runtime.
type flakySpawner struct {
	failOn string
}

func (s *flakySpawner) Spawn(name string, cfg element.Config) (*element.Handle, error) {
	if name == s.failOn {
		return nil, fmt.Errorf("no resources for %q", name)
	}
	return element.Spawn(name, cfg)
}

func childSpecs(names ...string) []ChildSpec {
	specs := make([]ChildSpec, 0, len(names))
	for _, n := range names {
		specs = append(specs, ChildSpec{Name: n, Config: element.Base{}})
	}
	return specs
}

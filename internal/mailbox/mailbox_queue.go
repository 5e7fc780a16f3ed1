package mailbox

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
)

// queueMailbox is the default element mailbox, backed by a ring buffer.
type queueMailbox struct {
	queue   *queue.RingBuffer
	done    chan struct{}
	status  int32
	signal  chan struct{}
	dispose sync.Once
}

// NewRingBufferMailbox returns a mailbox with the given capacity,
// falling back to DefaultCap when cap is zero.
func NewRingBufferMailbox(capacity uint64) Mailbox {
	if capacity == 0 {
		capacity = DefaultCap
	}
	return &queueMailbox{
		queue:  queue.NewRingBuffer(capacity),
		done:   make(chan struct{}),
		status: mailboxIdle,
		signal: make(chan struct{}),
	}
}

func (m *queueMailbox) Send(message interface{}) {
	select {
	case <-m.done:
		return
	default:
		err := m.queue.Put(message)
		if err != nil {
			// disposed concurrently; the message is dropped like any
			// other send after termination
			return
		}
		if atomic.CompareAndSwapInt32(&m.status, mailboxIdle, mailboxProcessing) {
			select {
			case m.signal <- struct{}{}:
			case <-m.done:
				return
			}
		}
	}
}

func (m *queueMailbox) Receive(handler MessageHandler) {
listen:
	select {
	case <-m.done:
		return
	case <-m.signal:
	drain:
		for m.queue.Len() != 0 {
			msg, err := m.queue.Get()
			if err != nil {
				return
			}
			if !handler(msg) {
				atomic.StoreInt32(&m.status, mailboxIdle)
				return
			}
		}
		atomic.StoreInt32(&m.status, mailboxIdle)
		// a message put between the drain and the status store would
		// otherwise wait for the next send's wakeup
		if m.queue.Len() != 0 && atomic.CompareAndSwapInt32(&m.status, mailboxIdle, mailboxProcessing) {
			goto drain
		}
		goto listen
	}
}

func (m *queueMailbox) ReceiveWithTimeout(d time.Duration, handler MessageHandler) {
	timer := time.NewTimer(d)
	defer timer.Stop()
listen:
	select {
	case <-m.done:
		return
	case <-m.signal:
	drain:
		for m.queue.Len() != 0 {
			msg, err := m.queue.Get()
			if err != nil {
				return
			}
			if !handler(msg) {
				atomic.StoreInt32(&m.status, mailboxIdle)
				return
			}
		}
		atomic.StoreInt32(&m.status, mailboxIdle)
		if m.queue.Len() != 0 && atomic.CompareAndSwapInt32(&m.status, mailboxIdle, mailboxProcessing) {
			goto drain
		}
		goto listen
	case <-timer.C:
		handler(Timeout{})
	}
}

func (m *queueMailbox) Dispose() {
	m.dispose.Do(func() {
		close(m.done)
		m.queue.Dispose()
	})
}

// Timeout is delivered by ReceiveWithTimeout when the deadline passes
// with no message.
type Timeout struct{}

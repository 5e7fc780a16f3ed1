package mailbox

import (
	"sync"
	"sync/atomic"
	"time"

	mpsc "github.com/t3rm1n4l/go-mpscqueue"
)

// mpscMailbox serves the many-producers/single-consumer shape: every
// element pushes into the notification router, one goroutine drains.
type mpscMailbox struct {
	queue   *mpsc.MPSCQueue
	done    chan struct{}
	status  int32
	signal  chan struct{}
	dispose sync.Once
}

// NewMPSCMailbox returns an unbounded multi-producer mailbox.
func NewMPSCMailbox() Mailbox {
	return &mpscMailbox{
		queue:  mpsc.New(),
		done:   make(chan struct{}),
		status: mailboxIdle,
		signal: make(chan struct{}),
	}
}

func (m *mpscMailbox) Send(message interface{}) {
	select {
	case <-m.done:
		return
	default:
		m.queue.Push(message)
		if atomic.CompareAndSwapInt32(&m.status, mailboxIdle, mailboxProcessing) {
			select {
			case m.signal <- struct{}{}:
			case <-m.done:
				return
			}
		}
	}
}

func (m *mpscMailbox) Receive(handler MessageHandler) {
listen:
	select {
	case <-m.done:
		return
	case <-m.signal:
	drain:
		for m.queue.Size() != 0 {
			if !handler(m.queue.Pop()) {
				atomic.StoreInt32(&m.status, mailboxIdle)
				return
			}
		}
		atomic.StoreInt32(&m.status, mailboxIdle)
		// a message pushed between the drain and the status store would
		// otherwise wait for the next send's wakeup
		if m.queue.Size() != 0 && atomic.CompareAndSwapInt32(&m.status, mailboxIdle, mailboxProcessing) {
			goto drain
		}
		goto listen
	}
}

func (m *mpscMailbox) ReceiveWithTimeout(d time.Duration, handler MessageHandler) {
	timer := time.NewTimer(d)
	defer timer.Stop()
listen:
	select {
	case <-m.done:
		return
	case <-m.signal:
	drain:
		for m.queue.Size() != 0 {
			if !handler(m.queue.Pop()) {
				atomic.StoreInt32(&m.status, mailboxIdle)
				return
			}
		}
		atomic.StoreInt32(&m.status, mailboxIdle)
		if m.queue.Size() != 0 && atomic.CompareAndSwapInt32(&m.status, mailboxIdle, mailboxProcessing) {
			goto drain
		}
		goto listen
	case <-timer.C:
		handler(Timeout{})
	}
}

func (m *mpscMailbox) Dispose() {
	m.dispose.Do(func() {
		close(m.done)
	})
}

package mailbox

import "time"

const (
	DefaultCap uint64 = 100
)

const (
	mailboxProcessing int32 = iota
	mailboxIdle
)

// MessageHandler processes one message; returning false stops the
// receive loop.
type MessageHandler func(message interface{}) (loop bool)

// Mailbox decouples message producers from the single goroutine that
// consumes them. Send never blocks on a disposed mailbox.
type Mailbox interface {
	Send(message interface{})
	Receive(handler MessageHandler)
	ReceiveWithTimeout(d time.Duration, handler MessageHandler)
	Dispose()
}

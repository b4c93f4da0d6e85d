package outbox

import (
	"sync"

	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

// Sender is the transport side of the queue.
type Sender interface {
	Send(v any) error
	IsOpen() bool
}

// Logger defines the logging interface used by Queue.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Item is one pending image update.
type Item struct {
	Context string
	Image   string
}

// Frame returns the setImage frame for the item.
func (i Item) Frame() protocol.Frame {
	return protocol.Frame{
		Event:   protocol.EventSetImage,
		Context: i.Context,
		Payload: protocol.ImagePayload{Image: i.Image, Target: protocol.TargetBoth},
	}
}

// Queue is a FIFO of pending image updates.
//
// Thread Safety: Enqueue and Len may be called from any goroutine. Flush
// is guarded against re-entry; a Flush started while another is running
// returns immediately.
type Queue struct {
	sender Sender
	logger Logger

	mu       sync.Mutex
	items    []Item
	flushing bool
}

// New creates an empty queue delivering through sender.
func New(sender Sender) *Queue {
	return &Queue{
		sender: sender,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for flush diagnostics.
func (q *Queue) SetLogger(logger Logger) {
	q.logger = logger
}

// Enqueue appends an update. Duplicates for the same context are kept;
// the last one delivered is the one the host shows.
func (q *Queue) Enqueue(context, image string) {
	q.mu.Lock()
	q.items = append(q.items, Item{Context: context, Image: image})
	n := len(q.items)
	q.mu.Unlock()

	q.logger.Debug("image queued", "context", context, "pending", n)
}

// Len returns the number of pending updates.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the pending updates in delivery order.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

// Flush sends pending updates in order while the sender is open.
//
// Returns:
//   - int: Number of updates delivered by this call
func (q *Queue) Flush() int {
	q.mu.Lock()
	if q.flushing || len(q.items) == 0 {
		q.mu.Unlock()
		return 0
	}
	q.flushing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	sent := 0
	for q.sender.IsOpen() {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			break
		}
		head := q.items[0]
		q.mu.Unlock()

		if err := q.sender.Send(head.Frame()); err != nil {
			q.logger.Warn("pending image send failed", "context", head.Context, "error", err)
			break
		}

		q.mu.Lock()
		q.items = q.items[1:]
		q.mu.Unlock()
		sent++
	}

	if sent > 0 {
		q.logger.Debug("pending images flushed", "sent", sent, "remaining", q.Len())
	}
	return sent
}

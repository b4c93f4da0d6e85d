// Package outbox holds image updates that could not be delivered to the
// host yet.
//
// Items are replayed in FIFO order as setImage frames once the transport is
// open. Delivery is at-most-once from the caller's point of view: an item
// leaves the queue only after a successful send, and a failed send leaves
// it at the head for the next flush. The queue lives in memory only.
package outbox

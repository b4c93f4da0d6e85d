// Package timer provides interval scheduling that keeps firing while the
// host surface is unfocused.
//
// The scheduler (Service) runs on a dedicated goroutine and talks to its
// owner only through channels: set/clear commands in, tick ids out. The
// owner keeps the id → callback table (Timers) and runs the matching
// callback when a tick arrives.
//
// # Semantics
//
//   - Setting an id that is already running keeps the existing sequence;
//     only the owner's callback slot is replaced (last registration wins).
//   - Clearing an unknown id is a no-op.
//   - Ticks not collected in time are coalesced.
//
// # Usage
//
//	svc := timer.NewService()
//	go svc.Run(ctx)
//	timers := timer.NewTimers(svc)
//	timers.SetInterval("sendPendingImages", 5*time.Second, func() { queue.Flush() })
//	for id := range svc.Ticks() {
//	    timers.Fire(id)
//	}
package timer

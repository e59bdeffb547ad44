// Package scheduler runs workspace tasks under one of three interchangeable
// backends.
//
//   - Pooled: a fixed number of workers drain an unbounded FIFO queue
//   - Threaded: one goroutine per task
//   - Inline: the task runs on the caller's goroutine before Schedule returns
//
// Every task runs behind the same boundary: panics are recovered into
// *fault.PanicError, and any error other than a cancellation of the task's
// own context is recorded in the shared fault.Tracker. Once the tracker
// holds an error, asynchronous backends refuse new work with ErrFaulted and
// WaitAll cancels what is still outstanding.
//
// Completion is signalled through a condition variable and the tracker's
// Done channel. Nothing polls.
package scheduler

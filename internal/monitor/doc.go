// Package monitor tracks long-running background file jobs and keeps
// interested listeners up to date with their progress.
//
// A Monitor owns an ordered set of jobs, a fixed-rate poll cycle and a set of
// listeners. Every mutation (registering or removing jobs and listeners, the
// poll tick, delayed removal of terminal jobs) runs on one coordination
// goroutine, so listener callbacks are serialized and observe the job
// lifecycle in order: added, progress*, removed.
//
// Mutating calls never wait for their effect. AddJob and RemoveJob post work
// onto the coordination goroutine and return immediately; use Flush when a
// caller needs the posted work to be visible.
package monitor

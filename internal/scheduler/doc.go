// Package scheduler decides which jobs of a run may be dispatched next.
//
// # How It Works
//
// A job is ready when all of the following hold:
//   - it has not been dispatched in this run,
//   - the run's completion latch is not set,
//   - every JobRef found anywhere in its parameters names a job that already
//     has a stored response.
//
// Edges are never declared; they come from the JobRefs alone. The scheduler
// does not look for cycles. A job that references itself simply never
// becomes ready. Load-time validation in internal/dag rejects such graphs
// before a run starts.
//
// The scheduler keeps no state of its own. Every decision is read from the
// run's State, so the same answer is produced by any process attached to
// the run.
package scheduler

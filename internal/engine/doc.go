// Package engine drives runs of a job chain.
//
// # Lifecycle
//
// Start binds a graph.Definition to inputs and a run id, persists the run
// context and dispatches every root job. From then on the engine is purely
// reactive: the executor reports each job through Complete or Fail, and
// every successful completion rescans the whole graph in declared order,
// dispatching whatever became ready (the cascade). When the terminal job
// completes the run's completion latch is set and ChainDone fires once.
//
// # State
//
// The engine holds no goroutines and no per-run memory. Everything lives in
// a statestore.Store under run-scoped keys and expires with the run's
// lifetime. Any process sharing the store can Attach to a run by id and
// continue it.
//
// Per job:
//
//	NotDispatched -> Dispatched -> Completed(response) | Failed(error)
//
// Per run:
//
//	Running -> Done
//
// The dispatched flag, the response record and the latch are all written
// with CompareAndSet, which is what makes dispatch at-most-once and
// ChainDone single-shot under concurrent reports.
//
// # Failures
//
// A failed job fires ChainError and nothing else. Its dependents stay
// blocked and the run never reaches Done; there is no run-level failure
// state.
package engine

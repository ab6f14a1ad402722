// Package localexecutor runs submitted jobs in-process on a bounded number
// of goroutines and reports each outcome back to the engine.
package localexecutor

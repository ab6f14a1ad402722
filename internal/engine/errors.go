package engine

import (
	"errors"
	"fmt"

	"github.com/vk/jobchain/internal/resolver"
)

var (
	// ErrUnknownRun is returned when a run context cannot be found, either
	// because the id was never started or because it expired.
	ErrUnknownRun = errors.New("unknown or expired run")

	// ErrUnknownJob is returned when a job id is not part of the chain.
	ErrUnknownJob = errors.New("unknown job")

	// ErrRunConflict is returned by Start when the run id is already used
	// by a run of another chain.
	ErrRunConflict = errors.New("run id belongs to another chain")
)

type (
	MissingInputError     = resolver.MissingInputError
	UnresolvedJobRefError = resolver.UnresolvedJobRefError
)

// DispatchError reports a submission that failed after the job's dispatched
// flag was set. The job is not dispatched again in this run.
type DispatchError struct {
	JobID string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch job %q: %v", e.JobID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ExternalExecutionError wraps the failure an executor reported for a job.
type ExternalExecutionError struct {
	JobID string
	Err   error
}

func (e *ExternalExecutionError) Error() string {
	return fmt.Sprintf("job %q failed: %v", e.JobID, e.Err)
}

func (e *ExternalExecutionError) Unwrap() error { return e.Err }

package scheduler

import (
	"context"
	"fmt"

	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/param"
)

// State is the per-run view the scheduler needs.
type State interface {
	Dispatched(ctx context.Context, jobID string) (bool, error)
	HasResponse(ctx context.Context, jobID string) (bool, error)
	Done(ctx context.Context) (bool, error)
}

// IsReady reports whether job can be dispatched now: the run is not done,
// the job was not dispatched and every job it references has a response.
func IsReady(ctx context.Context, job *graph.JobSpec, st State) (bool, error) {
	done, err := st.Done(ctx)
	if err != nil {
		return false, fmt.Errorf("read completion latch: %w", err)
	}
	if done {
		return false, nil
	}

	dispatched, err := st.Dispatched(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("job %q: read dispatched flag: %w", job.ID, err)
	}
	if dispatched {
		return false, nil
	}

	for _, ref := range param.JobRefs(job.Params) {
		ok, err := st.HasResponse(ctx, ref.JobID)
		if err != nil {
			return false, fmt.Errorf("job %q: read response of %q: %w", job.ID, ref.JobID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Ready returns every job of def for which IsReady holds, in declared order.
// The latch is read per job, so a run finishing mid-scan yields no more jobs.
func Ready(ctx context.Context, def *graph.Definition, st State) ([]*graph.JobSpec, error) {
	var ready []*graph.JobSpec
	for _, job := range def.Jobs() {
		ok, err := IsReady(ctx, job, st)
		if err != nil {
			return nil, err
		}
		if ok {
			ready = append(ready, job)
		}
	}
	return ready, nil
}

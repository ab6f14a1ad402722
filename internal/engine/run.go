package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/resolver"
	"github.com/vk/jobchain/internal/runkey"
	"github.com/vk/jobchain/internal/scheduler"
)

const (
	suffixDispatched = "dispatched"
	suffixResponse   = "response"
	suffixError      = "error"
)

var flag = []byte("1")

// Run is one execution of a definition. It is a thin handle over the store;
// several Run values for the same id may coexist across processes.
type Run struct {
	engine *Engine
	def    *graph.Definition
	rc     RunContext
	keys   runkey.Keyer
}

// JobState is a snapshot of one job's records.
type JobState struct {
	Dispatched  bool
	HasResponse bool
	Response    any
	Error       string
}

type errorRecord struct {
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failed_at"`
}

func (r *Run) ID() string                    { return r.rc.RunID }
func (r *Run) Definition() *graph.Definition { return r.def }
func (r *Run) Context() RunContext           { return r.rc }

// Key returns the run-scoped store key for component and suffix.
func (r *Run) Key(component, suffix string) string { return r.keys.Key(component, suffix) }

// Dispatched implements scheduler.State.
func (r *Run) Dispatched(ctx context.Context, jobID string) (bool, error) {
	return r.engine.store.Has(ctx, r.keys.Key(jobID, suffixDispatched))
}

// HasResponse implements scheduler.State.
func (r *Run) HasResponse(ctx context.Context, jobID string) (bool, error) {
	return r.engine.store.Has(ctx, r.keys.Key(jobID, suffixResponse))
}

// Done implements scheduler.State.
func (r *Run) Done(ctx context.Context) (bool, error) {
	return r.engine.store.Has(ctx, r.keys.Key("done", ""))
}

// IsDone reports whether the terminal job has completed.
func (r *Run) IsDone(ctx context.Context) (bool, error) { return r.Done(ctx) }

// Response implements resolver.Responses.
func (r *Run) Response(ctx context.Context, jobID string) (any, bool, error) {
	data, ok, err := r.engine.store.Get(ctx, r.keys.Key(jobID, suffixResponse))
	if err != nil || !ok {
		return nil, ok, err
	}
	var v any
	if err := decodeJSON(data, &v); err != nil {
		return nil, false, fmt.Errorf("decode response of %q: %w", jobID, err)
	}
	return normalizeNumbers(v), true, nil
}

// State reads every record of jobID.
func (r *Run) State(ctx context.Context, jobID string) (JobState, error) {
	if !r.def.HasJob(jobID) {
		return JobState{}, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	var st JobState
	var err error
	if st.Dispatched, err = r.Dispatched(ctx, jobID); err != nil {
		return JobState{}, err
	}
	if st.Response, st.HasResponse, err = r.Response(ctx, jobID); err != nil {
		return JobState{}, err
	}
	data, ok, err := r.engine.store.Get(ctx, r.keys.Key(jobID, suffixError))
	if err != nil {
		return JobState{}, err
	}
	if ok {
		var rec errorRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return JobState{}, fmt.Errorf("decode error record of %q: %w", jobID, err)
		}
		st.Error = rec.Message
	}
	return st, nil
}

// dispatch resolves, flags and submits one ready job.
func (r *Run) dispatch(ctx context.Context, job *graph.JobSpec) error {
	logger := ctxlog.FromContext(ctx).With("job_id", job.ID)

	params, err := resolver.Resolve(ctx, job, r.rc.Inputs, r)
	if err != nil {
		logger.Warn("Job parameters could not be resolved.", "error", err)
		return err
	}

	won, err := r.engine.store.CompareAndSet(ctx, r.keys.Key(job.ID, suffixDispatched), nil, flag, r.rc.Lifetime)
	if err != nil {
		return fmt.Errorf("job %q: set dispatched flag: %w", job.ID, err)
	}
	if !won {
		logger.Debug("Job already dispatched by another caller.")
		return nil
	}

	sub := Submission{
		RunID:  r.rc.RunID,
		Chain:  r.rc.Chain,
		JobID:  job.ID,
		Type:   r.def.Target(job.ID),
		Params: params,
	}
	logger.Debug("Dispatching job.", "type", sub.Type)
	if err := r.engine.dispatcher.Submit(ctx, sub); err != nil {
		logger.Error("Job submission failed; it will not be dispatched again.", "error", err)
		return &DispatchError{JobID: job.ID, Err: err}
	}
	return nil
}

// cascade dispatches every job that became ready, in declared order.
func (r *Run) cascade(ctx context.Context) error {
	ready, err := scheduler.Ready(ctx, r.def, r)
	if err != nil {
		return err
	}
	var errs []error
	for _, job := range ready {
		if err := r.dispatch(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Complete records the response of jobID and advances the run.
//
// Completing the terminal job sets the completion latch and fires ChainDone
// exactly once. Any other job fires ChainResponse and triggers the cascade.
// A second completion of the same job, or any completion after the run is
// done, is ignored.
func (r *Run) Complete(ctx context.Context, jobID string, response any) error {
	if !r.def.HasJob(jobID) {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	ctx, logger := ctxlog.With(ctx, "run_id", r.rc.RunID)
	logger = logger.With("job_id", jobID)

	done, err := r.Done(ctx)
	if err != nil {
		return fmt.Errorf("read completion latch: %w", err)
	}
	if done {
		logger.Debug("Run already done, completion ignored.")
		return nil
	}

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("job %q: encode response: %w", jobID, err)
	}

	if jobID == r.def.Done() {
		won, err := r.engine.store.CompareAndSet(ctx, r.keys.Key("done", ""), nil, flag, r.rc.Lifetime)
		if err != nil {
			return fmt.Errorf("set completion latch: %w", err)
		}
		if !won {
			logger.Debug("Completion latch already set.")
			return nil
		}
		var errs []error
		if _, err := r.engine.store.CompareAndSet(ctx, r.keys.Key(jobID, suffixResponse), nil, data, r.rc.Lifetime); err != nil {
			errs = append(errs, fmt.Errorf("job %q: store response: %w", jobID, err))
		}
		logger.Info("Chain done.")
		errs = append(errs, r.notify(ctx, ChainDone, jobID, response, nil))
		return errors.Join(errs...)
	}

	stored, err := r.engine.store.CompareAndSet(ctx, r.keys.Key(jobID, suffixResponse), nil, data, r.rc.Lifetime)
	if err != nil {
		return fmt.Errorf("job %q: store response: %w", jobID, err)
	}
	if !stored {
		logger.Debug("Duplicate completion ignored.")
		return nil
	}
	logger.Debug("Job completed.")

	notifyErr := r.notify(ctx, ChainResponse, jobID, response, nil)
	return errors.Join(notifyErr, r.cascade(ctx))
}

// Fail records a job failure and fires ChainError. Dependents of jobID stay
// blocked for the rest of the run.
func (r *Run) Fail(ctx context.Context, jobID string, cause error) error {
	if !r.def.HasJob(jobID) {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	ctx, logger := ctxlog.With(ctx, "run_id", r.rc.RunID)
	if cause == nil {
		cause = errors.New("unspecified failure")
	}
	logger.Warn("Job failed.", "job_id", jobID, "error", cause)

	var errs []error
	rec, err := json.Marshal(errorRecord{Message: cause.Error(), FailedAt: r.engine.now().UTC()})
	if err == nil {
		err = r.engine.store.Put(ctx, r.keys.Key(jobID, suffixError), rec, r.rc.Lifetime)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("job %q: store error record: %w", jobID, err))
	}

	execErr := &ExternalExecutionError{JobID: jobID, Err: cause}
	errs = append(errs, r.notify(ctx, ChainError, jobID, nil, execErr))
	return errors.Join(errs...)
}

func (r *Run) notify(ctx context.Context, kind EventKind, jobID string, response any, cause error) error {
	ev := Event{
		Kind:     kind,
		RunID:    r.rc.RunID,
		Chain:    r.rc.Chain,
		JobID:    jobID,
		User:     r.rc.User,
		Response: response,
		Err:      cause,
		Channels: r.def.Channels(),
	}
	if err := r.engine.notifier.Notify(ctx, ev); err != nil {
		ctxlog.FromContext(ctx).Warn("Notification failed.", "event", kind.String(), "job_id", jobID, "error", err)
		return fmt.Errorf("notify %s for job %q: %w", kind, jobID, err)
	}
	return nil
}

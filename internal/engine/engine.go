package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/resolver"
	"github.com/vk/jobchain/internal/runkey"
	"github.com/vk/jobchain/internal/scheduler"
	"github.com/vk/jobchain/internal/statestore"
)

// DefaultLifetime bounds a run's state when neither the chain nor the
// engine configures one.
const DefaultLifetime = 24 * time.Hour

// runNamespace seeds name-based run ids derived from correlation keys.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/vk/jobchain/runs"))

// RunContext is persisted once per run so that any process can attach.
type RunContext struct {
	RunID     string         `json:"run_id"`
	Chain     string         `json:"chain"`
	Inputs    map[string]any `json:"inputs"`
	Lifetime  time.Duration  `json:"lifetime"`
	Namespace string         `json:"namespace,omitempty"`
	User      string         `json:"user,omitempty"`
	StartedAt time.Time      `json:"started_at"`
}

// StartOptions parameterize a new run.
type StartOptions struct {
	Inputs map[string]any
	// CorrelationKey makes the run id deterministic: starting the same chain
	// twice with the same key yields the same run. Other chains using the
	// same key get their own runs.
	CorrelationKey string
	// RunID, when set, is used verbatim and wins over CorrelationKey. A run
	// id already owned by another chain fails with ErrRunConflict.
	RunID string
	// User is the routing subject substituted into {user} channel routes.
	User string
}

// Engine owns the collaborators shared by all runs.
type Engine struct {
	store       statestore.Store
	dispatcher  Dispatcher
	notifier    Notifier
	definitions DefinitionSource
	lifetime    time.Duration
	newRunID    func() string
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLifetime sets the TTL used when a chain does not declare one.
func WithLifetime(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lifetime = d
		}
	}
}

// WithDefinitions enables Attach by run id.
func WithDefinitions(src DefinitionSource) Option {
	return func(e *Engine) { e.definitions = src }
}

// WithRunIDGenerator replaces the random run id source.
func WithRunIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newRunID = gen }
}

// WithClock replaces time.Now for StartedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine. A nil notifier drops events.
func New(store statestore.Store, dispatcher Dispatcher, notifier Notifier, opts ...Option) *Engine {
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Event) error { return nil })
	}
	e := &Engine{
		store:      store,
		dispatcher: dispatcher,
		notifier:   notifier,
		lifetime:   DefaultLifetime,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) runID(def *graph.Definition, opts StartOptions) string {
	switch {
	case opts.RunID != "":
		return opts.RunID
	case opts.CorrelationKey != "":
		seed := strings.Join([]string{def.Name(), def.Key(), opts.CorrelationKey}, "\x00")
		return uuid.NewSHA1(runNamespace, []byte(seed)).String()
	default:
		return e.newRunID()
	}
}

// Start begins a run of def and dispatches its initially ready jobs.
//
// A root job whose required input is missing is not dispatched; the first
// such input is reported as *MissingInputError while every other ready job
// is still dispatched. The returned run is usable even when err is non-nil.
//
// Starting with a run id that already exists reuses the stored context, so
// repeated starts with one correlation key never dispatch a job twice.
func (e *Engine) Start(ctx context.Context, def *graph.Definition, opts StartOptions) (*Run, error) {
	if def == nil {
		return nil, errors.New("start: nil definition")
	}

	lifetime := def.Lifetime()
	if lifetime <= 0 {
		lifetime = e.lifetime
	}
	inputs := opts.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}

	rc := RunContext{
		RunID:     e.runID(def, opts),
		Chain:     def.Name(),
		Inputs:    inputs,
		Lifetime:  lifetime,
		Namespace: def.Namespace(),
		User:      opts.User,
		StartedAt: e.now().UTC(),
	}
	ctx, logger := ctxlog.With(ctx, "run_id", rc.RunID, "chain", rc.Chain)

	data, err := json.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("encode run context: %w", err)
	}
	keys := runkey.For(rc.RunID)
	created, err := e.store.CompareAndSet(ctx, keys.Key("context", ""), nil, data, lifetime)
	if err != nil {
		return nil, fmt.Errorf("persist run context: %w", err)
	}
	if !created {
		existing, err := e.loadContext(ctx, rc.RunID)
		if err != nil {
			return nil, err
		}
		if existing.Chain != rc.Chain {
			logger.Error("Run id is taken by another chain.", "owner", existing.Chain)
			return nil, fmt.Errorf("%w: run %s belongs to chain %q", ErrRunConflict, rc.RunID, existing.Chain)
		}
		logger.Info("Run already exists, resuming.", "started_at", existing.StartedAt)
		rc = existing
	} else {
		logger.Info("Run started.", "jobs", len(def.Jobs()), "lifetime", lifetime)
	}

	run := e.newRun(def, rc)
	ready, err := scheduler.Ready(ctx, def, run)
	if err != nil {
		return run, err
	}

	var missing error
	var errs []error
	for _, job := range ready {
		if def.IsRoot(job.ID) {
			if err := resolver.CheckInputs(job, rc.Inputs); err != nil {
				logger.Warn("Root job not dispatched.", "job_id", job.ID, "error", err)
				if missing == nil {
					missing = err
				}
				continue
			}
		}
		if err := run.dispatch(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return run, errors.Join(append([]error{missing}, errs...)...)
}

// Attach rebuilds a run from its persisted context.
func (e *Engine) Attach(ctx context.Context, runID string) (*Run, error) {
	if e.definitions == nil {
		return nil, errors.New("attach: engine has no definition source")
	}
	rc, err := e.loadContext(ctx, runID)
	if err != nil {
		return nil, err
	}
	def, err := e.definitions.Lookup(ctx, rc.Chain)
	if err != nil {
		return nil, fmt.Errorf("attach run %s: %w", runID, err)
	}
	return e.newRun(def, rc), nil
}

// Complete reports a successful job of a run known only by id.
func (e *Engine) Complete(ctx context.Context, runID, jobID string, response any) error {
	run, err := e.Attach(ctx, runID)
	if err != nil {
		return err
	}
	return run.Complete(ctx, jobID, response)
}

// Fail reports a failed job of a run known only by id.
func (e *Engine) Fail(ctx context.Context, runID, jobID string, cause error) error {
	run, err := e.Attach(ctx, runID)
	if err != nil {
		return err
	}
	return run.Fail(ctx, jobID, cause)
}

func (e *Engine) loadContext(ctx context.Context, runID string) (RunContext, error) {
	data, ok, err := e.store.Get(ctx, runkey.For(runID).Key("context", ""))
	if err != nil {
		return RunContext{}, fmt.Errorf("load run context %s: %w", runID, err)
	}
	if !ok {
		return RunContext{}, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	var rc RunContext
	if err := decodeJSON(data, &rc); err != nil {
		return RunContext{}, fmt.Errorf("decode run context %s: %w", runID, err)
	}
	for k, v := range rc.Inputs {
		rc.Inputs[k] = normalizeNumbers(v)
	}
	return rc, nil
}

func (e *Engine) newRun(def *graph.Definition, rc RunContext) *Run {
	return &Run{
		engine: e,
		def:    def,
		rc:     rc,
		keys:   runkey.For(rc.RunID),
	}
}

package localexecutor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/engine"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/inmemorystore"
	"github.com/vk/jobchain/internal/localexecutor"
	"github.com/vk/jobchain/internal/param"
	"github.com/vk/jobchain/internal/registry"
	"github.com/vk/jobchain/internal/testutil"
)

type outcome struct {
	response any
	err      error
}

type fakeReporter struct {
	mu       sync.Mutex
	outcomes map[string]outcome
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{outcomes: make(map[string]outcome)}
}

func (r *fakeReporter) Complete(ctx context.Context, runID, jobID string, response any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[jobID] = outcome{response: response}
	return nil
}

func (r *fakeReporter) Fail(ctx context.Context, runID, jobID string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[jobID] = outcome{err: cause}
	return nil
}

func (r *fakeReporter) get(jobID string) (outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[jobID]
	return o, ok
}

func waitIdle(t *testing.T, ex *localexecutor.Executor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ex.Wait(ctx))
}

func TestExecutor_ReportsOutcomes(t *testing.T) {
	reg := registry.New()
	reg.Register("Ok", registry.HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		return params["v"], nil
	}))
	reg.Register("Bad", registry.HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		return nil, errors.New("boom")
	}))
	reg.Register("Panics", registry.HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		panic("kaboom")
	}))

	ex := localexecutor.New(reg, 2)
	rep := newFakeReporter()
	ex.Start(context.Background(), rep)
	t.Cleanup(func() { _ = ex.Close() })

	ctx := context.Background()
	for _, sub := range []engine.Submission{
		{RunID: "r", JobID: "ok", Type: "Ok", Params: map[string]any{"v": 42}},
		{RunID: "r", JobID: "bad", Type: "Bad"},
		{RunID: "r", JobID: "panics", Type: "Panics"},
		{RunID: "r", JobID: "unknown", Type: "Nope"},
	} {
		require.NoError(t, ex.Submit(ctx, sub))
	}
	waitIdle(t, ex)

	ok, _ := rep.get("ok")
	assert.NoError(t, ok.err)
	assert.Equal(t, 42, ok.response)

	bad, _ := rep.get("bad")
	assert.EqualError(t, bad.err, "boom")

	panicked, _ := rep.get("panics")
	var panicErr *localexecutor.PanicError
	require.ErrorAs(t, panicked.err, &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)

	unknown, _ := rep.get("unknown")
	assert.True(t, errors.Is(unknown.err, registry.ErrUnknownType))
	assert.NoError(t, ex.Err())
}

func TestExecutor_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})
	reg := registry.New()
	reg.Register("Slow", registry.HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil, nil
	}))

	ex := localexecutor.New(reg, 2)
	rep := newFakeReporter()
	ex.Start(context.Background(), rep)

	for i := 0; i < 6; i++ {
		require.NoError(t, ex.Submit(context.Background(), engine.Submission{RunID: "r", JobID: fmt.Sprint(i), Type: "Slow"}))
	}
	require.Eventually(t, func() bool { return running.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	close(release)
	waitIdle(t, ex)
	require.NoError(t, ex.Close())

	assert.Equal(t, int32(2), peak.Load())
	for i := 0; i < 6; i++ {
		_, ok := rep.get(fmt.Sprint(i))
		assert.True(t, ok, "job %d reported", i)
	}
}

func TestExecutor_JobTimeout(t *testing.T) {
	reg := registry.New()
	reg.Register("Hang", registry.HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	ex := localexecutor.New(reg, 1, localexecutor.WithJobTimeout(20*time.Millisecond))
	rep := newFakeReporter()
	ex.Start(context.Background(), rep)

	require.NoError(t, ex.Submit(context.Background(), engine.Submission{RunID: "r", JobID: "h", Type: "Hang"}))
	waitIdle(t, ex)

	o, _ := rep.get("h")
	assert.True(t, errors.Is(o.err, context.DeadlineExceeded))
}

func TestExecutor_SubmitLifecycle(t *testing.T) {
	ex := localexecutor.New(registry.New(), 0)
	err := ex.Submit(context.Background(), engine.Submission{JobID: "a"})
	assert.True(t, errors.Is(err, localexecutor.ErrNotStarted))

	ex.Start(context.Background(), newFakeReporter())
	require.NoError(t, ex.Close())
	err = ex.Submit(context.Background(), engine.Submission{JobID: "a"})
	assert.True(t, errors.Is(err, localexecutor.ErrClosed))
	assert.NoError(t, ex.Wait(context.Background()))
}

func TestExecutor_DrivesEngineToDone(t *testing.T) {
	reg := registry.New()
	reg.Register("Fetch", registry.HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		return map[string]any{"items": []any{params["seed"], "b"}}, nil
	}))
	reg.Register("Join", registry.Typed(func(ctx context.Context, in *struct {
		First  string `json:"first"`
		Second string `json:"second"`
	}) (any, error) {
		return in.First + "+" + in.Second, nil
	}))

	def, err := graph.New(graph.Options{Name: "pipeline"},
		&graph.JobSpec{ID: "left", Type: "Fetch", Params: param.Mapping{{Key: "seed", Value: param.InputRef{Name: "seed"}}}},
		&graph.JobSpec{ID: "right", Type: "Fetch", Params: param.Mapping{{Key: "seed", Value: param.Literal{V: "r"}}}},
		&graph.JobSpec{ID: "join", Type: "Join", Params: param.Mapping{
			{Key: "first", Value: param.JobRef{JobID: "left", Path: []string{"items", "0"}}},
			{Key: "second", Value: param.JobRef{JobID: "right", Path: []string{"items", "1"}}},
		}},
	)
	require.NoError(t, err)

	ex := localexecutor.New(reg, 4)
	notifier := &testutil.RecordingNotifier{}
	eng := engine.New(inmemorystore.New(), ex, notifier, engine.WithDefinitions(graph.NewCatalog(def)))
	ex.Start(context.Background(), eng)
	t.Cleanup(func() { _ = ex.Close() })

	run, err := eng.Start(context.Background(), def, engine.StartOptions{Inputs: map[string]any{"seed": "l"}})
	require.NoError(t, err)
	waitIdle(t, ex)
	require.NoError(t, ex.Err())

	done := notifier.OfKind(engine.ChainDone)
	require.Len(t, done, 1)
	assert.Equal(t, "l+b", done[0].Response)
	assert.Len(t, notifier.OfKind(engine.ChainResponse), 2)

	finished, err := run.Done(context.Background())
	require.NoError(t, err)
	assert.True(t, finished)
}

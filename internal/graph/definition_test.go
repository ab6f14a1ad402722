package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/param"
)

func threeJobChain(t *testing.T, opts Options) *Definition {
	t.Helper()
	def, err := New(opts,
		&JobSpec{ID: "jobOne", Type: "JobOne", Params: param.Mapping{{Key: "filePath", Value: param.InputRef{Name: "file", Default: "/tmp/in", HasDefault: true}}}},
		&JobSpec{ID: "jobTwo", Type: "JobTwo"},
		&JobSpec{ID: "jobThree", Type: "JobThree", Params: param.Mapping{
			{Key: "x", Value: param.JobRef{JobID: "jobOne"}},
			{Key: "y", Value: param.JobRef{JobID: "jobTwo", Path: []string{"a"}}},
			{Key: "z", Value: param.JobRef{JobID: "jobOne"}},
		}},
	)
	require.NoError(t, err)
	return def
}

func TestNew_Defaults(t *testing.T) {
	def := threeJobChain(t, Options{Name: "chain1"})

	assert.Equal(t, "chain1", def.Name())
	assert.Equal(t, "jobThree", def.Done(), "terminal job defaults to the last declared job")
	assert.Equal(t, []string{"jobOne", "jobTwo", "jobThree"}, def.JobIDs())
	assert.Equal(t, time.Duration(0), def.Lifetime())
	assert.Equal(t, 1, def.Position("jobTwo"))
	assert.Equal(t, -1, def.Position("nope"))
}

func TestNew_ExplicitDoneAndNamespace(t *testing.T) {
	def := threeJobChain(t, Options{Name: "chain1", Done: "jobTwo", Namespace: " App.Jobs. "})

	assert.Equal(t, "jobTwo", def.Done())
	assert.Equal(t, "App.Jobs", def.Namespace())
	assert.Equal(t, "App.Jobs.JobOne", def.Target("jobOne"))
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
		jobs []*JobSpec
		msg  string
	}{
		{name: "no jobs", msg: "declares no jobs"},
		{name: "duplicate", jobs: []*JobSpec{{ID: "a", Type: "T"}, {ID: "a", Type: "T"}}, msg: "duplicate job id"},
		{name: "invalid id", jobs: []*JobSpec{{ID: "a.b", Type: "T"}}, msg: "invalid job id"},
		{name: "missing type", jobs: []*JobSpec{{ID: "a"}}, msg: "has no type"},
		{name: "unknown terminal", opts: Options{Done: "zzz"}, jobs: []*JobSpec{{ID: "a", Type: "T"}}, msg: "terminal job"},
		{name: "bad visibility", opts: Options{Channels: []Channel{{Visibility: "secret", Route: "x"}}}, jobs: []*JobSpec{{ID: "a", Type: "T"}}, msg: "visibility"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opts, tc.jobs...)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestDependenciesAndRoots(t *testing.T) {
	def := threeJobChain(t, Options{Name: "chain1"})

	assert.True(t, def.IsRoot("jobOne"))
	assert.True(t, def.IsRoot("jobTwo"))
	assert.False(t, def.IsRoot("jobThree"))
	assert.Equal(t, []string{"jobOne", "jobTwo"}, def.Dependencies("jobThree"))
	assert.Equal(t, []string{"file"}, def.Params())
}

func TestChannels_DefaultPrivate(t *testing.T) {
	def, err := New(Options{Channels: []Channel{{Route: "users.{user}"}}}, &JobSpec{ID: "a", Type: "T"})
	require.NoError(t, err)
	assert.Equal(t, []Channel{{Visibility: VisibilityPrivate, Route: "users.{user}"}}, def.Channels())
}

func TestToMap(t *testing.T) {
	def := threeJobChain(t, Options{Name: "chain1", Lifetime: time.Hour})
	m := def.ToMap()

	assert.Equal(t, "jobThree", m["done"])
	assert.Equal(t, int64(3600), m["lifetime"])
	jobs := m["jobs"].(map[string]any)
	three := jobs["jobThree"].(map[string]any)
	params := three["params"].(map[string]any)
	assert.Equal(t, map[string]any{"!job": "jobTwo.a"}, params["y"])
}

func TestCatalog(t *testing.T) {
	def := threeJobChain(t, Options{Name: "chain1"})
	c := NewCatalog(def)

	got, err := c.Lookup(context.Background(), "chain1")
	require.NoError(t, err)
	assert.Same(t, def, got)

	_, err = c.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDefinition_AccessorsReturnCopies(t *testing.T) {
	def := threeJobChain(t, Options{Name: "chain1"})

	job, ok := def.Job("jobThree")
	require.True(t, ok)
	job.ID = "renamed"
	job.Type = "Other"
	job.Params[0].Value = param.Literal{V: "x"}
	ref := job.Params[1].Value.(param.JobRef)
	ref.Path[0] = "b"

	for _, j := range def.Jobs() {
		j.Params = nil
	}

	again, ok := def.Job("jobThree")
	require.True(t, ok)
	assert.Equal(t, "jobThree", again.ID)
	assert.Equal(t, "JobThree", again.Type)
	assert.Equal(t, param.JobRef{JobID: "jobOne"}, again.Params[0].Value)
	assert.Equal(t, param.JobRef{JobID: "jobTwo", Path: []string{"a"}}, again.Params[1].Value)
	assert.Equal(t, []string{"jobOne", "jobTwo"}, def.Dependencies("jobThree"))
	assert.True(t, def.HasJob("jobThree"))
	assert.False(t, def.HasJob("renamed"))
}

func TestNew_CopiesInput(t *testing.T) {
	in := &JobSpec{ID: "only", Type: "T", Params: param.Mapping{
		{Key: "opts", Value: param.Literal{V: map[string]any{"retries": 3}}},
	}}
	def, err := New(Options{Name: "c"}, in)
	require.NoError(t, err)

	in.Params[0].Value.(param.Literal).V.(map[string]any)["retries"] = 9

	job, _ := def.Job("only")
	assert.Equal(t, param.Literal{V: map[string]any{"retries": 3}}, job.Params[0].Value)
}

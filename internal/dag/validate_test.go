package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/param"
)

func ref(id string) param.Mapping {
	return param.Mapping{{Key: "in", Value: param.JobRef{JobID: id}}}
}

func mustDef(t *testing.T, jobs ...*graph.JobSpec) *graph.Definition {
	t.Helper()
	def, err := graph.New(graph.Options{Name: "test"}, jobs...)
	require.NoError(t, err)
	return def
}

func TestValidate(t *testing.T) {
	t.Run("acyclic chain yields an order", func(t *testing.T) {
		def := mustDef(t,
			&graph.JobSpec{ID: "last", Type: "T", Params: ref("first")},
			&graph.JobSpec{ID: "first", Type: "T"},
		)
		order, err := Validate(def)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "last"}, order)
	})

	t.Run("unknown reference", func(t *testing.T) {
		def := mustDef(t, &graph.JobSpec{ID: "a", Type: "T", Params: ref("ghost")})
		_, err := Validate(def)
		var unknown *UnknownJobError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "ghost", unknown.Ref)
	})

	t.Run("self reference", func(t *testing.T) {
		def := mustDef(t, &graph.JobSpec{ID: "a", Type: "T", Params: ref("a")})
		_, err := Validate(def)
		var self *SelfReferenceError
		require.ErrorAs(t, err, &self)
		assert.Equal(t, "a", self.JobID)
	})

	t.Run("cycle", func(t *testing.T) {
		def := mustDef(t,
			&graph.JobSpec{ID: "a", Type: "T", Params: ref("b")},
			&graph.JobSpec{ID: "b", Type: "T", Params: ref("a")},
		)
		_, err := Validate(def)
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.ErrorContains(t, err, `chain "test"`)
	})
}

func TestInspect(t *testing.T) {
	def := mustDef(t,
		&graph.JobSpec{ID: "fetch", Type: "T"},
		&graph.JobSpec{ID: "audit", Type: "T"},
		&graph.JobSpec{ID: "parse", Type: "T", Params: ref("fetch")},
		&graph.JobSpec{ID: "report", Type: "T", Params: ref("parse")},
	)

	rep, err := Inspect(def)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Jobs)
	assert.Equal(t, []string{"fetch", "audit", "parse", "report"}, rep.Order)
	assert.Equal(t, []string{"audit"}, rep.Unread, "the terminal job is never reported")

	_, err = Inspect(mustDef(t, &graph.JobSpec{ID: "a", Type: "T", Params: ref("a")}))
	assert.Error(t, err)
}

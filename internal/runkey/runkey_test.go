package runkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	testCases := []struct {
		name      string
		runID     string
		component string
		suffix    string
		expected  string
	}{
		{name: "run only", runID: "r1", expected: "job-chain.r1"},
		{name: "component", runID: "r1", component: "done", expected: "job-chain.r1.done"},
		{name: "component and suffix", runID: "r1", component: "jobOne", suffix: "dispatched", expected: "job-chain.r1.jobOne.dispatched"},
		{name: "empty run", component: "done", expected: "job-chain.done"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := Build(tc.runID, tc.component, tc.suffix)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, key)
		})
	}
}

func TestBuild_SuffixWithoutComponent(t *testing.T) {
	_, err := Build("r1", "", "dispatched")
	var keyErr *InvalidKeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "dispatched", keyErr.Suffix)
}

func TestKeyer_PanicsOnInvalidKey(t *testing.T) {
	k := For("r1")
	assert.Equal(t, "job-chain.r1.a.response", k.Key("a", "response"))
	assert.Panics(t, func() { k.Key("", "response") })
}

func TestKeyer_RunsNeverCollide(t *testing.T) {
	a := For("run-a").Key("jobOne", "dispatched")
	b := For("run-b").Key("jobOne", "dispatched")
	assert.NotEqual(t, a, b)
}

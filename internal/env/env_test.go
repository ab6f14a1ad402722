package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	assert.Equal(t, "fallback", String("JOBCHAIN_ENV_STRING_UNSET", "fallback"))

	t.Setenv("JOBCHAIN_ENV_STRING", "value")
	assert.Equal(t, "value", String("JOBCHAIN_ENV_STRING", "fallback"))

	// Set but empty still wins over the default.
	t.Setenv("JOBCHAIN_ENV_STRING", "")
	assert.Equal(t, "", String("JOBCHAIN_ENV_STRING", "fallback"))
}

func TestDuration(t *testing.T) {
	got, err := Duration("JOBCHAIN_ENV_DURATION_UNSET", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, got)

	t.Setenv("JOBCHAIN_ENV_DURATION", "250ms")
	got, err = Duration("JOBCHAIN_ENV_DURATION", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, got)

	t.Setenv("JOBCHAIN_ENV_DURATION", "soon")
	_, err = Duration("JOBCHAIN_ENV_DURATION", 5*time.Second)
	assert.ErrorContains(t, err, "JOBCHAIN_ENV_DURATION")
}

func TestBool(t *testing.T) {
	got, err := Bool("JOBCHAIN_ENV_BOOL_UNSET", true)
	require.NoError(t, err)
	assert.True(t, got)

	t.Setenv("JOBCHAIN_ENV_BOOL", "false")
	got, err = Bool("JOBCHAIN_ENV_BOOL", true)
	require.NoError(t, err)
	assert.False(t, got)

	t.Setenv("JOBCHAIN_ENV_BOOL", "nope")
	_, err = Bool("JOBCHAIN_ENV_BOOL", false)
	assert.Error(t, err)
}

func TestInt(t *testing.T) {
	got, err := Int("JOBCHAIN_ENV_INT_UNSET", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	t.Setenv("JOBCHAIN_ENV_INT", "7")
	got, err = Int("JOBCHAIN_ENV_INT", 42)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	t.Setenv("JOBCHAIN_ENV_INT", "seven")
	_, err = Int("JOBCHAIN_ENV_INT", 42)
	assert.Error(t, err)
}

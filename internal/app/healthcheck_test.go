package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_ReportsRunPhase(t *testing.T) {
	dir := writeChains(t, map[string]string{"greet.yml": greetChain})
	cfg := newTestConfig(t, dir, Config{Chain: "greet"})
	a, _ := SetupAppTest(t, cfg, WithModules(testModules()...))

	get := func() healthReport {
		rec := httptest.NewRecorder()
		a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var rep healthReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
		return rep
	}

	before := get()
	assert.Equal(t, "ok", before.Status)
	assert.Equal(t, "greet", before.Chain)
	assert.Equal(t, phaseIdle, before.Phase)
	assert.Empty(t, before.RunID)

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	after := get()
	assert.Equal(t, phaseDone, after.Phase)
	assert.Equal(t, res.RunID, after.RunID)
}

func TestNewLogger_Levels(t *testing.T) {
	assert.True(t, newLogger("debug", "text", nil).Enabled(context.Background(), -4))
	assert.False(t, newLogger("warn", "json", nil).Enabled(context.Background(), 0))
	assert.True(t, newLogger("nonsense", "json", nil).Enabled(context.Background(), 0))
}

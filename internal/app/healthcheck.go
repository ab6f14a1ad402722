package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vk/jobchain/internal/ctxlog"
)

// Run phases reported by /health.
const (
	phaseIdle    = "idle"
	phaseRunning = "running"
	phaseDone    = "done"
	phaseStalled = "stalled"
)

// healthState is what /health reports about the current run.
type healthState struct {
	mu    sync.Mutex
	phase string
	runID string
}

func (h *healthState) set(phase, runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = phase
	if runID != "" {
		h.runID = runID
	}
}

type healthReport struct {
	Status string `json:"status"`
	Chain  string `json:"chain,omitempty"`
	Phase  string `json:"phase"`
	RunID  string `json:"run_id,omitempty"`
}

func (h *healthState) report(chain string) healthReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	phase := h.phase
	if phase == "" {
		phase = phaseIdle
	}
	return healthReport{Status: "ok", Chain: chain, Phase: phase, RunID: h.runID}
}

func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(app.health.report(app.config.Chain)); err != nil {
		logger.Warn("Writing health report failed.", "error", err)
	}
}

// healthCheckServer starts the /health endpoint in the background when a
// port is configured.
func (app *App) healthCheckServer() {
	logger := ctxlog.FromContext(app.ctx)
	if app.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server disabled.")
		return
	}
	if app.httpServer != nil {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", app.healthHandler)
	addr := fmt.Sprintf(":%d", app.config.HealthcheckPort)
	app.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := app.httpServer
	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (app *App) closeHealthCheckServer() error {
	if app.httpServer == nil {
		return nil
	}
	logger := ctxlog.FromContext(app.ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(app.ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	err := app.httpServer.Shutdown(ctx)
	app.httpServer = nil
	if err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	return nil
}

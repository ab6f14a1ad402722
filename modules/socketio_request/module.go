package socketio_request

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/registry"
	"github.com/zishang520/engine.io/v2/types"
)

// Type is the job type served by this module.
const Type = "SocketIORequest"

// Conn is the part of a connected socket.io client the handler uses.
// *socket.Socket satisfies it.
type Conn interface {
	Emit(ev string, args ...any) error
	Once(ev types.EventName, listeners ...types.Listener) error
}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Conn is the shared connection; jobs fail when it is nil.
	Conn Conn
}

// Input defines the request: emit EmitEvent with EmitData, then wait for
// OnEvent.
type Input struct {
	OnEvent   string `json:"on_event"`
	EmitEvent string `json:"emit_event"`
	EmitData  any    `json:"emit_data,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
}

// Output is the job response.
type Output struct {
	ResponseData any `json:"response_data"`
}

// OnRunSocketIORequest is the handler for the job type.
func (m *Module) OnRunSocketIORequest(ctx context.Context, input *Input) (any, error) {
	logger := ctxlog.FromContext(ctx)

	if m.Conn == nil {
		return nil, fmt.Errorf("socket.io connection is not configured")
	}
	if input.OnEvent == "" || input.EmitEvent == "" {
		return nil, fmt.Errorf("on_event and emit_event are required")
	}

	logger = logger.With("module", "socketio_request")
	logger.Info("Executing request", "emitEvent", input.EmitEvent, "onEvent", input.OnEvent)

	timeout := 10 * time.Second
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timeout: %w", err)
		}
		timeout = d
	}

	done := make(chan any, 1)
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := m.Conn.Once(types.EventName(input.OnEvent), func(data ...any) {
		logger.Debug("Response event received", "event", input.OnEvent)
		var payload any
		if len(data) > 0 {
			payload = data[0]
		}
		select {
		case done <- payload:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen for '%s': %w", input.OnEvent, err)
	}

	jsonData, _ := json.Marshal(input.EmitData)
	logger.Debug("Emitting event", "event", input.EmitEvent, "data", string(jsonData))
	if err := m.Conn.Emit(input.EmitEvent, input.EmitData); err != nil {
		return nil, fmt.Errorf("failed to emit '%s': %w", input.EmitEvent, err)
	}

	select {
	case <-opCtx.Done():
		return nil, fmt.Errorf("timed out after %v waiting for event '%s'", timeout, input.OnEvent)
	case payload := <-done:
		logger.Info("Successfully received response event", "event", input.OnEvent)
		return &Output{ResponseData: payload}, nil
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, registry.Typed(m.OnRunSocketIORequest))
}

package socketio_request

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/registry"
	"github.com/zishang520/engine.io/v2/types"
)

// loopbackConn answers every emit by firing the registered once-listener
// with the echoed payload.
type loopbackConn struct {
	mu        sync.Mutex
	listeners map[types.EventName][]types.Listener
	reply     types.EventName
	silent    bool
	emitted   []string
}

func (c *loopbackConn) Once(ev types.EventName, listeners ...types.Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listeners == nil {
		c.listeners = make(map[types.EventName][]types.Listener)
	}
	c.listeners[ev] = append(c.listeners[ev], listeners...)
	return nil
}

func (c *loopbackConn) Emit(ev string, args ...any) error {
	c.mu.Lock()
	c.emitted = append(c.emitted, ev)
	ls := c.listeners[c.reply]
	delete(c.listeners, c.reply)
	c.mu.Unlock()
	if c.silent {
		return nil
	}
	for _, l := range ls {
		l(map[string]any{"echo": args[0]})
	}
	return nil
}

func TestOnRunSocketIORequest(t *testing.T) {
	conn := &loopbackConn{reply: "pong"}
	h, err := registry.New(&Module{Conn: conn}).Lookup(Type)
	require.NoError(t, err)

	out, err := h.Handle(context.Background(), map[string]any{
		"emit_event": "ping",
		"on_event":   "pong",
		"emit_data":  map[string]any{"n": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, &Output{ResponseData: map[string]any{"echo": map[string]any{"n": float64(1)}}}, out)
	assert.Equal(t, []string{"ping"}, conn.emitted)
}

func TestOnRunSocketIORequest_Errors(t *testing.T) {
	ctx := context.Background()

	h, err := registry.New(&Module{}).Lookup(Type)
	require.NoError(t, err)
	_, err = h.Handle(ctx, map[string]any{"emit_event": "a", "on_event": "b"})
	assert.ErrorContains(t, err, "not configured")

	h, err = registry.New(&Module{Conn: &loopbackConn{reply: "pong", silent: true}}).Lookup(Type)
	require.NoError(t, err)
	_, err = h.Handle(ctx, map[string]any{"emit_event": "ping"})
	assert.ErrorContains(t, err, "are required")

	_, err = h.Handle(ctx, map[string]any{"emit_event": "ping", "on_event": "pong", "timeout": "20ms"})
	assert.ErrorContains(t, err, "timed out")

	_, err = h.Handle(ctx, map[string]any{"emit_event": "ping", "on_event": "pong", "timeout": "soon"})
	assert.ErrorContains(t, err, "failed to parse timeout")
}

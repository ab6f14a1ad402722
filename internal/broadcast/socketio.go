package broadcast

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/engine"
	"github.com/vk/jobchain/internal/env"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Emitter is the part of a socket.io client the notifier uses.
type Emitter interface {
	Emit(ev string, args ...any) error
}

// SocketIO emits every event on a socket.io connection. The event name is
// the kind ("chain.done", ...); the single argument is the payload with the
// resolved routes attached, leaving fan-out to the server.
type SocketIO struct {
	emitter Emitter
	sock    *socket.Socket
	close   func()
}

// NewSocketIO wraps an existing emitter.
func NewSocketIO(e Emitter) *SocketIO {
	return &SocketIO{emitter: e, close: func() {}}
}

// SocketIOConfig describes the connection to a socket.io server.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIOConfigFromEnv reads the JOBCHAIN_SOCKETIO_* variables, starting
// from base.
func SocketIOConfigFromEnv(base SocketIOConfig) (SocketIOConfig, error) {
	cfg := base
	cfg.URL = env.String("JOBCHAIN_SOCKETIO_URL", cfg.URL)
	cfg.Namespace = env.String("JOBCHAIN_SOCKETIO_NAMESPACE", cfg.Namespace)

	insecure, err := env.Bool("JOBCHAIN_SOCKETIO_INSECURE", cfg.InsecureSkipVerify)
	if err != nil {
		return SocketIOConfig{}, err
	}
	cfg.InsecureSkipVerify = insecure

	def := cfg.ConnectTimeout
	if def <= 0 {
		def = 15 * time.Second
	}
	if cfg.ConnectTimeout, err = env.Duration("JOBCHAIN_SOCKETIO_CONNECT_TIMEOUT", def); err != nil {
		return SocketIOConfig{}, err
	}
	return cfg, nil
}

// DialSocketIO connects to the server and waits for the namespace to be
// joined.
func DialSocketIO(ctx context.Context, cfg SocketIOConfig) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("notifier", "socketio", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("socket.io URL %q needs a scheme and host", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to socket.io server.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIO{emitter: io, sock: io, close: func() { io.Disconnect() }}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Notify implements engine.Notifier.
func (s *SocketIO) Notify(ctx context.Context, ev engine.Event) error {
	payload := Payload(ev)
	routes := Routes(ev)
	channels := make([]map[string]any, len(routes))
	for i, r := range routes {
		channels[i] = map[string]any{"name": r.Name, "private": r.Private}
	}
	payload["channels"] = channels

	if err := s.emitter.Emit(ev.Kind.String(), payload); err != nil {
		return fmt.Errorf("socket.io emit %s: %w", ev.Kind, err)
	}
	ctxlog.FromContext(ctx).Debug("Emitted chain event.", "event", ev.Kind.String(), "run_id", ev.RunID, "job_id", ev.JobID)
	return nil
}

// Socket returns the dialed connection, or nil for a wrapped emitter. Job
// handlers that talk socket.io share it.
func (s *SocketIO) Socket() *socket.Socket {
	return s.sock
}

// Close disconnects the underlying socket.
func (s *SocketIO) Close() {
	s.close()
}

package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ErrUnknownType is returned when no handler is registered for a job type.
var ErrUnknownType = errors.New("no handler registered for job type")

// Handler executes one job. params are fully resolved; the returned value
// becomes the job's response and must be JSON-encodable.
type Handler interface {
	Handle(ctx context.Context, params map[string]any) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, params map[string]any) (any, error) {
	return f(ctx, params)
}

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the handlers of a single application instance.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a registry and registers the given modules into it.
func New(modules ...Module) *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register binds jobType to h. Registering a type twice is a programming
// error and panics.
func (r *Registry) Register(jobType string, h Handler) {
	if jobType == "" {
		panic("job type must not be empty")
	}
	if h == nil {
		panic(fmt.Sprintf("handler for job type '%s' is nil", jobType))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[jobType]; exists {
		panic(fmt.Sprintf("handler for job type '%s' already registered", jobType))
	}
	slog.Debug("Registering job handler.", "type", jobType)
	r.handlers[jobType] = h
}

// Lookup returns the handler bound to jobType.
func (r *Registry) Lookup(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, jobType)
	}
	return h, nil
}

// Types lists the registered job types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Typed builds a handler whose params are decoded into a fresh I through
// their JSON form. Unknown params are rejected.
func Typed[I any](fn func(ctx context.Context, input *I) (any, error)) Handler {
	return HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		input := new(I)
		if err := DecodeParams(params, input); err != nil {
			return nil, err
		}
		return fn(ctx, input)
	})
}

// DecodeParams decodes params into target, a pointer to a struct with json
// tags.
func DecodeParams(params map[string]any, target any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

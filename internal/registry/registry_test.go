package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoModule struct{}

func (echoModule) Register(r *Registry) {
	r.Register("Echo", HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		return params, nil
	}))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New(echoModule{})
	r.Register("App.Jobs.Other", HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		return "other", nil
	}))

	assert.Equal(t, []string{"App.Jobs.Other", "Echo"}, r.Types())

	h, err := r.Lookup("Echo")
	require.NoError(t, err)
	out, err := h.Handle(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, out)

	_, err = r.Lookup("Missing")
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestRegistry_RegisterPanics(t *testing.T) {
	r := New(echoModule{})
	assert.Panics(t, func() { echoModule{}.Register(r) }, "duplicate type")
	assert.Panics(t, func() { r.Register("", HandlerFunc(nil)) }, "empty type")
	assert.Panics(t, func() { r.Register("Nil", nil) }, "nil handler")
}

type greetInput struct {
	Name  string `json:"name"`
	Times int    `json:"times"`
}

func TestTyped(t *testing.T) {
	h := Typed(func(ctx context.Context, in *greetInput) (any, error) {
		return map[string]any{"greeting": "hi " + in.Name, "times": in.Times}, nil
	})

	out, err := h.Handle(context.Background(), map[string]any{"name": "ann", "times": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"greeting": "hi ann", "times": 2}, out)

	_, err = h.Handle(context.Background(), map[string]any{"nmae": "typo"})
	assert.ErrorContains(t, err, "invalid params")

	_, err = h.Handle(context.Background(), map[string]any{"times": "two"})
	assert.ErrorContains(t, err, "invalid params")
}

package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/registry"
)

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.New(&Module{Out: &buf})

	h, err := reg.Lookup(Type)
	require.NoError(t, err)

	out, err := h.Handle(context.Background(), map[string]any{"b": 2, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": 2, "a": "x"}, out)
	assert.Equal(t, "      a = x\n      b = 2\n", buf.String())

	buf.Reset()
	_, err = h.Handle(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "      (null)\n", buf.String())
}

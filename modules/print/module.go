package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/registry"
)

// Type is the job type served by this module.
const Type = "Print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out defaults to os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// Print writes every param as a sorted "key = value" line and returns the
// params unchanged, so dependents can reference them.
func (m *Module) Print(ctx context.Context, params map[string]any) (any, error) {
	ctxlog.FromContext(ctx).Info("Printing input")

	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(params) == 0 {
		fmt.Fprintln(out, "      (null)")
		return map[string]any{}, nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(out, "      %s = %v\n", k, params[k])
	}

	return params, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, registry.HandlerFunc(m.Print))
}

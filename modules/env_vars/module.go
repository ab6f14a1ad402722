package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/vk/jobchain/internal/registry"
)

// Type is the job type served by this module.
const Type = "EnvVars"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input selects the variables to return.
type Input struct {
	Prefix string `json:"prefix,omitempty"`
}

// Output defines the data structure returned by the handler.
type Output struct {
	All map[string]string `json:"all"`
}

// OnRunEnvVars returns the process environment, optionally filtered by prefix.
func OnRunEnvVars(ctx context.Context, input *Input) (any, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 && strings.HasPrefix(pair[0], input.Prefix) {
			envMap[pair[0]] = pair[1]
		}
	}

	return &Output{All: envMap}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, registry.Typed(OnRunEnvVars))
}

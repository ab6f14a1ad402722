package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/jobchain/internal/registry"
)

// SimpleModule registers a single handler under Type.
type SimpleModule struct {
	Type    string
	Handler registry.HandlerFunc
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.Register(m.Type, m.Handler)
}

// NoOpModule registers a "NoOp" handler that answers with nil.
type NoOpModule struct{}

func (m *NoOpModule) Register(r *registry.Registry) {
	r.Register("NoOp", registry.HandlerFunc(func(context.Context, map[string]any) (any, error) {
		return nil, nil
	}))
}

// ExecutionRecord holds the start and end times of one job execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// SleeperModule registers a "Sleeper" handler for concurrency tests. Each
// call sleeps, then records its window under the "id" param and echoes it.
type SleeperModule struct {
	Sleep time.Duration

	mu      sync.Mutex
	records map[string]ExecutionRecord
}

func (m *SleeperModule) Register(r *registry.Registry) {
	r.Register("Sleeper", registry.HandlerFunc(func(ctx context.Context, params map[string]any) (any, error) {
		id, _ := params["id"].(string)
		start := time.Now()
		select {
		case <-time.After(m.Sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		end := time.Now()

		m.mu.Lock()
		if m.records == nil {
			m.records = map[string]ExecutionRecord{}
		}
		m.records[id] = ExecutionRecord{Start: start, End: end}
		m.mu.Unlock()
		return id, nil
	}))
}

// Records returns a copy of the execution windows recorded so far.
func (m *SleeperModule) Records() map[string]ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ExecutionRecord, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

package engine

import (
	"context"

	"github.com/vk/jobchain/internal/graph"
)

// Submission is a job handed to the executor, parameters fully resolved.
type Submission struct {
	RunID  string
	Chain  string
	JobID  string
	Type   string
	Params map[string]any
}

// Dispatcher hands jobs to whatever executes them. Submit must only
// acknowledge; the result arrives later through Complete or Fail.
type Dispatcher interface {
	Submit(ctx context.Context, sub Submission) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, sub Submission) error

func (f DispatcherFunc) Submit(ctx context.Context, sub Submission) error { return f(ctx, sub) }

// EventKind names a chain notification.
type EventKind int

const (
	ChainResponse EventKind = iota
	ChainDone
	ChainError
)

func (k EventKind) String() string {
	switch k {
	case ChainResponse:
		return "chain.response"
	case ChainDone:
		return "chain.done"
	case ChainError:
		return "chain.error"
	default:
		return "chain.unknown"
	}
}

// Event is a notification produced by a run.
type Event struct {
	Kind     EventKind
	RunID    string
	Chain    string
	JobID    string
	User     string
	Response any
	Err      error
	Channels []graph.Channel
}

// Notifier delivers events. The engine decides when to fire; transports
// decide how.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// DefinitionSource finds a chain definition by name. It lets Attach rebuild
// a run from its persisted context.
type DefinitionSource interface {
	Lookup(ctx context.Context, name string) (*graph.Definition, error)
}

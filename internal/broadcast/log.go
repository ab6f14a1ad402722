package broadcast

import (
	"context"
	"log/slog"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/engine"
)

// Log writes each event to the context logger, or to Logger when set.
type Log struct {
	Logger *slog.Logger
}

// Notify implements engine.Notifier.
func (l Log) Notify(ctx context.Context, ev engine.Event) error {
	logger := l.Logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	names := make([]string, 0, len(ev.Channels)+1)
	for _, r := range Routes(ev) {
		names = append(names, r.Name)
	}

	attrs := []any{"event", ev.Kind.String(), "run_id", ev.RunID, "job_id", ev.JobID, "channels", names}
	switch ev.Kind {
	case engine.ChainError:
		logger.Warn("Chain event.", append(attrs, "error", ev.Err)...)
	default:
		logger.Info("Chain event.", append(attrs, "response", ev.Response)...)
	}
	return nil
}

package broadcast

import (
	"context"
	"errors"

	"github.com/vk/jobchain/internal/engine"
)

// Multi fans an event out to every notifier, in order. All notifiers are
// tried; their errors are joined.
type Multi []engine.Notifier

// Notify implements engine.Notifier.
func (m Multi) Notify(ctx context.Context, ev engine.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

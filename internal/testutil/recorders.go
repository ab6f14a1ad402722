package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/jobchain/internal/engine"
)

// RecordingDispatcher captures every submission. Err, when set, is returned
// from Submit after the submission is recorded.
type RecordingDispatcher struct {
	mu   sync.Mutex
	subs []engine.Submission
	Err  error
}

// Submit implements engine.Dispatcher.
func (d *RecordingDispatcher) Submit(_ context.Context, sub engine.Submission) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, sub)
	return d.Err
}

// Submissions returns a copy of everything submitted so far.
func (d *RecordingDispatcher) Submissions() []engine.Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]engine.Submission(nil), d.subs...)
}

// JobIDs returns the submitted job ids in submission order.
func (d *RecordingDispatcher) JobIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.subs))
	for i, s := range d.subs {
		ids[i] = s.JobID
	}
	return ids
}

// Find returns the last submission of jobID.
func (d *RecordingDispatcher) Find(jobID string) (engine.Submission, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.subs) - 1; i >= 0; i-- {
		if d.subs[i].JobID == jobID {
			return d.subs[i], true
		}
	}
	return engine.Submission{}, false
}

// RecordingNotifier captures every event.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []engine.Event
	Err    error
}

// Notify implements engine.Notifier.
func (n *RecordingNotifier) Notify(_ context.Context, ev engine.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.Err
}

// Events returns a copy of every event so far.
func (n *RecordingNotifier) Events() []engine.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]engine.Event(nil), n.events...)
}

// OfKind returns the events of one kind.
func (n *RecordingNotifier) OfKind(kind engine.EventKind) []engine.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []engine.Event
	for _, ev := range n.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at t.
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

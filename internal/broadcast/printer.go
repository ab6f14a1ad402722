package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/vk/jobchain/internal/engine"
)

var (
	kindStyle = map[engine.EventKind]lipgloss.Style{
		engine.ChainResponse: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		engine.ChainDone:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950")),
		engine.ChainError:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	}
	jobStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	bodyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

// Printer renders events for a human watching the CLI.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Notify implements engine.Notifier.
func (p *Printer) Notify(_ context.Context, ev engine.Event) error {
	var body string
	if ev.Kind == engine.ChainError {
		body = fmt.Sprint(ev.Err)
	} else {
		raw, err := json.Marshal(ev.Response)
		if err != nil {
			raw = []byte(fmt.Sprint(ev.Response))
		}
		body = string(raw)
	}

	line := fmt.Sprintf("%-15s %s %s\n",
		kindStyle[ev.Kind].Render(ev.Kind.String()),
		jobStyle.Render(ev.JobID),
		bodyStyle.Render(body),
	)

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, line)
	return err
}

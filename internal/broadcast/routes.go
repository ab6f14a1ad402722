package broadcast

import (
	"strings"

	"github.com/vk/jobchain/internal/engine"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/runkey"
)

const userPlaceholder = "{user}"

// Route is a resolved notification channel.
type Route struct {
	Name    string
	Private bool
}

// Routes returns the channels ev is delivered to. Declared routes that need
// a user are skipped when the run has none.
func Routes(ev engine.Event) []Route {
	routes := []Route{{
		Name:    strings.Join([]string{runkey.Prefix, ev.Chain, ev.RunID}, "."),
		Private: true,
	}}
	for _, ch := range ev.Channels {
		name := ch.Route
		if strings.Contains(name, userPlaceholder) {
			if ev.User == "" {
				continue
			}
			name = strings.ReplaceAll(name, userPlaceholder, ev.User)
		}
		routes = append(routes, Route{Name: name, Private: ch.Visibility != graph.VisibilityPublic})
	}
	return routes
}

// Payload is the wire form of an event.
func Payload(ev engine.Event) map[string]any {
	p := map[string]any{
		"run_id": ev.RunID,
		"chain":  ev.Chain,
		"job_id": ev.JobID,
	}
	switch ev.Kind {
	case engine.ChainError:
		if ev.Err != nil {
			p["error"] = ev.Err.Error()
		}
	default:
		p["response"] = ev.Response
	}
	return p
}

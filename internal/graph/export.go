package graph

import "github.com/vk/jobchain/internal/param"

// ToMap renders the definition as plain data in the document layout used by
// chain files. Placeholders are rendered in their tag form.
func (d *Definition) ToMap() map[string]any {
	jobs := make(map[string]any, len(d.jobs))
	for _, job := range d.jobs {
		jobs[job.ID] = map[string]any{
			"type":   job.Type,
			"params": exportValue(job.Params),
		}
	}

	out := map[string]any{
		"name": d.name,
		"done": d.done,
		"jobs": jobs,
	}
	if d.key != "" {
		out["key"] = d.key
	}
	if d.namespace != "" {
		out["namespace"] = d.namespace
	}
	if d.lifetime > 0 {
		out["lifetime"] = int64(d.lifetime.Seconds())
	}
	if len(d.channels) > 0 {
		channels := make([]any, len(d.channels))
		for i, ch := range d.channels {
			channels[i] = map[string]any{"visibility": ch.Visibility, "route": ch.Route}
		}
		out["channels"] = channels
	}
	return out
}

func exportValue(v param.Value) any {
	switch t := v.(type) {
	case param.Literal:
		return t.V
	case param.InputRef:
		if t.HasDefault {
			return map[string]any{"!param": t.Name, "default": t.Default}
		}
		return map[string]any{"!param": t.Name}
	case param.JobRef:
		return map[string]any{"!job": t.String()}
	case param.Mapping:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = exportValue(e.Value)
		}
		return m
	case param.Sequence:
		s := make([]any, len(t))
		for i, item := range t {
			s[i] = exportValue(item)
		}
		return s
	default:
		return nil
	}
}

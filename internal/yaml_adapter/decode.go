package yaml_adapter

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/param"
	"gopkg.in/yaml.v3"
)

const (
	tagParam = "!" + param.TagParam
	tagJob   = "!" + param.TagJob
)

type document struct {
	Name      string       `yaml:"name"`
	Done      string       `yaml:"done"`
	Key       string       `yaml:"key"`
	Namespace string       `yaml:"namespace"`
	Lifetime  yaml.Node    `yaml:"lifetime"`
	Channels  []channelDoc `yaml:"channels"`
	Jobs      yaml.Node    `yaml:"jobs"`
}

type channelDoc struct {
	Visibility string `yaml:"visibility"`
	Route      string `yaml:"route"`
}

type jobDoc struct {
	Type   string    `yaml:"type"`
	Params yaml.Node `yaml:"params"`
}

// Decode parses a YAML chain file. name is used when the file does not set
// its own.
func Decode(ctx context.Context, name, filename string, src []byte) (*graph.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding YAML chain file.", "file", filename)

	if len(bytes.TrimSpace(src)) == 0 {
		return nil, fmt.Errorf("%s: chain file is empty", filename)
	}
	var doc document
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", filename, err)
	}

	opts := graph.Options{
		Name:      name,
		Done:      doc.Done,
		Key:       doc.Key,
		Namespace: doc.Namespace,
	}
	if doc.Name != "" {
		opts.Name = doc.Name
	}
	if doc.Lifetime.Kind != 0 {
		lifetime, err := decodeLifetime(&doc.Lifetime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		opts.Lifetime = lifetime
	}
	for _, ch := range doc.Channels {
		opts.Channels = append(opts.Channels, graph.Channel{Visibility: ch.Visibility, Route: ch.Route})
	}

	jobs, err := decodeJobs(&doc.Jobs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	def, err := graph.New(opts, jobs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	logger.Debug("YAML chain decoded.", "chain", def.Name(), "jobs", len(jobs))
	return def, nil
}

func decodeJobs(n *yaml.Node) ([]*graph.JobSpec, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: jobs must be a mapping of job id to job", n.Line)
	}

	jobs := make([]*graph.JobSpec, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		id := keyNode.Value

		var jd jobDoc
		if err := valNode.Decode(&jd); err != nil {
			return nil, fmt.Errorf("job %q: %w", id, err)
		}
		spec := &graph.JobSpec{ID: id, Type: jd.Type}
		if jd.Params.Kind != 0 && jd.Params.ShortTag() != "!!null" {
			v, err := nodeToValue(&jd.Params)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", id, err)
			}
			m, ok := v.(param.Mapping)
			if !ok {
				return nil, fmt.Errorf("job %q: params must be a mapping", id)
			}
			spec.Params = m
		}
		jobs = append(jobs, spec)
	}
	return jobs, nil
}

// nodeToValue converts a YAML node into a parameter tree. Tagged scalars
// become placeholders.
func nodeToValue(n *yaml.Node) (param.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeToValue(n.Alias)

	case yaml.ScalarNode:
		switch n.Tag {
		case tagParam:
			return param.ParseInputTag(n.Value)
		case tagJob:
			return param.ParseJobTag(n.Value)
		}
		return scalarLiteral(n)

	case yaml.MappingNode:
		if err := rejectTag(n); err != nil {
			return nil, err
		}
		m := make(param.Mapping, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			v, err := nodeToValue(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", keyNode.Value, err)
			}
			m = m.Set(keyNode.Value, v)
		}
		return m, nil

	case yaml.SequenceNode:
		if err := rejectTag(n); err != nil {
			return nil, err
		}
		seq := make(param.Sequence, 0, len(n.Content))
		for i, item := range n.Content {
			v, err := nodeToValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq = append(seq, v)
		}
		return seq, nil

	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

func rejectTag(n *yaml.Node) error {
	if n.Tag == tagParam || n.Tag == tagJob {
		return fmt.Errorf("line %d: tag %s must be applied to a scalar", n.Line, n.Tag)
	}
	return nil
}

func scalarLiteral(n *yaml.Node) (param.Value, error) {
	switch n.ShortTag() {
	case "!!str", "!!timestamp", "!!binary":
		return param.Literal{V: n.Value}, nil
	case "!!null":
		return param.Literal{V: nil}, nil
	case "!!int", "!!float", "!!bool":
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return param.Literal{V: v}, nil
	default:
		return nil, fmt.Errorf("line %d: unhandled tag %s with value %q", n.Line, n.Tag, n.Value)
	}
}

// decodeLifetime accepts a number of seconds or a duration string.
func decodeLifetime(n *yaml.Node) (time.Duration, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: lifetime must be seconds or a duration string", n.Line)
	}
	if n.ShortTag() == "!!int" {
		secs, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid lifetime: %w", err)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(n.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime: %w", err)
	}
	return d, nil
}

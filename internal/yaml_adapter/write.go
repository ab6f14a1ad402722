package yaml_adapter

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/param"
	"gopkg.in/yaml.v3"
)

// Write renders def as a YAML chain file that Decode reads back to an
// equivalent definition.
func Write(def *graph.Definition) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	addString(root, "name", def.Name())
	addString(root, "done", def.Done())
	if def.Key() != "" {
		addString(root, "key", def.Key())
	}
	if def.Namespace() != "" {
		addString(root, "namespace", def.Namespace())
	}
	if def.Lifetime() > 0 {
		secs := strconv.FormatInt(int64(def.Lifetime().Seconds()), 10)
		root.Content = append(root.Content, keyNode("lifetime"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: secs})
	}

	if channels := def.Channels(); len(channels) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, ch := range channels {
			item := &yaml.Node{Kind: yaml.MappingNode}
			addString(item, "visibility", ch.Visibility)
			addString(item, "route", ch.Route)
			seq.Content = append(seq.Content, item)
		}
		root.Content = append(root.Content, keyNode("channels"), seq)
	}

	jobs := &yaml.Node{Kind: yaml.MappingNode}
	for _, job := range def.Jobs() {
		jn := &yaml.Node{Kind: yaml.MappingNode}
		addString(jn, "type", job.Type)
		if len(job.Params) > 0 {
			pn, err := valueNode(job.Params)
			if err != nil {
				return nil, fmt.Errorf("job %q: %w", job.ID, err)
			}
			jn.Content = append(jn.Content, keyNode("params"), pn)
		}
		jobs.Content = append(jobs.Content, keyNode(job.ID), jn)
	}
	root.Content = append(root.Content, keyNode("jobs"), jobs)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode chain %q: %w", def.Name(), err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func valueNode(v param.Value) (*yaml.Node, error) {
	switch t := v.(type) {
	case param.Literal:
		n := &yaml.Node{}
		if err := n.Encode(t.V); err != nil {
			return nil, err
		}
		return n, nil

	case param.InputRef:
		body := t.Name
		if t.HasDefault {
			body += " " + fmt.Sprint(t.Default)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagParam, Value: body}, nil

	case param.JobRef:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagJob, Value: t.String()}, nil

	case param.Mapping:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range t {
			child, err := valueNode(e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			n.Content = append(n.Content, keyNode(e.Key), child)
		}
		return n, nil

	case param.Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for i, item := range t {
			child, err := valueNode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			n.Content = append(n.Content, child)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("unsupported parameter value %T", v)
	}
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func addString(m *yaml.Node, key, value string) {
	m.Content = append(m.Content, keyNode(key), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
}

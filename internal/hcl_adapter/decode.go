package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/param"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// fileRoot is the top level of a chain file.
type fileRoot struct {
	Name      string          `hcl:"name,optional"`
	Done      string          `hcl:"done,optional"`
	Key       string          `hcl:"key,optional"`
	Namespace string          `hcl:"namespace,optional"`
	Lifetime  hcl.Expression  `hcl:"lifetime,optional"`
	Channels  []*channelBlock `hcl:"channel,block"`
	Jobs      []*jobBlock     `hcl:"job,block"`
}

type channelBlock struct {
	Visibility string `hcl:"visibility,optional"`
	Route      string `hcl:"route"`
}

type jobBlock struct {
	ID     string         `hcl:"id,label"`
	Type   string         `hcl:"type"`
	Params hcl.Expression `hcl:"params,optional"`
}

// Decode parses an HCL chain file. name is used when the file does not set
// its own.
func Decode(ctx context.Context, name, filename string, src []byte) (*graph.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding HCL chain file.", "file", filename)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	opts := graph.Options{
		Name:      name,
		Done:      root.Done,
		Key:       root.Key,
		Namespace: root.Namespace,
	}
	if root.Name != "" {
		opts.Name = root.Name
	}
	if isExprDefined(ctx, root.Lifetime, "lifetime") {
		lifetime, err := decodeLifetime(root.Lifetime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		opts.Lifetime = lifetime
	}
	for _, ch := range root.Channels {
		opts.Channels = append(opts.Channels, graph.Channel{Visibility: ch.Visibility, Route: ch.Route})
	}

	jobs := make([]*graph.JobSpec, 0, len(root.Jobs))
	for _, jb := range root.Jobs {
		spec := &graph.JobSpec{ID: jb.ID, Type: jb.Type}
		if isExprDefined(ctx, jb.Params, "params") {
			v, err := exprToValue(jb.Params)
			if err != nil {
				return nil, fmt.Errorf("%s: job %q: %w", filename, jb.ID, err)
			}
			m, ok := v.(param.Mapping)
			if !ok {
				return nil, fmt.Errorf("%s: job %q: params must be an object", filename, jb.ID)
			}
			spec.Params = m
		}
		jobs = append(jobs, spec)
	}

	def, err := graph.New(opts, jobs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	logger.Debug("HCL chain decoded.", "chain", def.Name(), "jobs", len(jobs))
	return def, nil
}

// decodeLifetime accepts a number of seconds or a duration string.
func decodeLifetime(expr hcl.Expression) (time.Duration, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, fmt.Errorf("invalid lifetime: %w", diags)
	}
	switch val.Type() {
	case cty.Number:
		var secs int64
		if err := gocty.FromCtyValue(val, &secs); err != nil {
			return 0, fmt.Errorf("lifetime must be a whole number of seconds: %w", err)
		}
		return time.Duration(secs) * time.Second, nil
	default:
		str, err := convert.Convert(val, cty.String)
		if err != nil || str.IsNull() {
			return 0, fmt.Errorf("lifetime must be seconds or a duration string")
		}
		d, err := time.ParseDuration(str.AsString())
		if err != nil {
			return 0, fmt.Errorf("invalid lifetime: %w", err)
		}
		return d, nil
	}
}

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional fields with zero-width
// expression objects, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	isDefined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

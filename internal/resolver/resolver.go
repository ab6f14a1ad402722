// Package resolver substitutes the placeholders of a job's parameter tree
// with concrete values: run inputs for InputRef, stored upstream responses
// for JobRef.
package resolver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/param"
)

// Responses gives access to the stored responses of a run.
type Responses interface {
	Response(ctx context.Context, jobID string) (any, bool, error)
}

// MissingInputError reports a required run input that is neither supplied
// nor defaulted.
type MissingInputError struct {
	Name  string
	JobID string
}

func (e *MissingInputError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("missing required input %q", e.Name)
	}
	return fmt.Sprintf("job %q: missing required input %q", e.JobID, e.Name)
}

// UnresolvedJobRefError reports a JobRef whose upstream job has no stored
// response. The scheduler only hands over jobs whose dependencies all
// responded, so seeing this is a bug.
type UnresolvedJobRefError struct {
	JobID string
	Ref   string
}

func (e *UnresolvedJobRefError) Error() string {
	return fmt.Sprintf("job %q: reference %q has no stored response", e.JobID, e.Ref)
}

// Resolve returns the fully substituted parameters of job.
func Resolve(ctx context.Context, job *graph.JobSpec, inputs map[string]any, responses Responses) (map[string]any, error) {
	out := make(map[string]any, len(job.Params))
	for _, e := range job.Params {
		v, err := ResolveValue(ctx, job.ID, e.Value, inputs, responses)
		if err != nil {
			return nil, err
		}
		out[e.Key] = v
	}
	return out, nil
}

// ResolveValue resolves a single parameter tree on behalf of jobID.
func ResolveValue(ctx context.Context, jobID string, v param.Value, inputs map[string]any, responses Responses) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case param.Literal:
		return t.V, nil
	case param.InputRef:
		return resolveInput(jobID, t, inputs)
	case param.JobRef:
		resp, ok, err := responses.Response(ctx, t.JobID)
		if err != nil {
			return nil, fmt.Errorf("job %q: read response of %q: %w", jobID, t.JobID, err)
		}
		if !ok {
			return nil, &UnresolvedJobRefError{JobID: jobID, Ref: t.String()}
		}
		return Project(resp, t.Path), nil
	case param.Mapping:
		m := make(map[string]any, len(t))
		for _, e := range t {
			r, err := ResolveValue(ctx, jobID, e.Value, inputs, responses)
			if err != nil {
				return nil, err
			}
			m[e.Key] = r
		}
		return m, nil
	case param.Sequence:
		s := make([]any, len(t))
		for i, item := range t {
			r, err := ResolveValue(ctx, jobID, item, inputs, responses)
			if err != nil {
				return nil, err
			}
			s[i] = r
		}
		return s, nil
	default:
		return nil, fmt.Errorf("job %q: unsupported parameter value %T", jobID, v)
	}
}

func resolveInput(jobID string, ref param.InputRef, inputs map[string]any) (any, error) {
	if v, ok := inputs[ref.Name]; ok {
		return v, nil
	}
	if ref.HasDefault {
		return ref.Default, nil
	}
	return nil, &MissingInputError{Name: ref.Name, JobID: jobID}
}

// CheckInputs verifies that every InputRef of job can be satisfied, without
// touching any stored response. It returns the first unmet input.
func CheckInputs(job *graph.JobSpec, inputs map[string]any) error {
	for _, ref := range param.InputRefs(job.Params) {
		if _, err := resolveInput(job.ID, ref, inputs); err != nil {
			return err
		}
	}
	return nil
}

// Project walks value along path. Maps are indexed by key and slices by
// decimal index; any missing segment yields nil.
func Project(value any, path []string) any {
	cur := value
	for _, seg := range path {
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[seg]
			if !ok {
				return nil
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil
			}
			cur = c[i]
		default:
			return nil
		}
	}
	return cur
}

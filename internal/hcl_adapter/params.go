package hcl_adapter

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/jobchain/internal/param"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

const (
	rootParam = "param"
	rootJob   = "job"
)

// exprToValue decides the parameter variant of expr from its syntax.
func exprToValue(expr hcl.Expression) (param.Value, error) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		m := make(param.Mapping, 0, len(e.Items))
		for _, item := range e.Items {
			key, err := objectKey(item.KeyExpr)
			if err != nil {
				return nil, err
			}
			v, err := exprToValue(item.ValueExpr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			m = append(m, param.Entry{Key: key, Value: v})
		}
		return m, nil

	case *hclsyntax.TupleConsExpr:
		seq := make(param.Sequence, 0, len(e.Exprs))
		for i, item := range e.Exprs {
			v, err := exprToValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq = append(seq, v)
		}
		return seq, nil

	case *hclsyntax.ScopeTraversalExpr:
		switch e.Traversal.RootName() {
		case rootParam:
			return inputFromTraversal(e.Traversal)
		case rootJob:
			return jobFromTraversal(e.Traversal)
		}

	case *hclsyntax.FunctionCallExpr:
		switch e.Name {
		case rootParam:
			return inputFromCall(e)
		case rootJob:
			return jobFromCall(e)
		}

	case *hclsyntax.ParenthesesExpr:
		return exprToValue(e.Expression)
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("only constants, param and job references are allowed: %w", diags)
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, err
	}
	return param.Literal{V: native}, nil
}

func objectKey(expr hclsyntax.Expression) (string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("invalid object key: %w", diags)
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil || str.IsNull() || !str.IsKnown() {
		return "", fmt.Errorf("object keys must be strings")
	}
	return str.AsString(), nil
}

// traversalPath renders the steps after the root as path segments.
func traversalPath(t hcl.Traversal) ([]string, error) {
	var path []string
	for _, step := range t[1:] {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			path = append(path, s.Name)
		case hcl.TraverseIndex:
			str, err := convert.Convert(s.Key, cty.String)
			if err != nil || str.IsNull() {
				return nil, fmt.Errorf("unsupported index in reference")
			}
			path = append(path, str.AsString())
		default:
			return nil, fmt.Errorf("unsupported step in reference")
		}
	}
	return path, nil
}

func inputFromTraversal(t hcl.Traversal) (param.Value, error) {
	path, err := traversalPath(t)
	if err != nil {
		return nil, err
	}
	if len(path) != 1 {
		return nil, fmt.Errorf("param reference must be param.<name>")
	}
	return param.InputRef{Name: path[0]}, nil
}

func jobFromTraversal(t hcl.Traversal) (param.Value, error) {
	path, err := traversalPath(t)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("job reference must name a job")
	}
	return param.JobRef{JobID: path[0], Path: path[1:]}, nil
}

func stringArg(e hclsyntax.Expression, what string) (string, error) {
	val, diags := e.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("%s must be a constant string: %w", what, diags)
	}
	if val.IsNull() || val.Type() != cty.String {
		return "", fmt.Errorf("%s must be a string", what)
	}
	return val.AsString(), nil
}

func inputFromCall(e *hclsyntax.FunctionCallExpr) (param.Value, error) {
	if len(e.Args) < 1 || len(e.Args) > 2 {
		return nil, fmt.Errorf("param() takes a name and an optional default")
	}
	name, err := stringArg(e.Args[0], "param name")
	if err != nil {
		return nil, err
	}
	ref := param.InputRef{Name: strings.TrimSpace(name)}
	if ref.Name == "" {
		return nil, fmt.Errorf("param name is empty")
	}
	if len(e.Args) == 2 {
		val, diags := e.Args[1].Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("param %q: default must be a constant: %w", ref.Name, diags)
		}
		def, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", ref.Name, err)
		}
		ref.Default, ref.HasDefault = def, true
	}
	return ref, nil
}

func jobFromCall(e *hclsyntax.FunctionCallExpr) (param.Value, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("job() takes a single reference")
	}
	body, err := stringArg(e.Args[0], "job reference")
	if err != nil {
		return nil, err
	}
	return param.ParseJobTag(body)
}

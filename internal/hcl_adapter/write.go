package hcl_adapter

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/param"
	"github.com/zclconf/go-cty/cty"
)

// Write renders def as an HCL chain file that Decode reads back to an
// equivalent definition.
func Write(def *graph.Definition) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("name", cty.StringVal(def.Name()))
	body.SetAttributeValue("done", cty.StringVal(def.Done()))
	if def.Key() != "" {
		body.SetAttributeValue("key", cty.StringVal(def.Key()))
	}
	if def.Namespace() != "" {
		body.SetAttributeValue("namespace", cty.StringVal(def.Namespace()))
	}
	if def.Lifetime() > 0 {
		body.SetAttributeValue("lifetime", cty.NumberIntVal(int64(def.Lifetime().Seconds())))
	}

	for _, ch := range def.Channels() {
		body.AppendNewline()
		cb := body.AppendNewBlock("channel", nil).Body()
		cb.SetAttributeValue("visibility", cty.StringVal(ch.Visibility))
		cb.SetAttributeValue("route", cty.StringVal(ch.Route))
	}

	for _, job := range def.Jobs() {
		body.AppendNewline()
		jb := body.AppendNewBlock("job", []string{job.ID}).Body()
		jb.SetAttributeValue("type", cty.StringVal(job.Type))
		if len(job.Params) == 0 {
			continue
		}
		toks, err := valueTokens(job.Params)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", job.ID, err)
		}
		jb.SetAttributeRaw("params", toks)
	}

	return hclwrite.Format(f.Bytes()), nil
}

func valueTokens(v param.Value) (hclwrite.Tokens, error) {
	switch t := v.(type) {
	case param.Literal:
		cv, err := nativeToCty(t.V)
		if err != nil {
			return nil, err
		}
		return hclwrite.TokensForValue(cv), nil

	case param.InputRef:
		args := []hclwrite.Tokens{hclwrite.TokensForValue(cty.StringVal(t.Name))}
		if t.HasDefault {
			cv, err := nativeToCty(t.Default)
			if err != nil {
				return nil, err
			}
			args = append(args, hclwrite.TokensForValue(cv))
		}
		return hclwrite.TokensForFunctionCall(rootParam, args...), nil

	case param.JobRef:
		return hclwrite.TokensForFunctionCall(rootJob, hclwrite.TokensForValue(cty.StringVal(t.String()))), nil

	case param.Mapping:
		attrs := make([]hclwrite.ObjectAttrTokens, 0, len(t))
		for _, e := range t {
			valToks, err := valueTokens(e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			attrs = append(attrs, hclwrite.ObjectAttrTokens{Name: keyTokens(e.Key), Value: valToks})
		}
		return hclwrite.TokensForObject(attrs), nil

	case param.Sequence:
		elems := make([]hclwrite.Tokens, 0, len(t))
		for _, item := range t {
			toks, err := valueTokens(item)
			if err != nil {
				return nil, err
			}
			elems = append(elems, toks)
		}
		return hclwrite.TokensForTuple(elems), nil

	default:
		return nil, fmt.Errorf("unsupported parameter value %T", v)
	}
}

func keyTokens(key string) hclwrite.Tokens {
	if hclsyntax.ValidIdentifier(key) && !strings.ContainsAny(key, ".") {
		return hclwrite.TokensForIdentifier(key)
	}
	return hclwrite.TokensForValue(cty.StringVal(key))
}

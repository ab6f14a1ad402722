package param

// Walk visits v and every value nested inside it, depth first, in declared
// order. Returning false from fn stops the walk.
func Walk(v Value, fn func(Value) bool) bool {
	if v == nil {
		return true
	}
	if !fn(v) {
		return false
	}
	switch t := v.(type) {
	case Mapping:
		for _, e := range t {
			if !Walk(e.Value, fn) {
				return false
			}
		}
	case Sequence:
		for _, item := range t {
			if !Walk(item, fn) {
				return false
			}
		}
	}
	return true
}

// JobRefs returns every JobRef nested in v, in declared order.
func JobRefs(v Value) []JobRef {
	var refs []JobRef
	Walk(v, func(n Value) bool {
		if ref, ok := n.(JobRef); ok {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

// InputRefs returns every InputRef nested in v, in declared order.
func InputRefs(v Value) []InputRef {
	var refs []InputRef
	Walk(v, func(n Value) bool {
		if ref, ok := n.(InputRef); ok {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

// Clone returns a deep copy of v. Plain maps and slices inside literals and
// defaults are copied too.
func Clone(v Value) Value {
	switch t := v.(type) {
	case Literal:
		return Literal{V: cloneAny(t.V)}
	case InputRef:
		t.Default = cloneAny(t.Default)
		return t
	case JobRef:
		if t.Path != nil {
			t.Path = append([]string(nil), t.Path...)
		}
		return t
	case Mapping:
		return t.Clone()
	case Sequence:
		if t == nil {
			return Sequence(nil)
		}
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of m.
func (m Mapping) Clone() Mapping {
	if m == nil {
		return nil
	}
	out := make(Mapping, len(m))
	for i, e := range m {
		out[i] = Entry{Key: e.Key, Value: Clone(e.Value)}
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneAny(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneAny(x)
		}
		return out
	default:
		return v
	}
}

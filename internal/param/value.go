// Package param defines the parameter templates of a job. A parameter is a
// closed tagged union decided once, when a chain definition is parsed:
// a Literal, a reference to a run input (InputRef), a reference to another
// job's response (JobRef), or a Mapping/Sequence nesting any of them.
package param

// Value is one node of a parameter tree. The set of implementations is
// closed; the unexported marker keeps other packages from adding variants.
type Value interface {
	isValue()
}

// Literal is a constant: a scalar, or a plain map[string]any / []any.
type Literal struct {
	V any
}

// InputRef is resolved from the run inputs, falling back to Default when
// HasDefault is set.
type InputRef struct {
	Name       string
	Default    any
	HasDefault bool
}

// JobRef is resolved from the stored response of JobID, projected through
// Path when it is non-empty.
type JobRef struct {
	JobID string
	Path  []string
}

// Entry is one key of a Mapping.
type Entry struct {
	Key   string
	Value Value
}

// Mapping is an ordered map of parameter values.
type Mapping []Entry

// Sequence is a list of parameter values.
type Sequence []Value

func (Literal) isValue()  {}
func (InputRef) isValue() {}
func (JobRef) isValue()   {}
func (Mapping) isValue()  {}
func (Sequence) isValue() {}

// Get returns the value stored under key.
func (m Mapping) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in declared order.
func (m Mapping) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// Set replaces the value under key, or appends it.
func (m Mapping) Set(key string, v Value) Mapping {
	for i, e := range m {
		if e.Key == key {
			m[i].Value = v
			return m
		}
	}
	return append(m, Entry{Key: key, Value: v})
}

// String renders a JobRef in tag form, e.g. "jobOne.a.b".
func (r JobRef) String() string {
	s := r.JobID
	for _, p := range r.Path {
		s += "." + p
	}
	return s
}

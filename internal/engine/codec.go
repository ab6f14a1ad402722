package engine

import (
	"bytes"
	"encoding/json"
)

// decodeJSON unmarshals a stored record. Numbers in untyped values come back
// as json.Number; run them through normalizeNumbers.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// normalizeNumbers replaces every json.Number inside v with an int64 when it
// is an integer that fits, a float64 otherwise. Numbers out of float64 range
// stay as their decimal text.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, x := range t {
			t[k] = normalizeNumbers(x)
		}
		return t
	case []any:
		for i, x := range t {
			t[i] = normalizeNumbers(x)
		}
		return t
	default:
		return v
	}
}

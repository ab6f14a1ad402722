// Package runkey builds the run-scoped keys under which every piece of chain
// state is stored. Two runs never share a key, whether they execute the same
// chain or different ones.
package runkey

import (
	"fmt"
	"strings"
)

// Prefix is the fixed namespace at the head of every key.
const Prefix = "job-chain"

const separator = "."

// InvalidKeyError reports a suffix requested without a component key.
type InvalidKeyError struct {
	Suffix string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("cannot set suffix %q without a component key", e.Suffix)
}

// Build joins the prefix, run id, component and suffix, skipping empty parts.
func Build(runID, component, suffix string) (string, error) {
	if suffix != "" && component == "" {
		return "", &InvalidKeyError{Suffix: suffix}
	}

	parts := make([]string, 0, 4)
	for _, p := range []string{Prefix, runID, component, suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, separator), nil
}

// Keyer is bound to a single run.
type Keyer struct {
	runID string
}

// For returns a Keyer for the given run.
func For(runID string) Keyer {
	return Keyer{runID: runID}
}

// Key returns the run-scoped key. A suffix without a component is a
// programming error and panics with *InvalidKeyError.
func (k Keyer) Key(component, suffix string) string {
	key, err := Build(k.runID, component, suffix)
	if err != nil {
		panic(err)
	}
	return key
}

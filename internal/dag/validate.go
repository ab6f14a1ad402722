package dag

import (
	"errors"
	"fmt"

	"github.com/vk/jobchain/internal/graph"
)

// UnknownJobError reports a JobRef naming a job the chain does not declare.
type UnknownJobError struct {
	JobID string
	Ref   string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("job %q references undeclared job %q", e.JobID, e.Ref)
}

// SelfReferenceError reports a job whose params reference itself.
type SelfReferenceError struct {
	JobID string
}

func (e *SelfReferenceError) Error() string {
	return fmt.Sprintf("job %q references itself", e.JobID)
}

// FromDefinition builds the dependency graph implied by def's JobRefs.
func FromDefinition(def *graph.Definition) (*Graph, error) {
	g := New()
	for _, id := range def.JobIDs() {
		g.AddNode(id)
	}

	var errs []error
	for _, id := range def.JobIDs() {
		for _, dep := range def.Dependencies(id) {
			if dep == id {
				errs = append(errs, &SelfReferenceError{JobID: id})
				continue
			}
			if def.Position(dep) < 0 {
				errs = append(errs, &UnknownJobError{JobID: id, Ref: dep})
				continue
			}
			if err := g.AddEdge(dep, id); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// Report describes a chain that passed validation.
type Report struct {
	Order  []string // dependencies before dependents, ties in declared order
	Jobs   int
	Unread []string // non-terminal jobs whose response no job reads
}

// Inspect validates def like Validate and describes the resulting graph.
func Inspect(def *graph.Definition) (*Report, error) {
	g, err := FromDefinition(def)
	if err != nil {
		return nil, fmt.Errorf("chain %q: %w", def.Name(), err)
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("chain %q: %w", def.Name(), err)
	}

	rep := &Report{Order: order, Jobs: g.Len()}
	for _, id := range def.JobIDs() {
		if id == def.Done() {
			continue
		}
		dependents, err := g.Dependents(id)
		if err != nil {
			return nil, err
		}
		if len(dependents) == 0 {
			rep.Unread = append(rep.Unread, id)
		}
	}
	return rep, nil
}

// Validate rejects definitions with unknown references, self-references or
// cycles, and returns a dispatch-compatible job order otherwise.
func Validate(def *graph.Definition) ([]string, error) {
	rep, err := Inspect(def)
	if err != nil {
		return nil, err
	}
	return rep.Order, nil
}

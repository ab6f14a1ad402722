package graph

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/vk/jobchain/internal/param"
)

// Channel visibilities.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

var jobIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// JobSpec describes one job of a chain.
type JobSpec struct {
	ID     string
	Type   string
	Params param.Mapping
}

// Clone returns a deep copy of j.
func (j *JobSpec) Clone() *JobSpec {
	return &JobSpec{ID: j.ID, Type: j.Type, Params: j.Params.Clone()}
}

// Channel is a notification route declared by a chain. Route may contain the
// {user} placeholder.
type Channel struct {
	Visibility string
	Route      string
}

// Options carries the chain-level settings of a Definition.
type Options struct {
	Name      string
	Done      string
	Key       string
	Namespace string
	Lifetime  time.Duration
	Channels  []Channel
}

// Definition is an immutable chain graph. Accessors hand out copies.
type Definition struct {
	name      string
	jobs      []*JobSpec
	index     map[string]int
	done      string
	key       string
	namespace string
	lifetime  time.Duration
	channels  []Channel
}

// New validates and builds a Definition. Jobs keep the order they are given
// in; the terminal job defaults to the last one.
func New(opts Options, jobs ...*JobSpec) (*Definition, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("chain %q declares no jobs", opts.Name)
	}
	if opts.Lifetime < 0 {
		return nil, fmt.Errorf("chain %q has a negative lifetime", opts.Name)
	}

	def := &Definition{
		name:      opts.Name,
		index:     make(map[string]int, len(jobs)),
		key:       opts.Key,
		namespace: strings.Trim(opts.Namespace, ". \t\n\r\v\x00"),
		lifetime:  opts.Lifetime,
	}

	for i, job := range jobs {
		if job == nil {
			return nil, fmt.Errorf("chain %q: job at position %d is nil", opts.Name, i)
		}
		if !jobIDRegex.MatchString(job.ID) {
			return nil, fmt.Errorf("chain %q: invalid job id %q", opts.Name, job.ID)
		}
		if _, exists := def.index[job.ID]; exists {
			return nil, fmt.Errorf("chain %q: duplicate job id %q", opts.Name, job.ID)
		}
		if job.Type == "" {
			return nil, fmt.Errorf("chain %q: job %q has no type", opts.Name, job.ID)
		}
		def.index[job.ID] = i
		def.jobs = append(def.jobs, job.Clone())
	}

	def.done = opts.Done
	if def.done == "" {
		def.done = jobs[len(jobs)-1].ID
	}
	if _, ok := def.index[def.done]; !ok {
		return nil, fmt.Errorf("chain %q: terminal job %q is not declared", opts.Name, def.done)
	}

	for _, ch := range opts.Channels {
		switch ch.Visibility {
		case "":
			ch.Visibility = VisibilityPrivate
		case VisibilityPrivate, VisibilityPublic:
		default:
			return nil, fmt.Errorf("chain %q: unknown channel visibility %q", opts.Name, ch.Visibility)
		}
		def.channels = append(def.channels, ch)
	}

	return def, nil
}

// Name returns the chain name.
func (d *Definition) Name() string { return d.name }

// Done returns the id of the terminal job.
func (d *Definition) Done() string { return d.done }

// Key returns the run-correlation seed, which may be empty.
func (d *Definition) Key() string { return d.key }

// Namespace returns the prefix applied to every job type.
func (d *Definition) Namespace() string { return d.namespace }

// Lifetime returns the chain's TTL override, zero when unset.
func (d *Definition) Lifetime() time.Duration { return d.lifetime }

// Channels returns the declared notification routes.
func (d *Definition) Channels() []Channel { return slices.Clone(d.channels) }

// Jobs returns copies of the jobs in declared order.
func (d *Definition) Jobs() []*JobSpec {
	jobs := make([]*JobSpec, len(d.jobs))
	for i, j := range d.jobs {
		jobs[i] = j.Clone()
	}
	return jobs
}

// JobIDs returns the job ids in declared order.
func (d *Definition) JobIDs() []string {
	ids := make([]string, len(d.jobs))
	for i, j := range d.jobs {
		ids[i] = j.ID
	}
	return ids
}

// Job returns a copy of the job with the given id.
func (d *Definition) Job(id string) (*JobSpec, bool) {
	job, ok := d.job(id)
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// HasJob reports whether id is declared.
func (d *Definition) HasJob(id string) bool {
	_, ok := d.index[id]
	return ok
}

func (d *Definition) job(id string) (*JobSpec, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.jobs[i], true
}

// Position returns the declared index of a job, or -1.
func (d *Definition) Position(id string) int {
	if i, ok := d.index[id]; ok {
		return i
	}
	return -1
}

// Target returns the executor type of a job with the namespace applied.
func (d *Definition) Target(id string) string {
	job, ok := d.job(id)
	if !ok {
		return ""
	}
	if d.namespace == "" {
		return job.Type
	}
	return d.namespace + "." + job.Type
}

// Dependencies returns the distinct job ids referenced by a job's params, in
// the order they first appear.
func (d *Definition) Dependencies(id string) []string {
	job, ok := d.job(id)
	if !ok {
		return nil
	}
	var deps []string
	for _, ref := range param.JobRefs(job.Params) {
		if !slices.Contains(deps, ref.JobID) {
			deps = append(deps, ref.JobID)
		}
	}
	return deps
}

// IsRoot reports whether a job has no JobRef dependency.
func (d *Definition) IsRoot(id string) bool {
	job, ok := d.job(id)
	return ok && len(param.JobRefs(job.Params)) == 0
}

// Params lists the distinct run input names referenced anywhere in the chain.
func (d *Definition) Params() []string {
	var names []string
	for _, job := range d.jobs {
		for _, ref := range param.InputRefs(job.Params) {
			if !slices.Contains(names, ref.Name) {
				names = append(names, ref.Name)
			}
		}
	}
	return names
}

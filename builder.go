// Copyright 2024, dawgz-go.

package dawgz

import (
	"github.com/dawgz-go/dawgz/job"
)

// JobRef is an opaque handle to a job registered with a Builder. Only
// methods on JobRef and Builder can attach dependencies or predicates,
// which rules out attaching to a job that was never registered - there is
// no string-typo failure mode the way there is with bare job ids.
type JobRef struct {
	id string
	b  *Builder
}

// Builder accumulates jobs and edges before Schedule freezes them into a
// graph.Workflow. A Builder is not safe for concurrent use; build the whole
// workflow from a single goroutine, then call Schedule.
type Builder struct {
	jobs  map[string]*job.Job
	order []string
	edges []job.Edge
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{jobs: map[string]*job.Job{}}
}

// JobOption configures a job at registration time.
type JobOption func(*job.Job)

// Array marks the job as an array of n independently indexed tasks.
func Array(n int) JobOption {
	return func(j *job.Job) { j.ArraySize = n }
}

// Throttle caps how many array indices a cluster backend runs concurrently.
func Throttle(k int) JobOption {
	return func(j *job.Job) { j.ArrayThrottle = k }
}

// WithResources attaches scheduler resource hints (cpus, ram, ...).
func WithResources(r job.Resources) JobOption {
	return func(j *job.Job) { j.Resources = r }
}

// Skip statically marks the job as completed without running its body.
func Skip() JobOption {
	return func(j *job.Job) { j.Skipped = true }
}

// Job registers a job named name with body as its Executable, returning a
// JobRef used to attach dependencies and predicates. Duplicate names are
// not rejected here; the conflict surfaces as dgerrors.DuplicateJob when
// Schedule freezes the graph.
func (b *Builder) Job(name string, body job.Executable, opts ...JobOption) JobRef {
	j := &job.Job{ID: name, Name: name, Body: body, ArraySize: 1, Join: job.JoinAll}
	for _, opt := range opts {
		opt(j)
	}
	if j.ArraySize < 1 {
		j.ArraySize = 1
	}

	b.order = append(b.order, name)
	b.jobs[name] = j

	return JobRef{id: name, b: b}
}

// After makes ref depend on pred: pred must reach a terminal state
// compatible with status before ref is considered for execution.
func (ref JobRef) After(pred JobRef, status job.EdgeStatus) JobRef {
	ref.b.edges = append(ref.b.edges, job.Edge{From: pred.id, To: ref.id, Status: status})
	return ref
}

// SetJoin sets how ref combines its incoming edges (default job.JoinAll).
func (ref JobRef) SetJoin(mode job.JoinMode) JobRef {
	if j, ok := ref.b.jobs[ref.id]; ok {
		j.Join = mode
	}
	return ref
}

// Require attaches a precondition: ref does not start until p holds.
func (ref JobRef) Require(p job.Predicate) JobRef {
	if j, ok := ref.b.jobs[ref.id]; ok {
		j.Preconditions = append(j.Preconditions, p)
	}
	return ref
}

// Ensure attaches a postcondition: used both to validate ref's outcome and,
// when pruning is enabled, to decide whether ref can be skipped entirely.
func (ref JobRef) Ensure(p job.Predicate) JobRef {
	if j, ok := ref.b.jobs[ref.id]; ok {
		j.Postconditions = append(j.Postconditions, p)
	}
	return ref
}

// ID returns the job id this ref points to, for callers that need to read
// a Result keyed by job id.
func (ref JobRef) ID() string { return ref.id }

// Copyright 2024, dawgz-go.

package graph

import (
	"sync"

	"github.com/dawgz-go/dawgz/dgerrors"
	"github.com/dawgz-go/dawgz/job"
)

type edgeKey struct {
	from, to string
}

// Builder accumulates jobs and edges before a graph is frozen. It's safe
// for concurrent use, mirroring the teacher's pattern of guarding shared
// build-time state with a single mutex rather than fine-grained locks.
type Builder struct {
	mu     sync.Mutex
	jobs   map[string]job.Job
	order  []string // insertion order, for deterministic iteration in tests/printing
	edges  map[edgeKey]job.Edge
	outAdj map[string][]job.Edge // from -> outgoing edges
	inAdj  map[string][]job.Edge // to -> incoming edges
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		jobs:   map[string]job.Job{},
		edges:  map[edgeKey]job.Edge{},
		outAdj: map[string][]job.Edge{},
		inAdj:  map[string][]job.Edge{},
	}
}

// AddJob adds j to the builder. Returns dgerrors.DuplicateJob if j.ID
// already exists, or the error from j.Validate() for a locally-invalid job.
func (b *Builder) AddJob(j job.Job) error {
	if err := j.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.jobs[j.ID]; ok {
		return dgerrors.DuplicateJob{JobID: j.ID}
	}
	b.jobs[j.ID] = j
	b.order = append(b.order, j.ID)
	return nil
}

// AddEdge declares that from must reach a terminal state compatible with
// status before to is considered runnable. Returns dgerrors.UnknownJob if
// either id is unknown, dgerrors.DuplicateEdge if this ordered pair was
// already declared, or dgerrors.CycleDetected if the edge would make a job
// reachable from itself.
func (b *Builder) AddEdge(from, to string, status job.EdgeStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.jobs[from]; !ok {
		return dgerrors.UnknownJob{JobID: from}
	}
	if _, ok := b.jobs[to]; !ok {
		return dgerrors.UnknownJob{JobID: to}
	}

	key := edgeKey{from, to}
	if _, ok := b.edges[key]; ok {
		return dgerrors.DuplicateEdge{From: from, To: to}
	}

	if from == to || b.reachableLocked(to)[from] {
		return dgerrors.CycleDetected{From: from, To: to}
	}

	e := job.Edge{From: from, To: to, Status: status}
	b.edges[key] = e
	b.outAdj[from] = append(b.outAdj[from], e)
	b.inAdj[to] = append(b.inAdj[to], e)
	return nil
}

// reachableLocked returns the set of job ids reachable from start by
// following outgoing edges, via DFS - grounded on the teacher's
// request-manager/graph hasCyclesDFS / connectedToLastNodeDFS traversal.
// Callers must hold b.mu.
func (b *Builder) reachableLocked(start string) map[string]bool {
	seen := map[string]bool{}
	stack := []string{start}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[n] {
			continue
		}
		seen[n] = true

		for _, e := range b.outAdj[n] {
			if !seen[e.To] {
				stack = append(stack, e.To)
			}
		}
	}

	return seen
}

// Freeze validates that every target exists and returns an immutable
// Workflow snapshot of the builder's current jobs and edges. The builder
// remains usable afterwards; each Freeze call yields an independent copy.
func (b *Builder) Freeze(targets ...string) (*Workflow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range targets {
		if _, ok := b.jobs[t]; !ok {
			return nil, dgerrors.UnknownTarget{JobID: t}
		}
	}

	jobs := make(map[string]job.Job, len(b.jobs))
	for k, v := range b.jobs {
		jobs[k] = v
	}

	return &Workflow{
		jobs:    jobs,
		outAdj:  copyAdjacency(b.outAdj),
		inAdj:   copyAdjacency(b.inAdj),
		targets: append([]string(nil), targets...),
	}, nil
}

func copyAdjacency(adj map[string][]job.Edge) map[string][]job.Edge {
	out := make(map[string][]job.Edge, len(adj))
	for k, v := range adj {
		out[k] = append([]job.Edge(nil), v...)
	}
	return out
}

// Workflow is an immutable, frozen graph: a set of jobs and the edges
// between them. Engines treat it as read-only for the duration of
// execution, per spec.md §5.
type Workflow struct {
	jobs    map[string]job.Job
	outAdj  map[string][]job.Edge
	inAdj   map[string][]job.Edge
	targets []string
}

// Job returns the job with the given id, and whether it exists.
func (w *Workflow) Job(id string) (job.Job, bool) {
	j, ok := w.jobs[id]
	return j, ok
}

// Jobs returns a copy of every job in the workflow, keyed by id.
func (w *Workflow) Jobs() map[string]job.Job {
	out := make(map[string]job.Job, len(w.jobs))
	for k, v := range w.jobs {
		out[k] = v
	}
	return out
}

// Targets returns the ids this workflow was frozen with.
func (w *Workflow) Targets() []string {
	return append([]string(nil), w.targets...)
}

// Outgoing returns the edges leaving jobID.
func (w *Workflow) Outgoing(jobID string) []job.Edge {
	return append([]job.Edge(nil), w.outAdj[jobID]...)
}

// Incoming returns the edges entering jobID.
func (w *Workflow) Incoming(jobID string) []job.Edge {
	return append([]job.Edge(nil), w.inAdj[jobID]...)
}

// Equal reports whether w and other have the same jobs and edges, ignoring
// map iteration order - used by the round-trip property in spec.md §8
// ("rebuilding the same graph twice yields equal Workflow values").
func (w *Workflow) Equal(other *Workflow) bool {
	if len(w.jobs) != len(other.jobs) {
		return false
	}
	for id, j := range w.jobs {
		oj, ok := other.jobs[id]
		if !ok || !jobsEqual(j, oj) {
			return false
		}
	}
	if len(w.outAdj) != len(other.outAdj) {
		return false
	}
	for id, edges := range w.outAdj {
		oe, ok := other.outAdj[id]
		if !ok || !edgeSetsEqual(edges, oe) {
			return false
		}
	}
	return true
}

func jobsEqual(a, b job.Job) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.ArraySize == b.ArraySize &&
		a.ArrayThrottle == b.ArrayThrottle &&
		a.Join == b.Join &&
		a.Skipped == b.Skipped &&
		len(a.Preconditions) == len(b.Preconditions) &&
		len(a.Postconditions) == len(b.Postconditions)
}

func edgeSetsEqual(a, b []job.Edge) bool {
	if len(a) != len(b) {
		return false
	}
	count := map[job.Edge]int{}
	for _, e := range a {
		count[e]++
	}
	for _, e := range b {
		count[e]--
	}
	for _, c := range count {
		if c != 0 {
			return false
		}
	}
	return true
}

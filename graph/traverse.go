// Copyright 2024, dawgz-go.

package graph

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/dawgz-go/dawgz/dgerrors"
	"github.com/dawgz-go/dawgz/job"
)

// TraverseOptions controls how Workflow.Traverse derives the active
// subgraph.
type TraverseOptions struct {
	// Prune enables the postcondition-based pruning pass of spec.md §4.2.
	Prune bool
}

// ActiveGraph is the subset of a Workflow reachable from a target
// selection, with pruning already applied if requested. Execution engines
// (package engine, package slurm) consume this, never a raw Workflow.
type ActiveGraph struct {
	Jobs   map[string]job.Job
	OutAdj map[string][]job.Edge
	InAdj  map[string][]job.Edge

	// Skipped marks jobs that are SKIPPED before execution starts, either
	// because job.Skipped was set by the caller or because pruning found
	// every postcondition already satisfied.
	Skipped map[string]bool

	// DroppedIndices holds, per array job id, the set of array indices
	// whose postconditions already held at pruning time. Absent or empty
	// for jobs that weren't pruned or aren't arrays.
	DroppedIndices map[string]map[int]bool

	Targets []string
}

// RunnableIndices returns the array indices of jobID that still need to
// run: every index for a non-array or unpruned job, minus any dropped by
// pruning. For a job marked Skipped, this is empty.
func (ag *ActiveGraph) RunnableIndices(jobID string) []int {
	j := ag.Jobs[jobID]
	if ag.Skipped[jobID] {
		return nil
	}

	dropped := ag.DroppedIndices[jobID]
	indices := make([]int, 0, j.ArraySize)
	for i := 0; i < j.ArraySize; i++ {
		if dropped == nil || !dropped[i] {
			indices = append(indices, i)
		}
	}
	return indices
}

// Traverse computes the active subgraph reachable from targets: the
// transitive closure of "to -> from" over edges (every ancestor of every
// target, including the targets themselves), per spec.md §4.2. When
// opts.Prune is set, postconditions are evaluated once per job, in
// declaration order, and jobs (or array indices) whose postconditions
// already hold are marked done without ever invoking their body.
func (w *Workflow) Traverse(ctx context.Context, targets []string, opts TraverseOptions) (*ActiveGraph, error) {
	for _, t := range targets {
		if _, ok := w.jobs[t]; !ok {
			return nil, dgerrors.UnknownTarget{JobID: t}
		}
	}

	reachable := w.ancestorsOf(targets)

	ag := &ActiveGraph{
		Jobs:           make(map[string]job.Job, len(reachable)),
		OutAdj:         make(map[string][]job.Edge, len(reachable)),
		InAdj:          make(map[string][]job.Edge, len(reachable)),
		Skipped:        map[string]bool{},
		DroppedIndices: map[string]map[int]bool{},
		Targets:        append([]string(nil), targets...),
	}

	for id := range reachable {
		j := w.jobs[id]
		ag.Jobs[id] = j
		if j.Skipped {
			ag.Skipped[id] = true
		}

		for _, e := range w.outAdj[id] {
			if reachable[e.To] {
				ag.OutAdj[id] = append(ag.OutAdj[id], e)
			}
		}
		for _, e := range w.inAdj[id] {
			if reachable[e.From] {
				ag.InAdj[id] = append(ag.InAdj[id], e)
			}
		}
	}

	if !opts.Prune {
		return ag, nil
	}

	for id, j := range ag.Jobs {
		if ag.Skipped[id] || len(j.Postconditions) == 0 {
			continue
		}
		prune(ctx, ag, id, j)
	}

	return ag, nil
}

// ancestorsOf returns the set of job ids reachable from targets by
// following edges backward (to -> from), including the targets
// themselves - grounded on the original Python dawgz's
// dfs(*jobs, backward=True) and the teacher's connectedToFirstNodeDFS walk.
func (w *Workflow) ancestorsOf(targets []string) map[string]bool {
	reachable := map[string]bool{}
	stack := append([]string(nil), targets...)

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reachable[n] {
			continue
		}
		reachable[n] = true

		for _, e := range w.inAdj[n] {
			if !reachable[e.From] {
				stack = append(stack, e.From)
			}
		}
	}

	return reachable
}

// prune evaluates j's postconditions exactly once (per spec.md's ordering
// guarantee) and marks ag accordingly: a scalar job whose postconditions
// all hold becomes Skipped; an array job drops any index whose
// postconditions hold, and becomes Skipped only if every index is dropped.
// A raised error is treated as "postcondition does not hold" and reported
// through the logger, without failing the pruning pass - the job is
// conservatively left live.
func prune(ctx context.Context, ag *ActiveGraph, id string, j job.Job) {
	logger := log.WithFields(log.Fields{"job_id": id})

	if !j.IsArray() {
		holds, predErr := evalPostconditions(ctx, id, j.Postconditions, 0)
		if predErr != nil {
			logger.WithError(predErr).Warn("postcondition raised during pruning; leaving job live")
			return
		}
		if holds {
			ag.Skipped[id] = true
		}
		return
	}

	dropped := map[int]bool{}
	for i := 0; i < j.ArraySize; i++ {
		holds, predErr := evalPostconditions(ctx, id, j.Postconditions, i)
		if predErr != nil {
			logger.WithFields(log.Fields{"index": i}).WithError(predErr).Warn("postcondition raised during pruning; leaving index live")
			continue
		}
		if holds {
			dropped[i] = true
		}
	}

	if len(dropped) > 0 {
		ag.DroppedIndices[id] = dropped
	}
	if len(dropped) == j.ArraySize {
		ag.Skipped[id] = true
	}
}

// evalPostconditions runs preds in order for the given index, stopping at
// the first false or error. A nil error with holds=false means a
// predicate legitimately returned false; a non-nil error means one raised.
// Both are treated identically by callers deciding whether to prune.
func evalPostconditions(ctx context.Context, jobID string, preds []job.Predicate, index int) (holds bool, predErr error) {
	for i, p := range preds {
		ok, err := p.Eval(ctx, index)
		if err != nil {
			return false, dgerrors.PostconditionViolated{JobID: jobID, PredicateIndex: i, Array: p.Array, TaskIndex: index, Cause: err}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

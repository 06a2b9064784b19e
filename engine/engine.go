// Copyright 2024, dawgz-go.

package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/dawgz-go/dawgz/dgerrors"
	"github.com/dawgz-go/dawgz/graph"
	"github.com/dawgz-go/dawgz/job"
	"github.com/dawgz-go/dawgz/sink"
)

// Options configures a single Run.
type Options struct {
	// Workers bounds how many job bodies may run concurrently. Defaults to
	// 16 if zero.
	Workers int

	// Sink receives lifecycle events. Defaults to a no-op sink if nil.
	Sink sink.Sink
}

// Result is what a Run produces: the live task-state table at quiescence and
// the aggregated errors, per spec.md §7's "surfaced as a single aggregated
// diagnostic event after quiescence" propagation policy.
type Result struct {
	RunID  string
	States map[string]map[int]job.TaskState
	Errors []error
}

// Run executes every task in ag to quiescence: gather -> join -> preconditions
// -> execute -> postconditions -> publish, per task, with one goroutine per
// job coordinating that job's array fan-out - grounded on
// job-runner/chain/traverser.go's runJobs goroutine-per-task loop, generalized
// from a single linear chain to the full join/array model. Cancelling ctx
// sets the workflow-wide cancellation the spec describes: tasks not yet
// executing transition to CANCELLED, running tasks are allowed to finish and
// are then recorded as CANCELLED regardless of their own outcome.
func Run(ctx context.Context, runID string, ag *graph.ActiveGraph, opts Options) *Result {
	workers := opts.Workers
	if workers < 1 {
		workers = 16
	}
	s := opts.Sink
	if s == nil {
		s = noopSink{}
	}

	jobIDs := make([]string, 0, len(ag.Jobs))
	for id := range ag.Jobs {
		jobIDs = append(jobIDs, id)
	}
	s.WorkflowStarted(sink.WorkflowEvent{RunID: runID, JobIDs: jobIDs})

	outcomes := make(map[string]*outcome, len(ag.Jobs))
	for id := range ag.Jobs {
		outcomes[id] = newOutcome()
	}

	pool := newExecutor(workers)
	table := cmap.New[taskResult]()

	var (
		errsMu sync.Mutex
		errs   []error
		wg     sync.WaitGroup
	)
	recordErr := func(err error) {
		errsMu.Lock()
		errs = append(errs, err)
		errsMu.Unlock()
	}

	for id, j := range ag.Jobs {
		wg.Add(1)
		go func(id string, j job.Job) {
			defer wg.Done()
			runJob(ctx, runID, ag, id, j, outcomes, table, pool, s, recordErr)
		}(id, j)
	}
	wg.Wait()

	states := map[string]map[int]job.TaskState{}
	for key, res := range table.Items() {
		jobID, index := splitTaskKey(key)
		if states[jobID] == nil {
			states[jobID] = map[int]job.TaskState{}
		}
		states[jobID][index] = res.state
	}

	s.WorkflowFinished(sink.WorkflowEvent{RunID: runID, JobIDs: jobIDs, Errors: errs})

	return &Result{RunID: runID, States: states, Errors: errs}
}

// runJob resolves jobID's job-level outcome: if the job is fully skipped
// (statically or by pruning), it synthesizes SKIPPED for every index without
// running anything; otherwise it applies the join, then fans out one
// goroutine per runnable array index.
func runJob(
	ctx context.Context,
	runID string,
	ag *graph.ActiveGraph,
	jobID string,
	j job.Job,
	outcomes map[string]*outcome,
	table cmap.ConcurrentMap[string, taskResult],
	pool *executor,
	s sink.Sink,
	recordErr func(error),
) {
	total := j.ArraySize
	if total < 1 {
		total = 1
	}

	if ag.Skipped[jobID] {
		for i := 0; i < total; i++ {
			publish(table, s, runID, j, i, taskResult{state: job.StateSkipped})
		}
		outcomes[jobID].resolve(taskResult{state: job.StateSkipped})
		return
	}

	satisfied, reason := true, ""
	if ctx.Err() != nil {
		satisfied, reason = false, "workflow cancelled"
	} else {
		satisfied, reason = applyJoin(ctx, j, ag.InAdj[jobID], outcomes)
	}

	if !satisfied {
		states := make([]job.TaskState, 0, total)
		for _, i := range ag.RunnableIndices(jobID) {
			cause := dgerrors.Cancelled{JobID: j.ID, TaskIndex: i, Array: j.IsArray(), Reason: reason}
			publish(table, s, runID, j, i, taskResult{state: job.StateCancelled, err: cause})
			states = append(states, job.StateCancelled)
		}
		for i := range ag.DroppedIndices[jobID] {
			publish(table, s, runID, j, i, taskResult{state: job.StateSkipped})
			states = append(states, job.StateSkipped)
		}
		outcomes[jobID].resolve(taskResult{state: job.AggregateState(states)})
		return
	}

	runnable := ag.RunnableIndices(jobID)
	dropped := ag.DroppedIndices[jobID]

	states := make([]job.TaskState, 0, total)
	for i := range dropped {
		publish(table, s, runID, j, i, taskResult{state: job.StateSkipped})
		states = append(states, job.StateSkipped)
	}

	var (
		mu     sync.Mutex
		taskWG sync.WaitGroup
	)
	for _, index := range runnable {
		taskWG.Add(1)
		go func(index int) {
			defer taskWG.Done()
			res := runTask(ctx, runID, j, index, s, table, pool)
			if res.state == job.StateFailed {
				recordErr(res.err)
			}
			mu.Lock()
			states = append(states, res.state)
			mu.Unlock()
		}(index)
	}
	taskWG.Wait()

	outcomes[jobID].resolve(taskResult{state: job.AggregateState(states)})
}

// applyJoin waits on jobID's predecessors and reports whether j may proceed,
// per the compatibility rules of spec.md §4.3 step 2.
func applyJoin(ctx context.Context, j job.Job, incoming []job.Edge, outcomes map[string]*outcome) (bool, string) {
	if len(incoming) == 0 {
		return true, ""
	}

	if j.Join == job.JoinAll {
		for _, e := range incoming {
			res, err := outcomes[e.From].wait(ctx)
			if err != nil {
				return false, "workflow cancelled while waiting on " + e.From
			}
			if !res.state.CompatibleWith(e.Status) {
				return false, fmt.Sprintf("predecessor %s ended %s, incompatible with required %s", e.From, res.state, e.Status)
			}
		}
		return true, ""
	}

	// job.JoinAny: proceed as soon as one predecessor is compatible; give up
	// only once every predecessor has resolved and none was compatible.
	type predOutcome struct {
		compatible bool
		from       string
	}
	results := make(chan predOutcome, len(incoming))
	for _, e := range incoming {
		go func(e job.Edge) {
			res, err := outcomes[e.From].wait(ctx)
			if err != nil {
				results <- predOutcome{from: e.From}
				return
			}
			results <- predOutcome{compatible: res.state.CompatibleWith(e.Status), from: e.From}
		}(e)
	}

	remaining := len(incoming)
	for remaining > 0 {
		select {
		case r := <-results:
			remaining--
			if r.compatible {
				return true, ""
			}
		case <-ctx.Done():
			return false, "workflow cancelled"
		}
	}
	return false, "no predecessor satisfied the ANY join"
}

// runTask runs the preconditions/execute/postconditions steps for a single
// (job, index) task and publishes its outcome.
func runTask(ctx context.Context, runID string, j job.Job, index int, s sink.Sink, table cmap.ConcurrentMap[string, taskResult], pool *executor) taskResult {
	setState(table, s, runID, j, index, job.StateRunning, nil)

	if holds, predIdx, predErr := evalPredicates(ctx, j.Preconditions, index); !holds {
		res := taskResult{state: job.StateFailed, err: dgerrors.PreconditionViolated{JobID: j.ID, PredicateIndex: predIdx, TaskIndex: index, Array: j.IsArray(), Cause: predErr}}
		return publish(table, s, runID, j, index, res)
	}

	if ctx.Err() != nil {
		return publish(table, s, runID, j, index, taskResult{state: job.StateCancelled, err: dgerrors.Cancelled{JobID: j.ID, TaskIndex: index, Array: j.IsArray(), Reason: "workflow cancelled"}})
	}

	if j.Skipped {
		return publish(table, s, runID, j, index, taskResult{state: job.StateSkipped})
	}

	var runErr error
	if poolErr := pool.run(ctx, func() { runErr = j.Body.Run(ctx, index) }); poolErr != nil {
		return publish(table, s, runID, j, index, taskResult{state: job.StateCancelled, err: dgerrors.Cancelled{JobID: j.ID, TaskIndex: index, Array: j.IsArray(), Reason: "workflow cancelled"}})
	}

	// The body ran to completion; if the workflow was cancelled while it was
	// running, record CANCELLED regardless of the body's own result.
	if ctx.Err() != nil {
		return publish(table, s, runID, j, index, taskResult{state: job.StateCancelled, err: dgerrors.Cancelled{JobID: j.ID, TaskIndex: index, Array: j.IsArray(), Reason: "workflow cancelled"}})
	}

	if runErr != nil {
		res := taskResult{state: job.StateFailed, err: dgerrors.JobFailed{JobID: j.ID, TaskIndex: index, Array: j.IsArray(), Cause: runErr}}
		return publish(table, s, runID, j, index, res)
	}

	if holds, predIdx, predErr := evalPredicates(ctx, j.Postconditions, index); !holds {
		res := taskResult{state: job.StateFailed, err: dgerrors.PostconditionViolated{JobID: j.ID, PredicateIndex: predIdx, TaskIndex: index, Array: j.IsArray(), Cause: predErr}}
		return publish(table, s, runID, j, index, res)
	}

	return publish(table, s, runID, j, index, taskResult{state: job.StateSucceeded})
}

// evalPredicates runs preds for index in order, stopping at the first false
// or error, and reports the position of the predicate that stopped it. A
// raised error is reported back so the caller can chain it as the
// violation's cause; per spec.md's boundary case, it is otherwise treated
// exactly like a plain false.
func evalPredicates(ctx context.Context, preds []job.Predicate, index int) (holds bool, failed int, cause error) {
	for i, p := range preds {
		ok, err := p.Eval(ctx, index)
		if err != nil {
			return false, i, err
		}
		if !ok {
			return false, i, nil
		}
	}
	return true, 0, nil
}

func setState(table cmap.ConcurrentMap[string, taskResult], s sink.Sink, runID string, j job.Job, index int, state job.TaskState, err error) {
	res := taskResult{state: state, err: err}
	table.Set(taskKey(j.ID, index), res)
	s.TaskStarted(sink.TaskEvent{RunID: runID, JobID: j.ID, Index: index, Array: j.IsArray(), State: state, Err: err})
}

func publish(table cmap.ConcurrentMap[string, taskResult], s sink.Sink, runID string, j job.Job, index int, res taskResult) taskResult {
	table.Set(taskKey(j.ID, index), res)
	s.TaskFinished(sink.TaskEvent{RunID: runID, JobID: j.ID, Index: index, Array: j.IsArray(), State: res.state, Err: res.err})
	return res
}

func taskKey(jobID string, index int) string {
	return jobID + "/" + strconv.Itoa(index)
}

func splitTaskKey(key string) (string, int) {
	i := strings.LastIndex(key, "/")
	index, _ := strconv.Atoi(key[i+1:])
	return key[:i], index
}

type noopSink struct{}

func (noopSink) WorkflowStarted(sink.WorkflowEvent)  {}
func (noopSink) WorkflowFinished(sink.WorkflowEvent) {}
func (noopSink) TaskStarted(sink.TaskEvent)          {}
func (noopSink) TaskFinished(sink.TaskEvent)         {}

// Copyright 2024, dawgz-go.

package dawgz

import (
	"context"
	"fmt"

	"github.com/dawgz-go/dawgz/engine"
	"github.com/dawgz-go/dawgz/graph"
	"github.com/dawgz-go/dawgz/id"
	"github.com/dawgz-go/dawgz/job"
	"github.com/dawgz-go/dawgz/sink"
	"github.com/dawgz-go/dawgz/slurm"
)

// Backend selects how a scheduled workflow's job bodies actually run.
type Backend int

const (
	// BackendAsync runs job bodies in-process with a bounded worker pool.
	BackendAsync Backend = iota

	// BackendDummy replaces every body with a short randomized sleep
	// wrapped in START/END trace lines, then runs on the async engine.
	BackendDummy

	// BackendSlurm submits the active graph to a Slurm cluster and
	// returns as soon as submission completes; it does not wait for the
	// cluster to actually run the jobs.
	BackendSlurm
)

// Options configures a single Schedule call.
type Options struct {
	Backend Backend

	// Prune enables postcondition-based pruning of the active graph
	// before execution.
	Prune bool

	// Workers bounds the async/dummy backend's worker pool.
	Workers int

	// Sink receives lifecycle events. Defaults to a no-op sink.
	Sink sink.Sink

	// WorkDir is the Slurm backend's run working directory root. A
	// fresh "<WorkDir>/<run-id>" is created per Schedule call. Ignored
	// by the async and dummy backends.
	WorkDir string

	// Slurm carries the Slurm translator's configuration. Ignored
	// unless Backend is BackendSlurm.
	Slurm SlurmOptions

	// DummySeed seeds the dummy backend's randomized sleep so a run is
	// reproducible under test. Defaults to a fixed seed if zero.
	DummySeed int64
}

// SlurmOptions configures the Slurm translator.
type SlurmOptions struct {
	ExecBinary string
	Env        []string
}

// Result is what Schedule produces, covering both backends: for the async
// and dummy backends, States/Errors describe the finished run; for the
// Slurm backend, ExternalIDs describes what was submitted.
type Result struct {
	RunID       string
	States      map[string]map[int]job.TaskState
	Errors      []error
	ExternalIDs map[string]string

	buildErr    error
	cancelled   bool
	anyFailures bool
}

// ExitCode maps Result onto the CLI exit code convention: 0 on success, 1 on
// any FAILED task, 2 on a builder/validation error or a failed Slurm
// submission, 3 on user cancellation.
func (r *Result) ExitCode() int {
	switch {
	case r.buildErr != nil:
		return 2
	case r.cancelled:
		return 3
	case r.anyFailures:
		return 1
	default:
		return 0
	}
}

// Schedule freezes b's jobs and edges into a graph.Workflow rooted at
// targets, computes the active subgraph, optionally prunes it, and runs it
// against opts.Backend. The returned error is non-nil for a
// builder/validation failure and, on the Slurm backend, for a submission
// failure (both also reflected in Result.ExitCode() as 2); runtime
// task failures are reported through Result.Errors and Result.States, not
// as a Go error, since a partially-failed workflow is still a complete run.
func Schedule(ctx context.Context, b *Builder, targets []JobRef, opts Options) (*Result, error) {
	gb := graph.NewBuilder()
	for _, name := range b.order {
		if err := gb.AddJob(*b.jobs[name]); err != nil {
			return &Result{buildErr: err}, err
		}
	}
	for _, e := range b.edges {
		if err := gb.AddEdge(e.From, e.To, e.Status); err != nil {
			return &Result{buildErr: err}, err
		}
	}

	targetIDs := make([]string, len(targets))
	for i, t := range targets {
		targetIDs[i] = t.id
	}

	w, err := gb.Freeze(targetIDs...)
	if err != nil {
		return &Result{buildErr: err}, err
	}

	ag, err := w.Traverse(ctx, targetIDs, graph.TraverseOptions{Prune: opts.Prune})
	if err != nil {
		return &Result{buildErr: err}, err
	}

	runID := id.NewRunID()

	switch opts.Backend {
	case BackendSlurm:
		return scheduleSlurm(ctx, runID, ag, opts)
	case BackendDummy:
		return scheduleAsync(ctx, runID, ag, opts, opts.DummySeed)
	default:
		return scheduleAsync(ctx, runID, ag, opts, 0)
	}
}

func scheduleAsync(ctx context.Context, runID string, ag *graph.ActiveGraph, opts Options, dummySeed int64) (*Result, error) {
	if opts.Backend == BackendDummy {
		seed := dummySeed
		if seed == 0 {
			seed = 1
		}
		for id, j := range ag.Jobs {
			ag.Jobs[id] = engine.WrapDummy(j, seed)
		}
	}

	res := engine.Run(ctx, runID, ag, engine.Options{Workers: opts.Workers, Sink: opts.Sink})

	anyFailures := false
	for _, indices := range res.States {
		for _, st := range indices {
			if st == job.StateFailed {
				anyFailures = true
			}
		}
	}

	return &Result{
		RunID:       res.RunID,
		States:      res.States,
		Errors:      res.Errors,
		cancelled:   ctx.Err() != nil,
		anyFailures: anyFailures,
	}, nil
}

func scheduleSlurm(ctx context.Context, runID string, ag *graph.ActiveGraph, opts Options) (*Result, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = ".dawgz"
	}
	workDir = fmt.Sprintf("%s/%s", workDir, runID)

	tr := slurm.NewTranslator(workDir, opts.Slurm.ExecBinary)
	tr.Env = opts.Slurm.Env

	sr, err := tr.Submit(ctx, ag)
	if err != nil {
		return &Result{RunID: runID, buildErr: err}, err
	}

	return &Result{RunID: runID, ExternalIDs: sr.ExternalIDs}, nil
}

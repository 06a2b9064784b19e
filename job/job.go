// Copyright 2024, dawgz-go.

// Package job provides the immutable job/edge/predicate records that make
// up a workflow graph, and the Executable interface a job's body must
// implement. To avoid an import cycle, this package has no dependency on
// graph, engine, or slurm: everything else depends on it.
package job

import (
	"context"
	"strconv"

	"github.com/dawgz-go/dawgz/dgerrors"
)

// EdgeStatus is the predecessor outcome a dependency edge requires.
type EdgeStatus int

const (
	StatusSuccess EdgeStatus = iota
	StatusFailure
	StatusAny
)

func (s EdgeStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusAny:
		return "any"
	default:
		return "unknown"
	}
}

// JoinMode is the rule a job uses to combine its incoming edges.
type JoinMode int

const (
	JoinAll JoinMode = iota
	JoinAny
)

func (m JoinMode) String() string {
	if m == JoinAny {
		return "any"
	}
	return "all"
}

// Edge is a dependency: From must reach a terminal state compatible with
// Status before To is considered for that edge.
type Edge struct {
	From   string
	To     string
	Status EdgeStatus
}

// Executable is the opaque callable a job runs. Implementations are
// provided by the caller (the "BYOJ" surface, out of scope for this
// package) - the core only ever calls Run and, for the Slurm backend,
// Serialize.
//
// Run is called with the task's array index; for scalar jobs the index is
// always 0 and implementations that don't fan out should ignore it.
type Executable interface {
	Run(ctx context.Context, index int) error

	// Serialize returns the bytes the Slurm backend writes to a job's body
	// file, later deserialized by the remote runtime. Returning an error
	// here surfaces as dgerrors.CallableSerializationFailed.
	Serialize() ([]byte, error)
}

// Predicate is a gating (precondition) or completion (postcondition) check.
// It is tagged scalar or array at attach time, per spec.md's requirement
// that systems-language ports use an explicit tag rather than inspecting
// the callable's arity at runtime.
type Predicate struct {
	Array  bool
	scalar func(ctx context.Context) (bool, error)
	array  func(ctx context.Context, index int) (bool, error)

	// Command is non-nil only for predicates built with ScalarShellPredicate
	// or ArrayShellPredicate. The Slurm backend can only ship a check across
	// a process boundary when it is expressible this way; an in-process
	// closure predicate has nothing the translator can serialize, so it
	// makes dgerrors.CallableSerializationFailed instead.
	Command *ShellCommand
}

// ScalarPredicate builds a Predicate that applies to the whole job.
func ScalarPredicate(f func(ctx context.Context) (bool, error)) Predicate {
	return Predicate{Array: false, scalar: f}
}

// ArrayPredicate builds a Predicate that applies to a single array index.
func ArrayPredicate(f func(ctx context.Context, index int) (bool, error)) Predicate {
	return Predicate{Array: true, array: f}
}

// ScalarShellPredicate builds a whole-job Predicate whose truth is the exit
// status of an external command: zero holds, non-zero doesn't. Unlike a
// closure Predicate, this one survives the Slurm backend's process
// boundary, since the command line is all a remote check needs.
func ScalarShellPredicate(cmd string, args ...string) Predicate {
	sc := NewShellCommand(cmd, args...)
	return Predicate{
		Array:   false,
		scalar:  func(ctx context.Context) (bool, error) { return sc.Check(ctx, 0) },
		Command: sc,
	}
}

// ArrayShellPredicate is ScalarShellPredicate for a single array index: the
// index is appended as the command's final argument, the same convention
// ShellCommand.Run uses for an array job's body.
func ArrayShellPredicate(cmd string, args ...string) Predicate {
	sc := NewArrayShellCommand(cmd, args...)
	return Predicate{
		Array:   true,
		array:   func(ctx context.Context, index int) (bool, error) { return sc.Check(ctx, index) },
		Command: sc,
	}
}

// Eval runs the predicate. index is ignored for scalar predicates.
func (p Predicate) Eval(ctx context.Context, index int) (bool, error) {
	if p.Array {
		return p.array(ctx, index)
	}
	return p.scalar(ctx)
}

// Resources is an opaque, uninterpreted mapping of scheduler hints (cpus,
// ram, timelimit, partition, ...). The core never reads these; only the
// Slurm translator does, and it treats unknown keys as SBATCH passthroughs.
type Resources map[string]string

// Well-known resource keys the Slurm translator gives dedicated SBATCH
// directives to. Any other key is passed through as --<key>=<value>.
const (
	ResourceCPUs      = "cpus"
	ResourceRAM       = "ram"
	ResourceTimeLimit = "timelimit"
	ResourcePartition = "partition"
	ResourceGPUs      = "gpus"
)

// Job is an immutable job descriptor. Jobs become immutable once a Workflow
// is frozen; nothing in this package mutates a Job after construction.
type Job struct {
	ID   string
	Name string

	Body          Executable
	ArraySize     int // 1 means scalar
	ArrayThrottle int // 0 means unset (no cluster-side cap)

	Resources Resources

	Preconditions  []Predicate
	Postconditions []Predicate

	Join JoinMode

	// Skipped marks a job as completed without running its body. Distinct
	// from being pruned SKIPPED by a postcondition: this is a static,
	// user-declared skip.
	Skipped bool
}

// IsArray reports whether j fans out into more than one task.
func (j Job) IsArray() bool {
	return j.ArraySize > 1
}

// Validate checks the invariants from spec.md's data model that are local
// to a single job (array size positive, throttle in range, per-task
// predicates only on array jobs). Graph-wide invariants (acyclic, duplicate
// ids/edges) are checked by package graph.
func (j Job) Validate() error {
	if j.ArraySize < 1 {
		return dgerrors.BadArraySpec{JobID: j.ID, Message: "array_size must be >= 1"}
	}
	if j.ArrayThrottle != 0 && (j.ArrayThrottle < 1 || j.ArrayThrottle > j.ArraySize) {
		return dgerrors.BadArraySpec{JobID: j.ID, Message: "array_throttle must be in [1, array_size]"}
	}
	if !j.IsArray() {
		for i, p := range j.Preconditions {
			if p.Array {
				return dgerrors.BadArraySpec{JobID: j.ID, Message: "precondition " + itoa(i) + " is per-task but job is not an array"}
			}
		}
		for i, p := range j.Postconditions {
			if p.Array {
				return dgerrors.BadArraySpec{JobID: j.ID, Message: "postcondition " + itoa(i) + " is per-task but job is not an array"}
			}
		}
	}
	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

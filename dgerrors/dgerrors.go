// Copyright 2024, dawgz-go.

// Package dgerrors provides the error taxonomy reported to callers of the
// scheduling core. Every error kind is a distinct type implementing the
// error interface so that callers can distinguish them with errors.As,
// rather than string-matching. Messages are terse; they're always reported
// in the context of a workflow or job id, so they don't need to repeat it.
package dgerrors

import (
	"fmt"
)

// -- Validation errors -------------------------------------------------- //

var _ error = DuplicateJob{}

// DuplicateJob is returned by a builder when a job id is added twice.
type DuplicateJob struct {
	JobID string
}

func (e DuplicateJob) Error() string {
	return fmt.Sprintf("job %s already exists", e.JobID)
}

var _ error = UnknownJob{}

// UnknownJob is returned when an edge or target references a job id that
// was never added to the builder.
type UnknownJob struct {
	JobID string
}

func (e UnknownJob) Error() string {
	return fmt.Sprintf("job %s not found", e.JobID)
}

var _ error = DuplicateEdge{}

// DuplicateEdge is returned when an edge is declared twice for the same
// ordered (from, to) pair.
type DuplicateEdge struct {
	From, To string
}

func (e DuplicateEdge) Error() string {
	return fmt.Sprintf("edge %s -> %s already exists", e.From, e.To)
}

var _ error = CycleDetected{}

// CycleDetected is returned when adding an edge would make a job reachable
// from itself.
type CycleDetected struct {
	From, To string
}

func (e CycleDetected) Error() string {
	return fmt.Sprintf("edge %s -> %s would introduce a cycle", e.From, e.To)
}

var _ error = UnknownTarget{}

// UnknownTarget is returned when Freeze or Traverse is given a target id
// that isn't a known job.
type UnknownTarget struct {
	JobID string
}

func (e UnknownTarget) Error() string {
	return fmt.Sprintf("target %s not found", e.JobID)
}

var _ error = BadArraySpec{}

// BadArraySpec is returned when a job's array size or throttle is invalid,
// or when a per-task predicate is attached to a scalar job.
type BadArraySpec struct {
	JobID   string
	Message string
}

func (e BadArraySpec) Error() string {
	return fmt.Sprintf("job %s: %s", e.JobID, e.Message)
}

// -- Predicate errors ----------------------------------------------------- //

var _ error = PreconditionViolated{}

// PreconditionViolated is returned when a job's precondition evaluates to
// false or raises before the job body runs.
type PreconditionViolated struct {
	JobID          string
	PredicateIndex int
	TaskIndex      int  // meaningful only when Array is true
	Array          bool
	Cause          error // nil if the predicate simply returned false
}

func (e PreconditionViolated) Error() string {
	if e.Array {
		return fmt.Sprintf("job %s[%d]: precondition %d not satisfied: %s", e.JobID, e.TaskIndex, e.PredicateIndex, causeText(e.Cause))
	}
	return fmt.Sprintf("job %s: precondition %d not satisfied: %s", e.JobID, e.PredicateIndex, causeText(e.Cause))
}

func (e PreconditionViolated) Unwrap() error { return e.Cause }

var _ error = PostconditionViolated{}

// PostconditionViolated is returned when a job's postcondition evaluates to
// false or raises after the job body returns successfully.
type PostconditionViolated struct {
	JobID          string
	PredicateIndex int
	TaskIndex      int
	Array          bool
	Cause          error
}

func (e PostconditionViolated) Error() string {
	if e.Array {
		return fmt.Sprintf("job %s[%d]: postcondition %d not satisfied: %s", e.JobID, e.TaskIndex, e.PredicateIndex, causeText(e.Cause))
	}
	return fmt.Sprintf("job %s: postcondition %d not satisfied: %s", e.JobID, e.PredicateIndex, causeText(e.Cause))
}

func (e PostconditionViolated) Unwrap() error { return e.Cause }

func causeText(err error) string {
	if err == nil {
		return "condition returned false"
	}
	return err.Error()
}

// -- Body errors ----------------------------------------------------------- //

var _ error = JobFailed{}

// JobFailed wraps the error a job body returned, keeping the causal chain
// intact for errors.Is/errors.As.
type JobFailed struct {
	JobID     string
	TaskIndex int
	Array     bool
	Cause     error
}

func (e JobFailed) Error() string {
	if e.Array {
		return fmt.Sprintf("job %s[%d] failed: %s", e.JobID, e.TaskIndex, e.Cause)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Cause)
}

func (e JobFailed) Unwrap() error { return e.Cause }

// -- Transport errors -------------------------------------------------- //

var _ error = SubmissionFailed{}

// SubmissionFailed is returned by the Slurm translator when sbatch fails
// for a job. Fatal to the run: the translator rolls back prior submissions.
type SubmissionFailed struct {
	JobID  string
	Output string
	Cause  error
}

func (e SubmissionFailed) Error() string {
	return fmt.Sprintf("submission of job %s failed: %s (%s)", e.JobID, e.Cause, e.Output)
}

func (e SubmissionFailed) Unwrap() error { return e.Cause }

var _ error = UnsatisfiableDependency{}

// UnsatisfiableDependency is returned by the Slurm translator when an edge
// requires its predecessor to have FAILED, but that predecessor was skipped
// (pruned or statically skipped) and therefore never submitted. A skipped
// predecessor can never satisfy a FAILURE edge - the local engine would
// cancel the downstream task in this situation - so the submission is
// rejected instead of silently dropping the dependency term.
type UnsatisfiableDependency struct {
	JobID         string
	PredecessorID string
}

func (e UnsatisfiableDependency) Error() string {
	return fmt.Sprintf("job %s: predecessor %s was skipped and can never satisfy the required failure edge", e.JobID, e.PredecessorID)
}

var _ error = CallableSerializationFailed{}

// CallableSerializationFailed is returned when a job's Executable cannot be
// serialized for shipping to a compute node (e.g. it captures non-shippable
// state). The Slurm translator returns it when a job's Executable.Serialize
// fails, and when a precondition or postcondition has no shell Command it
// could ship.
type CallableSerializationFailed struct {
	JobID string
	Cause error
}

func (e CallableSerializationFailed) Error() string {
	return fmt.Sprintf("job %s: cannot serialize callable: %s", e.JobID, e.Cause)
}

func (e CallableSerializationFailed) Unwrap() error { return e.Cause }

// -- Lifecycle -------------------------------------------------------------- //

var _ error = Cancelled{}

// Cancelled marks a task that never ran because a join was unsatisfiable or
// the workflow was cancelled. It is never counted as an error in aggregates.
type Cancelled struct {
	JobID     string
	TaskIndex int
	Array     bool
	Reason    string
}

func (e Cancelled) Error() string {
	if e.Array {
		return fmt.Sprintf("job %s[%d] cancelled: %s", e.JobID, e.TaskIndex, e.Reason)
	}
	return fmt.Sprintf("job %s cancelled: %s", e.JobID, e.Reason)
}

// Copyright 2024, dawgz-go.

package job_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dawgz-go/dawgz/dgerrors"
	"github.com/dawgz-go/dawgz/job"
)

type noopExecutable struct{}

func (noopExecutable) Run(ctx context.Context, index int) error { return nil }
func (noopExecutable) Serialize() ([]byte, error)               { return nil, nil }

func TestValidateScalar(t *testing.T) {
	j := job.Job{ID: "a", Body: noopExecutable{}, ArraySize: 1}
	if err := j.Validate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestValidateArraySizeZero(t *testing.T) {
	j := job.Job{ID: "a", Body: noopExecutable{}, ArraySize: 0}
	err := j.Validate()
	var badSpec dgerrors.BadArraySpec
	if !errors.As(err, &badSpec) {
		t.Fatalf("expected BadArraySpec, got %v", err)
	}
}

func TestValidateThrottleOutOfRange(t *testing.T) {
	j := job.Job{ID: "a", Body: noopExecutable{}, ArraySize: 10, ArrayThrottle: 11}
	err := j.Validate()
	var badSpec dgerrors.BadArraySpec
	if !errors.As(err, &badSpec) {
		t.Fatalf("expected BadArraySpec, got %v", err)
	}
}

func TestValidatePerTaskPredicateOnScalarJob(t *testing.T) {
	j := job.Job{
		ID:        "a",
		Body:      noopExecutable{},
		ArraySize: 1,
		Preconditions: []job.Predicate{
			job.ArrayPredicate(func(ctx context.Context, index int) (bool, error) { return true, nil }),
		},
	}
	err := j.Validate()
	var badSpec dgerrors.BadArraySpec
	if !errors.As(err, &badSpec) {
		t.Fatalf("expected BadArraySpec, got %v", err)
	}
}

func TestValidateArrayJobAllowsPerTaskPredicate(t *testing.T) {
	j := job.Job{
		ID:        "a",
		Body:      noopExecutable{},
		ArraySize: 10,
		Postconditions: []job.Predicate{
			job.ArrayPredicate(func(ctx context.Context, index int) (bool, error) { return true, nil }),
		},
	}
	if err := j.Validate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestAggregateStateAllSucceeded(t *testing.T) {
	got := job.AggregateState([]job.TaskState{job.StateSucceeded, job.StateSkipped, job.StateSucceeded})
	if got != job.StateSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", got)
	}
}

func TestAggregateStateAnyFailedWins(t *testing.T) {
	got := job.AggregateState([]job.TaskState{job.StateSucceeded, job.StateFailed, job.StateCancelled})
	if got != job.StateFailed {
		t.Fatalf("expected FAILED, got %s", got)
	}
}

func TestAggregateStateCancelledWithoutFailure(t *testing.T) {
	got := job.AggregateState([]job.TaskState{job.StateSucceeded, job.StateCancelled})
	if got != job.StateCancelled {
		t.Fatalf("expected CANCELLED, got %s", got)
	}
}

func TestAggregateStateEmptyIsSkipped(t *testing.T) {
	if got := job.AggregateState(nil); got != job.StateSkipped {
		t.Fatalf("expected SKIPPED, got %s", got)
	}
}

func TestPredicateEval(t *testing.T) {
	scalar := job.ScalarPredicate(func(ctx context.Context) (bool, error) { return true, nil })
	ok, err := scalar.Eval(context.Background(), 0)
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}

	array := job.ArrayPredicate(func(ctx context.Context, index int) (bool, error) { return index == 42, nil })
	ok, err = array.Eval(context.Background(), 42)
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
	ok, err = array.Eval(context.Background(), 1)
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

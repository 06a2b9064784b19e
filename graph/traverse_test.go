// Copyright 2024, dawgz-go.

package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dawgz-go/dawgz/dgerrors"
	"github.com/dawgz-go/dawgz/graph"
	"github.com/dawgz-go/dawgz/job"
)

func TestTraverseUnknownTarget(t *testing.T) {
	w := buildDiamond(t)
	_, err := w.Traverse(context.Background(), []string{"ghost"}, graph.TraverseOptions{})
	var unk dgerrors.UnknownTarget
	if !errors.As(err, &unk) {
		t.Fatalf("expected UnknownTarget, got %v", err)
	}
}

func TestTraverseIncludesOnlyAncestorsOfTarget(t *testing.T) {
	// a -> b -> d, a -> c (c is a sibling of b, not an ancestor of d)
	b := graph.NewBuilder()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := b.AddJob(scalarJob(id)); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}
	if err := b.AddEdge("a", "b", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddEdge("a", "c", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddEdge("b", "d", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("d")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ag, err := w.Traverse(context.Background(), []string{"d"}, graph.TraverseOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	for _, want := range []string{"a", "b", "d"} {
		if _, ok := ag.Jobs[want]; !ok {
			t.Fatalf("expected %s in active graph", want)
		}
	}
	if _, ok := ag.Jobs["c"]; ok {
		t.Fatal("c is not an ancestor of the target and should have been excluded")
	}
}

func alwaysTrue(context.Context) (bool, error)  { return true, nil }
func alwaysFalse(context.Context) (bool, error) { return false, nil }

func TestTraversePrunesScalarJobWithSatisfiedPostcondition(t *testing.T) {
	b := graph.NewBuilder()
	done := job.Job{
		ID: "done", Name: "done", Body: noopExecutable{}, ArraySize: 1,
		Postconditions: []job.Predicate{job.ScalarPredicate(alwaysTrue)},
	}
	if err := b.AddJob(done); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddJob(scalarJob("next")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddEdge("done", "next", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("next")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ag, err := w.Traverse(context.Background(), []string{"next"}, graph.TraverseOptions{Prune: true})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !ag.Skipped["done"] {
		t.Fatal("expected done to be marked skipped by pruning")
	}
	if ag.Skipped["next"] {
		t.Fatal("next has no postcondition and should not be pruned")
	}
}

func TestTraverseLeavesJobLiveWhenPostconditionUnsatisfied(t *testing.T) {
	b := graph.NewBuilder()
	pending := job.Job{
		ID: "pending", Name: "pending", Body: noopExecutable{}, ArraySize: 1,
		Postconditions: []job.Predicate{job.ScalarPredicate(alwaysFalse)},
	}
	if err := b.AddJob(pending); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("pending")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ag, err := w.Traverse(context.Background(), []string{"pending"}, graph.TraverseOptions{Prune: true})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ag.Skipped["pending"] {
		t.Fatal("expected pending to remain live")
	}
}

func TestTraversePrunesArrayIndicesIndependently(t *testing.T) {
	b := graph.NewBuilder()
	arr := job.Job{
		ID: "arr", Name: "arr", Body: noopExecutable{}, ArraySize: 3,
		Postconditions: []job.Predicate{job.ArrayPredicate(func(ctx context.Context, index int) (bool, error) {
			return index == 1, nil // only index 1 already satisfied
		})},
	}
	if err := b.AddJob(arr); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("arr")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ag, err := w.Traverse(context.Background(), []string{"arr"}, graph.TraverseOptions{Prune: true})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ag.Skipped["arr"] {
		t.Fatal("expected arr to remain live since not every index was satisfied")
	}
	runnable := ag.RunnableIndices("arr")
	if len(runnable) != 2 {
		t.Fatalf("expected 2 runnable indices, got %v", runnable)
	}
	for _, idx := range runnable {
		if idx == 1 {
			t.Fatal("index 1 should have been dropped")
		}
	}
}

func TestTraverseSkipsArrayJobWhenEveryIndexSatisfied(t *testing.T) {
	b := graph.NewBuilder()
	arr := job.Job{
		ID: "arr", Name: "arr", Body: noopExecutable{}, ArraySize: 2,
		Postconditions: []job.Predicate{job.ArrayPredicate(func(ctx context.Context, index int) (bool, error) {
			return true, nil
		})},
	}
	if err := b.AddJob(arr); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("arr")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ag, err := w.Traverse(context.Background(), []string{"arr"}, graph.TraverseOptions{Prune: true})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !ag.Skipped["arr"] {
		t.Fatal("expected arr to be fully skipped")
	}
	if len(ag.RunnableIndices("arr")) != 0 {
		t.Fatal("expected no runnable indices for a fully skipped array job")
	}
}

func TestTraverseWithoutPruneNeverSkips(t *testing.T) {
	b := graph.NewBuilder()
	done := job.Job{
		ID: "done", Name: "done", Body: noopExecutable{}, ArraySize: 1,
		Postconditions: []job.Predicate{job.ScalarPredicate(alwaysTrue)},
	}
	if err := b.AddJob(done); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("done")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ag, err := w.Traverse(context.Background(), []string{"done"}, graph.TraverseOptions{Prune: false})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ag.Skipped["done"] {
		t.Fatal("expected no pruning to occur when Prune is false")
	}
}

func TestTraversePredicateErrorLeavesJobLive(t *testing.T) {
	b := graph.NewBuilder()
	boom := errors.New("boom")
	flaky := job.Job{
		ID: "flaky", Name: "flaky", Body: noopExecutable{}, ArraySize: 1,
		Postconditions: []job.Predicate{job.ScalarPredicate(func(ctx context.Context) (bool, error) {
			return false, boom
		})},
	}
	if err := b.AddJob(flaky); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("flaky")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ag, err := w.Traverse(context.Background(), []string{"flaky"}, graph.TraverseOptions{Prune: true})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ag.Skipped["flaky"] {
		t.Fatal("a predicate error must leave the job live, not skip it")
	}
}

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

type noopExecutable struct{}

func (noopExecutable) Run(ctx context.Context, index int) error { return nil }
func (noopExecutable) Serialize() ([]byte, error)               { return []byte("{}"), nil }

func scalarJob(id string) job.Job {
	return job.Job{ID: id, Name: id, Body: noopExecutable{}, ArraySize: 1}
}

func TestAddJobDuplicate(t *testing.T) {
	b := graph.NewBuilder()
	if err := b.AddJob(scalarJob("a")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err := b.AddJob(scalarJob("a"))
	var dup dgerrors.DuplicateJob
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateJob, got %v", err)
	}
}

func TestAddEdgeUnknownJob(t *testing.T) {
	b := graph.NewBuilder()
	if err := b.AddJob(scalarJob("a")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err := b.AddEdge("a", "ghost", job.StatusSuccess)
	var unk dgerrors.UnknownJob
	if !errors.As(err, &unk) {
		t.Fatalf("expected UnknownJob, got %v", err)
	}
}

func TestAddEdgeDetectsSelfLoop(t *testing.T) {
	b := graph.NewBuilder()
	if err := b.AddJob(scalarJob("a")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err := b.AddEdge("a", "a", job.StatusSuccess)
	var cyc dgerrors.CycleDetected
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CycleDetected, got %v", err)
	}
}

func TestAddEdgeDetectsCycle(t *testing.T) {
	b := graph.NewBuilder()
	for _, id := range []string{"a", "b", "c"} {
		if err := b.AddJob(scalarJob(id)); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}
	if err := b.AddEdge("a", "b", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddEdge("b", "c", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err := b.AddEdge("c", "a", job.StatusSuccess)
	var cyc dgerrors.CycleDetected
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CycleDetected, got %v", err)
	}
}

func TestAddEdgeDuplicate(t *testing.T) {
	b := graph.NewBuilder()
	if err := b.AddJob(scalarJob("a")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddJob(scalarJob("b")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddEdge("a", "b", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err := b.AddEdge("a", "b", job.StatusSuccess)
	var dup dgerrors.DuplicateEdge
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateEdge, got %v", err)
	}
}

func TestFreezeUnknownTarget(t *testing.T) {
	b := graph.NewBuilder()
	if err := b.AddJob(scalarJob("a")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	_, err := b.Freeze("ghost")
	var unk dgerrors.UnknownTarget
	if !errors.As(err, &unk) {
		t.Fatalf("expected UnknownTarget, got %v", err)
	}
}

// buildDiamond builds a -> {b, c} -> d and freezes at d.
func buildDiamond(t *testing.T) *graph.Workflow {
	t.Helper()
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
	if err := b.AddEdge("c", "d", job.StatusSuccess); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("d")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	return w
}

func TestFreezeRoundTripEqual(t *testing.T) {
	w1 := buildDiamond(t)
	w2 := buildDiamond(t)
	if !w1.Equal(w2) {
		t.Fatal("expected two builds of the same graph to be equal")
	}
}

func TestFreezeIsIndependentSnapshot(t *testing.T) {
	b := graph.NewBuilder()
	if err := b.AddJob(scalarJob("a")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	w, err := b.Freeze("a")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := b.AddJob(scalarJob("b")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, ok := w.Job("b"); ok {
		t.Fatal("expected frozen workflow to be unaffected by later builder mutations")
	}
}

func TestWorkflowIncomingOutgoing(t *testing.T) {
	w := buildDiamond(t)
	if got := len(w.Outgoing("a")); got != 2 {
		t.Fatalf("expected 2 outgoing edges from a, got %d", got)
	}
	if got := len(w.Incoming("d")); got != 2 {
		t.Fatalf("expected 2 incoming edges to d, got %d", got)
	}
}

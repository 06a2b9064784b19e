// Copyright 2024, dawgz-go.

package sink_test

import (
	"errors"
	"testing"

	"github.com/dawgz-go/dawgz/job"
	"github.com/dawgz-go/dawgz/sink"
)

func TestMemorySinkTracksWorkflowAndTasks(t *testing.T) {
	m := sink.NewMemorySink()

	m.WorkflowStarted(sink.WorkflowEvent{RunID: "r1", JobIDs: []string{"a", "b"}})
	m.TaskStarted(sink.TaskEvent{RunID: "r1", JobID: "a", State: job.StateRunning})
	m.TaskFinished(sink.TaskEvent{RunID: "r1", JobID: "a", State: job.StateSucceeded})
	m.TaskFinished(sink.TaskEvent{RunID: "r1", JobID: "b", State: job.StateFailed, Err: errors.New("boom")})
	m.WorkflowFinished(sink.WorkflowEvent{RunID: "r1", Errors: []error{errors.New("boom")}})

	snap, ok := m.Workflow("r1")
	if !ok {
		t.Fatal("expected run r1 to be known")
	}
	if !snap.Started || !snap.Done {
		t.Fatal("expected run to be marked started and done")
	}
	if len(snap.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(snap.Errors))
	}
	if len(snap.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(snap.Tasks))
	}
	if snap.Tasks[0].JobID != "a" || snap.Tasks[0].State != "SUCCEEDED" {
		t.Fatalf("unexpected task a snapshot: %+v", snap.Tasks[0])
	}
	if snap.Tasks[1].JobID != "b" || snap.Tasks[1].Error != "boom" {
		t.Fatalf("unexpected task b snapshot: %+v", snap.Tasks[1])
	}
}

func TestMemorySinkUnknownRun(t *testing.T) {
	m := sink.NewMemorySink()
	if _, ok := m.Workflow("ghost"); ok {
		t.Fatal("expected unknown run to report ok=false")
	}
}

func TestMemorySinkForget(t *testing.T) {
	m := sink.NewMemorySink()
	m.WorkflowStarted(sink.WorkflowEvent{RunID: "r1"})
	m.Forget("r1")
	if _, ok := m.Workflow("r1"); ok {
		t.Fatal("expected forgotten run to no longer be known")
	}
}

func TestMultiSinkFansOutToEverySink(t *testing.T) {
	a, b := sink.NewMemorySink(), sink.NewMemorySink()
	multi := sink.NewMultiSink(a, b)
	multi.WorkflowStarted(sink.WorkflowEvent{RunID: "r1", JobIDs: []string{"x"}})

	for _, m := range []*sink.MemorySink{a, b} {
		if _, ok := m.Workflow("r1"); !ok {
			t.Fatal("expected both sinks to observe the event")
		}
	}
}

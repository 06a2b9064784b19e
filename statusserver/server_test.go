// Copyright 2024, dawgz-go.

package statusserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dawgz-go/dawgz/sink"
	"github.com/dawgz-go/dawgz/statusserver"
)

func TestHealthzReturnsOK(t *testing.T) {
	srv := httptest.NewServer(statusserver.New(sink.NewMemorySink()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRunStatusUnknownRun(t *testing.T) {
	srv := httptest.NewServer(statusserver.New(sink.NewMemorySink()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/runs/does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRunStatusReportsSnapshot(t *testing.T) {
	store := sink.NewMemorySink()
	store.WorkflowStarted(sink.WorkflowEvent{RunID: "run-1", JobIDs: []string{"a"}})
	store.TaskFinished(sink.TaskEvent{RunID: "run-1", JobID: "a", Index: 0})
	store.WorkflowFinished(sink.WorkflowEvent{RunID: "run-1", JobIDs: []string{"a"}})

	srv := httptest.NewServer(statusserver.New(store))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/runs/run-1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var snap sink.WorkflowSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("unexpected error decoding response: %s", err)
	}
	if !snap.Done || len(snap.Tasks) != 1 {
		t.Fatalf("expected a done snapshot with one task, got %+v", snap)
	}
}

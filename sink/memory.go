// Copyright 2024, dawgz-go.

package sink

import (
	"sort"
	"strconv"
	"sync"
)

// TaskSnapshot is the latest known state of one task, as read by the status
// server.
type TaskSnapshot struct {
	JobID string `json:"job_id"`
	Index int    `json:"index"`
	Array bool   `json:"array"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// WorkflowSnapshot is the latest known state of one run.
type WorkflowSnapshot struct {
	RunID   string         `json:"run_id"`
	JobIDs  []string       `json:"job_ids"`
	Started bool           `json:"started"`
	Done    bool           `json:"done"`
	Errors  []string       `json:"errors,omitempty"`
	Tasks   []TaskSnapshot `json:"tasks"`
}

// MemorySink keeps the latest state of every task and workflow it has seen,
// in memory, for the status server (statusserver package) to read. It never
// evicts a run; callers that run many short-lived workflows in one process
// should periodically call Forget.
type MemorySink struct {
	mu    sync.RWMutex
	runs  map[string]*WorkflowSnapshot
	tasks map[string]map[string]*TaskSnapshot // runID -> "jobID/index" -> snapshot
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		runs:  map[string]*WorkflowSnapshot{},
		tasks: map[string]map[string]*TaskSnapshot{},
	}
}

func (m *MemorySink) WorkflowStarted(e WorkflowEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[e.RunID] = &WorkflowSnapshot{RunID: e.RunID, JobIDs: append([]string(nil), e.JobIDs...), Started: true}
	m.tasks[e.RunID] = map[string]*TaskSnapshot{}
}

func (m *MemorySink) WorkflowFinished(e WorkflowEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[e.RunID]
	if !ok {
		run = &WorkflowSnapshot{RunID: e.RunID}
		m.runs[e.RunID] = run
	}
	run.Done = true
	for _, err := range e.Errors {
		run.Errors = append(run.Errors, err.Error())
	}
}

func (m *MemorySink) TaskStarted(e TaskEvent) {
	m.setTask(e)
}

func (m *MemorySink) TaskFinished(e TaskEvent) {
	m.setTask(e)
}

func (m *MemorySink) setTask(e TaskEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.tasks[e.RunID]
	if !ok {
		byKey = map[string]*TaskSnapshot{}
		m.tasks[e.RunID] = byKey
	}

	snap := &TaskSnapshot{JobID: e.JobID, Index: e.Index, Array: e.Array, State: e.State.String()}
	if e.Err != nil {
		snap.Error = e.Err.Error()
	}
	byKey[taskKey(e.JobID, e.Index)] = snap
}

func taskKey(jobID string, index int) string {
	return jobID + "/" + strconv.Itoa(index)
}

// Workflow returns a point-in-time snapshot of the named run, and whether it
// is known.
func (m *MemorySink) Workflow(runID string) (WorkflowSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return WorkflowSnapshot{}, false
	}

	out := *run
	out.Errors = append([]string(nil), run.Errors...)
	for _, snap := range m.tasks[runID] {
		out.Tasks = append(out.Tasks, *snap)
	}
	sort.Slice(out.Tasks, func(i, j int) bool {
		if out.Tasks[i].JobID != out.Tasks[j].JobID {
			return out.Tasks[i].JobID < out.Tasks[j].JobID
		}
		return out.Tasks[i].Index < out.Tasks[j].Index
	})
	return out, true
}

// Forget removes a run's snapshot, freeing its memory.
func (m *MemorySink) Forget(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	delete(m.tasks, runID)
}

// Copyright 2024, dawgz-go.

// Package sink provides the push interface the execution engines report
// lifecycle events through, plus a logrus-backed default implementation and
// an in-memory implementation the status server reads from.
package sink

import (
	"time"

	"github.com/dawgz-go/dawgz/job"
)

// TaskEvent describes one (job, array index) task's lifecycle transition.
type TaskEvent struct {
	RunID     string
	JobID     string
	Index     int
	Array     bool
	State     job.TaskState
	Err       error
	Timestamp time.Time
}

// WorkflowEvent describes a whole-run lifecycle transition.
type WorkflowEvent struct {
	RunID     string
	JobIDs    []string
	Errors    []error
	Timestamp time.Time
}

// Sink receives task and workflow lifecycle events. Implementations must be
// safe for concurrent use: an engine calls these from many goroutines at once.
type Sink interface {
	WorkflowStarted(e WorkflowEvent)
	WorkflowFinished(e WorkflowEvent)
	TaskStarted(e TaskEvent)
	TaskFinished(e TaskEvent)
}

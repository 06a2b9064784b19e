// Copyright 2024, dawgz-go.

package sink

import (
	log "github.com/sirupsen/logrus"
)

// LogrusSink reports every event through a logrus.FieldLogger, field-tagged
// with the run id the same way the teacher tags every log line with
// requestId (job-runner/chain/traverser.go).
type LogrusSink struct {
	Logger log.FieldLogger
}

// NewLogrusSink returns a LogrusSink using logger, or the package-level
// logrus logger if logger is nil.
func NewLogrusSink(logger log.FieldLogger) *LogrusSink {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogrusSink{Logger: logger}
}

func (s *LogrusSink) WorkflowStarted(e WorkflowEvent) {
	s.Logger.WithFields(log.Fields{"run_id": e.RunID, "jobs": len(e.JobIDs)}).Info("workflow started")
}

func (s *LogrusSink) WorkflowFinished(e WorkflowEvent) {
	logger := s.Logger.WithFields(log.Fields{"run_id": e.RunID, "errors": len(e.Errors)})
	if len(e.Errors) == 0 {
		logger.Info("workflow finished")
		return
	}
	for _, err := range e.Errors {
		logger.WithError(err).Error("workflow finished with error")
	}
}

func (s *LogrusSink) TaskStarted(e TaskEvent) {
	s.Logger.WithFields(taskFields(e)).Info("task started")
}

func (s *LogrusSink) TaskFinished(e TaskEvent) {
	logger := s.Logger.WithFields(taskFields(e))
	if e.Err != nil {
		logger.WithError(e.Err).Warn("task finished")
		return
	}
	logger.Info("task finished")
}

func taskFields(e TaskEvent) log.Fields {
	return log.Fields{
		"run_id": e.RunID,
		"job_id": e.JobID,
		"index":  e.Index,
		"array":  e.Array,
		"state":  e.State.String(),
	}
}

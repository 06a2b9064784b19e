// Copyright 2024, dawgz-go.

package sink

// MultiSink fans every event out to a fixed list of sinks, grounded on the
// teacher's habit of running a running/stopped/suspended reaper side by side,
// each independently reporting the same lifecycle event.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a Sink that forwards every event to each of sinks, in
// order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) WorkflowStarted(e WorkflowEvent) {
	for _, s := range m.sinks {
		s.WorkflowStarted(e)
	}
}

func (m *MultiSink) WorkflowFinished(e WorkflowEvent) {
	for _, s := range m.sinks {
		s.WorkflowFinished(e)
	}
}

func (m *MultiSink) TaskStarted(e TaskEvent) {
	for _, s := range m.sinks {
		s.TaskStarted(e)
	}
}

func (m *MultiSink) TaskFinished(e TaskEvent) {
	for _, s := range m.sinks {
		s.TaskFinished(e)
	}
}

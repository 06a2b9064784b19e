// Copyright 2024, dawgz-go.

package engine

import (
	"context"
	"sync"

	"github.com/dawgz-go/dawgz/job"
)

type taskResult struct {
	state job.TaskState
	err   error
}

// outcome is a write-once cell that many goroutines can wait on and exactly
// one resolves - the value-carrying generalization of the teacher's
// channel-based done signalling (doneChan in job-runner/chain/traverser.go),
// needed here because dependents care about the terminal state itself, not
// just that the task finished.
type outcome struct {
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	result taskResult
}

func newOutcome() *outcome {
	return &outcome{done: make(chan struct{})}
}

// resolve sets the outcome. Only the first call takes effect.
func (o *outcome) resolve(result taskResult) {
	o.once.Do(func() {
		o.mu.Lock()
		o.result = result
		o.mu.Unlock()
		close(o.done)
	})
}

// wait blocks until the outcome is resolved or ctx is cancelled.
func (o *outcome) wait(ctx context.Context) (taskResult, error) {
	select {
	case <-o.done:
		o.mu.RLock()
		defer o.mu.RUnlock()
		return o.result, nil
	case <-ctx.Done():
		return taskResult{}, ctx.Err()
	}
}

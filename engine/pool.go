// Copyright 2024, dawgz-go.

package engine

import "context"

// executor bounds concurrent job-body execution with a fixed-size buffered
// semaphore, so a large workflow doesn't spawn unbounded concurrent blocking
// bodies - the generalization of the teacher's habit of bounding fanout with
// a WaitGroup over a known-size batch (job-runner/chain/traverser.go
// stopRunningJobs), here sized once for the whole run instead of per batch.
type executor struct {
	sem chan struct{}
}

func newExecutor(workers int) *executor {
	if workers < 1 {
		workers = 1
	}
	return &executor{sem: make(chan struct{}, workers)}
}

// run blocks until a slot is free or ctx is cancelled, then calls fn holding
// that slot.
func (e *executor) run(ctx context.Context, fn func()) error {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.sem }()
	fn()
	return nil
}

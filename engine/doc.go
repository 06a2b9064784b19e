// Copyright 2024, dawgz-go.

// Package engine runs an ActiveGraph locally: one goroutine per (job, array
// index) task, synchronized through per-task outcome cells and a bounded
// worker pool, following the gather -> join -> preconditions -> execute ->
// postconditions -> publish protocol.
package engine

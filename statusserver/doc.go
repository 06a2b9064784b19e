// Copyright 2024, dawgz-go.

// Package statusserver exposes a run's live task/workflow state over HTTP,
// read-only, sourced from a sink.MemorySink. Grounded on the teacher's
// job-runner/api and job-runner/server boot sequence, generalized from a
// job-chain status endpoint into a workflow-run status endpoint.
package statusserver

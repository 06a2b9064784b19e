// Copyright 2024, dawgz-go.

// Package slurm translates an active workflow subgraph into Slurm batch
// submissions: one script per job, dependency terms built from spec.md's
// status/join mapping, and array fan-out via native --array syntax.
package slurm

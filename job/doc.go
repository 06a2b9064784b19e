// Copyright 2024, dawgz-go.

// Package job provides job-related interfaces and data structures: the
// immutable Job/Edge/Predicate records that make up a workflow graph, and
// the Executable interface a job's body must implement.
//
// Jobs are provided by the caller through the Executable interface - this
// package only defines the contract. It's "bring your own job body": the
// core (graph, engine, slurm) only ever calls Executable.Run and
// Executable.Serialize.
package job

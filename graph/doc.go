// Copyright 2024, dawgz-go.

// Package graph builds and validates workflow graphs (C2) and computes the
// active subgraph a target selection and optional pruning pass produce
// (C3). A Builder accepts jobs and edges in any order and freezes to an
// immutable Workflow; Workflow.Traverse derives the subgraph an execution
// engine (package engine or slurm) actually needs to run.
package graph

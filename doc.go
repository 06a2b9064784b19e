// Copyright 2024, dawgz-go.

// Package dawgz is the public entry point for building and scheduling a
// workflow: an explicit Builder that hands out opaque JobRef handles, and a
// Schedule function that freezes the graph, optionally prunes it, and runs
// it against one of the async, dummy, or Slurm backends.
package dawgz

// Copyright 2024, dawgz-go.

package slurm

import (
	"strings"

	"github.com/dawgz-go/dawgz/dgerrors"
	"github.com/dawgz-go/dawgz/graph"
	"github.com/dawgz-go/dawgz/job"
)

// dependencyKeyword maps an edge's required predecessor status onto the
// Slurm --dependency keyword vocabulary, grounded verbatim on the original
// Python Slurm._submit's `keywords` table (schedulers.py).
func dependencyKeyword(status job.EdgeStatus) string {
	switch status {
	case job.StatusSuccess:
		return "afterok"
	case job.StatusFailure:
		return "afternotok"
	default:
		return "afterany"
	}
}

// buildDependency renders jobID's --dependency value from its incoming edges
// and the external Slurm ids already assigned to its predecessors. Edges
// whose predecessor was skipped (pruned, never submitted) are dropped for
// StatusSuccess and StatusAny: a skipped predecessor is trivially compatible
// with either, so it contributes no constraint, matching how the local
// engine treats SKIPPED as synthetic success. A skipped predecessor is never
// compatible with StatusFailure, though - the local engine would cancel the
// downstream task in that case - so that combination is rejected rather than
// silently dropped, per job.TaskState.CompatibleWith. Returns "" if nothing
// remains to depend on.
func buildDependency(ag *graph.ActiveGraph, jobID string, externalIDs map[string]string) (string, error) {
	edges := ag.InAdj[jobID]
	if len(edges) == 0 {
		return "", nil
	}

	j := ag.Jobs[jobID]
	separator := ","
	if j.Join == job.JoinAny {
		separator = "?"
	}

	var terms []string
	for _, e := range edges {
		extID, ok := externalIDs[e.From]
		if !ok {
			if e.Status == job.StatusFailure {
				return "", dgerrors.UnsatisfiableDependency{JobID: jobID, PredecessorID: e.From}
			}
			// Predecessor was skipped and never submitted.
			continue
		}
		terms = append(terms, dependencyKeyword(e.Status)+":"+extID)
	}

	return strings.Join(terms, separator), nil
}

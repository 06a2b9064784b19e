// Copyright 2024, dawgz-go.

package slurm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dawgz-go/dawgz/job"
)

// resourceDirective maps a job.Resources key onto its dedicated SBATCH flag,
// grounded on the Python Slurm._submit's `translate` table. Unrecognized
// keys pass through unchanged as --<key>=<value>, same as the Python
// fallback of using the raw setting name.
var resourceDirective = map[string]string{
	job.ResourceCPUs:      "cpus-per-task",
	job.ResourceGPUs:      "gpus-per-task",
	job.ResourceRAM:       "mem",
	job.ResourceTimeLimit: "time",
	job.ResourcePartition: "partition",
}

// scriptOptions carries everything buildScript needs beyond the job itself.
type scriptOptions struct {
	CodePath   string // path to the serialized body, written separately
	LogPath    string
	Dependency string
	Indices    []int // runnable array indices; nil/single for a scalar job
	ExecBinary string // path to the dawgz-exec binary invoked to run the body
	Env        []string

	// PreconditionPaths/PostconditionPaths are paths to the serialized
	// job.Predicate.Command bodies for j's preconditions/postconditions, in
	// order. buildScript checks each with ExecBinary --check, relying on
	// "set -o errexit" to abort the script (before the body invocation for
	// preconditions, after it for postconditions) the moment one fails.
	PreconditionPaths  []string
	PostconditionPaths []string
}

// buildScript renders the #!/usr/bin/env bash submission script for j,
// following the section order of the original Python Slurm._submit: job
// name, array spec, output, resources, dependency, convenience flags,
// environment, preconditions, the invocation, then postconditions.
func buildScript(j job.Job, opts scriptOptions) string {
	var b strings.Builder

	fmt.Fprintln(&b, "#!/usr/bin/env bash")
	fmt.Fprintln(&b, "#")
	fmt.Fprintf(&b, "#SBATCH --job-name=%s\n", j.Name)

	if j.IsArray() {
		fmt.Fprintf(&b, "#SBATCH --array=%s\n", arraySpec(opts.Indices, j.ArrayThrottle))
	}
	fmt.Fprintf(&b, "#SBATCH --output=%s\n", opts.LogPath)
	fmt.Fprintln(&b, "#")

	for _, key := range sortedKeys(j.Resources) {
		directive, ok := resourceDirective[key]
		if !ok {
			directive = key
		}
		fmt.Fprintf(&b, "#SBATCH --%s=%s\n", directive, j.Resources[key])
	}

	if opts.Dependency != "" {
		fmt.Fprintln(&b, "#")
		fmt.Fprintf(&b, "#SBATCH --dependency=%s\n", opts.Dependency)
	}

	fmt.Fprintln(&b, "#")
	fmt.Fprintln(&b, "#SBATCH --export=ALL")
	fmt.Fprintln(&b, "#SBATCH --parsable")
	fmt.Fprintln(&b, "#SBATCH --requeue")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "set -o errexit")
	fmt.Fprintln(&b)

	for _, line := range opts.Env {
		fmt.Fprintln(&b, line)
	}
	if len(opts.Env) > 0 {
		fmt.Fprintln(&b)
	}

	for _, path := range opts.PreconditionPaths {
		fmt.Fprintln(&b, execLine(opts.ExecBinary, path, j.IsArray(), true))
	}

	fmt.Fprintln(&b, execLine(opts.ExecBinary, opts.CodePath, j.IsArray(), false))

	for _, path := range opts.PostconditionPaths {
		fmt.Fprintln(&b, execLine(opts.ExecBinary, path, j.IsArray(), true))
	}

	return b.String()
}

// execLine renders a single dawgz-exec invocation. check adds --check, so
// the line runs a predicate rather than a job body; array passes
// $SLURM_ARRAY_TASK_ID as the final argument, the same convention the body
// invocation always used.
func execLine(execBinary, path string, array, check bool) string {
	line := execBinary
	if check {
		line += " --check"
	}
	line += " " + path
	if array {
		line += " $SLURM_ARRAY_TASK_ID"
	}
	return line
}

// arraySpec renders indices as a contiguous "0-(N-1)" range when possible
// (the common case: no pruning touched this array), or a comma list when
// pruning dropped some indices - the direct generalization of the Python
// Slurm._submit's range-vs-list branch on job.array's type, which existed
// there for the same reason: not every array submission is a dense range.
func arraySpec(indices []int, throttle int) string {
	spec := ""
	if isContiguousFromZero(indices) {
		spec = fmt.Sprintf("0-%d", len(indices)-1)
	} else {
		parts := make([]string, len(indices))
		for i, idx := range indices {
			parts[i] = strconv.Itoa(idx)
		}
		spec = strings.Join(parts, ",")
	}
	if throttle > 0 {
		spec += fmt.Sprintf("%%%d", throttle)
	}
	return spec
}

func isContiguousFromZero(indices []int) bool {
	for i, idx := range indices {
		if idx != i {
			return false
		}
	}
	return len(indices) > 0
}

func sortedKeys(m job.Resources) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copyright 2024, dawgz-go.

package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dawgz-go/dawgz/dgerrors"
	"github.com/dawgz-go/dawgz/graph"
	"github.com/dawgz-go/dawgz/id"
	"github.com/dawgz-go/dawgz/job"
	"github.com/dawgz-go/dawgz/retry"
)

// Translator submits an ActiveGraph to a Slurm cluster: one script per job,
// written under WorkDir, with dependency terms built from the graph's edges.
type Translator struct {
	// WorkDir is the run's working directory, e.g. ".dawgz/<run-id>".
	// Created if it doesn't exist.
	WorkDir string

	// ExecBinary is the path to the binary each script invokes to
	// deserialize and run a job's body (cmd/dawgz-exec).
	ExecBinary string

	// Env is prepended, verbatim, to every generated script.
	Env []string

	// Sbatch and Scancel override the binaries invoked to submit and
	// cancel jobs. Default to "sbatch" and "scancel" on PATH.
	Sbatch, Scancel string

	// ScancelTries and ScancelRetryWait bound the rollback retry loop.
	// Default to 3 tries, 500ms apart.
	ScancelTries     int
	ScancelRetryWait time.Duration

	runCmd func(ctx context.Context, name string, args ...string) (string, error)
}

// NewTranslator returns a Translator ready to submit into workDir.
func NewTranslator(workDir, execBinary string) *Translator {
	return &Translator{
		WorkDir:          workDir,
		ExecBinary:       execBinary,
		Sbatch:           "sbatch",
		Scancel:          "scancel",
		ScancelTries:     3,
		ScancelRetryWait: 500 * time.Millisecond,
	}
}

// Result is what a successful Submit produces.
type Result struct {
	// ExternalIDs maps a job id to the Slurm job id sbatch assigned it.
	// Jobs that were entirely skipped by pruning are absent.
	ExternalIDs map[string]string
}

// Submit writes and submits one script per job in ag, in topological order,
// building each job's --dependency directive from the external ids already
// assigned to its predecessors. If any submission fails, every job submitted
// so far in this call is cancelled via scancel before the error is returned,
// per spec.md §7's rollback requirement.
func (t *Translator) Submit(ctx context.Context, ag *graph.ActiveGraph) (*Result, error) {
	if err := os.MkdirAll(t.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("slurm: create work dir: %w", err)
	}

	order, err := topologicalOrder(ag)
	if err != nil {
		return nil, err
	}

	logPath := filepath.Join(t.WorkDir, "jobid.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("slurm: open %s: %w", logPath, err)
	}
	defer logFile.Close()

	externalIDs := map[string]string{}
	submitted := make([]string, 0, len(order))

	for _, jobID := range order {
		if ag.Skipped[jobID] {
			continue
		}

		extID, err := t.submitOne(ctx, ag, jobID, externalIDs)
		if err != nil {
			t.rollback(ctx, externalIDs)
			return nil, err
		}

		externalIDs[jobID] = extID
		submitted = append(submitted, jobID)
		fmt.Fprintf(logFile, "%s %s\n", jobID, extID)
	}

	return &Result{ExternalIDs: externalIDs}, nil
}

func (t *Translator) submitOne(ctx context.Context, ag *graph.ActiveGraph, jobID string, externalIDs map[string]string) (string, error) {
	j := ag.Jobs[jobID]

	body, err := j.Body.Serialize()
	if err != nil {
		return "", dgerrors.CallableSerializationFailed{JobID: jobID, Cause: err}
	}

	codePath := filepath.Join(t.WorkDir, jobID+".body")
	if err := os.WriteFile(codePath, body, 0o644); err != nil {
		return "", fmt.Errorf("slurm: write body for %s: %w", jobID, err)
	}

	prePaths, err := t.writePredicates(jobID, "pre", j.Preconditions)
	if err != nil {
		return "", err
	}
	postPaths, err := t.writePredicates(jobID, "post", j.Postconditions)
	if err != nil {
		return "", err
	}

	logPath := filepath.Join(t.WorkDir, jobID+".log")
	if j.IsArray() {
		logPath = filepath.Join(t.WorkDir, jobID+"_%a.log")
	}

	dependency, err := buildDependency(ag, jobID, externalIDs)
	if err != nil {
		return "", err
	}

	indices := ag.RunnableIndices(jobID)
	script := buildScript(j, scriptOptions{
		CodePath:           codePath,
		LogPath:            logPath,
		Dependency:         dependency,
		Indices:            indices,
		ExecBinary:         t.ExecBinary,
		Env:                t.Env,
		PreconditionPaths:  prePaths,
		PostconditionPaths: postPaths,
	})

	scriptPath := filepath.Join(t.WorkDir, jobID+".sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("slurm: write script for %s: %w", jobID, err)
	}

	out, err := t.run(ctx, t.Sbatch, "--parsable", scriptPath)
	if err != nil {
		return "", dgerrors.SubmissionFailed{JobID: jobID, Output: out, Cause: err}
	}

	extID := strings.TrimSpace(strings.SplitN(out, ";", 2)[0])
	if extID == "" {
		return "", dgerrors.SubmissionFailed{JobID: jobID, Output: out, Cause: fmt.Errorf("sbatch returned no job id")}
	}
	return extID, nil
}

// writePredicates serializes each of preds' Command to "<jobID>.<kind>.<i>.body"
// under WorkDir and returns the resulting paths in order, for buildScript to
// wire into a --check invocation. A predicate with no Command is an
// in-process closure that cannot cross to a remote script, so it's rejected
// rather than silently skipped - skipping it would run the job on the
// cluster without the gate the caller asked for.
func (t *Translator) writePredicates(jobID, kind string, preds []job.Predicate) ([]string, error) {
	paths := make([]string, 0, len(preds))
	for i, p := range preds {
		if p.Command == nil {
			return nil, dgerrors.CallableSerializationFailed{
				JobID: jobID,
				Cause: fmt.Errorf("%s condition %d is an in-process closure; the Slurm backend needs a job.ScalarShellPredicate or job.ArrayShellPredicate", kind, i),
			}
		}

		data, err := p.Command.Serialize()
		if err != nil {
			return nil, dgerrors.CallableSerializationFailed{JobID: jobID, Cause: err}
		}

		path := filepath.Join(t.WorkDir, fmt.Sprintf("%s.%s.%d.body", jobID, kind, i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("slurm: write %s condition %d for %s: %w", kind, i, jobID, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// rollback cancels every job already submitted in this call, tolerating
// individual scancel failures via bounded retry - grounded on the teacher's
// retry package, used the same way job-runner uses it for RM communication.
func (t *Translator) rollback(ctx context.Context, externalIDs map[string]string) {
	logger := log.WithField("component", "slurm.rollback")
	for jobID, extID := range externalIDs {
		extID := extID
		err := retry.DoContext(ctx, t.ScancelTries, t.ScancelRetryWait, func() error {
			_, err := t.run(ctx, t.Scancel, extID)
			return err
		}, func(err error) {
			logger.WithField("job_id", jobID).WithError(err).Warn("scancel attempt failed, retrying")
		})
		if err != nil {
			logger.WithField("job_id", jobID).WithError(err).Error("failed to cancel job during rollback")
		}
	}
}

func (t *Translator) run(ctx context.Context, name string, args ...string) (string, error) {
	if t.runCmd != nil {
		return t.runCmd(ctx, name, args...)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s: %w (stderr: %s)", name, err, stderr.String())
	}
	return stdout.String(), nil
}

// topologicalOrder returns ag's job ids in dependency order (Kahn's
// algorithm), so that every job is submitted after every job it depends on
// and therefore after every external id it needs is already known.
func topologicalOrder(ag *graph.ActiveGraph) ([]string, error) {
	indegree := map[string]int{}
	for id := range ag.Jobs {
		indegree[id] = len(ag.InAdj[id])
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(ag.Jobs))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, e := range ag.OutAdj[n] {
			indegree[e.To]--
			if indegree[e.To] == 0 {
				ready = append(ready, e.To)
			}
		}
	}

	if len(order) != len(ag.Jobs) {
		return nil, fmt.Errorf("slurm: active graph is not a DAG (should be impossible past graph.Builder validation)")
	}
	return order, nil
}

// NewRunWorkDir returns a fresh ".dawgz/<run-id>" style path under root.
func NewRunWorkDir(root string) string {
	return filepath.Join(root, id.NewRunID())
}

// Copyright 2024, dawgz-go.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/dawgz-go/dawgz"
	"github.com/dawgz-go/dawgz/job"
)

// workflowSpec is the declarative YAML shape dawgz-run accepts: every job
// runs a job.ShellCommand body, wired up the same way the Go builder API
// wires programmatic jobs. It exists so dawgz-run has something to run
// without requiring a Go program of its own, the way the teacher's Request
// Manager reads grapher spec files from disk instead of only accepting
// programmatically built requests.
type workflowSpec struct {
	Jobs    []jobSpec  `yaml:"jobs"`
	Targets []string   `yaml:"targets"`
	Edges   []edgeSpec `yaml:"edges"`
}

type jobSpec struct {
	Name          string        `yaml:"name"`
	Cmd           string        `yaml:"cmd"`
	Args          []string      `yaml:"args"`
	Array         int           `yaml:"array"`
	Throttle      int           `yaml:"throttle"`
	Resources     job.Resources `yaml:"resources"`
	Skip          bool          `yaml:"skip"`
}

type edgeSpec struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Status string `yaml:"status"`
}

func loadWorkflowSpec(path string) (*workflowSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow spec: %w", err)
	}

	var spec workflowSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse workflow spec: %w", err)
	}
	return &spec, nil
}

func buildFromSpec(spec *workflowSpec) (*dawgz.Builder, []dawgz.JobRef, error) {
	b := dawgz.NewBuilder()
	refs := map[string]dawgz.JobRef{}

	for _, js := range spec.Jobs {
		opts := []dawgz.JobOption{}
		body := job.NewShellCommand(js.Cmd, js.Args...)
		if js.Array > 0 {
			opts = append(opts, dawgz.Array(js.Array))
			body = job.NewArrayShellCommand(js.Cmd, js.Args...)
		}
		if js.Throttle > 0 {
			opts = append(opts, dawgz.Throttle(js.Throttle))
		}
		if js.Resources != nil {
			opts = append(opts, dawgz.WithResources(js.Resources))
		}
		if js.Skip {
			opts = append(opts, dawgz.Skip())
		}
		refs[js.Name] = b.Job(js.Name, body, opts...)
	}

	for _, es := range spec.Edges {
		to, ok := refs[es.To]
		if !ok {
			return nil, nil, fmt.Errorf("edge references unknown job %q", es.To)
		}
		from, ok := refs[es.From]
		if !ok {
			return nil, nil, fmt.Errorf("edge references unknown job %q", es.From)
		}
		to.After(from, parseEdgeStatus(es.Status))
	}

	targets := make([]dawgz.JobRef, 0, len(spec.Targets))
	for _, name := range spec.Targets {
		ref, ok := refs[name]
		if !ok {
			return nil, nil, fmt.Errorf("target references unknown job %q", name)
		}
		targets = append(targets, ref)
	}

	return b, targets, nil
}

func parseEdgeStatus(s string) job.EdgeStatus {
	switch s {
	case "failure":
		return job.StatusFailure
	case "any":
		return job.StatusAny
	default:
		return job.StatusSuccess
	}
}

// Copyright 2024, dawgz-go.

package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// ShellCommand is a ready-made Executable that runs an external command
// with arguments, capturing stdout/stderr. It's the shell-out primitive
// jobs are commonly built from - most real workloads are "run this
// program" rather than an in-process Go closure.
type ShellCommand struct {
	Cmd   string   `json:"cmd"`
	Args  []string `json:"args"`
	Array bool     `json:"array"`

	mu     sync.RWMutex
	status string
}

// NewShellCommand builds a scalar ShellCommand for cmd with args: Run and
// Check always invoke cmd with exactly args, ignoring the index they're
// given.
func NewShellCommand(cmd string, args ...string) *ShellCommand {
	return &ShellCommand{Cmd: cmd, Args: args}
}

// NewArrayShellCommand builds a ShellCommand for cmd with args whose Run and
// Check append the task index as a final argument, so each array task (or
// each per-task predicate check) invokes a distinguishable command line.
func NewArrayShellCommand(cmd string, args ...string) *ShellCommand {
	return &ShellCommand{Cmd: cmd, Args: args, Array: true}
}

func (s *ShellCommand) argv(index int) []string {
	if !s.Array {
		return s.Args
	}
	return append(append([]string{}, s.Args...), strconv.Itoa(index))
}

// Run executes the command once, ignoring index for non-array use and
// passing it as the final argument otherwise (so an array ShellCommand job
// can dispatch on $INDEX-like conventions without extra plumbing).
func (s *ShellCommand) Run(ctx context.Context, index int) error {
	s.setStatus(fmt.Sprintf("running %s", s.Cmd))
	defer s.setStatus(fmt.Sprintf("done running %s", s.Cmd))

	cmd := exec.CommandContext(ctx, s.Cmd, s.argv(index)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (stderr: %s)", s.Cmd, err, stderr.String())
	}
	return nil
}

// Check runs the command and reports whether it exited zero, the shell
// convention ScalarShellPredicate and ArrayShellPredicate build on. A
// non-zero exit means the predicate doesn't hold, not an error; only a
// failure to run the command at all (missing binary, permissions) is
// reported as an error. Like Run, index is only appended to the command
// line when the ShellCommand is array-tagged.
func (s *ShellCommand) Check(ctx context.Context, index int) (bool, error) {
	cmd := exec.CommandContext(ctx, s.Cmd, s.argv(index)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("%s: %w (stderr: %s)", s.Cmd, err, stderr.String())
}

// Serialize returns the JSON encoding of the command and its arguments, the
// minimum needed for a remote runtime to reconstruct and run it.
func (s *ShellCommand) Serialize() ([]byte, error) {
	return json.Marshal(s)
}

// Status returns a short human-readable description of what the command is
// currently doing, useful for a status server (see package statusserver).
func (s *ShellCommand) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *ShellCommand) setStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = msg
}

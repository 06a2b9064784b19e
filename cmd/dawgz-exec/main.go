// Copyright 2024, dawgz-go.

// dawgz-exec is the minimal binary a Slurm-generated script invokes: it
// deserializes a job body written by slurm.Translator and runs it once,
// with the array index (if any) coming from $SLURM_ARRAY_TASK_ID. Real
// serialization of arbitrary user closures is out of scope; this only
// knows how to run a job.ShellCommand body, the built-in Executable most
// workloads shell out through.
//
// With --check, BodyFile is instead a serialized precondition/postcondition
// command (job.Predicate's Command field): dawgz-exec runs it and exits 0 if
// it holds, 1 otherwise, so the generated script can gate on it with plain
// shell semantics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/alexflint/go-arg"

	"github.com/dawgz-go/dawgz/job"
)

var cmd struct {
	BodyFile string `arg:"positional,required" help:"path to the serialized job body or predicate"`
	Index    string `arg:"positional" help:"array task index, usually $SLURM_ARRAY_TASK_ID"`
	Check    bool   `arg:"--check" help:"treat BodyFile as a predicate: exit 0 if it holds, 1 otherwise"`
}

func main() {
	arg.MustParse(&cmd)

	data, err := os.ReadFile(cmd.BodyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dawgz-exec: read body: %s\n", err)
		os.Exit(1)
	}

	var body job.ShellCommand
	if err := json.Unmarshal(data, &body); err != nil {
		fmt.Fprintf(os.Stderr, "dawgz-exec: decode body: %s\n", err)
		os.Exit(1)
	}

	index := 0
	if cmd.Index != "" {
		index, err = strconv.Atoi(cmd.Index)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dawgz-exec: bad array index %q: %s\n", cmd.Index, err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	if cmd.Check {
		holds, err := body.Check(ctx, index)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dawgz-exec: check: %s\n", err)
			os.Exit(1)
		}
		if !holds {
			os.Exit(1)
		}
		return
	}

	if err := body.Run(ctx, index); err != nil {
		fmt.Fprintf(os.Stderr, "dawgz-exec: %s\n", err)
		os.Exit(1)
	}
}

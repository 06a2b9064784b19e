// Copyright 2024, dawgz-go.

// dawgz-run loads a declarative workflow spec and a config.Engine file,
// schedules the workflow, optionally serves its live status, and exits with
// the code dawgz.Result.ExitCode() reports. Grounded on the minimalism of
// job-runner/main.go: build the pieces, wire them together, run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/dawgz-go/dawgz"
	"github.com/dawgz-go/dawgz/config"
	"github.com/dawgz-go/dawgz/sink"
	"github.com/dawgz-go/dawgz/statusserver"
	"github.com/dawgz-go/dawgz/version"
)

var cmd struct {
	WorkflowFile string `arg:"positional" help:"path to the workflow spec YAML"`
	ConfigFile   string `arg:"--config" help:"path to the engine config YAML"`
	Version      bool   `arg:"--version" help:"print the dawgz-run version and exit"`
}

func main() {
	arg.MustParse(&cmd)
	if cmd.Version {
		fmt.Println(version.Version())
		return
	}
	if cmd.WorkflowFile == "" {
		fmt.Fprintln(os.Stderr, "dawgz-run: a workflow spec file is required")
		os.Exit(2)
	}
	os.Exit(run())
}

func run() int {
	var cfg config.Engine
	if cmd.ConfigFile != "" {
		if err := config.Load(cmd.ConfigFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "dawgz-run: load config: %s\n", err)
			return 2
		}
	}

	spec, err := loadWorkflowSpec(cmd.WorkflowFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dawgz-run: %s\n", err)
		return 2
	}

	builder, targets, err := buildFromSpec(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dawgz-run: %s\n", err)
		return 2
	}

	memSink := sink.NewMemorySink()
	logrusSink := sink.NewLogrusSink(log.StandardLogger())
	multi := sink.NewMultiSink(memSink, logrusSink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("dawgz-run: received interrupt, cancelling workflow")
		cancel()
	}()

	if cfg.Status.Enabled {
		srv := statusserver.New(memSink)
		go func() {
			if err := srv.Run(ctx, cfg.Status.Server); err != nil {
				log.WithError(err).Error("status server stopped")
			}
		}()
	}

	res, err := dawgz.Schedule(ctx, builder, targets, dawgz.Options{
		Backend: backendFromConfig(cfg.Backend),
		Prune:   cfg.Prune,
		Workers: cfg.Workers,
		Sink:    multi,
		WorkDir: cfg.WorkDir,
		Slurm: dawgz.SlurmOptions{
			ExecBinary: cfg.Slurm.ExecBinary,
			Env:        cfg.Slurm.Env,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dawgz-run: %s\n", err)
	}
	return res.ExitCode()
}

func backendFromConfig(name string) dawgz.Backend {
	switch name {
	case "dummy":
		return dawgz.BackendDummy
	case "slurm":
		return dawgz.BackendSlurm
	default:
		return dawgz.BackendAsync
	}
}

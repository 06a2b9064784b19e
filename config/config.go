// Copyright 2017, Square, Inc.

package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

///////////////////////////////////////////////////////////////////////////////
// High-Level Config Structs
///////////////////////////////////////////////////////////////////////////////

// Engine is the config used by cmd/dawgz-run to drive a workflow's
// execution.
type Engine struct {
	// Backend selects how tasks are actually executed: "async" runs job
	// bodies in-process with a bounded worker pool, "slurm" submits them
	// to a Slurm cluster, "dummy" fakes execution for dry runs.
	Backend string `yaml:"backend"`

	// Workers bounds the async backend's worker pool. Ignored by slurm.
	Workers int `yaml:"workers"`

	// Prune enables postcondition-based pruning of the active graph
	// before execution.
	Prune bool `yaml:"prune"`

	// WorkDir is the root under which per-run working directories are
	// created (".dawgz/<run-id>" style).
	WorkDir string `yaml:"work_dir"`

	Slurm  Slurm  `yaml:"slurm"`
	Status Status `yaml:"status"`
}

// Slurm is the config used by the slurm.Translator backend.
type Slurm struct {
	// ExecBinary is the path to cmd/dawgz-exec, invoked by every
	// generated sbatch script to deserialize and run a job's body.
	ExecBinary string `yaml:"exec_binary"`

	// Env is prepended, verbatim, to every generated sbatch script.
	Env []string `yaml:"env"`

	// Sbatch and Scancel name the binaries to submit and cancel jobs
	// with. They are loaded but cmd/dawgz-run does not pass them on: the
	// Slurm backend always invokes "sbatch" and "scancel" from PATH.
	Sbatch  string `yaml:"sbatch"`
	Scancel string `yaml:"scancel"`
}

// Status is the config for the read-only status server exposing a run's
// live progress (see package statusserver).
type Status struct {
	// Enabled turns the status server on for a run.
	Enabled bool `yaml:"enabled"`

	// The config that the status server will run with.
	Server `yaml:",inline"`
}

///////////////////////////////////////////////////////////////////////////////
// Config Components
///////////////////////////////////////////////////////////////////////////////

// Configuration for a web server.
type Server struct {
	// The address the server will listen on (ex: "127.0.0.1:8080").
	ListenAddress string `yaml:"listen_address"`

	// The TLS config used by the server.
	TLS `yaml:"tls_config"`
}

// TLS configuration.
type TLS struct {
	// The certificate file to use.
	CertFile string `yaml:"cert_file"`

	// The key file to use.
	KeyFile string `yaml:"key_file"`

	// The CA file to use.
	CAFile string `yaml:"ca_file"`
}

///////////////////////////////////////////////////////////////////////////////
// Loading Config
///////////////////////////////////////////////////////////////////////////////

// Load loads a configuration file into the struct pointed to by the
// configStruct argument.
func Load(configFile string, configStruct interface{}) error {
	// Make sure the file exists.
	_, err := os.Stat(configFile)
	if err != nil {
		return err
	}

	// Read the file.
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}

	// Unmarshal the contents of the file into the provided struct.
	err = yaml.Unmarshal(data, configStruct)
	if err != nil {
		return err
	}

	return nil
}

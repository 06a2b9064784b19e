/*
Copyright 2017, Square, Inc.

Package config provides the ability to load YAML config files into
predefined structures used by cmd/dawgz-run.

Types of config structs provided by this package:

* Engine: all of the config needed to run a workflow, including which
  backend to use and whether to prune the active graph.

* Slurm: the config used by the slurm.Translator backend (exec binary,
  environment, sbatch/scancel names).

* Status: the config for the optional read-only status server.

* Server: the configuration for running a webserver (ex: the listen address
  the server should run on, the TLS config the server should run with, etc.)

* TLS: the configuration for constructing a Go tls.Config (ex: the CA cert
  file to use, the key file to use, etc.)
*/
package config

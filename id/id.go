// Copyright 2024, dawgz-go.

// Package id provides a globally unique run id for each scheduled workflow,
// backed by rs/xid, the same generator the teacher codebase uses for
// anything that must be unique across concurrent processes.
package id

import (
	"github.com/rs/xid"
)

// NewRunID returns a globally unique, sortable-by-creation-time id
// suitable for naming a scheduled workflow's working directory.
func NewRunID() string {
	return xid.New().String()
}

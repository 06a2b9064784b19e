// Copyright 2024, dawgz-go.

package id_test

import (
	"testing"

	"github.com/dawgz-go/dawgz/id"
)

func TestNewRunIDUnique(t *testing.T) {
	a := id.NewRunID()
	b := id.NewRunID()
	if a == b {
		t.Fatalf("expected distinct run ids, got %q twice", a)
	}
}

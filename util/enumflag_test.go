// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"strings"
	"testing"
)

func TestEnumFlag(t *testing.T) {

	flag := NewEnumFlag("untyped", []string{"untyped", "typed"})

	if flag.String() != "untyped" || flag.IsSet() {
		t.Fatalf("Expected default value to be untyped but got: %v", flag.String())
	}

	if err := flag.Set("typed"); err != nil {
		t.Fatalf("Unexpected error on set: %v", err)
	}

	if flag.String() != "typed" || !flag.IsSet() {
		t.Fatalf("Expected value to be typed but got: %v", flag.String())
	}

	if !strings.Contains(flag.Type(), "untyped,typed") {
		t.Fatalf("Expected flag type to contain untyped,typed but got: %v", flag.Type())
	}

	if err := flag.Set("deadbeef"); err == nil {
		t.Fatalf("Expected error from set")
	}
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/open-policy-agent/wasm2luau/logging"
)

func TestLogger(t *testing.T) {
	logger := New()
	derived := logger.WithFields(map[string]any{"func": 1})

	logger.Debug("dropped")
	derived.Info("translated %d", 1)
	derived.WithFields(map[string]any{"bytes": 10}).Warn("large")

	logger.SetLevel(logging.Debug)
	if derived.GetLevel() != logging.Debug {
		t.Fatal("expected derived logger to share the level")
	}
	logger.Debug("kept")

	exp := []LogEntry{
		{Level: logging.Info, Fields: map[string]any{"func": 1}, Message: "translated 1"},
		{Level: logging.Warn, Fields: map[string]any{"func": 1, "bytes": 10}, Message: "large"},
		{Level: logging.Debug, Message: "kept"},
	}
	if diff := cmp.Diff(exp, logger.Entries()); diff != "" {
		t.Fatalf("unexpected entries (-want, +got):\n%s", diff)
	}
}

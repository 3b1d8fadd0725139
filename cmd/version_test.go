// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGenerateCmdOutput(t *testing.T) {
	var stdout bytes.Buffer

	generateCmdOutput(&stdout)

	expectOutputKeys(t, stdout.String(), []string{
		"Version",
		"Build Commit",
		"Build Timestamp",
		"Build Hostname",
		"Go Version",
		"Platform",
		"Luau Runtime",
	})
}

func expectOutputKeys(t *testing.T, stdout string, expectedKeys []string) {
	t.Helper()

	var gotKeys []string
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		key, _, ok := strings.Cut(line, ":")
		if !ok {
			t.Fatalf("unexpected line %q", line)
		}
		gotKeys = append(gotKeys, key)
	}

	if diff := cmp.Diff(expectedKeys, gotKeys); diff != "" {
		t.Fatalf("unexpected keys (-want, +got):\n%s", diff)
	}
}

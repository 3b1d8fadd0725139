// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package test

import (
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiff returns a line-oriented diff of exp and got, with removed lines
// prefixed by "-" and added lines by "+".
func LineDiff(exp, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(exp, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

// AssertText fails t with a line diff if got differs from exp.
func AssertText(t *testing.T, exp, got string) {
	t.Helper()
	if exp != got {
		t.Fatalf("unexpected output (-want, +got):\n%s", LineDiff(exp, got))
	}
}

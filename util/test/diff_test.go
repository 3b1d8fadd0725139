// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package test

import "testing"

func TestLineDiff(t *testing.T) {
	exp := "return function()\n\tlocal reg_0 = 1\nend\n"
	got := "return function()\n\tlocal reg_0 = 2\nend\n"

	want := " return function()\n-\tlocal reg_0 = 1\n+\tlocal reg_0 = 2\n end\n"
	if d := LineDiff(exp, got); d != want {
		t.Fatalf("expected:\n%q\ngot:\n%q", want, d)
	}
}

func TestLineDiffMissingNewline(t *testing.T) {
	if d := LineDiff("a", "b"); d != "-a\n+b\n" {
		t.Fatalf("unexpected diff %q", d)
	}
}

func TestLineDiffEqual(t *testing.T) {
	s := "end\n"
	if d := LineDiff(s, s); d != " end\n" {
		t.Fatalf("unexpected diff %q", d)
	}
}

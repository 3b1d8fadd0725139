// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package opcode

import "testing"

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op       Opcode
		exp      string
		known    bool
		prefixed bool
	}{
		{op: Unreachable, exp: "unreachable", known: true},
		{op: I32Add, exp: "i32.add", known: true},
		{op: I32Extend8S, exp: "i32.extend8_s", known: true},
		{op: I32TruncSatF32S, exp: "i32.trunc_sat_f32_s", known: true, prefixed: true},
		{op: MemoryCopy, exp: "memory.copy", known: true, prefixed: true},
		{op: Opcode(0xFF), exp: "unknown(0xff)"},
		{op: Opcode(0xFC7F), exp: "unknown(0xfc 0x7f)", prefixed: true},
	}

	for _, tc := range tests {
		t.Run(tc.exp, func(t *testing.T) {
			if tc.op.String() != tc.exp {
				t.Errorf("expected %q, got %q", tc.exp, tc.op.String())
			}
			if tc.op.Known() != tc.known {
				t.Errorf("expected known=%v", tc.known)
			}
			if tc.op.Prefixed() != tc.prefixed {
				t.Errorf("expected prefixed=%v", tc.prefixed)
			}
		})
	}
}

func TestOpcodeNamesUnique(t *testing.T) {
	// Both select encodings share one text name.
	shared := map[Opcode]bool{SelectTyped: true}

	seen := map[string]Opcode{}
	for op, name := range names {
		if shared[op] {
			continue
		}
		if other, ok := seen[name]; ok {
			t.Errorf("%v and %v share the name %q", uint16(op), uint16(other), name)
		}
		seen[name] = op
	}
}

func TestOpcodeSelectNames(t *testing.T) {
	for _, op := range []Opcode{Select, SelectTyped} {
		if op.String() != "select" {
			t.Errorf("expected %v to be named select, got %q", uint16(op), op.String())
		}
	}
}

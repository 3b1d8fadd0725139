// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package backend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
)

// expr is the Luau text of a stack value.
type expr struct {
	text string

	// cond is set if the value is the result of a comparison and holds the
	// boolean expression it was derived from.
	cond string

	// lit is set for integer constants. bits holds the value.
	lit  bool
	bits uint64
}

func atom(text string) expr {
	return expr{text: text}
}

// simple returns true if evaluating x more than once is free of side effects
// and cheap.
func (x expr) simple() bool {
	return x.lit || !strings.ContainsAny(x.text, "( ")
}

func i32Literal(v uint32) expr {
	return expr{text: strconv.FormatUint(uint64(v), 10), lit: true, bits: uint64(v)}
}

func i64Literal(v uint64) expr {
	var text string
	switch v {
	case 0:
		text = "rt.i64.ZERO"
	case 1:
		text = "rt.i64.ONE"
	default:
		text = fmt.Sprintf("rt.i64.from_u32(%d, %d)", uint32(v), uint32(v>>32))
	}
	return expr{text: text, lit: true, bits: v}
}

func floatLiteral(f float64) expr {
	switch {
	case math.IsNaN(f):
		return atom("(0 / 0)")
	case math.IsInf(f, 1):
		return atom("math.huge")
	case math.IsInf(f, -1):
		return atom("(-math.huge)")
	case f == 0 && math.Signbit(f):
		return atom("(-0.0)")
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if f < 0 {
		return atom("(" + s + ")")
	}
	return atom(s)
}

// Literal returns the Luau text of a constant instruction.
func Literal(instr instruction.Instruction) (string, bool) {
	switch instr := instr.(type) {
	case instruction.I32Const:
		return i32Literal(uint32(instr.Value)).text, true
	case instruction.I64Const:
		return i64Literal(uint64(instr.Value)).text, true
	case instruction.F32Const:
		return floatLiteral(float64(instr.Value)).text, true
	case instruction.F64Const:
		return floatLiteral(instr.Value).text, true
	}
	return "", false
}

// Quote returns s as a double quoted Luau string literal. Bytes outside of
// printable ASCII are escaped, so the result is valid for arbitrary binary
// data.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

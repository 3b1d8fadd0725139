// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package instruction defines WASM instruction types.
package instruction

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// NoImmediateArgs indicates the instruction has no immediate arguments.
type NoImmediateArgs struct {
}

// ImmediateArgs returns the immedate arguments of an instruction.
func (NoImmediateArgs) ImmediateArgs() []interface{} {
	return nil
}

// Instruction represents a single WASM instruction.
type Instruction interface {
	Op() opcode.Opcode
	ImmediateArgs() []interface{}
}

// Typed annotates an instruction with the types of the values it pushes onto
// the operand stack. Instruction streams in the typed flavor wrap every
// value-producing instruction in Typed.
type Typed struct {
	Instr   Instruction
	Results []types.ValueType
}

// Op returns the opcode of the wrapped instruction.
func (t Typed) Op() opcode.Opcode {
	return t.Instr.Op()
}

// ImmediateArgs returns the immediate arguments of the wrapped instruction.
func (t Typed) ImmediateArgs() []interface{} {
	return t.Instr.ImmediateArgs()
}

// Unwrap returns the instruction with any type annotation removed, and the
// annotation if there was one.
func Unwrap(instr Instruction) (Instruction, []types.ValueType, bool) {
	if t, ok := instr.(Typed); ok {
		return t.Instr, t.Results, true
	}
	return instr, nil, false
}

// Strip returns a copy of instrs with all type annotations removed.
func Strip(instrs []Instruction) []Instruction {
	cpy := make([]Instruction, len(instrs))
	for i := range instrs {
		cpy[i], _, _ = Unwrap(instrs[i])
	}
	return cpy
}

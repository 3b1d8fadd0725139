// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import "github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"

// Load represents one of the WASM load instructions. Code selects the access
// width, signedness and result type (e.g. opcode.I32Load8U).
type Load struct {
	Code   opcode.Opcode
	Align  uint32
	Offset uint32
}

// Op returns the opcode of the instruction.
func (i Load) Op() opcode.Opcode {
	return i.Code
}

// ImmediateArgs returns the static offset and alignment operands.
func (i Load) ImmediateArgs() []interface{} {
	return []interface{}{i.Align, i.Offset}
}

// Store represents one of the WASM store instructions.
type Store struct {
	Code   opcode.Opcode
	Align  uint32
	Offset uint32
}

// Op returns the opcode of the instruction.
func (i Store) Op() opcode.Opcode {
	return i.Code
}

// ImmediateArgs returns the static offset and alignment operands.
func (i Store) ImmediateArgs() []interface{} {
	return []interface{}{i.Align, i.Offset}
}

// MemorySize represents the WASM memory.size instruction.
type MemorySize struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (MemorySize) Op() opcode.Opcode {
	return opcode.MemorySize
}

// MemoryGrow represents the WASM memory.grow instruction.
type MemoryGrow struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (MemoryGrow) Op() opcode.Opcode {
	return opcode.MemoryGrow
}

// MemoryCopy represents the WASM memory.copy instruction.
type MemoryCopy struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (MemoryCopy) Op() opcode.Opcode {
	return opcode.MemoryCopy
}

// MemoryFill represents the WASM memory.fill instruction.
type MemoryFill struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (MemoryFill) Op() opcode.Opcode {
	return opcode.MemoryFill
}

// MemoryInit represents the WASM memory.init instruction.
type MemoryInit struct {
	Data uint32
}

// Op returns the opcode of the instruction.
func (MemoryInit) Op() opcode.Opcode {
	return opcode.MemoryInit
}

// ImmediateArgs returns the data segment index.
func (i MemoryInit) ImmediateArgs() []interface{} {
	return []interface{}{i.Data}
}

// DataDrop represents the WASM data.drop instruction.
type DataDrop struct {
	Data uint32
}

// Op returns the opcode of the instruction.
func (DataDrop) Op() opcode.Opcode {
	return opcode.DataDrop
}

// ImmediateArgs returns the data segment index.
func (i DataDrop) ImmediateArgs() []interface{} {
	return []interface{}{i.Data}
}

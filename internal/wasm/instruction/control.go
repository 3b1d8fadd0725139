// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// BlockType describes the stack signature of a structured instruction. The
// zero value is the empty signature. Result holds a single result type and
// Index refers to a function type in the module (multi-value). At most one of
// them is set.
type BlockType struct {
	Result *types.ValueType
	Index  *uint32
}

// Unreachable represents a WASM unreachable instruction.
type Unreachable struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (Unreachable) Op() opcode.Opcode {
	return opcode.Unreachable
}

// Nop represents a WASM no-op instruction.
type Nop struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (Nop) Op() opcode.Opcode {
	return opcode.Nop
}

// Block represents a WASM block instruction. The block extends to the
// matching End.
type Block struct {
	Type BlockType
}

// Op returns the opcode of the instruction.
func (Block) Op() opcode.Opcode {
	return opcode.Block
}

// ImmediateArgs returns the block signature.
func (i Block) ImmediateArgs() []interface{} {
	return []interface{}{i.Type}
}

// Loop represents a WASM loop instruction.
type Loop struct {
	Type BlockType
}

// Op returns the opcode of the instruction.
func (Loop) Op() opcode.Opcode {
	return opcode.Loop
}

// ImmediateArgs returns the block signature.
func (i Loop) ImmediateArgs() []interface{} {
	return []interface{}{i.Type}
}

// If represents a WASM if instruction. The then-branch extends to the
// matching Else or End.
type If struct {
	Type BlockType
}

// Op returns the opcode of the instruction.
func (If) Op() opcode.Opcode {
	return opcode.If
}

// ImmediateArgs returns the block signature.
func (i If) ImmediateArgs() []interface{} {
	return []interface{}{i.Type}
}

// Else represents a WASM else instruction.
type Else struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (Else) Op() opcode.Opcode {
	return opcode.Else
}

// End represents a WASM end instruction.
type End struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (End) Op() opcode.Opcode {
	return opcode.End
}

// Br represents a WASM br instruction.
type Br struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (Br) Op() opcode.Opcode {
	return opcode.Br
}

// ImmediateArgs returns the block index to break to.
func (i Br) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// BrIf represents a WASM br_if instruction.
type BrIf struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (BrIf) Op() opcode.Opcode {
	return opcode.BrIf
}

// ImmediateArgs returns the block index to break to.
func (i BrIf) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// BrTable represents a WASM br_table instruction.
type BrTable struct {
	Table   []uint32
	Default uint32
}

// Op returns the opcode of the instruction.
func (BrTable) Op() opcode.Opcode {
	return opcode.BrTable
}

// ImmediateArgs returns the branch table and the default label.
func (i BrTable) ImmediateArgs() []interface{} {
	return []interface{}{i.Table, i.Default}
}

// Return represents a WASM return instruction.
type Return struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (Return) Op() opcode.Opcode {
	return opcode.Return
}

// Call represents a WASM call instruction.
type Call struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (Call) Op() opcode.Opcode {
	return opcode.Call
}

// ImmediateArgs returns the function index.
func (i Call) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// CallIndirect represents a WASM call_indirect instruction.
type CallIndirect struct {
	Index uint32 // type index
	Table uint32
}

// Op returns the opcode of the instruction.
func (CallIndirect) Op() opcode.Opcode {
	return opcode.CallIndirect
}

// ImmediateArgs returns the function type index and the table index.
func (i CallIndirect) ImmediateArgs() []interface{} {
	return []interface{}{i.Index, i.Table}
}

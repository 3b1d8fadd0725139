// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import "github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"

// GetLocal represents the WASM local.get instruction.
type GetLocal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (GetLocal) Op() opcode.Opcode {
	return opcode.GetLocal
}

// ImmediateArgs returns the index of the local variable to push onto the stack.
func (i GetLocal) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// SetLocal represents the WASM local.set instruction.
type SetLocal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (SetLocal) Op() opcode.Opcode {
	return opcode.SetLocal
}

// ImmediateArgs returns the index of the local variable to set with the top of
// the stack.
func (i SetLocal) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// TeeLocal represents the WASM local.tee instruction.
type TeeLocal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (TeeLocal) Op() opcode.Opcode {
	return opcode.TeeLocal
}

// ImmediateArgs returns the index of the local variable to "tee" with the top of
// the stack (like set, but retaining the top of the stack).
func (i TeeLocal) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// GetGlobal represents the WASM global.get instruction.
type GetGlobal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (GetGlobal) Op() opcode.Opcode {
	return opcode.GetGlobal
}

// ImmediateArgs returns the index of the global variable to push onto the stack.
func (i GetGlobal) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// SetGlobal represents the WASM global.set instruction.
type SetGlobal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (SetGlobal) Op() opcode.Opcode {
	return opcode.SetGlobal
}

// ImmediateArgs returns the index of the global variable to set with the top of
// the stack.
func (i SetGlobal) ImmediateArgs() []interface{} {
	return []interface{}{i.Index}
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// Drop represents a WASM drop instruction.
type Drop struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (Drop) Op() opcode.Opcode {
	return opcode.Drop
}

// Select represents a WASM select instruction. Type is only set for the
// explicitly typed encoding.
type Select struct {
	Type *types.ValueType
}

// Op returns the opcode of the instruction.
func (i Select) Op() opcode.Opcode {
	if i.Type != nil {
		return opcode.SelectTyped
	}
	return opcode.Select
}

// ImmediateArgs returns the operand type, if any.
func (i Select) ImmediateArgs() []interface{} {
	if i.Type == nil {
		return nil
	}
	return []interface{}{*i.Type}
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package analyzer

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// signature is the stack effect of an instruction.
type signature struct {
	in  []types.ValueType
	out []types.ValueType
}

var (
	i32 = types.I32
	i64 = types.I64
	f32 = types.F32
	f64 = types.F64
)

func sig(in []types.ValueType, out ...types.ValueType) signature {
	return signature{in: in, out: out}
}

func vts(tpes ...types.ValueType) []types.ValueType {
	return tpes
}

var (
	signatureNone       = signature{}
	signatureI32_I32    = sig(vts(i32), i32)
	signatureI32I32_I32 = sig(vts(i32, i32), i32)
	signatureI64_I32    = sig(vts(i64), i32)
	signatureI64I64_I32 = sig(vts(i64, i64), i32)
	signatureF32F32_I32 = sig(vts(f32, f32), i32)
	signatureF64F64_I32 = sig(vts(f64, f64), i32)
	signatureI64_I64    = sig(vts(i64), i64)
	signatureI64I64_I64 = sig(vts(i64, i64), i64)
	signatureF32_F32    = sig(vts(f32), f32)
	signatureF32F32_F32 = sig(vts(f32, f32), f32)
	signatureF64_F64    = sig(vts(f64), f64)
	signatureF64F64_F64 = sig(vts(f64, f64), f64)
	signatureI32_I64    = sig(vts(i32), i64)
	signatureI32_F32    = sig(vts(i32), f32)
	signatureI32_F64    = sig(vts(i32), f64)
	signatureI64_F32    = sig(vts(i64), f32)
	signatureI64_F64    = sig(vts(i64), f64)
	signatureF32_I32    = sig(vts(f32), i32)
	signatureF32_I64    = sig(vts(f32), i64)
	signatureF32_F64    = sig(vts(f32), f64)
	signatureF64_I32    = sig(vts(f64), i32)
	signatureF64_I64    = sig(vts(f64), i64)
	signatureF64_F32    = sig(vts(f64), f32)
	signatureI32I32     = sig(vts(i32, i32))
	signatureI32I64     = sig(vts(i32, i64))
	signatureI32F32     = sig(vts(i32, f32))
	signatureI32F64     = sig(vts(i32, f64))
	signatureI32I32I32  = sig(vts(i32, i32, i32))
	signatureNone_I32   = sig(nil, i32)
)

// numericSignature returns the stack effect of a numeric instruction.
func numericSignature(op opcode.Opcode) (signature, bool) {
	switch {
	case op == opcode.I32Eqz:
		return signatureI32_I32, true
	case op >= opcode.I32Eq && op <= opcode.I32GeU:
		return signatureI32I32_I32, true
	case op == opcode.I64Eqz:
		return signatureI64_I32, true
	case op >= opcode.I64Eq && op <= opcode.I64GeU:
		return signatureI64I64_I32, true
	case op >= opcode.F32Eq && op <= opcode.F32Ge:
		return signatureF32F32_I32, true
	case op >= opcode.F64Eq && op <= opcode.F64Ge:
		return signatureF64F64_I32, true
	case op >= opcode.I32Clz && op <= opcode.I32Popcnt:
		return signatureI32_I32, true
	case op >= opcode.I32Add && op <= opcode.I32Rotr:
		return signatureI32I32_I32, true
	case op >= opcode.I64Clz && op <= opcode.I64Popcnt:
		return signatureI64_I64, true
	case op >= opcode.I64Add && op <= opcode.I64Rotr:
		return signatureI64I64_I64, true
	case op >= opcode.F32Abs && op <= opcode.F32Sqrt:
		return signatureF32_F32, true
	case op >= opcode.F32Add && op <= opcode.F32Copysign:
		return signatureF32F32_F32, true
	case op >= opcode.F64Abs && op <= opcode.F64Sqrt:
		return signatureF64_F64, true
	case op >= opcode.F64Add && op <= opcode.F64Copysign:
		return signatureF64F64_F64, true
	}

	switch op {
	case opcode.I32WrapI64:
		return signatureI64_I32, true
	case opcode.I32TruncF32S, opcode.I32TruncF32U, opcode.I32ReinterpretF32,
		opcode.I32TruncSatF32S, opcode.I32TruncSatF32U:
		return signatureF32_I32, true
	case opcode.I32TruncF64S, opcode.I32TruncF64U,
		opcode.I32TruncSatF64S, opcode.I32TruncSatF64U:
		return signatureF64_I32, true
	case opcode.I64ExtendI32S, opcode.I64ExtendI32U:
		return signatureI32_I64, true
	case opcode.I64TruncF32S, opcode.I64TruncF32U,
		opcode.I64TruncSatF32S, opcode.I64TruncSatF32U:
		return signatureF32_I64, true
	case opcode.I64TruncF64S, opcode.I64TruncF64U, opcode.I64ReinterpretF64,
		opcode.I64TruncSatF64S, opcode.I64TruncSatF64U:
		return signatureF64_I64, true
	case opcode.F32ConvertI32S, opcode.F32ConvertI32U, opcode.F32ReinterpretI32:
		return signatureI32_F32, true
	case opcode.F32ConvertI64S, opcode.F32ConvertI64U:
		return signatureI64_F32, true
	case opcode.F32DemoteF64:
		return signatureF64_F32, true
	case opcode.F64ConvertI32S, opcode.F64ConvertI32U:
		return signatureI32_F64, true
	case opcode.F64ConvertI64S, opcode.F64ConvertI64U, opcode.F64ReinterpretI64:
		return signatureI64_F64, true
	case opcode.F64PromoteF32:
		return signatureF32_F64, true
	case opcode.I32Extend8S, opcode.I32Extend16S:
		return signatureI32_I32, true
	case opcode.I64Extend8S, opcode.I64Extend16S, opcode.I64Extend32S:
		return signatureI64_I64, true
	}

	return signatureNone, false
}

// loadSignature returns the stack effect of a load instruction.
func loadSignature(op opcode.Opcode) (signature, bool) {
	switch op {
	case opcode.I32Load, opcode.I32Load8S, opcode.I32Load8U, opcode.I32Load16S, opcode.I32Load16U:
		return signatureI32_I32, true
	case opcode.I64Load, opcode.I64Load8S, opcode.I64Load8U, opcode.I64Load16S, opcode.I64Load16U,
		opcode.I64Load32S, opcode.I64Load32U:
		return signatureI32_I64, true
	case opcode.F32Load:
		return signatureI32_F32, true
	case opcode.F64Load:
		return signatureI32_F64, true
	}
	return signatureNone, false
}

// storeSignature returns the stack effect of a store instruction.
func storeSignature(op opcode.Opcode) (signature, bool) {
	switch op {
	case opcode.I32Store, opcode.I32Store8, opcode.I32Store16:
		return signatureI32I32, true
	case opcode.I64Store, opcode.I64Store8, opcode.I64Store16, opcode.I64Store32:
		return signatureI32I64, true
	case opcode.F32Store:
		return signatureI32F32, true
	case opcode.F64Store:
		return signatureI32F64, true
	}
	return signatureNone, false
}

// canTrap returns true if evaluating the instruction can raise a trap.
func canTrap(op opcode.Opcode) bool {
	switch {
	case op >= opcode.I32Load && op <= opcode.I64Load32U:
		return true
	case op >= opcode.I32DivS && op <= opcode.I32RemU:
		return true
	case op >= opcode.I64DivS && op <= opcode.I64RemU:
		return true
	case op >= opcode.I32TruncF32S && op <= opcode.I32TruncF64U:
		return true
	case op >= opcode.I64TruncF32S && op <= opcode.I64TruncF64U:
		return true
	}
	return false
}

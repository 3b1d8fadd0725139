// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package backend

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
)

// operator describes how a numeric instruction is emitted. Operands are
// substituted into format in stack order.
type operator struct {
	format string

	// compare is set if format is a boolean condition. The i32 result is
	// derived from it.
	compare bool

	// round is set if the result must be rounded to single precision.
	round bool
}

func call(helper string, arity int) operator {
	switch arity {
	case 1:
		return operator{format: helper + "(%s)"}
	default:
		return operator{format: helper + "(%s, %s)"}
	}
}

func compare(format string) operator {
	return operator{format: format, compare: true}
}

func rounded(format string) operator {
	return operator{format: format, round: true}
}

var operators = map[opcode.Opcode]operator{
	opcode.I32Eqz: compare("%s == 0"),
	opcode.I32Eq:  compare("%s == %s"),
	opcode.I32Ne:  compare("%s ~= %s"),
	opcode.I32LtS: compare("rt.lt.i32(%s, %s)"),
	opcode.I32LtU: compare("%s < %s"),
	opcode.I32GtS: compare("rt.gt.i32(%s, %s)"),
	opcode.I32GtU: compare("%s > %s"),
	opcode.I32LeS: compare("rt.le.i32(%s, %s)"),
	opcode.I32LeU: compare("%s <= %s"),
	opcode.I32GeS: compare("rt.ge.i32(%s, %s)"),
	opcode.I32GeU: compare("%s >= %s"),

	opcode.I64Eqz: compare("rt.eqz.i64(%s)"),
	opcode.I64Eq:  compare("rt.eq.i64(%s, %s)"),
	opcode.I64Ne:  compare("rt.ne.i64(%s, %s)"),
	opcode.I64LtS: compare("rt.lt.i64(%s, %s)"),
	opcode.I64LtU: compare("rt.lt.u64(%s, %s)"),
	opcode.I64GtS: compare("rt.gt.i64(%s, %s)"),
	opcode.I64GtU: compare("rt.gt.u64(%s, %s)"),
	opcode.I64LeS: compare("rt.le.i64(%s, %s)"),
	opcode.I64LeU: compare("rt.le.u64(%s, %s)"),
	opcode.I64GeS: compare("rt.ge.i64(%s, %s)"),
	opcode.I64GeU: compare("rt.ge.u64(%s, %s)"),

	opcode.F32Eq: compare("%s == %s"),
	opcode.F32Ne: compare("%s ~= %s"),
	opcode.F32Lt: compare("%s < %s"),
	opcode.F32Gt: compare("%s > %s"),
	opcode.F32Le: compare("%s <= %s"),
	opcode.F32Ge: compare("%s >= %s"),
	opcode.F64Eq: compare("%s == %s"),
	opcode.F64Ne: compare("%s ~= %s"),
	opcode.F64Lt: compare("%s < %s"),
	opcode.F64Gt: compare("%s > %s"),
	opcode.F64Le: compare("%s <= %s"),
	opcode.F64Ge: compare("%s >= %s"),

	opcode.I32Clz:    call("bit32.countlz", 1),
	opcode.I32Ctz:    call("bit32.countrz", 1),
	opcode.I32Popcnt: call("rt.popcnt.i32", 1),
	opcode.I32Add:    {format: "((%s + %s) %% 4294967296)"},
	opcode.I32Sub:    {format: "((%s - %s) %% 4294967296)"},
	opcode.I32Mul:    call("rt.mul.i32", 2),
	opcode.I32DivS:   call("rt.div.i32", 2),
	opcode.I32DivU:   call("rt.div.u32", 2),
	opcode.I32RemS:   call("rt.rem.i32", 2),
	opcode.I32RemU:   call("rt.rem.u32", 2),
	opcode.I32And:    call("bit32.band", 2),
	opcode.I32Or:     call("bit32.bor", 2),
	opcode.I32Xor:    call("bit32.bxor", 2),
	opcode.I32Shl:    {format: "bit32.lshift(%s, %s %% 32)"},
	opcode.I32ShrS:   {format: "bit32.arshift(%s, %s %% 32)"},
	opcode.I32ShrU:   {format: "bit32.rshift(%s, %s %% 32)"},
	opcode.I32Rotl:   call("bit32.lrotate", 2),
	opcode.I32Rotr:   call("bit32.rrotate", 2),

	opcode.I64Clz:    call("rt.clz.i64", 1),
	opcode.I64Ctz:    call("rt.ctz.i64", 1),
	opcode.I64Popcnt: call("rt.popcnt.i64", 1),
	opcode.I64Add:    call("rt.add.i64", 2),
	opcode.I64Sub:    call("rt.sub.i64", 2),
	opcode.I64Mul:    call("rt.mul.i64", 2),
	opcode.I64DivS:   call("rt.div.i64", 2),
	opcode.I64DivU:   call("rt.div.u64", 2),
	opcode.I64RemS:   call("rt.rem.i64", 2),
	opcode.I64RemU:   call("rt.rem.u64", 2),
	opcode.I64And:    call("rt.band.i64", 2),
	opcode.I64Or:     call("rt.bor.i64", 2),
	opcode.I64Xor:    call("rt.bxor.i64", 2),
	opcode.I64Shl:    call("rt.shl.i64", 2),
	opcode.I64ShrS:   call("rt.shr.i64", 2),
	opcode.I64ShrU:   call("rt.shr.u64", 2),
	opcode.I64Rotl:   call("rt.rotl.i64", 2),
	opcode.I64Rotr:   call("rt.rotr.i64", 2),

	opcode.F32Abs:      call("math.abs", 1),
	opcode.F32Neg:      {format: "(-%s)"},
	opcode.F32Ceil:     call("math.ceil", 1),
	opcode.F32Floor:    call("math.floor", 1),
	opcode.F32Trunc:    call("rt.math.trunc", 1),
	opcode.F32Nearest:  call("rt.math.nearest", 1),
	opcode.F32Sqrt:     rounded("math.sqrt(%s)"),
	opcode.F32Add:      rounded("%s + %s"),
	opcode.F32Sub:      rounded("%s - %s"),
	opcode.F32Mul:      rounded("%s * %s"),
	opcode.F32Div:      rounded("%s / %s"),
	opcode.F32Min:      call("rt.math.min", 2),
	opcode.F32Max:      call("rt.math.max", 2),
	opcode.F32Copysign: call("rt.math.copysign", 2),

	opcode.F64Abs:      call("math.abs", 1),
	opcode.F64Neg:      {format: "(-%s)"},
	opcode.F64Ceil:     call("math.ceil", 1),
	opcode.F64Floor:    call("math.floor", 1),
	opcode.F64Trunc:    call("rt.math.trunc", 1),
	opcode.F64Nearest:  call("rt.math.nearest", 1),
	opcode.F64Sqrt:     call("math.sqrt", 1),
	opcode.F64Add:      {format: "(%s + %s)"},
	opcode.F64Sub:      {format: "(%s - %s)"},
	opcode.F64Mul:      {format: "(%s * %s)"},
	opcode.F64Div:      {format: "(%s / %s)"},
	opcode.F64Min:      call("rt.math.min", 2),
	opcode.F64Max:      call("rt.math.max", 2),
	opcode.F64Copysign: call("rt.math.copysign", 2),

	opcode.I32WrapI64:        call("rt.wrap.i32_i64", 1),
	opcode.I32TruncF32S:      call("rt.trunc.i32_f32", 1),
	opcode.I32TruncF32U:      call("rt.trunc.u32_f32", 1),
	opcode.I32TruncF64S:      call("rt.trunc.i32_f64", 1),
	opcode.I32TruncF64U:      call("rt.trunc.u32_f64", 1),
	opcode.I64ExtendI32S:     call("rt.extend.i64_i32", 1),
	opcode.I64ExtendI32U:     call("rt.extend.u64_i32", 1),
	opcode.I64TruncF32S:      call("rt.trunc.i64_f32", 1),
	opcode.I64TruncF32U:      call("rt.trunc.u64_f32", 1),
	opcode.I64TruncF64S:      call("rt.trunc.i64_f64", 1),
	opcode.I64TruncF64U:      call("rt.trunc.u64_f64", 1),
	opcode.F32ConvertI32S:    call("rt.convert.f32_i32", 1),
	opcode.F32ConvertI32U:    call("rt.convert.f32_u32", 1),
	opcode.F32ConvertI64S:    call("rt.convert.f32_i64", 1),
	opcode.F32ConvertI64U:    call("rt.convert.f32_u64", 1),
	opcode.F32DemoteF64:      call("rt.round.f32", 1),
	opcode.F64ConvertI32S:    call("rt.convert.f64_i32", 1),
	opcode.F64ConvertI32U:    {format: "%s"},
	opcode.F64ConvertI64S:    call("rt.convert.f64_i64", 1),
	opcode.F64ConvertI64U:    call("rt.convert.f64_u64", 1),
	opcode.F64PromoteF32:     {format: "%s"},
	opcode.I32ReinterpretF32: call("rt.reinterpret.i32_f32", 1),
	opcode.I64ReinterpretF64: call("rt.reinterpret.i64_f64", 1),
	opcode.F32ReinterpretI32: call("rt.reinterpret.f32_i32", 1),
	opcode.F64ReinterpretI64: call("rt.reinterpret.f64_i64", 1),

	opcode.I32Extend8S:  call("rt.extend.i32_n8", 1),
	opcode.I32Extend16S: call("rt.extend.i32_n16", 1),
	opcode.I64Extend8S:  call("rt.extend.i64_n8", 1),
	opcode.I64Extend16S: call("rt.extend.i64_n16", 1),
	opcode.I64Extend32S: call("rt.extend.i64_n32", 1),

	opcode.I32TruncSatF32S: call("rt.trunc_sat.i32_f32", 1),
	opcode.I32TruncSatF32U: call("rt.trunc_sat.u32_f32", 1),
	opcode.I32TruncSatF64S: call("rt.trunc_sat.i32_f64", 1),
	opcode.I32TruncSatF64U: call("rt.trunc_sat.u32_f64", 1),
	opcode.I64TruncSatF32S: call("rt.trunc_sat.i64_f32", 1),
	opcode.I64TruncSatF32U: call("rt.trunc_sat.u64_f32", 1),
	opcode.I64TruncSatF64S: call("rt.trunc_sat.i64_f64", 1),
	opcode.I64TruncSatF64U: call("rt.trunc_sat.u64_f64", 1),
}

var loads = map[opcode.Opcode]string{
	opcode.I32Load:    "rt.load.i32",
	opcode.I64Load:    "rt.load.i64",
	opcode.F32Load:    "rt.load.f32",
	opcode.F64Load:    "rt.load.f64",
	opcode.I32Load8S:  "rt.load.i32_n8",
	opcode.I32Load8U:  "rt.load.i32_u8",
	opcode.I32Load16S: "rt.load.i32_n16",
	opcode.I32Load16U: "rt.load.i32_u16",
	opcode.I64Load8S:  "rt.load.i64_n8",
	opcode.I64Load8U:  "rt.load.i64_u8",
	opcode.I64Load16S: "rt.load.i64_n16",
	opcode.I64Load16U: "rt.load.i64_u16",
	opcode.I64Load32S: "rt.load.i64_n32",
	opcode.I64Load32U: "rt.load.i64_u32",
}

var stores = map[opcode.Opcode]string{
	opcode.I32Store:   "rt.store.i32",
	opcode.I64Store:   "rt.store.i64",
	opcode.F32Store:   "rt.store.f32",
	opcode.F64Store:   "rt.store.f64",
	opcode.I32Store8:  "rt.store.i32_n8",
	opcode.I32Store16: "rt.store.i32_n16",
	opcode.I64Store8:  "rt.store.i64_n8",
	opcode.I64Store16: "rt.store.i64_n16",
	opcode.I64Store32: "rt.store.i64_n32",
}

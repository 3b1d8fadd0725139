// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package backend

import (
	"math/bits"

	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
)

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// fold evaluates an integer operator on constant operands with fixed-width
// arithmetic. i32 operands and results occupy the low 32 bits. Operators that
// would trap are not folded.
func fold(op opcode.Opcode, args []uint64) (uint64, bool) {
	if len(args) == 1 {
		return fold1(op, args[0])
	}
	if len(args) == 2 {
		return fold2(op, args[0], args[1])
	}
	return 0, false
}

func fold1(op opcode.Opcode, x uint64) (uint64, bool) {
	a, sa := uint32(x), int32(x)
	switch op {
	case opcode.I32Eqz:
		return b2u(a == 0), true
	case opcode.I32Clz:
		return uint64(bits.LeadingZeros32(a)), true
	case opcode.I32Ctz:
		return uint64(bits.TrailingZeros32(a)), true
	case opcode.I32Popcnt:
		return uint64(bits.OnesCount32(a)), true
	case opcode.I32Extend8S:
		return uint64(uint32(int32(int8(a)))), true
	case opcode.I32Extend16S:
		return uint64(uint32(int32(int16(a)))), true
	case opcode.I64Eqz:
		return b2u(x == 0), true
	case opcode.I64Clz:
		return uint64(bits.LeadingZeros64(x)), true
	case opcode.I64Ctz:
		return uint64(bits.TrailingZeros64(x)), true
	case opcode.I64Popcnt:
		return uint64(bits.OnesCount64(x)), true
	case opcode.I64Extend8S:
		return uint64(int64(int8(x))), true
	case opcode.I64Extend16S:
		return uint64(int64(int16(x))), true
	case opcode.I64Extend32S:
		return uint64(int64(int32(x))), true
	case opcode.I32WrapI64:
		return uint64(a), true
	case opcode.I64ExtendI32S:
		return uint64(int64(sa)), true
	case opcode.I64ExtendI32U:
		return uint64(a), true
	}
	return 0, false
}

func fold2(op opcode.Opcode, x, y uint64) (uint64, bool) {
	a, b := uint32(x), uint32(y)
	sa, sb := int32(a), int32(b)
	sx, sy := int64(x), int64(y)

	switch op {
	case opcode.I32Add:
		return uint64(a + b), true
	case opcode.I32Sub:
		return uint64(a - b), true
	case opcode.I32Mul:
		return uint64(a * b), true
	case opcode.I32DivS:
		if b == 0 || (sa == -1<<31 && sb == -1) {
			return 0, false
		}
		return uint64(uint32(sa / sb)), true
	case opcode.I32DivU:
		if b == 0 {
			return 0, false
		}
		return uint64(a / b), true
	case opcode.I32RemS:
		if b == 0 {
			return 0, false
		}
		if sb == -1 {
			return 0, true
		}
		return uint64(uint32(sa % sb)), true
	case opcode.I32RemU:
		if b == 0 {
			return 0, false
		}
		return uint64(a % b), true
	case opcode.I32And:
		return uint64(a & b), true
	case opcode.I32Or:
		return uint64(a | b), true
	case opcode.I32Xor:
		return uint64(a ^ b), true
	case opcode.I32Shl:
		return uint64(a << (b % 32)), true
	case opcode.I32ShrS:
		return uint64(uint32(sa >> (b % 32))), true
	case opcode.I32ShrU:
		return uint64(a >> (b % 32)), true
	case opcode.I32Rotl:
		return uint64(bits.RotateLeft32(a, int(b%32))), true
	case opcode.I32Rotr:
		return uint64(bits.RotateLeft32(a, -int(b%32))), true
	case opcode.I32Eq:
		return b2u(a == b), true
	case opcode.I32Ne:
		return b2u(a != b), true
	case opcode.I32LtS:
		return b2u(sa < sb), true
	case opcode.I32LtU:
		return b2u(a < b), true
	case opcode.I32GtS:
		return b2u(sa > sb), true
	case opcode.I32GtU:
		return b2u(a > b), true
	case opcode.I32LeS:
		return b2u(sa <= sb), true
	case opcode.I32LeU:
		return b2u(a <= b), true
	case opcode.I32GeS:
		return b2u(sa >= sb), true
	case opcode.I32GeU:
		return b2u(a >= b), true

	case opcode.I64Add:
		return x + y, true
	case opcode.I64Sub:
		return x - y, true
	case opcode.I64Mul:
		return x * y, true
	case opcode.I64DivS:
		if y == 0 || (sx == -1<<63 && sy == -1) {
			return 0, false
		}
		return uint64(sx / sy), true
	case opcode.I64DivU:
		if y == 0 {
			return 0, false
		}
		return x / y, true
	case opcode.I64RemS:
		if y == 0 {
			return 0, false
		}
		if sy == -1 {
			return 0, true
		}
		return uint64(sx % sy), true
	case opcode.I64RemU:
		if y == 0 {
			return 0, false
		}
		return x % y, true
	case opcode.I64And:
		return x & y, true
	case opcode.I64Or:
		return x | y, true
	case opcode.I64Xor:
		return x ^ y, true
	case opcode.I64Shl:
		return x << (y % 64), true
	case opcode.I64ShrS:
		return uint64(sx >> (y % 64)), true
	case opcode.I64ShrU:
		return x >> (y % 64), true
	case opcode.I64Rotl:
		return bits.RotateLeft64(x, int(y%64)), true
	case opcode.I64Rotr:
		return bits.RotateLeft64(x, -int(y%64)), true
	case opcode.I64Eq:
		return b2u(x == y), true
	case opcode.I64Ne:
		return b2u(x != y), true
	case opcode.I64LtS:
		return b2u(sx < sy), true
	case opcode.I64LtU:
		return b2u(x < y), true
	case opcode.I64GtS:
		return b2u(sx > sy), true
	case opcode.I64GtU:
		return b2u(x > y), true
	case opcode.I64LeS:
		return b2u(sx <= sy), true
	case opcode.I64LeU:
		return b2u(x <= y), true
	case opcode.I64GeS:
		return b2u(sx >= sy), true
	case opcode.I64GeU:
		return b2u(x >= y), true
	}
	return 0, false
}

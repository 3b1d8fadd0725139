// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package types defines the WebAssembly value types.
package types

import "fmt"

// ValueType represents an intrinsic value type in WASM.
type ValueType byte

// Defines the intrinsic value types.
const (
	I32 ValueType = 0x7F
	I64 ValueType = 0x7E
	F32 ValueType = 0x7D
	F64 ValueType = 0x7C
)

// ElementType represents the type of the values stored in a table.
type ElementType byte

// Anyfunc is the only table element type in the MVP.
const Anyfunc ElementType = 0x70

// Valid returns true if tpe is one of the intrinsic value types.
func (tpe ValueType) Valid() bool {
	switch tpe {
	case I32, I64, F32, F64:
		return true
	}
	return false
}

func (tpe ValueType) String() string {
	switch tpe {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("unknown(0x%x)", byte(tpe))
	}
}

// Letter returns the one-letter code used in signature strings.
func (tpe ValueType) Letter() byte {
	switch tpe {
	case I32:
		return 'i'
	case I64:
		return 'l'
	case F32:
		return 'f'
	case F64:
		return 'd'
	default:
		return '?'
	}
}

// Equal returns true if both slices hold the same types in the same order.
func Equal(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

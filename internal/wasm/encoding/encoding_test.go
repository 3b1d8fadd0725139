// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

func u32(v uint32) *uint32 { return &v }

func vt(v types.ValueType) *types.ValueType { return &v }

func testModule() *module.Module {
	return &module.Module{
		Version: 1,
		Type: module.TypeSection{Functions: []module.FunctionType{
			{Params: []types.ValueType{types.I32, types.I32}, Results: []types.ValueType{types.I32}},
			{},
			{Params: []types.ValueType{types.I64}, Results: []types.ValueType{types.F64, types.F32}},
		}},
		Import: module.ImportSection{Imports: []module.Import{
			{Module: "env", Name: "log", Descriptor: module.FunctionImport{Func: 1}},
			{Module: "env", Name: "memory", Descriptor: module.MemoryImport{Mem: module.MemType{Lim: module.Limit{Min: 1, Max: u32(16)}}}},
			{Module: "env", Name: "base", Descriptor: module.GlobalImport{Type: types.I32}},
			{Module: "env", Name: "table", Descriptor: module.TableImport{Type: types.Anyfunc, Lim: module.Limit{Min: 2}}},
		}},
		Function: module.FunctionSection{TypeIndices: []uint32{0, 2}},
		Global: module.GlobalSection{Globals: []module.Global{
			{Type: types.I32, Mutable: true, Init: module.Expr{Instrs: []instruction.Instruction{instruction.I32Const{Value: -5}}}},
			{Type: types.F64, Init: module.Expr{Instrs: []instruction.Instruction{instruction.F64Const{Value: 1.5}}}},
		}},
		Export: module.ExportSection{Exports: []module.Export{
			{Name: "add", Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 1}},
			{Name: "memory", Descriptor: module.ExportDescriptor{Type: module.MemoryExportType, Index: 0}},
			{Name: "counter", Descriptor: module.ExportDescriptor{Type: module.GlobalExportType, Index: 1}},
		}},
		Start: module.StartSection{FuncIndex: u32(0)},
		Element: module.ElementSection{Segments: []module.ElementSegment{
			{Offset: module.Expr{Instrs: []instruction.Instruction{instruction.I32Const{Value: 0}}}, Indices: []uint32{1, 2}},
		}},
		Code: module.CodeSection{Segments: []module.CodeEntry{
			{Func: module.Function{
				Locals: []module.LocalDeclaration{{Count: 2, Type: types.I64}},
				Expr: module.Expr{Instrs: []instruction.Instruction{
					instruction.Block{Type: instruction.BlockType{Result: vt(types.I32)}},
					instruction.GetLocal{Index: 0},
					instruction.GetLocal{Index: 1},
					instruction.Numeric{Code: opcode.I32Add},
					instruction.TeeLocal{Index: 0},
					instruction.BrIf{Index: 0},
					instruction.Loop{},
					instruction.GetLocal{Index: 0},
					instruction.BrTable{Table: []uint32{0, 1}, Default: 1},
					instruction.End{},
					instruction.Unreachable{},
					instruction.End{},
					instruction.Load{Code: opcode.I32Load16U, Align: 1, Offset: 8},
				}},
			}},
			{Func: module.Function{
				Expr: module.Expr{Instrs: []instruction.Instruction{
					instruction.If{Type: instruction.BlockType{Index: u32(0)}},
					instruction.Else{},
					instruction.End{},
					instruction.I32Const{Value: 1024},
					instruction.I64Const{Value: -1},
					instruction.Store{Code: opcode.I64Store32, Align: 2},
					instruction.I32Const{Value: 0},
					instruction.CallIndirect{Index: 1},
					instruction.MemorySize{},
					instruction.MemoryGrow{},
					instruction.Drop{},
					instruction.I32Const{Value: 0},
					instruction.I32Const{Value: 1},
					instruction.I32Const{Value: 2},
					instruction.MemoryCopy{},
					instruction.F32Const{Value: 2.5},
					instruction.Numeric{Code: opcode.I32TruncSatF32U},
					instruction.Select{Type: vt(types.F32)},
					instruction.Call{Index: 0},
					instruction.GetGlobal{Index: 0},
					instruction.SetGlobal{Index: 1},
					instruction.Return{},
				}},
			}},
		}},
		Data: module.DataSection{Segments: []module.DataSegment{
			{Offset: module.Expr{Instrs: []instruction.Instruction{instruction.GetGlobal{Index: 0}}}, Init: []byte("hello\x00world")},
		}},
		Names: module.NameSection{
			Module: "test",
			Functions: []module.NameMap{
				{Index: 1, Name: "add"},
				{Index: 2, Name: "split"},
			},
		},
	}
}

func TestRoundtrip(t *testing.T) {

	exp := testModule()

	var buf bytes.Buffer
	if err := WriteModule(&buf, exp); err != nil {
		t.Fatal(err)
	}

	result, err := ReadModule(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(exp, result, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("modules are not equal (-want, +got):\n%s", diff)
	}
}

func TestReadModuleEmpty(t *testing.T) {
	result, err := ReadModule(bytes.NewReader([]byte("\x00asm\x01\x00\x00\x00")))
	if err != nil {
		t.Fatal(err)
	}
	if result.NumFunctions() != 0 || len(result.Export.Exports) != 0 {
		t.Fatalf("expected empty module but got %+v", result)
	}
}

func TestReadModuleErrors(t *testing.T) {
	tests := []struct {
		note string
		bs   []byte
		exp  string
	}{
		{
			note: "magic",
			bs:   []byte("\x00wasm\x01\x00\x00"),
			exp:  "illegal magic value",
		},
		{
			note: "version",
			bs:   []byte("\x00asm\x02\x00\x00\x00"),
			exp:  "illegal wasm version: 2",
		},
		{
			note: "section too large",
			bs:   []byte("\x00asm\x01\x00\x00\x00\x01\x10\x00"),
			exp:  "exceeds module size",
		},
		{
			note: "unknown section",
			bs:   []byte("\x00asm\x01\x00\x00\x00\x0f\x00"),
			exp:  "illegal section id: 15",
		},
		{
			// one function of type 0, body is a single 0xFF byte
			note: "illegal opcode",
			bs:   []byte("\x00asm\x01\x00\x00\x00\x01\x04\x01\x60\x00\x00\x03\x02\x01\x00\x0a\x05\x01\x03\x00\xff\x0b"),
			exp:  "code section: code entry 0: offset 0x1: illegal opcode: unknown(0xff)",
		},
		{
			note: "bad limits",
			bs:   []byte("\x00asm\x01\x00\x00\x00\x05\x03\x01\x07\x01"),
			exp:  "memory section: offset 0x3: illegal limit flag: 0x7",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			_, err := ReadModule(bytes.NewReader(tc.bs))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.exp) {
				t.Fatalf("expected error containing %q but got %q", tc.exp, err.Error())
			}
		})
	}
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package analyzer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

func testModule() *module.Module {
	upper := uint32(1)
	return &module.Module{
		Type: module.TypeSection{
			Functions: []module.FunctionType{
				{},
				{Params: vts(i32, i32), Results: vts(i32)},
			},
		},
		Function: module.FunctionSection{TypeIndices: []uint32{1}},
		Table: module.TableSection{
			Tables: []module.Table{{Type: types.Anyfunc, Lim: module.Limit{Min: 1, Max: &upper}}},
		},
		Memory: module.MemorySection{
			Memories: []module.Memory{{Lim: module.Limit{Min: 1}}},
		},
		Global: module.GlobalSection{
			Globals: []module.Global{
				{Type: i32, Mutable: true, Init: module.Expr{Instrs: []instruction.Instruction{instruction.I32Const{Value: 0}}}},
				{Type: i32, Init: module.Expr{Instrs: []instruction.Instruction{instruction.I32Const{Value: 7}}}},
			},
		},
		Code: module.CodeSection{
			Segments: []module.CodeEntry{{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				instruction.GetLocal{Index: 1},
				instruction.Numeric{Code: opcode.I32Add},
			}}}}},
		},
		Data: module.DataSection{
			Segments: []module.DataSegment{{Init: []byte("x")}},
		},
	}
}

func num(op opcode.Opcode) instruction.Instruction {
	return instruction.Numeric{Code: op}
}

func i32c(v int32) instruction.Instruction {
	return instruction.I32Const{Value: v}
}

func analyze(params, results, locals []types.ValueType, instrs ...instruction.Instruction) (*Function, error) {
	return New(testModule()).Body(0, module.FunctionType{Params: params, Results: results}, locals, instrs)
}

func TestAnalyzerErrors(t *testing.T) {
	i32t := i32

	tests := []struct {
		note    string
		params  []types.ValueType
		results []types.ValueType
		instrs  []instruction.Instruction
		code    ErrCode
		offset  int
	}{
		{
			note:   "stack underflow",
			instrs: []instruction.Instruction{i32c(1), num(opcode.I32Add)},
			code:   StructuralErr,
			offset: 1,
		},
		{
			note:   "operand type mismatch",
			instrs: []instruction.Instruction{i32c(1), instruction.I64Const{Value: 1}, num(opcode.I32Add)},
			code:   TypeErr,
			offset: 2,
		},
		{
			note:   "underflow below frame height",
			instrs: []instruction.Instruction{i32c(1), instruction.Block{}, instruction.Drop{}},
			code:   StructuralErr,
			offset: 2,
		},
		{
			note:   "unclosed frame",
			instrs: []instruction.Instruction{instruction.Block{}},
			code:   StructuralErr,
			offset: 1,
		},
		{
			note:   "instruction after function end",
			instrs: []instruction.Instruction{instruction.End{}, instruction.Nop{}},
			code:   StructuralErr,
			offset: 1,
		},
		{
			note:   "branch depth out of range",
			instrs: []instruction.Instruction{instruction.Br{Index: 1}},
			code:   StructuralErr,
			offset: 0,
		},
		{
			note:   "else without if",
			instrs: []instruction.Instruction{instruction.Block{}, instruction.Else{}},
			code:   StructuralErr,
			offset: 1,
		},
		{
			note:   "immutable global",
			instrs: []instruction.Instruction{i32c(1), instruction.SetGlobal{Index: 1}},
			code:   StructuralErr,
			offset: 1,
		},
		{
			note:    "if without else changes stack",
			results: vts(i32),
			instrs: []instruction.Instruction{
				i32c(1),
				instruction.If{Type: instruction.BlockType{Result: &i32t}},
				i32c(2),
				instruction.End{},
			},
			code:   TypeErr,
			offset: 3,
		},
		{
			note:    "missing function result",
			results: vts(i32),
			code:    StructuralErr,
			offset:  0,
		},
		{
			note:   "select operand mismatch",
			instrs: []instruction.Instruction{i32c(1), instruction.I64Const{Value: 2}, i32c(0), instruction.Select{}},
			code:   TypeErr,
			offset: 3,
		},
		{
			note:   "call out of range",
			instrs: []instruction.Instruction{instruction.Call{Index: 5}},
			code:   StructuralErr,
			offset: 0,
		},
		{
			note:   "local out of range",
			params: vts(i32),
			instrs: []instruction.Instruction{instruction.GetLocal{Index: 1}},
			code:   StructuralErr,
			offset: 0,
		},
		{
			note:   "data segment out of range",
			instrs: []instruction.Instruction{instruction.DataDrop{Data: 3}},
			code:   StructuralErr,
			offset: 0,
		},
		{
			note:   "br_table targets disagree",
			instrs: []instruction.Instruction{
				instruction.Block{Type: instruction.BlockType{Result: &i32t}},
				i32c(1),
				i32c(0),
				instruction.BrTable{Table: []uint32{0}, Default: 1},
				instruction.End{},
				instruction.Drop{},
			},
			code:   TypeErr,
			offset: 3,
		},
		{
			note:   "illegal numeric opcode",
			instrs: []instruction.Instruction{num(opcode.Opcode(0x1234))},
			code:   StructuralErr,
			offset: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			_, err := analyze(tc.params, tc.results, nil, tc.instrs...)
			if !IsError(tc.code, err) {
				t.Fatalf("expected %v but got: %v", tc.code, err)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error but got %T", err)
			}
			if e.Location == nil || e.Location.Offset != tc.offset {
				t.Fatalf("expected error at offset %d but got: %v", tc.offset, err)
			}
		})
	}
}

func TestAnalyzerFlavor(t *testing.T) {
	tests := []struct {
		note   string
		flavor Flavor
		instrs []instruction.Instruction
		code   *ErrCode
	}{
		{
			note:   "untyped",
			flavor: Untyped,
			instrs: []instruction.Instruction{i32c(1)},
		},
		{
			note:   "untyped ignores annotations",
			flavor: Untyped,
			instrs: []instruction.Instruction{instruction.Typed{Instr: i32c(1), Results: vts(f64)}},
		},
		{
			note:   "typed",
			flavor: Typed,
			instrs: []instruction.Instruction{instruction.Typed{Instr: i32c(1), Results: vts(i32)}},
		},
		{
			note:   "typed missing annotation",
			flavor: Typed,
			instrs: []instruction.Instruction{i32c(1)},
			code:   errCode(TypeErr),
		},
		{
			note:   "typed wrong annotation",
			flavor: Typed,
			instrs: []instruction.Instruction{instruction.Typed{Instr: i32c(1), Results: vts(i64)}},
			code:   errCode(TypeErr),
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			_, err := New(testModule()).WithFlavor(tc.flavor).Body(0, module.FunctionType{Results: vts(i32)}, nil, tc.instrs)
			if tc.code == nil {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if !IsError(*tc.code, err) {
				t.Fatalf("expected %v but got: %v", *tc.code, err)
			}
		})
	}
}

func errCode(c ErrCode) *ErrCode {
	return &c
}

func ids(vs []*Value) []int {
	out := []int{}
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestMaterialization(t *testing.T) {
	tests := []struct {
		note    string
		depth   int
		params  []types.ValueType
		results []types.ValueType
		instrs  []instruction.Instruction
		step    int
		exp     []int
		numRegs int
	}{
		{
			note:    "pure expression stays inline",
			params:  vts(i32, i32),
			results: vts(i32),
			instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				instruction.GetLocal{Index: 1},
				num(opcode.I32Add),
			},
			step:    2,
			exp:     []int{},
			numRegs: 0,
		},
		{
			note:    "write to local read by pending value",
			params:  vts(i32),
			results: vts(i32),
			instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				i32c(1),
				instruction.SetLocal{Index: 0},
				instruction.GetLocal{Index: 0},
				num(opcode.I32Add),
			},
			step:    2,
			exp:     []int{0},
			numRegs: 1,
		},
		{
			note:    "write to unrelated local",
			params:  vts(i32, i32),
			results: vts(i32),
			instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				i32c(1),
				instruction.SetLocal{Index: 1},
			},
			step:    2,
			exp:     []int{},
			numRegs: 0,
		},
		{
			note:    "call flushes pending values",
			results: vts(i32, i32),
			instrs: []instruction.Instruction{
				i32c(1),
				i32c(2),
				i32c(3),
				instruction.Call{Index: 0},
			},
			step:    3,
			exp:     []int{0},
			numRegs: 2,
		},
		{
			note:    "expression depth limit",
			depth:   2,
			params:  vts(i32),
			results: vts(i32),
			instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				i32c(1),
				num(opcode.I32Add),
				i32c(1),
				num(opcode.I32Add),
			},
			step:    4,
			exp:     []int{2, 3},
			numRegs: 2,
		},
		{
			note:   "drop of trapping value",
			params: vts(i32, i32),
			instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				instruction.GetLocal{Index: 1},
				num(opcode.I32DivS),
				instruction.Drop{},
			},
			step:    3,
			exp:     []int{2},
			numRegs: 1,
		},
		{
			note:   "drop of pure value",
			params: vts(i32, i32),
			instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				instruction.GetLocal{Index: 1},
				num(opcode.I32Add),
				instruction.Drop{},
			},
			step:    3,
			exp:     []int{},
			numRegs: 0,
		},
		{
			note:    "trapping value written to local",
			params:  vts(i32, i32),
			results: vts(i32),
			instrs: []instruction.Instruction{
				i32c(1),
				instruction.GetLocal{Index: 0},
				num(opcode.I32DivU),
				instruction.GetLocal{Index: 0},
				instruction.Load{Code: opcode.I32Load},
				instruction.SetLocal{Index: 1},
			},
			step:    5,
			exp:     []int{2},
			numRegs: 1,
		},
		{
			note:    "trapping value written to local over pure value",
			params:  vts(i32, i32),
			results: vts(i32),
			instrs: []instruction.Instruction{
				instruction.GetLocal{Index: 0},
				instruction.GetLocal{Index: 0},
				instruction.Load{Code: opcode.I32Load},
				instruction.SetLocal{Index: 1},
			},
			step:    3,
			exp:     []int{},
			numRegs: 0,
		},
		{
			note:    "store flushes pending loads",
			results: vts(i32),
			instrs: []instruction.Instruction{
				i32c(0),
				instruction.Load{Code: opcode.I32Load},
				i32c(0),
				i32c(5),
				instruction.Store{Code: opcode.I32Store},
			},
			step:    4,
			exp:     []int{1},
			numRegs: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			a := New(testModule())
			if tc.depth > 0 {
				a = a.WithMaxInlineDepth(tc.depth)
			}
			fn, err := a.Body(0, module.FunctionType{Params: tc.params, Results: tc.results}, nil, tc.instrs)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, ids(fn.Steps[tc.step].Materialize)); diff != "" {
				t.Fatalf("unexpected materialized values (-want, +got):\n%s", diff)
			}
			if fn.NumRegs != tc.numRegs {
				t.Fatalf("expected %d registers but got %d", tc.numRegs, fn.NumRegs)
			}
		})
	}
}

func TestMaterializedSlots(t *testing.T) {
	fn, err := analyze(nil, vts(i32, i32), nil,
		i32c(1),
		i32c(2),
		i32c(3),
		instruction.Call{Index: 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	st := fn.Steps[3]
	if len(st.Out) != 1 || st.Out[0].Mode != Materialized || st.Out[0].Slot != 1 {
		t.Fatalf("unexpected call result: %+v", st.Out)
	}
	if diff := cmp.Diff([]int{1, 2}, ids(st.In)); diff != "" {
		t.Fatalf("unexpected call arguments (-want, +got):\n%s", diff)
	}
	if st.Type == nil || st.Type.Signature() != "ii:i" {
		t.Fatalf("unexpected callee type: %v", st.Type)
	}
	exit := fn.Steps[len(fn.Steps)-1]
	if exit.Kind != ExitStep || exit.Frame != fn.Root {
		t.Fatalf("expected function exit step but got %+v", exit)
	}
	if diff := cmp.Diff([]int{0, 3}, ids(exit.Carry)); diff != "" {
		t.Fatalf("unexpected returned values (-want, +got):\n%s", diff)
	}
}

func TestBranches(t *testing.T) {
	fn, err := analyze(nil, nil, nil,
		instruction.Block{},
		instruction.Loop{},
		instruction.Block{},
		instruction.Br{Index: 2},
		instruction.End{},
		instruction.Br{Index: 0},
		instruction.End{},
		instruction.End{},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(fn.Frames) != 4 {
		t.Fatalf("expected 4 frames but got %d", len(fn.Frames))
	}
	outer, loop, inner := fn.Frames[1], fn.Frames[2], fn.Frames[3]
	if !outer.Targeted || !loop.Targeted || inner.Targeted {
		t.Fatalf("unexpected targets: outer=%v loop=%v inner=%v", outer.Targeted, loop.Targeted, inner.Targeted)
	}
	if outer.Escapes() {
		t.Fatal("outer block should not escape")
	}
	if !loop.EscapesTo(1) || loop.EscapesBeyond(1) {
		t.Fatal("loop should escape to the outer block only")
	}
	if !inner.EscapesTo(1) || !inner.EscapesBeyond(2) {
		t.Fatal("inner block should escape beyond the loop")
	}
	if !fn.UsesDesired() {
		t.Fatal("expected state variable to be used")
	}
	if inner.Parent != loop || loop.Parent != outer || outer.Parent != fn.Root {
		t.Fatal("unexpected frame parents")
	}
	// The loop's end follows an unconditional branch.
	if st := fn.Steps[6]; st.Kind != ExitStep || st.Frame != loop || !st.Dead {
		t.Fatalf("expected dead loop exit but got %+v", st)
	}
}

func TestBranchLocal(t *testing.T) {
	fn, err := analyze(nil, nil, nil,
		instruction.Block{},
		instruction.Br{Index: 0},
		instruction.End{},
	)
	if err != nil {
		t.Fatal(err)
	}
	if !fn.Frames[1].Targeted || fn.Frames[1].Escapes() || fn.UsesDesired() {
		t.Fatal("expected targeted block without escapes")
	}
}

func TestBranchIfCarry(t *testing.T) {
	i32t := i32
	fn, err := analyze(vts(i32), vts(i32), nil,
		instruction.Block{Type: instruction.BlockType{Result: &i32t}},
		i32c(1),
		instruction.GetLocal{Index: 0},
		instruction.BrIf{Index: 0},
		instruction.End{},
	)
	if err != nil {
		t.Fatal(err)
	}
	st := fn.Steps[3]
	if diff := cmp.Diff([]int{0}, ids(st.Carry)); diff != "" {
		t.Fatalf("unexpected carry (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, ids(st.In)); diff != "" {
		t.Fatalf("unexpected condition (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, ids(st.Materialize)); diff != "" {
		t.Fatalf("unexpected materialized values (-want, +got):\n%s", diff)
	}
	if len(st.Targets) != 1 || st.Targets[0] != fn.Frames[1] {
		t.Fatal("unexpected branch target")
	}
	exit := fn.Steps[4]
	if len(exit.Out) != 1 || exit.Out[0].Mode != Materialized || exit.Out[0].Slot != 0 {
		t.Fatalf("unexpected block result: %+v", exit.Out)
	}
}

func TestIfElseParams(t *testing.T) {
	idx := uint32(1) // (i32, i32) -> i32
	fn, err := analyze(nil, vts(i32), nil,
		i32c(1),
		i32c(2),
		i32c(0),
		instruction.If{Type: instruction.BlockType{Index: &idx}},
		num(opcode.I32Add),
		instruction.Else{},
		num(opcode.I32Sub),
		instruction.End{},
	)
	if err != nil {
		t.Fatal(err)
	}
	f := fn.Frames[1]
	if f.Kind != IfFrame || !f.HasElse || f.Height != 0 {
		t.Fatalf("unexpected if frame: %+v", f)
	}
	if fn.NumRegs != 2 {
		t.Fatalf("expected 2 registers but got %d", fn.NumRegs)
	}
	if diff := cmp.Diff([]int{0, 1}, ids(fn.Steps[6].In)); diff != "" {
		t.Fatalf("else branch should see the frame parameters (-want, +got):\n%s", diff)
	}
}

func TestUnreachableCode(t *testing.T) {
	fn, err := analyze(nil, vts(i32), nil,
		instruction.Unreachable{},
		instruction.I64Const{Value: 1},
		num(opcode.I32Add),
		instruction.Block{},
		instruction.Drop{},
		instruction.End{},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(fn.Steps) != 2 {
		t.Fatalf("expected dead code to be skipped but got %d steps", len(fn.Steps))
	}
	if st := fn.Steps[1]; st.Kind != ExitStep || !st.Dead {
		t.Fatalf("expected dead function exit but got %+v", st)
	}
}

func TestDeepNesting(t *testing.T) {
	var instrs []instruction.Instruction
	for i := 0; i < 100; i++ {
		instrs = append(instrs, instruction.Block{})
	}
	instrs = append(instrs, instruction.Br{Index: 99})
	for i := 0; i < 100; i++ {
		instrs = append(instrs, instruction.End{})
	}
	fn, err := analyze(nil, nil, nil, instrs...)
	if err != nil {
		t.Fatal(err)
	}
	if len(fn.Frames) != 101 {
		t.Fatalf("expected 101 frames but got %d", len(fn.Frames))
	}
	if fn.Frames[100].Depth != 100 || !fn.Frames[1].Targeted {
		t.Fatal("unexpected innermost frame")
	}
}

func TestBranchTableDepths(t *testing.T) {
	const n = 10
	var instrs []instruction.Instruction
	for i := 0; i < n; i++ {
		instrs = append(instrs, instruction.Block{})
	}
	table := make([]uint32, n-1)
	for i := range table {
		table[i] = uint32(i)
	}
	instrs = append(instrs, instruction.GetLocal{Index: 0}, instruction.BrTable{Table: table, Default: n - 1})
	for i := 0; i < n; i++ {
		instrs = append(instrs, instruction.End{})
	}

	fn, err := analyze(vts(i32), nil, nil, instrs...)
	if err != nil {
		t.Fatal(err)
	}
	st := fn.Steps[n+1]
	if len(st.Targets) != n {
		t.Fatalf("expected %d targets but got %d", n, len(st.Targets))
	}
	for i, target := range st.Targets {
		if target.Depth != n-i || target.Label != n-i {
			t.Errorf("label %d: expected frame at depth %d but got depth %d (label %d)", i, n-i, target.Depth, target.Label)
		}
		if !target.Targeted {
			t.Errorf("label %d: expected frame to be targeted", i)
		}
	}
}

func TestLongExpression(t *testing.T) {
	instrs := []instruction.Instruction{i32c(0)}
	for i := 0; i < 1000; i++ {
		instrs = append(instrs, i32c(int32(i)), num(opcode.I32Add))
	}
	fn, err := analyze(nil, vts(i32), nil, instrs...)
	if err != nil {
		t.Fatal(err)
	}
	if fn.NumRegs != 2 {
		t.Fatalf("expected 2 registers but got %d", fn.NumRegs)
	}
}

func TestLocals(t *testing.T) {
	fn, err := analyze(vts(i32), nil, vts(i64, f64, i32),
		instruction.GetLocal{Index: 1},
		instruction.Drop{},
		i32c(1),
		instruction.SetLocal{Index: 3},
	)
	if err != nil {
		t.Fatal(err)
	}
	exp := []Local{
		{Type: i32, Param: true},
		{Type: i64, Reads: 1},
		{Type: f64},
		{Type: i32, Writes: 1},
	}
	if diff := cmp.Diff(exp, fn.Locals); diff != "" {
		t.Fatalf("unexpected locals (-want, +got):\n%s", diff)
	}
	if fn.Locals[0].Dead() || !fn.Locals[2].Dead() {
		t.Fatal("unexpected dead locals")
	}
}

func TestFunctionIndex(t *testing.T) {
	a := New(testModule())
	if _, err := a.Function(0); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Function(1); !IsError(StructuralErr, err) {
		t.Fatalf("expected structural error but got: %v", err)
	}
}

func TestAnnotate(t *testing.T) {
	m := testModule()
	typed, err := Annotate(m)
	if err != nil {
		t.Fatal(err)
	}
	exp := []instruction.Instruction{
		instruction.Typed{Instr: instruction.GetLocal{Index: 0}, Results: vts(i32)},
		instruction.Typed{Instr: instruction.GetLocal{Index: 1}, Results: vts(i32)},
		instruction.Typed{Instr: num(opcode.I32Add), Results: vts(i32)},
	}
	if diff := cmp.Diff(exp, typed.Code.Segments[0].Func.Expr.Instrs); diff != "" {
		t.Fatalf("unexpected annotations (-want, +got):\n%s", diff)
	}
	if _, ok := m.Code.Segments[0].Func.Expr.Instrs[0].(instruction.Typed); ok {
		t.Fatal("input module was modified")
	}
	if _, err := New(typed).WithFlavor(Typed).Function(0); err != nil {
		t.Fatal(err)
	}
}

func TestAnnotateErrors(t *testing.T) {
	m := testModule()
	m.Function.TypeIndices = []uint32{1, 1, 0}
	m.Code.Segments = append(m.Code.Segments,
		module.CodeEntry{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
			instruction.GetLocal{Index: 5},
		}}}},
		module.CodeEntry{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
			instruction.Br{Index: 3},
		}}}},
	)

	typed, err := Annotate(m)
	if typed != nil {
		t.Fatal("expected no module")
	}
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected errors but got: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors but got: %v", err)
	}
	if errs[0].Location.Func != 1 || errs[1].Location.Func != 2 {
		t.Fatalf("unexpected locations: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "2 errors occurred:\n") {
		t.Fatalf("unexpected message: %v", err)
	}
	if !IsError(StructuralErr, err) {
		t.Fatalf("expected structural error to be found: %v", err)
	}
}

func TestErrorsMessage(t *testing.T) {
	tests := []struct {
		note string
		errs Errors
		exp  string
	}{
		{
			note: "none",
			exp:  "no error(s)",
		},
		{
			note: "one",
			errs: Errors{NewError(TypeErr, &Location{Func: 1, Offset: 2}, "bad")},
			exp:  "1 error occurred: func 1 @ 2: type_error: bad",
		},
		{
			note: "many",
			errs: Errors{NewError(TypeErr, nil, "a"), NewError(StructuralErr, nil, "b")},
			exp:  "2 errors occurred:\ntype_error: a\nstructural_error: b",
		},
	}
	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if got := tc.errs.Error(); got != tc.exp {
				t.Fatalf("expected %q but got %q", tc.exp, got)
			}
		})
	}
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package analyzer turns a function's flat instruction stream into the
// structured, typed representation the Luau backend emits code from.
package analyzer

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// Flavor selects how instruction types are obtained.
type Flavor int

const (
	// Untyped instructions have their types derived from opcode semantics
	// and the operand stack.
	Untyped Flavor = iota

	// Typed instructions declare the types of the values they push, which
	// are checked against the operand stack.
	Typed
)

func (f Flavor) String() string {
	if f == Typed {
		return "typed"
	}
	return "untyped"
}

// DefaultMaxInlineDepth bounds the nesting of inline expressions.
const DefaultMaxInlineDepth = 32

// Analyzer analyzes the function bodies of one module.
type Analyzer struct {
	module         *module.Module
	flavor         Flavor
	maxInlineDepth int
}

// New returns a new Analyzer for m.
func New(m *module.Module) *Analyzer {
	return &Analyzer{
		module:         m,
		maxInlineDepth: DefaultMaxInlineDepth,
	}
}

// WithFlavor sets the instruction flavor.
func (a *Analyzer) WithFlavor(f Flavor) *Analyzer {
	a.flavor = f
	return a
}

// WithMaxInlineDepth bounds the nesting of inline expressions. Deeper
// expressions are materialized.
func (a *Analyzer) WithMaxInlineDepth(n int) *Analyzer {
	if n > 0 {
		a.maxInlineDepth = n
	}
	return a
}

// Function analyzes the declared function at index idx of the function index
// space.
func (a *Analyzer) Function(idx uint32) (*Function, error) {
	loc := &Location{Func: idx}
	i := int(idx) - a.module.FunctionImportCount()
	if i < 0 || i >= len(a.module.Function.TypeIndices) {
		return nil, NewError(StructuralErr, loc, "function index %d does not refer to a declared function", idx)
	}
	if i >= len(a.module.Code.Segments) {
		return nil, NewError(StructuralErr, loc, "missing code for function %d", idx)
	}
	tpe, ok := a.module.FuncType(idx)
	if !ok {
		return nil, NewError(StructuralErr, loc, "type index %d out of range", a.module.Function.TypeIndices[i])
	}
	fn := a.module.Code.Segments[i].Func
	return a.Body(idx, tpe, fn.LocalTypes(), fn.Expr.Instrs)
}

// Body analyzes a function body. The function frame is closed by a trailing
// end instruction or, if there is none, by the end of instrs.
func (a *Analyzer) Body(idx uint32, tpe module.FunctionType, locals []types.ValueType, instrs []instruction.Instruction) (*Function, error) {
	s := newState(a, idx, tpe, locals)
	for offset, instr := range instrs {
		if err := s.next(offset, instr); err != nil {
			return nil, err
		}
	}
	if err := s.finish(len(instrs)); err != nil {
		return nil, err
	}
	return s.fn, nil
}

type unreachableState struct {
	on    bool
	depth int
}

type state struct {
	a           *Analyzer
	fn          *Function
	stack       []*entry
	frames      []*Frame
	unreachable unreachableState
	closed      bool
	offset      int
	nextValue   int
}

func newState(a *Analyzer, idx uint32, tpe module.FunctionType, locals []types.ValueType) *state {
	fn := &Function{
		Index:  idx,
		Type:   tpe,
		Locals: make([]Local, 0, len(tpe.Params)+len(locals)),
	}
	for _, p := range tpe.Params {
		fn.Locals = append(fn.Locals, Local{Type: p, Param: true})
	}
	for _, l := range locals {
		fn.Locals = append(fn.Locals, Local{Type: l})
	}
	root := &Frame{
		Kind:    FunctionFrame,
		Results: tpe.Results,
		escapes: map[int]struct{}{},
	}
	fn.Root = root
	fn.Frames = append(fn.Frames, root)
	return &state{
		a:      a,
		fn:     fn,
		frames: []*Frame{root},
	}
}

func (s *state) loc() *Location {
	return &Location{Func: s.fn.Index, Offset: s.offset}
}

func (s *state) errorf(code ErrCode, f string, a ...interface{}) error {
	return NewError(code, s.loc(), f, a...)
}

func (s *state) top() *Frame {
	return s.frames[len(s.frames)-1]
}

func (s *state) next(offset int, raw instruction.Instruction) error {
	s.offset = offset

	if s.closed {
		return s.errorf(StructuralErr, "instruction after end of function")
	}

	instr, declared, annotated := instruction.Unwrap(raw)

	if s.unreachable.on {
		switch instr.Op() {
		case opcode.Block, opcode.Loop, opcode.If:
			s.unreachable.depth++
			return nil
		case opcode.Else:
			if s.unreachable.depth > 0 {
				return nil
			}
		case opcode.End:
			if s.unreachable.depth > 0 {
				s.unreachable.depth--
				return nil
			}
		default:
			return nil
		}
	}

	st := &Step{Offset: offset, Instr: instr}
	if err := s.apply(st, instr); err != nil {
		return err
	}

	if err := s.checkDeclared(st, declared, annotated); err != nil {
		return err
	}

	s.fn.Steps = append(s.fn.Steps, st)
	return nil
}

// finish closes the function frame if the body did not end with an explicit
// end instruction.
func (s *state) finish(offset int) error {
	s.offset = offset
	if s.closed {
		return nil
	}
	if len(s.frames) > 1 {
		return s.errorf(StructuralErr, "%v frame opened without matching end", s.top().Kind)
	}
	st := &Step{Offset: offset, Instr: instruction.End{}}
	if err := s.end(st); err != nil {
		return err
	}
	s.fn.Steps = append(s.fn.Steps, st)
	return nil
}

// checkDeclared validates the type annotation of an instruction against the
// types of the values it pushed.
func (s *state) checkDeclared(st *Step, declared []types.ValueType, annotated bool) error {
	if s.a.flavor != Typed {
		return nil
	}
	produced := make([]types.ValueType, len(st.Out))
	for i, v := range st.Out {
		produced[i] = v.Type
	}
	if !annotated {
		if st.Kind == OpStep && len(produced) > 0 {
			return s.errorf(TypeErr, "%v: missing type annotation for %v", st.Instr.Op(), produced)
		}
		return nil
	}
	if !types.Equal(declared, produced) {
		return s.errorf(TypeErr, "%v: declared result types %v but instruction produces %v", st.Instr.Op(), declared, produced)
	}
	return nil
}

func (s *state) apply(st *Step, instr instruction.Instruction) error {
	switch instr := instr.(type) {
	case instruction.Unreachable:
		s.materialize(st, len(s.stack))
		s.unreachable.on = true
	case instruction.Nop:
	case instruction.Block:
		return s.enter(st, BlockFrame, instr.Type)
	case instruction.Loop:
		return s.enter(st, LoopFrame, instr.Type)
	case instruction.If:
		return s.enter(st, IfFrame, instr.Type)
	case instruction.Else:
		return s.elseBranch(st)
	case instruction.End:
		return s.end(st)
	case instruction.Br:
		return s.br(st, instr.Index)
	case instruction.BrIf:
		return s.brIf(st, instr.Index)
	case instruction.BrTable:
		return s.brTable(st, instr)
	case instruction.Return:
		return s.ret(st)
	case instruction.Call:
		tpe, ok := s.a.module.FuncType(instr.Index)
		if !ok {
			return s.errorf(StructuralErr, "function index %d out of range", instr.Index)
		}
		return s.call(st, tpe, false)
	case instruction.CallIndirect:
		if int(instr.Table) >= s.a.module.NumTables() {
			return s.errorf(StructuralErr, "table index %d out of range", instr.Table)
		}
		tpe, ok := s.a.module.TypeAt(instr.Index)
		if !ok {
			return s.errorf(StructuralErr, "type index %d out of range", instr.Index)
		}
		return s.call(st, tpe, true)
	case instruction.Drop:
		return s.drop(st)
	case instruction.Select:
		return s.sel(st, instr.Type)
	case instruction.GetLocal:
		tpe, err := s.local(instr.Index)
		if err != nil {
			return err
		}
		s.fn.Locals[instr.Index].Reads++
		s.pushInline(st, tpe, 1, false, instr.Index)
	case instruction.SetLocal:
		return s.setLocal(st, instr.Index, false)
	case instruction.TeeLocal:
		return s.setLocal(st, instr.Index, true)
	case instruction.GetGlobal:
		tpe, _, ok := s.a.module.GlobalType(instr.Index)
		if !ok {
			return s.errorf(StructuralErr, "global index %d out of range", instr.Index)
		}
		s.pushInline(st, tpe, 1, false)
	case instruction.SetGlobal:
		tpe, mutable, ok := s.a.module.GlobalType(instr.Index)
		if !ok {
			return s.errorf(StructuralErr, "global index %d out of range", instr.Index)
		} else if !mutable {
			return s.errorf(StructuralErr, "global %d is immutable", instr.Index)
		}
		return s.statement(st, sig(vts(tpe)))
	case instruction.Load:
		sg, ok := loadSignature(instr.Code)
		if !ok {
			return s.errorf(StructuralErr, "illegal load opcode: %v", instr.Code)
		}
		if err := s.memory(); err != nil {
			return err
		}
		return s.expression(st, sg, true)
	case instruction.Store:
		sg, ok := storeSignature(instr.Code)
		if !ok {
			return s.errorf(StructuralErr, "illegal store opcode: %v", instr.Code)
		}
		if err := s.memory(); err != nil {
			return err
		}
		return s.statement(st, sg)
	case instruction.MemorySize:
		if err := s.memory(); err != nil {
			return err
		}
		return s.expression(st, signatureNone_I32, false)
	case instruction.MemoryGrow:
		if err := s.memory(); err != nil {
			return err
		}
		return s.statement(st, signatureI32_I32)
	case instruction.MemoryCopy, instruction.MemoryFill:
		if err := s.memory(); err != nil {
			return err
		}
		return s.statement(st, signatureI32I32I32)
	case instruction.MemoryInit:
		if err := s.memory(); err != nil {
			return err
		}
		if int(instr.Data) >= len(s.a.module.Data.Segments) {
			return s.errorf(StructuralErr, "data segment index %d out of range", instr.Data)
		}
		return s.statement(st, signatureI32I32I32)
	case instruction.DataDrop:
		if int(instr.Data) >= len(s.a.module.Data.Segments) {
			return s.errorf(StructuralErr, "data segment index %d out of range", instr.Data)
		}
		return s.statement(st, signatureNone)
	case instruction.I32Const:
		s.pushInline(st, types.I32, 1, false)
	case instruction.I64Const:
		s.pushInline(st, types.I64, 1, false)
	case instruction.F32Const:
		s.pushInline(st, types.F32, 1, false)
	case instruction.F64Const:
		s.pushInline(st, types.F64, 1, false)
	case instruction.Numeric:
		sg, ok := numericSignature(instr.Code)
		if !ok {
			return s.errorf(StructuralErr, "illegal numeric opcode: %v", instr.Code)
		}
		return s.expression(st, sg, canTrap(instr.Code))
	default:
		return s.errorf(StructuralErr, "illegal instruction: %v", instr.Op())
	}
	return nil
}

func (s *state) memory() error {
	if s.a.module.NumMemories() == 0 {
		return s.errorf(StructuralErr, "memory index 0 out of range")
	}
	return nil
}

func (s *state) local(idx uint32) (types.ValueType, error) {
	if int(idx) >= len(s.fn.Locals) {
		return 0, s.errorf(StructuralErr, "local index %d out of range", idx)
	}
	return s.fn.Locals[idx].Type, nil
}

// blockType resolves the parameters and results of a structured instruction.
func (s *state) blockType(bt instruction.BlockType) ([]types.ValueType, []types.ValueType, error) {
	switch {
	case bt.Index != nil:
		tpe, ok := s.a.module.TypeAt(*bt.Index)
		if !ok {
			return nil, nil, s.errorf(StructuralErr, "type index %d out of range", *bt.Index)
		}
		return tpe.Params, tpe.Results, nil
	case bt.Result != nil:
		if !bt.Result.Valid() {
			return nil, nil, s.errorf(TypeErr, "illegal block result type %v", *bt.Result)
		}
		return nil, []types.ValueType{*bt.Result}, nil
	}
	return nil, nil, nil
}

func (s *state) enter(st *Step, kind FrameKind, bt instruction.BlockType) error {
	params, results, err := s.blockType(bt)
	if err != nil {
		return err
	}

	st.Kind = EnterStep

	if kind == IfFrame {
		cond, err := s.popType(types.I32)
		if err != nil {
			return err
		}
		st.In = []*Value{cond.v}
	}

	if err := s.peekTypes(params); err != nil {
		return err
	}

	s.materialize(st, len(s.stack))

	parent := s.top()
	f := &Frame{
		Kind:    kind,
		Label:   len(s.fn.Frames),
		Depth:   len(s.frames),
		Height:  len(s.stack) - len(params),
		Params:  params,
		Results: results,
		Parent:  parent,
		escapes: map[int]struct{}{},
	}
	f.params = append([]*entry(nil), s.stack[f.Height:]...)

	s.frames = append(s.frames, f)
	s.fn.Frames = append(s.fn.Frames, f)
	st.Frame = f
	return nil
}

func (s *state) elseBranch(st *Step) error {
	f := s.top()
	if f.Kind != IfFrame || f.HasElse {
		return s.errorf(StructuralErr, "else without matching if")
	}

	st.Kind = ElseStep
	st.Frame = f
	st.Dead = s.unreachable.on

	if !s.unreachable.on {
		if err := s.checkFrameResults(f); err != nil {
			return err
		}
		s.materialize(st, len(s.stack))
	}

	f.HasElse = true
	s.stack = append(s.stack[:f.Height], f.params...)
	s.unreachable = unreachableState{}
	return nil
}

func (s *state) end(st *Step) error {
	f := s.top()

	st.Kind = ExitStep
	st.Frame = f
	st.Dead = s.unreachable.on

	if !s.unreachable.on {
		if err := s.checkFrameResults(f); err != nil {
			return err
		}
	}

	if f.Kind == IfFrame && !f.HasElse && !types.Equal(f.Params, f.Results) {
		return s.errorf(TypeErr, "if without else must have matching parameter and result types")
	}

	if f.Kind == FunctionFrame {
		if !s.unreachable.on {
			st.Carry = s.values(s.stack)
		}
		s.stack = s.stack[:0]
		s.frames = s.frames[:0]
		s.closed = true
		s.unreachable = unreachableState{}
		return nil
	}

	if !s.unreachable.on {
		s.materialize(st, len(s.stack))
	}

	s.frames = s.frames[:len(s.frames)-1]
	s.stack = s.stack[:f.Height]
	for _, tpe := range f.Results {
		s.pushMaterialized(st, tpe)
	}
	s.unreachable = unreachableState{}
	return nil
}

// checkFrameResults verifies the operand stack of frame f holds exactly the
// frame's results.
func (s *state) checkFrameResults(f *Frame) error {
	have := len(s.stack) - f.Height
	if have != len(f.Results) {
		return s.errorf(StructuralErr, "%v frame ends with %d values on the stack but expects %d", f.Kind, have, len(f.Results))
	}
	return s.peekTypes(f.Results)
}

// target returns the frame a branch with relative depth n refers to, and
// records the branch on the frames it crosses.
func (s *state) target(n uint32) (*Frame, error) {
	if int(n) >= len(s.frames) {
		return nil, s.errorf(StructuralErr, "branch depth %d exceeds frame depth %d", n, len(s.frames))
	}
	idx := len(s.frames) - 1 - int(n)
	t := s.frames[idx]
	if t.Kind != FunctionFrame {
		t.Targeted = true
		for _, f := range s.frames[idx+1:] {
			f.escapes[t.Label] = struct{}{}
		}
	}
	return t, nil
}

func (s *state) br(st *Step, n uint32) error {
	t, err := s.target(n)
	if err != nil {
		return err
	}
	carry, err := s.popTypes(t.BranchTypes())
	if err != nil {
		return err
	}
	s.materialize(st, len(s.stack))
	st.Carry = s.values(carry)
	st.Targets = []*Frame{t}
	s.unreachable.on = true
	return nil
}

func (s *state) brIf(st *Step, n uint32) error {
	cond, err := s.popType(types.I32)
	if err != nil {
		return err
	}
	t, err := s.target(n)
	if err != nil {
		return err
	}
	tpes := t.BranchTypes()
	if err := s.peekTypes(tpes); err != nil {
		return err
	}
	s.materialize(st, len(s.stack))
	st.In = []*Value{cond.v}
	st.Carry = s.values(s.stack[len(s.stack)-len(tpes):])
	st.Targets = []*Frame{t}
	return nil
}

func (s *state) brTable(st *Step, instr instruction.BrTable) error {
	index, err := s.popType(types.I32)
	if err != nil {
		return err
	}
	def, err := s.target(instr.Default)
	if err != nil {
		return err
	}
	tpes := def.BranchTypes()
	for _, n := range instr.Table {
		t, err := s.target(n)
		if err != nil {
			return err
		}
		if !types.Equal(t.BranchTypes(), tpes) {
			return s.errorf(TypeErr, "br_table targets carry different types: %v and %v", t.BranchTypes(), tpes)
		}
		st.Targets = append(st.Targets, t)
	}
	st.Targets = append(st.Targets, def)
	if err := s.peekTypes(tpes); err != nil {
		return err
	}
	s.materialize(st, len(s.stack))
	st.In = []*Value{index.v}
	st.Carry = s.values(s.stack[len(s.stack)-len(tpes):])
	s.unreachable.on = true
	return nil
}

func (s *state) ret(st *Step) error {
	carry, err := s.popTypes(s.fn.Type.Results)
	if err != nil {
		return err
	}
	s.materialize(st, len(s.stack))
	st.Carry = s.values(carry)
	st.Targets = []*Frame{s.fn.Root}
	s.unreachable.on = true
	return nil
}

func (s *state) call(st *Step, tpe module.FunctionType, indirect bool) error {
	st.Type = &tpe
	var index *entry
	if indirect {
		var err error
		if index, err = s.popType(types.I32); err != nil {
			return err
		}
		if err := s.peekTypes(tpe.Params); err != nil {
			return err
		}
		s.materialize(st, len(s.stack))
	}
	args, err := s.popTypes(tpe.Params)
	if err != nil {
		return err
	}
	s.materialize(st, len(s.stack))
	st.In = s.values(args)
	if index != nil {
		st.In = append(st.In, index.v)
	}
	for _, r := range tpe.Results {
		s.pushMaterialized(st, r)
	}
	return nil
}

func (s *state) drop(st *Step) error {
	if len(s.stack) > 0 {
		if e := s.stack[len(s.stack)-1]; e.v.Mode == Inline && e.trap {
			s.materialize(st, len(s.stack))
		}
	}
	e, err := s.pop()
	if err != nil {
		return err
	}
	st.In = []*Value{e.v}
	return nil
}

func (s *state) sel(st *Step, tpe *types.ValueType) error {
	cond, err := s.popType(types.I32)
	if err != nil {
		return err
	}
	if len(s.stack)-s.top().Height < 2 {
		return s.errorf(StructuralErr, "select: stack underflow")
	}
	a, b := s.stack[len(s.stack)-2], s.stack[len(s.stack)-1]
	if a.v.Type != b.v.Type {
		return s.errorf(TypeErr, "select operands have different types: %v and %v", a.v.Type, b.v.Type)
	}
	if tpe != nil && *tpe != a.v.Type {
		return s.errorf(TypeErr, "select: expected %v operands but found %v", *tpe, a.v.Type)
	}
	if (a.v.Mode == Inline && a.trap) || (b.v.Mode == Inline && b.trap) {
		s.materialize(st, len(s.stack))
	}
	s.stack = s.stack[:len(s.stack)-2]
	st.In = []*Value{a.v, b.v, cond.v}
	s.pushDerived(st, a.v.Type, []*entry{a, b, cond}, false)
	return nil
}

func (s *state) setLocal(st *Step, idx uint32, tee bool) error {
	tpe, err := s.local(idx)
	if err != nil {
		return err
	}
	e, err := s.popType(tpe)
	if err != nil {
		return err
	}
	// Pending values that read the local, or that could trap before the
	// stored value does, are evaluated first.
	trap := e.v.Mode == Inline && e.trap
	for _, pending := range s.stack {
		_, reads := pending.locals[idx]
		if reads || (trap && pending.trap) {
			s.materialize(st, len(s.stack))
			break
		}
	}
	s.fn.Locals[idx].Writes++
	st.In = []*Value{e.v}
	if tee {
		s.fn.Locals[idx].Reads++
		s.pushInline(st, tpe, 1, false, idx)
	}
	return nil
}

// statement applies an instruction with side effects: operands are consumed
// inline, every other pending value is materialized first, and results are
// materialized.
func (s *state) statement(st *Step, sg signature) error {
	args, err := s.popTypes(sg.in)
	if err != nil {
		return err
	}
	s.materialize(st, len(s.stack))
	st.In = s.values(args)
	for _, r := range sg.out {
		s.pushMaterialized(st, r)
	}
	return nil
}

// expression applies an instruction without side effects. The result stays
// inline unless the expression grows too deep.
func (s *state) expression(st *Step, sg signature, trap bool) error {
	if err := s.peekTypes(sg.in); err != nil {
		return err
	}
	operands := s.stack[len(s.stack)-len(sg.in):]
	depth := 0
	for _, e := range operands {
		depth = max(depth, e.depth)
	}
	if depth+1 > s.a.maxInlineDepth {
		s.materialize(st, len(s.stack))
	}
	args, err := s.popTypes(sg.in)
	if err != nil {
		return err
	}
	st.In = s.values(args)
	for _, r := range sg.out {
		s.pushDerived(st, r, args, trap)
	}
	return nil
}

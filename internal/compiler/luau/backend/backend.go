// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package backend emits Luau source text for functions analyzed by the
// analyzer package.
package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/analyzer"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// DefaultMaxLocals is the number of Luau locals a function may declare before
// its temporaries are kept in a table. Luau allows 200 registers per function.
const DefaultMaxLocals = 180

// DefaultIndent is the indentation unit of emitted code.
const DefaultIndent = "\t"

// Names of the module level tables generated functions refer to.
const (
	FuncList   = "FUNC_LIST"
	TableList  = "TABLE_LIST"
	MemoryList = "MEMORY_LIST"
	GlobalList = "GLOBAL_LIST"
)

// Backend emits Luau functions.
type Backend struct {
	maxLocals int
	indent    string
}

// New returns a new Backend.
func New() *Backend {
	return &Backend{
		maxLocals: DefaultMaxLocals,
		indent:    DefaultIndent,
	}
}

// WithMaxLocals sets the local variable budget of emitted functions.
func (b *Backend) WithMaxLocals(n int) *Backend {
	if n > 0 {
		b.maxLocals = n
	}
	return b
}

// WithIndent sets the indentation unit.
func (b *Backend) WithIndent(indent string) *Backend {
	b.indent = indent
	return b
}

// Function returns a Luau function expression implementing fn. The closing
// line of the function is indented by level units, the body one unit deeper.
// The first line is not indented.
func (b *Backend) Function(fn *analyzer.Function, level int) (string, error) {
	e := newEmitter(b, fn, level)
	for _, st := range fn.Steps {
		if err := e.step(st); err != nil {
			return "", err
		}
	}
	return e.String(), nil
}

type emitter struct {
	b          *Backend
	fn         *analyzer.Function
	w          *writer
	level      int
	exprs      map[int]expr
	flushed    map[int]struct{}
	frames     []*analyzer.Frame
	terminated bool

	spillRegs   bool
	spillLocals bool
}

func newEmitter(b *Backend, fn *analyzer.Function, level int) *emitter {
	e := &emitter{
		b:       b,
		fn:      fn,
		w:       newWriter(b.indent, level+1),
		level:   level,
		exprs:   map[int]expr{},
		flushed: map[int]struct{}{},
	}

	for _, st := range fn.Steps {
		for _, v := range st.Materialize {
			e.flushed[v.ID] = struct{}{}
		}
	}

	// Parameters, locals, temporaries, the dispatch state and the br_table
	// index all occupy registers.
	vars := len(fn.Type.Params) + e.liveLocals()
	if vars+fn.NumRegs+2 > b.maxLocals {
		e.spillRegs = true
		if vars+3 > b.maxLocals {
			e.spillLocals = true
		}
	}
	return e
}

func (e *emitter) liveLocals() int {
	n := 0
	for _, l := range e.fn.Locals {
		if !l.Param && !l.Dead() {
			n++
		}
	}
	return n
}

func (e *emitter) line(format string, a ...interface{}) {
	e.w.line(format, a...)
	e.terminated = false
}

func (e *emitter) reg(slot int) string {
	if e.spillRegs {
		return "reg[" + strconv.Itoa(slot) + "]"
	}
	return "reg_" + strconv.Itoa(slot)
}

func (e *emitter) local(idx uint32) string {
	if e.spillLocals {
		return "loc[" + strconv.Itoa(int(idx)+1) + "]"
	}
	return "loc_" + strconv.Itoa(int(idx))
}

func (e *emitter) text(v *analyzer.Value) string {
	return e.exprs[v.ID].text
}

func (e *emitter) texts(vs []*analyzer.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = e.text(v)
	}
	return out
}

// cond returns the boolean form of an i32 value.
func (e *emitter) cond(v *analyzer.Value) string {
	x := e.exprs[v.ID]
	switch {
	case x.cond != "":
		return x.cond
	case x.lit && x.bits == 0:
		return "false"
	case x.lit:
		return "true"
	}
	return x.text + " ~= 0"
}

// push records the text of a value produced by an instruction. Values that
// are materialized when produced are assigned to their register.
func (e *emitter) push(v *analyzer.Value, x expr) {
	if _, ok := e.flushed[v.ID]; v.Mode == analyzer.Materialized && !ok {
		r := e.reg(v.Slot)
		e.line("%s = %s", r, x.text)
		x = atom(r)
	}
	e.exprs[v.ID] = x
}

func (e *emitter) unsupported(st *analyzer.Step) error {
	return analyzer.NewError(analyzer.UnsupportedErr, &analyzer.Location{Func: e.fn.Index, Offset: st.Offset}, "%v has no Luau translation", st.Instr.Op())
}

func (e *emitter) step(st *analyzer.Step) error {
	for _, v := range st.Materialize {
		r := e.reg(v.Slot)
		e.line("%s = %s", r, e.text(v))
		e.exprs[v.ID] = atom(r)
	}

	switch st.Kind {
	case analyzer.EnterStep:
		e.enter(st)
		return nil
	case analyzer.ElseStep:
		e.elseBranch()
		return nil
	case analyzer.ExitStep:
		e.exit(st)
		return nil
	}

	args := e.texts(st.In)

	switch instr := st.Instr.(type) {
	case instruction.Unreachable:
		e.line(`rt.trap("unreachable")`)
		e.terminated = true
	case instruction.Nop, instruction.Drop:
	case instruction.Br:
		e.branch(st.Targets[0], st.Carry)
	case instruction.BrIf:
		e.line("if %s then", e.cond(st.In[0]))
		e.w.in()
		e.branch(st.Targets[0], st.Carry)
		e.w.out()
		e.line("end")
	case instruction.BrTable:
		e.brTable(st)
	case instruction.Return:
		e.branch(e.fn.Root, st.Carry)
	case instruction.Call:
		e.call(st, fmt.Sprintf("%s[%d]", FuncList, instr.Index), args)
	case instruction.CallIndirect:
		n := len(args) - 1
		callee := fmt.Sprintf("rt.table.call(%s[%d], %s, %q)", TableList, instr.Table, args[n], st.Type.Signature())
		e.call(st, callee, args[:n])
	case instruction.Select:
		e.push(st.Out[0], expr{text: fmt.Sprintf("(if %s then %s else %s)", e.cond(st.In[2]), args[0], args[1])})
	case instruction.GetLocal:
		e.push(st.Out[0], atom(e.local(instr.Index)))
	case instruction.SetLocal:
		e.line("%s = %s", e.local(instr.Index), args[0])
	case instruction.TeeLocal:
		e.line("%s = %s", e.local(instr.Index), args[0])
		e.push(st.Out[0], atom(e.local(instr.Index)))
	case instruction.GetGlobal:
		e.push(st.Out[0], atom(fmt.Sprintf("%s[%d].value", GlobalList, instr.Index)))
	case instruction.SetGlobal:
		e.line("%s[%d].value = %s", GlobalList, instr.Index, args[0])
	case instruction.Load:
		addr := e.address(st.In[0], instr.Offset)
		e.push(st.Out[0], atom(fmt.Sprintf("%s(%s[0], %s)", loads[instr.Code], MemoryList, addr)))
	case instruction.Store:
		addr := e.address(st.In[0], instr.Offset)
		e.line("%s(%s[0], %s, %s)", stores[instr.Code], MemoryList, addr, args[1])
	case instruction.MemorySize:
		e.push(st.Out[0], atom(fmt.Sprintf("rt.allocator.size(%s[0])", MemoryList)))
	case instruction.MemoryGrow:
		e.push(st.Out[0], atom(fmt.Sprintf("rt.allocator.grow(%s[0], %s)", MemoryList, args[0])))
	case instruction.MemoryCopy:
		e.line("rt.store.copy(%s[0], %s)", MemoryList, strings.Join(args, ", "))
	case instruction.MemoryFill:
		e.line("rt.store.fill(%s[0], %s)", MemoryList, strings.Join(args, ", "))
	case instruction.I32Const:
		e.push(st.Out[0], i32Literal(uint32(instr.Value)))
	case instruction.I64Const:
		e.push(st.Out[0], i64Literal(uint64(instr.Value)))
	case instruction.F32Const:
		e.push(st.Out[0], floatLiteral(float64(instr.Value)))
	case instruction.F64Const:
		e.push(st.Out[0], floatLiteral(instr.Value))
	case instruction.Numeric:
		return e.numeric(st, instr.Code)
	default:
		return e.unsupported(st)
	}
	return nil
}

// address returns the effective address of a memory access.
func (e *emitter) address(v *analyzer.Value, offset uint32) string {
	x := e.exprs[v.ID]
	switch {
	case offset == 0:
		return x.text
	case x.lit:
		return strconv.FormatUint(x.bits+uint64(offset), 10)
	}
	return fmt.Sprintf("(%s + %d)", x.text, offset)
}

func (e *emitter) call(st *analyzer.Step, callee string, args []string) {
	text := fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", "))
	if len(st.Out) == 0 {
		e.line("%s", text)
		return
	}
	regs := make([]string, len(st.Out))
	for i, v := range st.Out {
		regs[i] = e.reg(v.Slot)
		e.exprs[v.ID] = atom(regs[i])
	}
	e.line("%s = %s", strings.Join(regs, ", "), text)
}

func (e *emitter) numeric(st *analyzer.Step, op opcode.Opcode) error {
	o, ok := operators[op]
	if !ok {
		return e.unsupported(st)
	}

	out := st.Out[0]
	args := make([]expr, len(st.In))
	lits := make([]uint64, 0, len(st.In))
	for i, v := range st.In {
		args[i] = e.exprs[v.ID]
		if args[i].lit {
			lits = append(lits, args[i].bits)
		}
	}

	if len(lits) == len(args) && (out.Type == types.I32 || out.Type == types.I64) {
		if r, ok := fold(op, lits); ok {
			if out.Type == types.I32 {
				e.push(out, i32Literal(uint32(r)))
			} else {
				e.push(out, i64Literal(r))
			}
			return nil
		}
	}

	if op == opcode.I32Eqz && args[0].cond != "" {
		e.push(out, expr{
			text: fmt.Sprintf("(if %s then 0 else 1)", args[0].cond),
			cond: fmt.Sprintf("not (%s)", args[0].cond),
		})
		return nil
	}

	operands := make([]interface{}, len(args))
	for i := range args {
		operands[i] = args[i].text
	}
	text := fmt.Sprintf(o.format, operands...)

	switch {
	case o.compare:
		e.push(out, expr{text: fmt.Sprintf("(if %s then 1 else 0)", text), cond: text})
	case o.round:
		e.push(out, atom(fmt.Sprintf("rt.round.f32(%s)", text)))
	default:
		e.push(out, atom(text))
	}
	return nil
}

// String returns the complete function expression.
func (e *emitter) String() string {
	w := newWriter(e.b.indent, e.level+1)

	var params []string
	if e.spillLocals {
		params = []string{"..."}
		w.line("local loc = { ... }")
	} else {
		for i := range e.fn.Type.Params {
			params = append(params, e.local(uint32(i)))
		}
	}

	for i, l := range e.fn.Locals {
		if l.Param || l.Dead() {
			continue
		}
		zero := "0"
		if l.Type == types.I64 {
			zero = "rt.i64.ZERO"
		}
		if e.spillLocals {
			w.line("%s = %s", e.local(uint32(i)), zero)
		} else {
			w.line("local %s = %s", e.local(uint32(i)), zero)
		}
	}

	switch {
	case e.spillRegs:
		w.line("local reg = {}")
	case e.fn.NumRegs > 0:
		regs := make([]string, e.fn.NumRegs)
		for i := range regs {
			regs[i] = e.reg(i)
		}
		w.line("local %s", strings.Join(regs, ", "))
	}

	if e.fn.UsesDesired() {
		w.line("local desired")
	}

	var sb strings.Builder
	sb.WriteString("function(")
	sb.WriteString(strings.Join(params, ", "))
	sb.WriteString(")\n")
	sb.WriteString(w.String())
	sb.WriteString(e.w.String())
	for i := 0; i < e.level; i++ {
		sb.WriteString(e.b.indent)
	}
	sb.WriteString("end")
	return sb.String()
}

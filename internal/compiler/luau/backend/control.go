// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package backend

import (
	"strconv"
	"strings"

	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/analyzer"
)

// Structured control flow is emitted as follows. A frame that is the target
// of a branch becomes a "while true do ... end" loop that is left with break
// and, for wasm loops, restarted with continue. Frames that are never
// targeted become "do ... end" or a plain if statement. A branch to a frame
// other than the innermost Luau loop stores the target label in the desired
// variable and breaks. Every loop that can be left this way is followed by a
// check of desired that continues or breaks the next enclosing loop.

func (e *emitter) enter(st *analyzer.Step) {
	f := st.Frame
	e.frames = append(e.frames, f)

	if f.Kind == analyzer.IfFrame {
		cond := e.cond(st.In[0])
		if f.Targeted {
			e.line("while true do")
			e.w.in()
		}
		e.line("if %s then", cond)
		e.w.in()
		return
	}

	if f.Targeted {
		e.line("while true do")
	} else {
		e.line("do")
	}
	e.w.in()
}

func (e *emitter) elseBranch() {
	e.w.out()
	e.line("else")
	e.w.in()
}

func (e *emitter) exit(st *analyzer.Step) {
	f := st.Frame

	if f.Kind == analyzer.FunctionFrame {
		if !st.Dead && len(st.Carry) > 0 {
			e.line("return %s", strings.Join(e.texts(st.Carry), ", "))
			e.terminated = true
		}
		return
	}

	e.frames = e.frames[:len(e.frames)-1]

	switch {
	case f.Kind == analyzer.IfFrame:
		e.w.out()
		e.line("end")
		if f.Targeted {
			e.line("break")
			e.w.out()
			e.line("end")
		}
	case f.Targeted:
		if !e.terminated {
			e.line("break")
		}
		e.w.out()
		e.line("end")
	default:
		e.w.out()
		e.line("end")
	}

	if f.Targeted && f.Escapes() {
		e.dispatch(f)
	}

	for _, v := range st.Out {
		e.exprs[v.ID] = atom(e.reg(v.Slot))
	}
}

// innermostLoop returns the innermost open frame emitted as a Luau loop.
func (e *emitter) innermostLoop() *analyzer.Frame {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if f := e.frames[i]; f.Kind != analyzer.FunctionFrame && f.Targeted {
			return f
		}
	}
	return nil
}

// resume returns the statement that transfers control to frame f when f is
// the innermost Luau loop.
func resume(f *analyzer.Frame) string {
	if f.Kind == analyzer.LoopFrame {
		return "continue"
	}
	return "break"
}

// dispatch emits the check that follows the loop of frame f when branches
// inside f target enclosing frames.
func (e *emitter) dispatch(f *analyzer.Frame) {
	p := e.innermostLoop()
	if p == nil {
		return
	}

	to, beyond := f.EscapesTo(p.Label), f.EscapesBeyond(p.Label)

	e.line("if desired then")
	e.w.in()
	switch {
	case to && !beyond:
		e.line("desired = nil")
		e.line("%s", resume(p))
	case beyond && !to:
		e.line("break")
	default:
		e.line("if desired == %d then", p.Label)
		e.w.in()
		e.line("desired = nil")
		e.line("%s", resume(p))
		e.w.out()
		e.line("end")
		e.line("break")
	}
	e.w.out()
	e.line("end")
}

// branch emits a transfer to target carrying the given values.
func (e *emitter) branch(target *analyzer.Frame, carry []*analyzer.Value) {
	if target.Kind == analyzer.FunctionFrame {
		if len(carry) == 0 {
			e.line("return")
		} else {
			e.line("return %s", strings.Join(e.texts(carry), ", "))
		}
		e.terminated = true
		return
	}

	var lhs, rhs []string
	for i, v := range carry {
		dst, src := e.reg(target.Height+i), e.text(v)
		if dst != src {
			lhs = append(lhs, dst)
			rhs = append(rhs, src)
		}
	}
	if len(lhs) > 0 {
		e.line("%s = %s", strings.Join(lhs, ", "), strings.Join(rhs, ", "))
	}

	if target == e.innermostLoop() {
		e.line("%s", resume(target))
	} else {
		e.line("desired = %d", target.Label)
		e.line("break")
	}
	e.terminated = true
}

// brTable emits an if/elseif chain over the branch index. Cases with the same
// target share an arm.
func (e *emitter) brTable(st *analyzer.Step) {
	n := len(st.Targets) - 1
	def := st.Targets[n]

	type arm struct {
		target *analyzer.Frame
		cases  []string
	}
	var arms []*arm
	byLabel := map[int]*arm{}
	for i, t := range st.Targets[:n] {
		if t == def {
			continue
		}
		a, ok := byLabel[t.Label]
		if !ok {
			a = &arm{target: t}
			byLabel[t.Label] = a
			arms = append(arms, a)
		}
		a.cases = append(a.cases, strconv.Itoa(i))
	}

	if len(arms) == 0 {
		e.branch(def, st.Carry)
		return
	}

	index := e.exprs[st.In[0].ID]
	name := index.text
	scoped := !index.simple()
	if scoped {
		e.line("do")
		e.w.in()
		e.line("local br_index = %s", index.text)
		name = "br_index"
	}

	for i, a := range arms {
		conds := make([]string, len(a.cases))
		for j, c := range a.cases {
			conds[j] = name + " == " + c
		}
		kw := "elseif"
		if i == 0 {
			kw = "if"
		}
		if i > 0 {
			e.w.out()
		}
		e.line("%s %s then", kw, strings.Join(conds, " or "))
		e.w.in()
		e.branch(a.target, st.Carry)
	}
	e.w.out()
	e.line("else")
	e.w.in()
	e.branch(def, st.Carry)
	e.w.out()
	e.line("end")

	if scoped {
		e.w.out()
		e.line("end")
	}
	e.terminated = true
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package analyzer

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// entry is an operand stack slot. Inline entries remember which locals their
// expression reads, whether evaluating it can trap, and how deeply nested it
// is.
type entry struct {
	v      *Value
	locals map[uint32]struct{}
	trap   bool
	depth  int
}

func (s *state) newValue(tpe types.ValueType, mode Mode) *Value {
	v := &Value{
		ID:   s.nextValue,
		Type: tpe,
		Slot: len(s.stack),
		Mode: mode,
	}
	s.nextValue++
	return v
}

func (s *state) pushInline(st *Step, tpe types.ValueType, depth int, trap bool, locals ...uint32) {
	e := &entry{
		v:     s.newValue(tpe, Inline),
		trap:  trap,
		depth: depth,
	}
	if len(locals) > 0 {
		e.locals = make(map[uint32]struct{}, len(locals))
		for _, l := range locals {
			e.locals[l] = struct{}{}
		}
	}
	s.stack = append(s.stack, e)
	st.Out = append(st.Out, e.v)
}

// pushDerived pushes an inline value computed from operands.
func (s *state) pushDerived(st *Step, tpe types.ValueType, operands []*entry, trap bool) {
	e := &entry{
		v:     s.newValue(tpe, Inline),
		trap:  trap,
		depth: 1,
	}
	for _, o := range operands {
		if o.v.Mode != Inline {
			continue
		}
		e.trap = e.trap || o.trap
		e.depth = max(e.depth, o.depth+1)
		for l := range o.locals {
			if e.locals == nil {
				e.locals = map[uint32]struct{}{}
			}
			e.locals[l] = struct{}{}
		}
	}
	s.stack = append(s.stack, e)
	st.Out = append(st.Out, e.v)
}

func (s *state) pushMaterialized(st *Step, tpe types.ValueType) {
	e := &entry{v: s.newValue(tpe, Materialized)}
	s.reg(e.v.Slot)
	s.stack = append(s.stack, e)
	st.Out = append(st.Out, e.v)
}

func (s *state) reg(slot int) {
	if slot+1 > s.fn.NumRegs {
		s.fn.NumRegs = slot + 1
	}
}

// materialize stores the inline values among the n lowest stack entries into
// their registers, lowest slot first.
func (s *state) materialize(st *Step, n int) {
	for _, e := range s.stack[:n] {
		if e.v.Mode != Inline {
			continue
		}
		e.v.Mode = Materialized
		e.locals = nil
		e.trap = false
		e.depth = 0
		s.reg(e.v.Slot)
		st.Materialize = append(st.Materialize, e.v)
	}
}

func (s *state) pop() (*entry, error) {
	if len(s.stack) <= s.top().Height {
		return nil, s.errorf(StructuralErr, "stack underflow")
	}
	e := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return e, nil
}

func (s *state) popType(tpe types.ValueType) (*entry, error) {
	e, err := s.pop()
	if err != nil {
		return nil, err
	}
	if e.v.Type != tpe {
		return nil, s.errorf(TypeErr, "expected %v operand but found %v", tpe, e.v.Type)
	}
	return e, nil
}

// popTypes pops len(tpes) operands of the given types. The result is in stack
// order.
func (s *state) popTypes(tpes []types.ValueType) ([]*entry, error) {
	if err := s.peekTypes(tpes); err != nil {
		return nil, err
	}
	n := len(s.stack) - len(tpes)
	es := append([]*entry(nil), s.stack[n:]...)
	s.stack = s.stack[:n]
	return es, nil
}

// peekTypes checks that the top of the stack holds operands of the given
// types without removing them.
func (s *state) peekTypes(tpes []types.ValueType) error {
	if len(s.stack)-s.top().Height < len(tpes) {
		return s.errorf(StructuralErr, "stack underflow: expected %d operands but found %d", len(tpes), len(s.stack)-s.top().Height)
	}
	base := len(s.stack) - len(tpes)
	for i, tpe := range tpes {
		if have := s.stack[base+i].v.Type; have != tpe {
			return s.errorf(TypeErr, "expected %v operand but found %v", tpe, have)
		}
	}
	return nil
}

func (s *state) values(es []*entry) []*Value {
	if len(es) == 0 {
		return nil
	}
	vs := make([]*Value, len(es))
	for i, e := range es {
		vs[i] = e.v
	}
	return vs
}

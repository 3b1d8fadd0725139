// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package analyzer

import (
	"errors"

	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// Annotate returns a copy of m whose function bodies are in the typed flavor.
// Every reachable value-producing instruction is wrapped with the types
// inferred for it. The input is read in the untyped flavor. The errors of all
// functions that fail analysis are returned together.
func Annotate(m *module.Module) (*module.Module, error) {
	cpy := *m
	cpy.Code.Segments = make([]module.CodeEntry, len(m.Code.Segments))

	a := New(m)
	base := uint32(m.FunctionImportCount())

	var errs Errors
	for i, seg := range m.Code.Segments {
		fn, err := a.Function(base + uint32(i))
		if err != nil {
			var e *Error
			if !errors.As(err, &e) {
				return nil, err
			}
			errs = append(errs, e)
			continue
		}
		seg.Func.Expr.Instrs = AnnotateBody(fn, seg.Func.Expr.Instrs)
		cpy.Code.Segments[i] = seg
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &cpy, nil
}

// AnnotateBody wraps the value-producing instructions of instrs with the
// result types recorded in fn, which must be the analysis of instrs.
func AnnotateBody(fn *Function, instrs []instruction.Instruction) []instruction.Instruction {
	out := instruction.Strip(instrs)
	for _, st := range fn.Steps {
		if st.Kind != OpStep || len(st.Out) == 0 || st.Offset >= len(out) {
			continue
		}
		tpes := make([]types.ValueType, len(st.Out))
		for i, v := range st.Out {
			tpes[i] = v.Type
		}
		out[st.Offset] = instruction.Typed{Instr: out[st.Offset], Results: tpes}
	}
	return out
}

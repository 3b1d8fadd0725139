// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package analyzer

import (
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// Mode says how the backend renders a value.
type Mode uint8

const (
	// Inline values are substituted into the expression that consumes them.
	Inline Mode = iota

	// Materialized values live in the register named after their stack slot.
	Materialized
)

func (m Mode) String() string {
	if m == Materialized {
		return "materialized"
	}
	return "inline"
}

// Value is one operand stack value. Slot is the stack position the value
// occupies for its whole lifetime.
type Value struct {
	ID   int
	Type types.ValueType
	Slot int
	Mode Mode
}

// FrameKind identifies the structured construct a Frame belongs to.
type FrameKind uint8

const (
	// FunctionFrame is the implicit outermost frame of a function body.
	FunctionFrame FrameKind = iota
	// BlockFrame is a block ... end construct.
	BlockFrame
	// LoopFrame is a loop ... end construct.
	LoopFrame
	// IfFrame is an if ... [else ...] end construct.
	IfFrame
)

func (k FrameKind) String() string {
	switch k {
	case FunctionFrame:
		return "function"
	case BlockFrame:
		return "block"
	case LoopFrame:
		return "loop"
	case IfFrame:
		return "if"
	}
	return "unknown"
}

// Frame is one level of structured control flow.
type Frame struct {
	Kind    FrameKind
	Label   int // 0 for the function frame, then in order of entry
	Depth   int // number of enclosing frames
	Height  int // operand stack height below the frame's parameters
	Params  []types.ValueType
	Results []types.ValueType
	Parent  *Frame

	// Targeted is set if a branch inside the frame targets it.
	Targeted bool

	// HasElse is set for if frames with an else branch.
	HasElse bool

	escapes map[int]struct{}
	params  []*entry
}

// BranchTypes returns the types of the values a branch to the frame carries:
// the parameters of a loop, the results of anything else.
func (f *Frame) BranchTypes() []types.ValueType {
	if f.Kind == LoopFrame {
		return f.Params
	}
	return f.Results
}

// Escapes returns true if a branch from inside the frame targets any
// enclosing frame.
func (f *Frame) Escapes() bool {
	return len(f.escapes) > 0
}

// EscapesTo returns true if a branch from inside the frame targets the
// enclosing frame with the given label.
func (f *Frame) EscapesTo(label int) bool {
	_, ok := f.escapes[label]
	return ok
}

// EscapesBeyond returns true if a branch from inside the frame targets an
// enclosing frame other than the one with the given label.
func (f *Frame) EscapesBeyond(label int) bool {
	for l := range f.escapes {
		if l != label {
			return true
		}
	}
	return false
}

// StepKind identifies what a Step does.
type StepKind uint8

const (
	// OpStep executes an ordinary instruction.
	OpStep StepKind = iota
	// EnterStep opens a block, loop or if frame.
	EnterStep
	// ElseStep switches an if frame to its else branch.
	ElseStep
	// ExitStep closes a frame.
	ExitStep
)

// Step is one emission step. Before the step executes, every value in
// Materialize is assigned to its register, lowest slot first.
type Step struct {
	Kind   StepKind
	Offset int
	Instr  instruction.Instruction

	// Materialize lists pending inline values that must be assigned to their
	// registers before the step.
	Materialize []*Value

	// In holds the consumed operands, bottom of the stack first. For br_if,
	// br_table and if only the condition or index is listed.
	In []*Value

	// Out holds the pushed values.
	Out []*Value

	// Carry holds the values a branch passes to its target(s).
	Carry []*Value

	// Targets lists the branch targets. For br_table the default target is
	// last. Return targets the function frame.
	Targets []*Frame

	// Frame is set for enter, else and exit steps.
	Frame *Frame

	// Type is the callee type of call and call_indirect.
	Type *module.FunctionType

	// Dead is set on else and exit steps whose fallthrough path cannot be
	// reached.
	Dead bool
}

// Local describes one local slot. Parameters come first.
type Local struct {
	Type   types.ValueType
	Param  bool
	Reads  int
	Writes int
}

// Dead returns true if the local is not a parameter and is never referenced.
func (l Local) Dead() bool {
	return !l.Param && l.Reads == 0 && l.Writes == 0
}

// Function is the result of analyzing one function body.
type Function struct {
	Index   uint32
	Type    module.FunctionType
	Locals  []Local
	Steps   []*Step
	Root    *Frame
	Frames  []*Frame // in label order
	NumRegs int
}

// UsesDesired returns true if any frame can be left by a branch that targets
// an outer frame, which the backend dispatches on a state variable.
func (f *Function) UsesDesired() bool {
	for _, fr := range f.Frames {
		if fr.Targeted && fr.Escapes() {
			return true
		}
	}
	return false
}

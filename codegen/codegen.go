// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package codegen translates WebAssembly modules and instruction lists into
// Luau source.
//
// Generated code requires the runtime support library, which is available as
// Runtime and ExportRuntime. Unless the runtime is inlined, callers must make
// it loadable under RuntimeName (and ExportRuntimeName when the export
// adapter is used).
package codegen

import (
	"io"

	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/analyzer"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/runtime"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/encoding"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
	"github.com/open-policy-agent/wasm2luau/logging"
	"github.com/open-policy-agent/wasm2luau/metrics"
)

type (
	// Module is a decoded WebAssembly module.
	Module = module.Module

	// Instruction is a single WebAssembly instruction.
	Instruction = instruction.Instruction

	// ValueType is a WebAssembly value type.
	ValueType = types.ValueType

	// Error is a translation error. It carries the function index and
	// instruction offset the error was found at.
	Error = analyzer.Error
)

// Names under which generated code requires the runtime modules.
const (
	RuntimeName       = runtime.Name
	ExportRuntimeName = runtime.ExportName
)

// Runtime is the source of the base runtime module.
var Runtime = runtime.Source

// ExportRuntime is the source of the export adapter runtime module.
var ExportRuntime = runtime.ExportSource

// Option configures a translation.
type Option func(*options)

type options struct {
	exportAdapter  bool
	inlineRuntime  bool
	runtimeName    string
	exportName     string
	indent         string
	maxLocals      int
	maxInlineDepth int
	results        []ValueType
	logger         logging.Logger
	metrics        metrics.Metrics
}

// ExportAdapter wraps exports with the export adapter runtime, which converts
// arguments and results between plain Luau values and the internal value
// representation.
func ExportAdapter(enabled bool) Option {
	return func(o *options) {
		o.exportAdapter = enabled
	}
}

// InlineRuntime embeds the runtime sources in the generated code.
func InlineRuntime(enabled bool) Option {
	return func(o *options) {
		o.inlineRuntime = enabled
	}
}

// RuntimeNames sets the names under which generated code requires the
// runtime modules.
func RuntimeNames(name, exportName string) Option {
	return func(o *options) {
		o.runtimeName = name
		o.exportName = exportName
	}
}

// Indent sets the indentation unit of generated code.
func Indent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

// MaxLocals sets the number of Luau locals a generated function may declare
// before temporaries are kept in a table.
func MaxLocals(n int) Option {
	return func(o *options) {
		o.maxLocals = n
	}
}

// MaxInlineDepth bounds the nesting of inline expressions.
func MaxInlineDepth(n int) Option {
	return func(o *options) {
		o.maxInlineDepth = n
	}
}

// Results sets the result types of an instruction list translated by
// FromInstList.
func Results(results ...ValueType) Option {
	return func(o *options) {
		o.results = results
	}
}

// Logger sets the logger.
func Logger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Metrics sets the metrics translation timings and sizes are recorded in.
func Metrics(m metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// ReadModule decodes a WebAssembly binary module.
func ReadModule(r io.Reader) (*Module, error) {
	return encoding.ReadModule(r)
}

// FromModuleTyped translates a module whose function bodies carry result type
// annotations on every value producing instruction.
func FromModuleTyped(m *Module, opts ...Option) (string, error) {
	return compiler(analyzer.Typed, opts).WithModule(m).Compile()
}

// FromModuleUntyped translates a module whose function bodies are plain
// instructions. Types are derived from the operand stack.
func FromModuleUntyped(m *Module, opts ...Option) (string, error) {
	return compiler(analyzer.Untyped, opts).WithModule(m).Compile()
}

// FromInstList translates a bare instruction list into a chunk returning a
// function without parameters. The list is treated as typed if any of its
// instructions carries a type annotation.
func FromInstList(instrs []Instruction, opts ...Option) (string, error) {
	flavor := analyzer.Untyped
	for _, instr := range instrs {
		if _, ok := instr.(instruction.Typed); ok {
			flavor = analyzer.Typed
			break
		}
	}
	return compiler(flavor, opts).CompileInstructions(instrs)
}

// Annotate returns a copy of an untyped module with type annotations added,
// suitable for FromModuleTyped.
func Annotate(m *Module) (*Module, error) {
	return analyzer.Annotate(m)
}

func compiler(flavor analyzer.Flavor, opts []Option) *luau.Compiler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := luau.New().
		WithFlavor(flavor).
		WithExportAdapter(o.exportAdapter).
		WithInlineRuntime(o.inlineRuntime).
		WithRuntimeNames(o.runtimeName, o.exportName).
		WithMaxLocals(o.maxLocals).
		WithMaxInlineDepth(o.maxInlineDepth).
		WithResults(o.results...)

	if o.indent != "" {
		c = c.WithIndent(o.indent)
	}
	if o.logger != nil {
		c = c.WithLogger(o.logger)
	}
	if o.metrics != nil {
		c = c.WithMetrics(o.metrics)
	}
	return c
}

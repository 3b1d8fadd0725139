// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package luau translates WebAssembly modules into Luau source.
//
// A translated module is a chunk returning an instantiation function. The
// function takes the import table, builds the module's functions, memories,
// tables and globals, runs the start function and returns the export table.
package luau

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/analyzer"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/backend"
	"github.com/open-policy-agent/wasm2luau/internal/compiler/luau/runtime"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
	"github.com/open-policy-agent/wasm2luau/logging"
	"github.com/open-policy-agent/wasm2luau/metrics"
)

// Names bound in the generated chunk.
const (
	RuntimeVar       = "rt"
	ExportRuntimeVar = "rt_export"
	ImportsParam     = "imports"
)

// Compiler implements a compiler from WebAssembly modules to Luau.
type Compiler struct {
	stages []func() error // compiler stages to execute

	module  *module.Module    // input module
	results []types.ValueType // results of a bare instruction list

	flavor            analyzer.Flavor
	exportAdapter     bool
	inlineRuntime     bool
	runtimeName       string
	exportRuntimeName string
	maxInlineDepth    int
	maxLocals         int
	indent            string

	logger  logging.Logger
	metrics metrics.Metrics

	body strings.Builder // instantiation function body
	out  string          // output chunk
}

// New returns a new compiler object.
func New() *Compiler {
	c := &Compiler{
		runtimeName:       runtime.Name,
		exportRuntimeName: runtime.ExportName,
		maxInlineDepth:    analyzer.DefaultMaxInlineDepth,
		maxLocals:         backend.DefaultMaxLocals,
		indent:            backend.DefaultIndent,
		logger:            logging.NewNoOpLogger(),
		metrics:           metrics.NoOp(),
	}
	c.stages = []func() error{
		c.initModule,
		c.compileImports,
		c.compileMemories,
		c.compileTables,
		c.compileGlobals,
		c.compileFuncs,
		c.compileInit,
		c.compileExports,
		c.assemble,
	}
	return c
}

// WithModule sets the module to compile.
func (c *Compiler) WithModule(m *module.Module) *Compiler {
	c.module = m
	return c
}

// WithFlavor sets the flavor of the instructions to compile.
func (c *Compiler) WithFlavor(f analyzer.Flavor) *Compiler {
	c.flavor = f
	return c
}

// WithExportAdapter wraps the exports of compiled modules with the export
// adapter runtime.
func (c *Compiler) WithExportAdapter(enabled bool) *Compiler {
	c.exportAdapter = enabled
	return c
}

// WithInlineRuntime embeds the runtime sources in the output instead of
// requiring them.
func (c *Compiler) WithInlineRuntime(enabled bool) *Compiler {
	c.inlineRuntime = enabled
	return c
}

// WithRuntimeNames sets the names under which the output requires the base
// and the export adapter runtime. Empty names keep the defaults.
func (c *Compiler) WithRuntimeNames(name, exportName string) *Compiler {
	if name != "" {
		c.runtimeName = name
	}
	if exportName != "" {
		c.exportRuntimeName = exportName
	}
	return c
}

// WithMaxInlineDepth bounds the nesting of inline expressions.
func (c *Compiler) WithMaxInlineDepth(n int) *Compiler {
	c.maxInlineDepth = n
	return c
}

// WithMaxLocals sets the number of Luau locals a function may declare.
func (c *Compiler) WithMaxLocals(n int) *Compiler {
	c.maxLocals = n
	return c
}

// WithIndent sets the indentation unit of the output.
func (c *Compiler) WithIndent(indent string) *Compiler {
	c.indent = indent
	return c
}

// WithResults sets the result types of the instruction list compiled by
// CompileInstructions.
func (c *Compiler) WithResults(results ...types.ValueType) *Compiler {
	c.results = results
	return c
}

// WithLogger sets the logger.
func (c *Compiler) WithLogger(logger logging.Logger) *Compiler {
	c.logger = logger
	return c
}

// WithMetrics sets the metrics the compiler records timings and sizes in.
func (c *Compiler) WithMetrics(m metrics.Metrics) *Compiler {
	c.metrics = m
	return c
}

// Compile returns the Luau chunk implementing the module. Nothing is returned
// unless every function of the module compiles.
func (c *Compiler) Compile() (string, error) {
	if c.module == nil {
		return "", errors.New("no module to compile")
	}

	c.metrics.Timer(metrics.LuauTranslate).Start()
	defer c.metrics.Timer(metrics.LuauTranslate).Stop()

	c.body.Reset()
	c.out = ""

	for _, stage := range c.stages {
		if err := stage(); err != nil {
			return "", err
		}
	}

	return c.out, nil
}

// CompileInstructions returns a Luau chunk evaluating to a function without
// parameters that executes instrs. The instructions cannot refer to
// functions, globals, memories or tables.
func (c *Compiler) CompileInstructions(instrs []instruction.Instruction) (string, error) {
	c.metrics.Timer(metrics.LuauTranslate).Start()
	defer c.metrics.Timer(metrics.LuauTranslate).Stop()

	m := &module.Module{}
	c.metrics.Timer(metrics.LuauAnalyze).Start()
	fn, err := c.newAnalyzer(m).Body(0, module.FunctionType{Results: c.results}, nil, instrs)
	c.metrics.Timer(metrics.LuauAnalyze).Stop()
	if err != nil {
		return "", err
	}

	text, err := c.emit(fn, 0)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	c.writeRuntime(&sb, false)
	sb.WriteString("\nreturn ")
	sb.WriteString(text)
	sb.WriteByte('\n')
	return sb.String(), nil
}

func (c *Compiler) initModule() error {
	m := c.module

	if len(m.Code.Segments) != len(m.Function.TypeIndices) {
		return analyzer.NewError(analyzer.StructuralErr, nil, "function section declares %d functions but code section has %d", len(m.Function.TypeIndices), len(m.Code.Segments))
	}

	lists := []struct {
		name string
		n    int
	}{
		{backend.FuncList, m.NumFunctions()},
		{backend.TableList, m.NumTables()},
		{backend.MemoryList, m.NumMemories()},
		{backend.GlobalList, m.NumGlobals()},
	}

	for _, l := range lists {
		if l.n > 0 {
			c.line(1, "local %s = {}", l.name)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"functions": m.NumFunctions(),
		"imports":   len(m.Import.Imports),
		"exports":   len(m.Export.Exports),
	}).Debug("Translating module.")

	return nil
}

func (c *Compiler) compileImports() error {
	var funcs, tables, memories, globals int

	for _, imp := range c.module.Import.Imports {
		var name string
		var idx int

		switch desc := imp.Descriptor.(type) {
		case module.FunctionImport:
			if _, ok := c.module.TypeAt(desc.Func); !ok {
				return analyzer.NewError(analyzer.StructuralErr, nil, "import %v.%v: type index %d out of range", imp.Module, imp.Name, desc.Func)
			}
			name, idx = backend.FuncList, funcs
			funcs++
		case module.TableImport:
			name, idx = backend.TableList, tables
			tables++
		case module.MemoryImport:
			name, idx = backend.MemoryList, memories
			memories++
		case module.GlobalImport:
			name, idx = backend.GlobalList, globals
			globals++
		default:
			return analyzer.NewError(analyzer.StructuralErr, nil, "import %v.%v: illegal descriptor %v", imp.Module, imp.Name, imp.Descriptor)
		}

		c.line(1, "%s[%d] = %s[%s][%s]", name, idx, ImportsParam, backend.Quote(imp.Module), backend.Quote(imp.Name))
	}

	return nil
}

func (c *Compiler) compileMemories() error {
	base := c.module.NumMemories() - len(c.module.Memory.Memories)
	for i, mem := range c.module.Memory.Memories {
		c.line(1, "%s[%d] = rt.allocator.new(%s)", backend.MemoryList, base+i, limits(mem.Lim))
	}
	return nil
}

func (c *Compiler) compileTables() error {
	base := c.module.NumTables() - len(c.module.Table.Tables)
	for i, tbl := range c.module.Table.Tables {
		c.line(1, "%s[%d] = rt.table.new(%s)", backend.TableList, base+i, limits(tbl.Lim))
	}
	return nil
}

func (c *Compiler) compileGlobals() error {
	base := c.module.NumGlobals() - len(c.module.Global.Globals)
	for i, g := range c.module.Global.Globals {
		idx := base + i
		text, tpe, err := c.constExpr(g.Init, fmt.Sprintf("global %d", idx))
		if err != nil {
			return err
		}
		if tpe != g.Type {
			return analyzer.NewError(analyzer.TypeErr, nil, "global %d: initializer of type %v for global of type %v", idx, tpe, g.Type)
		}
		c.line(1, "%s[%d] = { value = %s }", backend.GlobalList, idx, text)
	}
	return nil
}

func (c *Compiler) compileFuncs() error {
	base := uint32(c.module.FunctionImportCount())
	for i := range c.module.Function.TypeIndices {
		idx := base + uint32(i)
		if err := c.compileFunc(idx); err != nil {
			if name, ok := c.module.FunctionName(idx); ok {
				return errors.Wrapf(err, "function %q", name)
			}
			return err
		}
	}
	return nil
}

func (c *Compiler) compileFunc(idx uint32) error {
	c.metrics.Timer(metrics.LuauAnalyze).Start()
	fn, err := c.newAnalyzer(c.module).Function(idx)
	c.metrics.Timer(metrics.LuauAnalyze).Stop()
	if err != nil {
		return err
	}

	text, err := c.emit(fn, 1)
	if err != nil {
		return err
	}

	if name, ok := c.module.FunctionName(idx); ok {
		c.line(1, "-- %s", comment(name))
	}
	c.line(1, "%s[%d] = %s", backend.FuncList, idx, text)

	c.metrics.Counter(metrics.LuauFunctions).Incr()
	c.metrics.Histogram(metrics.LuauFunctionBytes).Update(int64(len(text)))
	c.logger.WithFields(map[string]interface{}{"func": idx}).Debug("Translated function to %d bytes.", len(text))

	return nil
}

// compileInit emits the element and data segment initialization and the call
// of the start function.
func (c *Compiler) compileInit() error {
	m := c.module

	for i, seg := range m.Element.Segments {
		if int(seg.Index) >= m.NumTables() {
			return analyzer.NewError(analyzer.StructuralErr, nil, "element segment %d: table index %d out of range", i, seg.Index)
		}
		offset, err := c.offsetExpr(seg.Offset, fmt.Sprintf("element segment %d", i))
		if err != nil {
			return err
		}
		funcs := make([]string, len(seg.Indices))
		sigs := make([]string, len(seg.Indices))
		for j, fidx := range seg.Indices {
			tpe, ok := m.FuncType(fidx)
			if !ok {
				return analyzer.NewError(analyzer.StructuralErr, nil, "element segment %d: function index %d out of range", i, fidx)
			}
			funcs[j] = fmt.Sprintf("%s[%d]", backend.FuncList, fidx)
			sigs[j] = backend.Quote(tpe.Signature())
		}
		c.line(1, "rt.table.init(%s[%d], %s, %s, %s)", backend.TableList, seg.Index, offset, list(funcs), list(sigs))
	}

	for i, seg := range m.Data.Segments {
		if int(seg.Index) >= m.NumMemories() {
			return analyzer.NewError(analyzer.StructuralErr, nil, "data segment %d: memory index %d out of range", i, seg.Index)
		}
		offset, err := c.offsetExpr(seg.Offset, fmt.Sprintf("data segment %d", i))
		if err != nil {
			return err
		}
		c.line(1, "rt.store.string(%s[%d], %s, %s)", backend.MemoryList, seg.Index, offset, backend.Quote(string(seg.Init)))
	}

	if m.Start.FuncIndex != nil {
		idx := *m.Start.FuncIndex
		tpe, ok := m.FuncType(idx)
		if !ok {
			return analyzer.NewError(analyzer.StructuralErr, nil, "start function index %d out of range", idx)
		}
		if len(tpe.Params) > 0 || len(tpe.Results) > 0 {
			return analyzer.NewError(analyzer.TypeErr, nil, "start function %d has type %v", idx, tpe)
		}
		c.line(1, "%s[%d]()", backend.FuncList, idx)
	}

	return nil
}

func (c *Compiler) compileExports() error {
	seen := make(map[string]struct{}, len(c.module.Export.Exports))
	entries := make([]string, 0, len(c.module.Export.Exports))

	for _, exp := range c.module.Export.Exports {
		if _, ok := seen[exp.Name]; ok {
			return analyzer.NewError(analyzer.StructuralErr, nil, "duplicate export %q", exp.Name)
		}
		seen[exp.Name] = struct{}{}

		ref, err := c.exportRef(exp)
		if err != nil {
			return err
		}
		entries = append(entries, fmt.Sprintf("[%s] = %s,", backend.Quote(exp.Name), ref))
	}

	if len(entries) == 0 {
		c.line(1, "return {}")
		return nil
	}

	c.line(1, "return {")
	for _, e := range entries {
		c.line(2, "%s", e)
	}
	c.line(1, "}")
	return nil
}

func (c *Compiler) exportRef(exp module.Export) (string, error) {
	m := c.module
	idx := exp.Descriptor.Index

	switch exp.Descriptor.Type {
	case module.FunctionExportType:
		tpe, ok := m.FuncType(idx)
		if !ok {
			break
		}
		ref := fmt.Sprintf("%s[%d]", backend.FuncList, idx)
		if c.exportAdapter {
			return fmt.Sprintf("%s.func(%s, %s)", ExportRuntimeVar, ref, backend.Quote(tpe.Signature())), nil
		}
		return ref, nil
	case module.GlobalExportType:
		tpe, mutable, ok := m.GlobalType(idx)
		if !ok {
			break
		}
		ref := fmt.Sprintf("%s[%d]", backend.GlobalList, idx)
		if c.exportAdapter {
			return fmt.Sprintf("%s.global(%s, %s, %t)", ExportRuntimeVar, ref, backend.Quote(string(tpe.Letter())), mutable), nil
		}
		return ref, nil
	case module.MemoryExportType:
		if int(idx) >= m.NumMemories() {
			break
		}
		ref := fmt.Sprintf("%s[%d]", backend.MemoryList, idx)
		if c.exportAdapter {
			return fmt.Sprintf("%s.memory(%s)", ExportRuntimeVar, ref), nil
		}
		return ref, nil
	case module.TableExportType:
		if int(idx) >= m.NumTables() {
			break
		}
		ref := fmt.Sprintf("%s[%d]", backend.TableList, idx)
		if c.exportAdapter {
			return fmt.Sprintf("%s.table(%s)", ExportRuntimeVar, ref), nil
		}
		return ref, nil
	default:
		return "", analyzer.NewError(analyzer.StructuralErr, nil, "export %q: illegal descriptor type %v", exp.Name, exp.Descriptor.Type)
	}

	return "", analyzer.NewError(analyzer.StructuralErr, nil, "export %q: %v index %d out of range", exp.Name, exp.Descriptor.Type, idx)
}

func (c *Compiler) assemble() error {
	var sb strings.Builder
	c.writeRuntime(&sb, c.exportAdapter)
	fmt.Fprintf(&sb, "\nreturn function(%s)\n", ImportsParam)
	sb.WriteString(c.body.String())
	sb.WriteString("end\n")
	c.out = sb.String()

	c.logger.Debug("Translated module to %d bytes.", len(c.out))
	return nil
}

// writeRuntime writes the runtime references to sb.
func (c *Compiler) writeRuntime(sb *strings.Builder, adapter bool) {
	if c.inlineRuntime {
		fmt.Fprintf(sb, "local %s = (function()\n%s\nend)()\n", RuntimeVar, strings.TrimRight(runtime.Source, "\n"))
		if adapter {
			fmt.Fprintf(sb, "local %s = (function()\n%s\nend)()(%s)\n", ExportRuntimeVar, strings.TrimRight(runtime.ExportSource, "\n"), RuntimeVar)
		}
		return
	}

	fmt.Fprintf(sb, "local %s = require(%s)\n", RuntimeVar, backend.Quote(c.runtimeName))
	if adapter {
		fmt.Fprintf(sb, "local %s = require(%s)(%s)\n", ExportRuntimeVar, backend.Quote(c.exportRuntimeName), RuntimeVar)
	}
}

// constExpr returns the Luau text and type of a constant expression.
func (c *Compiler) constExpr(expr module.Expr, what string) (string, types.ValueType, error) {
	instrs := instruction.Strip(expr.Instrs)
	if n := len(instrs); n > 0 {
		if _, ok := instrs[n-1].(instruction.End); ok {
			instrs = instrs[:n-1]
		}
	}

	if len(instrs) != 1 {
		return "", 0, analyzer.NewError(analyzer.StructuralErr, nil, "%v: constant expression must be a single instruction", what)
	}

	var tpe types.ValueType

	switch instr := instrs[0].(type) {
	case instruction.GetGlobal:
		if int(instr.Index) >= c.module.NumGlobals()-len(c.module.Global.Globals) {
			return "", 0, analyzer.NewError(analyzer.StructuralErr, nil, "%v: constant expression refers to global %d which is not imported", what, instr.Index)
		}
		tpe, _, _ = c.module.GlobalType(instr.Index)
		return fmt.Sprintf("%s[%d].value", backend.GlobalList, instr.Index), tpe, nil
	case instruction.I32Const:
		tpe = types.I32
	case instruction.I64Const:
		tpe = types.I64
	case instruction.F32Const:
		tpe = types.F32
	case instruction.F64Const:
		tpe = types.F64
	default:
		return "", 0, analyzer.NewError(analyzer.StructuralErr, nil, "%v: %v is not a constant instruction", what, instrs[0].Op())
	}

	text, _ := backend.Literal(instrs[0])
	return text, tpe, nil
}

// offsetExpr returns the Luau text of a segment offset.
func (c *Compiler) offsetExpr(expr module.Expr, what string) (string, error) {
	text, tpe, err := c.constExpr(expr, what)
	if err != nil {
		return "", err
	}
	if tpe != types.I32 {
		return "", analyzer.NewError(analyzer.TypeErr, nil, "%v: offset of type %v", what, tpe)
	}
	return text, nil
}

func (c *Compiler) newAnalyzer(m *module.Module) *analyzer.Analyzer {
	return analyzer.New(m).
		WithFlavor(c.flavor).
		WithMaxInlineDepth(c.maxInlineDepth)
}

func (c *Compiler) emit(fn *analyzer.Function, level int) (string, error) {
	c.metrics.Timer(metrics.LuauEmit).Start()
	defer c.metrics.Timer(metrics.LuauEmit).Stop()

	return backend.New().
		WithMaxLocals(c.maxLocals).
		WithIndent(c.indent).
		Function(fn, level)
}

// line writes a line of the instantiation function body.
func (c *Compiler) line(level int, format string, a ...interface{}) {
	for i := 0; i < level; i++ {
		c.body.WriteString(c.indent)
	}
	fmt.Fprintf(&c.body, format, a...)
	c.body.WriteByte('\n')
}

func limits(lim module.Limit) string {
	if lim.Max == nil {
		return fmt.Sprint(lim.Min)
	}
	return fmt.Sprintf("%d, %d", lim.Min, *lim.Max)
}

func list(items []string) string {
	if len(items) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(items, ", ") + " }"
}

// comment returns s with line breaks and other control characters replaced,
// so it can be written in a line comment.
func comment(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

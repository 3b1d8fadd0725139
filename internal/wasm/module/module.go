// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package module defines the in-memory representation of a WASM module.
package module

import (
	"fmt"
	"strings"

	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

const (
	// FunctionImportType indicates the named import is a function.
	FunctionImportType ImportDescriptorType = iota

	// TableImportType indicates the named import is a table.
	TableImportType

	// MemoryImportType indicates the named import is a memory.
	MemoryImportType

	// GlobalImportType indicates the named import is a global.
	GlobalImportType
)

const (
	// FunctionExportType indicates an exported function.
	FunctionExportType ExportDescriptorType = iota

	// TableExportType indicates an exported table.
	TableExportType

	// MemoryExportType indicates an exported memory.
	MemoryExportType

	// GlobalExportType indicates an exported global.
	GlobalExportType
)

type (
	// Module represents a WASM module.
	Module struct {
		Version  uint32
		Start    StartSection
		Type     TypeSection
		Import   ImportSection
		Function FunctionSection
		Table    TableSection
		Memory   MemorySection
		Element  ElementSection
		Global   GlobalSection
		Export   ExportSection
		Code     CodeSection
		Data     DataSection
		Customs  []CustomSection
		Names    NameSection
	}

	// StartSection represents a WASM start section.
	StartSection struct {
		FuncIndex *uint32
	}

	// TypeSection represents a WASM type section.
	TypeSection struct {
		Functions []FunctionType
	}

	// ImportSection represents a WASM import section.
	ImportSection struct {
		Imports []Import
	}

	// FunctionSection represents a WASM function section.
	FunctionSection struct {
		TypeIndices []uint32
	}

	// TableSection represents a WASM table section.
	TableSection struct {
		Tables []Table
	}

	// MemorySection represents a Wasm memory section.
	MemorySection struct {
		Memories []Memory
	}

	// ElementSection represents a WASM element section.
	ElementSection struct {
		Segments []ElementSegment
	}

	// GlobalSection represents a WASM global section.
	GlobalSection struct {
		Globals []Global
	}

	// ExportSection represents a WASM export section.
	ExportSection struct {
		Exports []Export
	}

	// CodeSection represents a WASM code section. Segments are parallel to
	// the function section's type indices.
	CodeSection struct {
		Segments []CodeEntry
	}

	// DataSection represents a WASM data section.
	DataSection struct {
		Segments []DataSegment
	}

	// CustomSection contains arbitrary bytes.
	CustomSection struct {
		Name string
		Data []byte
	}

	// NameSection represents the WASM custom section "name".
	NameSection struct {
		Module    string
		Functions []NameMap
	}

	// NameMap maps function or local arg indices to their names.
	NameMap struct {
		Index uint32
		Name  string
	}

	// FunctionType represents a WASM function type definition.
	FunctionType struct {
		Params  []types.ValueType
		Results []types.ValueType
	}

	// Import represents a WASM import statement.
	Import struct {
		Module     string
		Name       string
		Descriptor ImportDescriptor
	}

	// ImportDescriptor represents a WASM import descriptor.
	ImportDescriptor interface {
		fmt.Stringer
		Kind() ImportDescriptorType
	}

	// ImportDescriptorType defines allowed kinds of import descriptors.
	ImportDescriptorType int

	// FunctionImport represents a WASM function import statement.
	FunctionImport struct {
		Func uint32
	}

	// MemoryImport represents a WASM memory import statement.
	MemoryImport struct {
		Mem MemType
	}

	// MemType defines the attributes of a memory import.
	MemType struct {
		Lim Limit
	}

	// TableImport represents a WASM table import statement.
	TableImport struct {
		Type types.ElementType
		Lim  Limit
	}

	// GlobalImport represents a WASM global variable import statement.
	GlobalImport struct {
		Type    types.ValueType
		Mutable bool
	}

	// Limit represents a WASM limit.
	Limit struct {
		Min uint32
		Max *uint32
	}

	// Table represents a WASM table statement.
	Table struct {
		Type types.ElementType
		Lim  Limit
	}

	// Memory represents a Wasm memory statement.
	Memory struct {
		Lim Limit
	}

	// ElementSegment represents a WASM element segment.
	ElementSegment struct {
		Index   uint32
		Offset  Expr
		Indices []uint32
	}

	// Global represents a WASM global statement.
	Global struct {
		Type    types.ValueType
		Mutable bool
		Init    Expr
	}

	// Export represents a WASM export statement.
	Export struct {
		Name       string
		Descriptor ExportDescriptor
	}

	// ExportDescriptor represents a WASM export descriptor.
	ExportDescriptor struct {
		Type  ExportDescriptorType
		Index uint32
	}

	// ExportDescriptorType defines the allowed kinds of export descriptors.
	ExportDescriptorType int

	// DataSegment represents a WASM data segment.
	DataSegment struct {
		Index  uint32
		Offset Expr
		Init   []byte
	}

	// Expr represents a WASM expression.
	Expr struct {
		Instrs []instruction.Instruction
	}

	// CodeEntry represents a code segment entry.
	CodeEntry struct {
		Func Function
	}

	// Function represents a function in a code segment.
	Function struct {
		Locals []LocalDeclaration
		Expr   Expr
	}

	// LocalDeclaration represents a local variable declaration.
	LocalDeclaration struct {
		Count uint32
		Type  types.ValueType
	}
)

// Kind returns the function import type kind.
func (i FunctionImport) Kind() ImportDescriptorType {
	return FunctionImportType
}

func (i FunctionImport) String() string {
	return fmt.Sprint("func[type=", i.Func, "]")
}

// Kind returns the memory import type kind.
func (i MemoryImport) Kind() ImportDescriptorType {
	return MemoryImportType
}

func (i MemoryImport) String() string {
	return fmt.Sprint("memory[", i.Mem.Lim, "]")
}

// Kind returns the table import type kind.
func (i TableImport) Kind() ImportDescriptorType {
	return TableImportType
}

func (i TableImport) String() string {
	return fmt.Sprint("table[", i.Lim, "]")
}

// Kind returns the global import type kind.
func (i GlobalImport) Kind() ImportDescriptorType {
	return GlobalImportType
}

func (i GlobalImport) String() string {
	return fmt.Sprint("global[mut=", i.Mutable, ",type=", i.Type, "]")
}

func (l Limit) String() string {
	if l.Max == nil {
		return fmt.Sprintf("min=%v", l.Min)
	}
	return fmt.Sprintf("min=%v max=%v", l.Min, *l.Max)
}

func (x ExportDescriptorType) String() string {
	switch x {
	case FunctionExportType:
		return "func"
	case TableExportType:
		return "table"
	case MemoryExportType:
		return "memory"
	case GlobalExportType:
		return "global"
	}
	return "unknown"
}

func (x ImportDescriptorType) String() string {
	switch x {
	case FunctionImportType:
		return "func"
	case TableImportType:
		return "table"
	case MemoryImportType:
		return "memory"
	case GlobalImportType:
		return "global"
	}
	return "unknown"
}

// Equal returns true if the function types are equal.
func (x FunctionType) Equal(other FunctionType) bool {
	return types.Equal(x.Params, other.Params) && types.Equal(x.Results, other.Results)
}

// Signature returns the compact form of the function type used to check
// indirect calls at runtime, e.g. "ii:i" for (i32, i32) -> i32.
func (x FunctionType) Signature() string {
	var sb strings.Builder
	for _, p := range x.Params {
		sb.WriteByte(p.Letter())
	}
	sb.WriteByte(':')
	for _, r := range x.Results {
		sb.WriteByte(r.Letter())
	}
	return sb.String()
}

func (x FunctionType) String() string {
	params := make([]string, len(x.Params))
	for i := range x.Params {
		params[i] = x.Params[i].String()
	}
	results := make([]string, len(x.Results))
	for i := range x.Results {
		results[i] = x.Results[i].String()
	}
	return "(" + strings.Join(params, ", ") + ") -> (" + strings.Join(results, ", ") + ")"
}

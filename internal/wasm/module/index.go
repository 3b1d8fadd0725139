// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package module

import "github.com/open-policy-agent/wasm2luau/internal/wasm/types"

// DefaultMaxPages is the largest memory size in 64KiB pages.
const DefaultMaxPages = 65536

// FunctionImportCount returns the number of imported functions. Imported
// functions occupy the lowest indices of the function index space.
func (m *Module) FunctionImportCount() int {
	return m.importCount(FunctionImportType)
}

// NumFunctions returns the size of the function index space.
func (m *Module) NumFunctions() int {
	return m.FunctionImportCount() + len(m.Function.TypeIndices)
}

// NumGlobals returns the size of the global index space.
func (m *Module) NumGlobals() int {
	return m.importCount(GlobalImportType) + len(m.Global.Globals)
}

// NumTables returns the size of the table index space.
func (m *Module) NumTables() int {
	return m.importCount(TableImportType) + len(m.Table.Tables)
}

// NumMemories returns the size of the memory index space.
func (m *Module) NumMemories() int {
	return m.importCount(MemoryImportType) + len(m.Memory.Memories)
}

func (m *Module) importCount(kind ImportDescriptorType) int {
	var n int
	for _, imp := range m.Import.Imports {
		if imp.Descriptor.Kind() == kind {
			n++
		}
	}
	return n
}

// TypeAt returns the function type at index idx of the type section.
func (m *Module) TypeAt(idx uint32) (FunctionType, bool) {
	if int(idx) >= len(m.Type.Functions) {
		return FunctionType{}, false
	}
	return m.Type.Functions[idx], true
}

// FuncType returns the type of the function at index idx of the function
// index space.
func (m *Module) FuncType(idx uint32) (FunctionType, bool) {
	var n uint32
	for _, imp := range m.Import.Imports {
		if fi, ok := imp.Descriptor.(FunctionImport); ok {
			if n == idx {
				return m.TypeAt(fi.Func)
			}
			n++
		}
	}
	i := int(idx - n)
	if idx < n || i >= len(m.Function.TypeIndices) {
		return FunctionType{}, false
	}
	return m.TypeAt(m.Function.TypeIndices[i])
}

// GlobalType returns the value type and mutability of the global at index idx
// of the global index space.
func (m *Module) GlobalType(idx uint32) (types.ValueType, bool, bool) {
	var n uint32
	for _, imp := range m.Import.Imports {
		if gi, ok := imp.Descriptor.(GlobalImport); ok {
			if n == idx {
				return gi.Type, gi.Mutable, true
			}
			n++
		}
	}
	i := int(idx - n)
	if idx < n || i >= len(m.Global.Globals) {
		return 0, false, false
	}
	g := m.Global.Globals[i]
	return g.Type, g.Mutable, true
}

// FunctionName returns the debug name of the function at index idx, if the
// module carries a name section entry for it.
func (m *Module) FunctionName(idx uint32) (string, bool) {
	for _, nm := range m.Names.Functions {
		if nm.Index == idx {
			return nm.Name, true
		}
	}
	return "", false
}

// LocalTypes expands the local declarations of a function into one type per
// local slot, not including parameters.
func (f Function) LocalTypes() []types.ValueType {
	var n int
	for _, decl := range f.Locals {
		n += int(decl.Count)
	}
	result := make([]types.ValueType, 0, n)
	for _, decl := range f.Locals {
		for i := uint32(0); i < decl.Count; i++ {
			result = append(result, decl.Type)
		}
	}
	return result
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/open-policy-agent/wasm2luau/internal/leb128"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// WriteModule writes a binary-encoded representation of module to w.
func WriteModule(w io.Writer, m *module.Module) error {

	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, version); err != nil {
		return err
	}

	sections := []struct {
		id    uint8
		empty bool
		fn    func(io.Writer, *module.Module) error
	}{
		{typeSectionID, len(m.Type.Functions) == 0, writeTypeSection},
		{importSectionID, len(m.Import.Imports) == 0, writeImportSection},
		{functionSectionID, len(m.Function.TypeIndices) == 0, writeFunctionSection},
		{tableSectionID, len(m.Table.Tables) == 0, writeTableSection},
		{memorySectionID, len(m.Memory.Memories) == 0, writeMemorySection},
		{globalSectionID, len(m.Global.Globals) == 0, writeGlobalSection},
		{exportSectionID, len(m.Export.Exports) == 0, writeExportSection},
		{startSectionID, m.Start.FuncIndex == nil, writeStartSection},
		{elementSectionID, len(m.Element.Segments) == 0, writeElementSection},
		{codeSectionID, len(m.Code.Segments) == 0, writeCodeSection},
		{dataSectionID, len(m.Data.Segments) == 0, writeDataSection},
	}

	for _, s := range sections {
		if s.empty {
			continue
		}
		var buf bytes.Buffer
		if err := s.fn(&buf, m); err != nil {
			return err
		}
		if err := writeSection(w, s.id, buf.Bytes()); err != nil {
			return err
		}
	}

	for _, c := range m.Customs {
		var buf bytes.Buffer
		if err := writeByteVector(&buf, []byte(c.Name)); err != nil {
			return err
		}
		buf.Write(c.Data)
		if err := writeSection(w, customSectionID, buf.Bytes()); err != nil {
			return err
		}
	}

	if m.Names.Module != "" || len(m.Names.Functions) > 0 {
		var buf bytes.Buffer
		if err := writeNameSection(&buf, m.Names); err != nil {
			return err
		}
		if err := writeSection(w, customSectionID, buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// WriteCodeEntry writes a binary encoded representation of entry to w, not
// including the size prefix.
func WriteCodeEntry(w io.Writer, entry *module.CodeEntry) error {

	if err := leb128.WriteVarUint32(w, uint32(len(entry.Func.Locals))); err != nil {
		return err
	}

	for _, local := range entry.Func.Locals {
		if err := leb128.WriteVarUint32(w, local.Count); err != nil {
			return err
		}
		if _, err := w.Write([]byte{byte(local.Type)}); err != nil {
			return err
		}
	}

	return writeExpr(w, entry.Func.Expr)
}

func writeSection(w io.Writer, id uint8, bs []byte) error {
	if _, err := w.Write([]byte{id}); err != nil {
		return err
	}
	if err := leb128.WriteVarUint32(w, uint32(len(bs))); err != nil {
		return err
	}
	_, err := w.Write(bs)
	return err
}

func writeTypeSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Type.Functions))); err != nil {
		return err
	}
	for _, fn := range m.Type.Functions {
		if _, err := w.Write([]byte{functionTypeID}); err != nil {
			return err
		}
		if err := writeValueTypes(w, fn.Params); err != nil {
			return err
		}
		if err := writeValueTypes(w, fn.Results); err != nil {
			return err
		}
	}
	return nil
}

func writeImportSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Import.Imports))); err != nil {
		return err
	}
	for _, imp := range m.Import.Imports {
		if err := writeByteVector(w, []byte(imp.Module)); err != nil {
			return err
		}
		if err := writeByteVector(w, []byte(imp.Name)); err != nil {
			return err
		}
		var err error
		switch desc := imp.Descriptor.(type) {
		case module.FunctionImport:
			if _, err = w.Write([]byte{importFunc}); err == nil {
				err = leb128.WriteVarUint32(w, desc.Func)
			}
		case module.TableImport:
			if _, err = w.Write([]byte{importTable, byte(desc.Type)}); err == nil {
				err = writeLimits(w, desc.Lim)
			}
		case module.MemoryImport:
			if _, err = w.Write([]byte{importMemory}); err == nil {
				err = writeLimits(w, desc.Mem.Lim)
			}
		case module.GlobalImport:
			_, err = w.Write([]byte{importGlobal, byte(desc.Type), mutability(desc.Mutable)})
		default:
			err = fmt.Errorf("illegal import descriptor type: %T", desc)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFunctionSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Function.TypeIndices))); err != nil {
		return err
	}
	for _, idx := range m.Function.TypeIndices {
		if err := leb128.WriteVarUint32(w, idx); err != nil {
			return err
		}
	}
	return nil
}

func writeTableSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Table.Tables))); err != nil {
		return err
	}
	for _, table := range m.Table.Tables {
		if _, err := w.Write([]byte{byte(table.Type)}); err != nil {
			return err
		}
		if err := writeLimits(w, table.Lim); err != nil {
			return err
		}
	}
	return nil
}

func writeMemorySection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Memory.Memories))); err != nil {
		return err
	}
	for _, mem := range m.Memory.Memories {
		if err := writeLimits(w, mem.Lim); err != nil {
			return err
		}
	}
	return nil
}

func writeGlobalSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Global.Globals))); err != nil {
		return err
	}
	for _, global := range m.Global.Globals {
		if _, err := w.Write([]byte{byte(global.Type), mutability(global.Mutable)}); err != nil {
			return err
		}
		if err := writeExpr(w, global.Init); err != nil {
			return err
		}
	}
	return nil
}

func writeExportSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Export.Exports))); err != nil {
		return err
	}
	for _, exp := range m.Export.Exports {
		if err := writeByteVector(w, []byte(exp.Name)); err != nil {
			return err
		}
		var kind byte
		switch exp.Descriptor.Type {
		case module.FunctionExportType:
			kind = importFunc
		case module.TableExportType:
			kind = importTable
		case module.MemoryExportType:
			kind = importMemory
		case module.GlobalExportType:
			kind = importGlobal
		default:
			return fmt.Errorf("illegal export descriptor type: %v", exp.Descriptor.Type)
		}
		if _, err := w.Write([]byte{kind}); err != nil {
			return err
		}
		if err := leb128.WriteVarUint32(w, exp.Descriptor.Index); err != nil {
			return err
		}
	}
	return nil
}

func writeStartSection(w io.Writer, m *module.Module) error {
	return leb128.WriteVarUint32(w, *m.Start.FuncIndex)
}

func writeElementSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Element.Segments))); err != nil {
		return err
	}
	for _, seg := range m.Element.Segments {
		if seg.Index == 0 {
			if err := leb128.WriteVarUint32(w, 0); err != nil {
				return err
			}
		} else {
			if err := leb128.WriteVarUint32(w, 2); err != nil {
				return err
			}
			if err := leb128.WriteVarUint32(w, seg.Index); err != nil {
				return err
			}
		}
		if err := writeExpr(w, seg.Offset); err != nil {
			return err
		}
		if seg.Index != 0 {
			if _, err := w.Write([]byte{0}); err != nil {
				return err
			}
		}
		if err := leb128.WriteVarUint32(w, uint32(len(seg.Indices))); err != nil {
			return err
		}
		for _, idx := range seg.Indices {
			if err := leb128.WriteVarUint32(w, idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCodeSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Code.Segments))); err != nil {
		return err
	}
	for i := range m.Code.Segments {
		var buf bytes.Buffer
		if err := WriteCodeEntry(&buf, &m.Code.Segments[i]); err != nil {
			return err
		}
		if err := writeByteVector(w, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeDataSection(w io.Writer, m *module.Module) error {
	if err := leb128.WriteVarUint32(w, uint32(len(m.Data.Segments))); err != nil {
		return err
	}
	for _, seg := range m.Data.Segments {
		if seg.Index == 0 {
			if err := leb128.WriteVarUint32(w, 0); err != nil {
				return err
			}
		} else {
			if err := leb128.WriteVarUint32(w, 2); err != nil {
				return err
			}
			if err := leb128.WriteVarUint32(w, seg.Index); err != nil {
				return err
			}
		}
		if err := writeExpr(w, seg.Offset); err != nil {
			return err
		}
		if err := writeByteVector(w, seg.Init); err != nil {
			return err
		}
	}
	return nil
}

func writeNameSection(w io.Writer, names module.NameSection) error {
	if err := writeByteVector(w, []byte(nameSectionName)); err != nil {
		return err
	}

	if names.Module != "" {
		var buf bytes.Buffer
		if err := writeByteVector(&buf, []byte(names.Module)); err != nil {
			return err
		}
		if _, err := w.Write([]byte{moduleNameSubsec}); err != nil {
			return err
		}
		if err := writeByteVector(w, buf.Bytes()); err != nil {
			return err
		}
	}

	if len(names.Functions) > 0 {
		var buf bytes.Buffer
		if err := leb128.WriteVarUint32(&buf, uint32(len(names.Functions))); err != nil {
			return err
		}
		for _, nm := range names.Functions {
			if err := leb128.WriteVarUint32(&buf, nm.Index); err != nil {
				return err
			}
			if err := writeByteVector(&buf, []byte(nm.Name)); err != nil {
				return err
			}
		}
		if _, err := w.Write([]byte{funcNamesSubsec}); err != nil {
			return err
		}
		if err := writeByteVector(w, buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// writeExpr writes the instructions of expr followed by the closing end.
func writeExpr(w io.Writer, expr module.Expr) error {
	for _, instr := range expr.Instrs {
		if err := writeInstruction(w, instr); err != nil {
			return err
		}
	}
	return writeInstruction(w, instruction.End{})
}

func writeInstruction(w io.Writer, instr instruction.Instruction) error {
	instr, _, _ = instruction.Unwrap(instr)
	op := instr.Op()

	if op.Prefixed() {
		if _, err := w.Write([]byte{opcode.Prefix}); err != nil {
			return err
		}
		if err := leb128.WriteVarUint32(w, uint32(op&0xFF)); err != nil {
			return err
		}
	} else if _, err := w.Write([]byte{byte(op)}); err != nil {
		return err
	}

	switch instr := instr.(type) {
	case instruction.Block:
		return writeBlockType(w, instr.Type)
	case instruction.Loop:
		return writeBlockType(w, instr.Type)
	case instruction.If:
		return writeBlockType(w, instr.Type)
	case instruction.Br:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.BrIf:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.BrTable:
		if err := leb128.WriteVarUint32(w, uint32(len(instr.Table))); err != nil {
			return err
		}
		for _, idx := range instr.Table {
			if err := leb128.WriteVarUint32(w, idx); err != nil {
				return err
			}
		}
		return leb128.WriteVarUint32(w, instr.Default)
	case instruction.Call:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.CallIndirect:
		if err := leb128.WriteVarUint32(w, instr.Index); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, instr.Table)
	case instruction.Select:
		if instr.Type != nil {
			_, err := w.Write([]byte{1, byte(*instr.Type)})
			return err
		}
	case instruction.GetLocal:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.SetLocal:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.TeeLocal:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.GetGlobal:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.SetGlobal:
		return leb128.WriteVarUint32(w, instr.Index)
	case instruction.Load:
		return writeMemArg(w, instr.Align, instr.Offset)
	case instruction.Store:
		return writeMemArg(w, instr.Align, instr.Offset)
	case instruction.MemorySize, instruction.MemoryGrow, instruction.MemoryFill:
		_, err := w.Write([]byte{0})
		return err
	case instruction.MemoryCopy:
		_, err := w.Write([]byte{0, 0})
		return err
	case instruction.MemoryInit:
		if err := leb128.WriteVarUint32(w, instr.Data); err != nil {
			return err
		}
		_, err := w.Write([]byte{0})
		return err
	case instruction.DataDrop:
		return leb128.WriteVarUint32(w, instr.Data)
	case instruction.I32Const:
		return leb128.WriteVarInt32(w, instr.Value)
	case instruction.I64Const:
		return leb128.WriteVarInt64(w, instr.Value)
	case instruction.F32Const:
		return binary.Write(w, binary.LittleEndian, math.Float32bits(instr.Value))
	case instruction.F64Const:
		return binary.Write(w, binary.LittleEndian, math.Float64bits(instr.Value))
	}

	return nil
}

func writeBlockType(w io.Writer, bt instruction.BlockType) error {
	switch {
	case bt.Index != nil:
		return leb128.WriteVarInt64(w, int64(*bt.Index))
	case bt.Result != nil:
		_, err := w.Write([]byte{byte(*bt.Result)})
		return err
	}
	_, err := w.Write([]byte{emptyBlockType})
	return err
}

func writeMemArg(w io.Writer, align, offset uint32) error {
	if err := leb128.WriteVarUint32(w, align); err != nil {
		return err
	}
	return leb128.WriteVarUint32(w, offset)
}

func writeLimits(w io.Writer, lim module.Limit) error {
	if lim.Max == nil {
		if _, err := w.Write([]byte{limitsMinOnly}); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, lim.Min)
	}
	if _, err := w.Write([]byte{limitsMinMax}); err != nil {
		return err
	}
	if err := leb128.WriteVarUint32(w, lim.Min); err != nil {
		return err
	}
	return leb128.WriteVarUint32(w, *lim.Max)
}

func writeValueTypes(w io.Writer, vts []types.ValueType) error {
	if err := leb128.WriteVarUint32(w, uint32(len(vts))); err != nil {
		return err
	}
	for _, vt := range vts {
		if _, err := w.Write([]byte{byte(vt)}); err != nil {
			return err
		}
	}
	return nil
}

func writeByteVector(w io.Writer, bs []byte) error {
	if err := leb128.WriteVarUint32(w, uint32(len(bs))); err != nil {
		return err
	}
	_, err := w.Write(bs)
	return err
}

func mutability(mutable bool) byte {
	if mutable {
		return variableMutable
	}
	return constantMutable
}

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

	"github.com/pkg/errors"

	"github.com/open-policy-agent/wasm2luau/internal/leb128"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/instruction"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/module"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/opcode"
	"github.com/open-policy-agent/wasm2luau/internal/wasm/types"
)

// ReadModule reads a binary-encoded WASM module from r.
func ReadModule(r io.Reader) (*module.Module, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	rd := &reader{r: bytes.NewReader(bs)}
	var m module.Module

	if err := rd.readMagic(); err != nil {
		return nil, err
	}

	if err := rd.readVersion(&m); err != nil {
		return nil, err
	}

	if err := rd.readSections(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

type reader struct {
	r *bytes.Reader
}

// offset returns the position of the next unread byte.
func (rd *reader) offset() int64 {
	return rd.r.Size() - int64(rd.r.Len())
}

func (rd *reader) errorf(f string, a ...interface{}) error {
	return fmt.Errorf("offset 0x%x: %v", rd.offset(), fmt.Sprintf(f, a...))
}

func (rd *reader) readMagic() error {
	var v uint32
	if err := binary.Read(rd.r, binary.LittleEndian, &v); err != nil {
		return err
	} else if v != magic {
		return errors.New("illegal magic value")
	}
	return nil
}

func (rd *reader) readVersion(m *module.Module) error {
	var v uint32
	if err := binary.Read(rd.r, binary.LittleEndian, &v); err != nil {
		return err
	} else if v != version {
		return fmt.Errorf("illegal wasm version: %d", v)
	}
	m.Version = v
	return nil
}

func (rd *reader) readSections(m *module.Module) error {
	var last uint8
	for {
		id, err := rd.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		size, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return err
		}

		if int(size) > rd.r.Len() {
			return rd.errorf("section %d exceeds module size", id)
		}

		bs := make([]byte, size)
		if _, err := io.ReadFull(rd.r, bs); err != nil {
			return err
		}

		name, ok := sectionNames[id]
		if !ok {
			return fmt.Errorf("illegal section id: %d", id)
		}

		if id != customSectionID && id != dataCountSectionID {
			if id <= last {
				return fmt.Errorf("%s section out of order", name)
			}
			last = id
		}

		sub := &reader{r: bytes.NewReader(bs)}
		if err := sub.readSection(id, m); err != nil {
			return errors.Wrapf(err, "%s section", name)
		}
		if id != customSectionID && sub.r.Len() != 0 {
			return fmt.Errorf("%s section: %d trailing bytes", name, sub.r.Len())
		}
	}
}

func (rd *reader) readSection(id uint8, m *module.Module) error {
	switch id {
	case customSectionID:
		return rd.readCustomSection(m)
	case typeSectionID:
		return rd.readTypeSection(m)
	case importSectionID:
		return rd.readImportSection(m)
	case functionSectionID:
		return rd.readFunctionSection(m)
	case tableSectionID:
		return rd.readTableSection(m)
	case memorySectionID:
		return rd.readMemorySection(m)
	case globalSectionID:
		return rd.readGlobalSection(m)
	case exportSectionID:
		return rd.readExportSection(m)
	case startSectionID:
		idx, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return err
		}
		m.Start.FuncIndex = &idx
		return nil
	case elementSectionID:
		return rd.readElementSection(m)
	case codeSectionID:
		return rd.readCodeSection(m)
	case dataSectionID:
		return rd.readDataSection(m)
	case dataCountSectionID:
		_, err := leb128.ReadVarUint32(rd.r)
		return err
	}
	return nil
}

func (rd *reader) readCustomSection(m *module.Module) error {
	name, err := rd.readByteVectorString()
	if err != nil {
		return err
	}

	rest := make([]byte, rd.r.Len())
	if _, err := io.ReadFull(rd.r, rest); err != nil {
		return err
	}

	if name != nameSectionName {
		m.Customs = append(m.Customs, module.CustomSection{Name: name, Data: rest})
		return nil
	}

	// Malformed name sections are ignored, they carry debug info only.
	names, err := readNameSection(rest)
	if err == nil {
		m.Names = names
	}
	return nil
}

func readNameSection(bs []byte) (module.NameSection, error) {
	var ns module.NameSection
	rd := &reader{r: bytes.NewReader(bs)}
	for rd.r.Len() > 0 {
		id, err := rd.r.ReadByte()
		if err != nil {
			return ns, err
		}
		size, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return ns, err
		}
		if int(size) > rd.r.Len() {
			return ns, rd.errorf("name subsection %d exceeds section size", id)
		}
		sub := make([]byte, size)
		if _, err := io.ReadFull(rd.r, sub); err != nil {
			return ns, err
		}
		srd := &reader{r: bytes.NewReader(sub)}
		switch id {
		case moduleNameSubsec:
			if ns.Module, err = srd.readByteVectorString(); err != nil {
				return ns, err
			}
		case funcNamesSubsec:
			n, err := leb128.ReadVarUint32(srd.r)
			if err != nil {
				return ns, err
			}
			for i := uint32(0); i < n; i++ {
				var nm module.NameMap
				if nm.Index, err = leb128.ReadVarUint32(srd.r); err != nil {
					return ns, err
				}
				if nm.Name, err = srd.readByteVectorString(); err != nil {
					return ns, err
				}
				ns.Functions = append(ns.Functions, nm)
			}
		}
	}
	return ns, nil
}

func (rd *reader) readTypeSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}

	for i := uint32(0); i < n; i++ {
		b, err := rd.r.ReadByte()
		if err != nil {
			return err
		} else if b != functionTypeID {
			return rd.errorf("illegal function type id: 0x%x", b)
		}

		var ftype module.FunctionType
		if ftype.Params, err = rd.readValueTypes(); err != nil {
			return err
		}
		if ftype.Results, err = rd.readValueTypes(); err != nil {
			return err
		}
		m.Type.Functions = append(m.Type.Functions, ftype)
	}

	return nil
}

func (rd *reader) readImportSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}

	for i := uint32(0); i < n; i++ {
		var imp module.Import

		if imp.Module, err = rd.readByteVectorString(); err != nil {
			return err
		}
		if imp.Name, err = rd.readByteVectorString(); err != nil {
			return err
		}

		kind, err := rd.r.ReadByte()
		if err != nil {
			return err
		}

		switch kind {
		case importFunc:
			var desc module.FunctionImport
			if desc.Func, err = leb128.ReadVarUint32(rd.r); err != nil {
				return err
			}
			imp.Descriptor = desc
		case importTable:
			var desc module.TableImport
			if desc.Type, desc.Lim, err = rd.readTableType(); err != nil {
				return err
			}
			imp.Descriptor = desc
		case importMemory:
			var desc module.MemoryImport
			if desc.Mem.Lim, err = rd.readLimits(); err != nil {
				return err
			}
			imp.Descriptor = desc
		case importGlobal:
			var desc module.GlobalImport
			if desc.Type, desc.Mutable, err = rd.readGlobalType(); err != nil {
				return err
			}
			imp.Descriptor = desc
		default:
			return rd.errorf("illegal import descriptor type: 0x%x", kind)
		}

		m.Import.Imports = append(m.Import.Imports, imp)
	}

	return nil
}

func (rd *reader) readFunctionSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return err
		}
		m.Function.TypeIndices = append(m.Function.TypeIndices, idx)
	}
	return nil
}

func (rd *reader) readTableSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var table module.Table
		if table.Type, table.Lim, err = rd.readTableType(); err != nil {
			return err
		}
		m.Table.Tables = append(m.Table.Tables, table)
	}
	return nil
}

func (rd *reader) readMemorySection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var mem module.Memory
		if mem.Lim, err = rd.readLimits(); err != nil {
			return err
		}
		m.Memory.Memories = append(m.Memory.Memories, mem)
	}
	return nil
}

func (rd *reader) readGlobalSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var global module.Global
		if global.Type, global.Mutable, err = rd.readGlobalType(); err != nil {
			return err
		}
		if global.Init, err = rd.readExpr(); err != nil {
			return err
		}
		m.Global.Globals = append(m.Global.Globals, global)
	}
	return nil
}

func (rd *reader) readExportSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var exp module.Export
		if exp.Name, err = rd.readByteVectorString(); err != nil {
			return err
		}
		kind, err := rd.r.ReadByte()
		if err != nil {
			return err
		}
		switch kind {
		case importFunc:
			exp.Descriptor.Type = module.FunctionExportType
		case importTable:
			exp.Descriptor.Type = module.TableExportType
		case importMemory:
			exp.Descriptor.Type = module.MemoryExportType
		case importGlobal:
			exp.Descriptor.Type = module.GlobalExportType
		default:
			return rd.errorf("illegal export descriptor type: 0x%x", kind)
		}
		if exp.Descriptor.Index, err = leb128.ReadVarUint32(rd.r); err != nil {
			return err
		}
		m.Export.Exports = append(m.Export.Exports, exp)
	}
	return nil
}

func (rd *reader) readElementSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var seg module.ElementSegment
		flags, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return err
		}
		switch flags {
		case 0:
		case 2:
			if seg.Index, err = leb128.ReadVarUint32(rd.r); err != nil {
				return err
			}
		default:
			return rd.errorf("unsupported element segment kind: %d", flags)
		}
		if seg.Offset, err = rd.readExpr(); err != nil {
			return err
		}
		if flags == 2 {
			if kind, err := rd.r.ReadByte(); err != nil {
				return err
			} else if kind != 0 {
				return rd.errorf("unsupported element kind: 0x%x", kind)
			}
		}
		count, err := rd.readCount()
		if err != nil {
			return err
		}
		for i := uint32(0); i < count; i++ {
			idx, err := leb128.ReadVarUint32(rd.r)
			if err != nil {
				return err
			}
			seg.Indices = append(seg.Indices, idx)
		}
		m.Element.Segments = append(m.Element.Segments, seg)
	}
	return nil
}

func (rd *reader) readCodeSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		size, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return err
		}
		if int(size) > rd.r.Len() {
			return rd.errorf("code entry %d exceeds section size", i)
		}
		bs := make([]byte, size)
		if _, err := io.ReadFull(rd.r, bs); err != nil {
			return err
		}
		entry, err := readCodeEntry(bs)
		if err != nil {
			return errors.Wrapf(err, "code entry %d", i)
		}
		m.Code.Segments = append(m.Code.Segments, *entry)
	}
	return nil
}

func readCodeEntry(bs []byte) (*module.CodeEntry, error) {
	rd := &reader{r: bytes.NewReader(bs)}
	var entry module.CodeEntry

	n, err := rd.readCount()
	if err != nil {
		return nil, err
	}

	var total uint64
	for i := uint32(0); i < n; i++ {
		var decl module.LocalDeclaration
		if decl.Count, err = leb128.ReadVarUint32(rd.r); err != nil {
			return nil, err
		}
		total += uint64(decl.Count)
		if total > maxLocalsPerFunc {
			return nil, rd.errorf("too many locals")
		}
		b, err := rd.r.ReadByte()
		if err != nil {
			return nil, err
		} else if !validValueType(b) {
			return nil, rd.errorf("illegal value type: 0x%x", b)
		}
		decl.Type = types.ValueType(b)
		entry.Func.Locals = append(entry.Func.Locals, decl)
	}

	if entry.Func.Expr, err = rd.readExpr(); err != nil {
		return nil, err
	}

	if rd.r.Len() != 0 {
		return nil, rd.errorf("%d trailing bytes after function body", rd.r.Len())
	}

	return &entry, nil
}

func (rd *reader) readDataSection(m *module.Module) error {
	n, err := rd.readCount()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var seg module.DataSegment
		flags, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return err
		}
		switch flags {
		case 0:
		case 2:
			if seg.Index, err = leb128.ReadVarUint32(rd.r); err != nil {
				return err
			}
		default:
			return rd.errorf("unsupported data segment kind: %d", flags)
		}
		if seg.Offset, err = rd.readExpr(); err != nil {
			return err
		}
		if seg.Init, err = rd.readByteVector(); err != nil {
			return err
		}
		m.Data.Segments = append(m.Data.Segments, seg)
	}
	return nil
}

// readExpr reads instructions up to and including the end that closes the
// expression. The closing end is not part of the result.
func (rd *reader) readExpr() (module.Expr, error) {
	var expr module.Expr
	depth := 0
	for {
		instr, err := rd.readInstruction()
		if err != nil {
			return expr, err
		}
		switch instr.Op() {
		case opcode.Block, opcode.Loop, opcode.If:
			depth++
		case opcode.End:
			if depth == 0 {
				return expr, nil
			}
			depth--
		}
		expr.Instrs = append(expr.Instrs, instr)
	}
}

func (rd *reader) readInstruction() (instruction.Instruction, error) {
	start := rd.offset()
	b, err := rd.r.ReadByte()
	if err != nil {
		return nil, err
	}

	op := opcode.Opcode(b)
	if b == opcode.Prefix {
		sub, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return nil, err
		}
		if sub > 0xFF {
			return nil, fmt.Errorf("offset 0x%x: illegal opcode: 0x%x %d", start, b, sub)
		}
		op = opcode.Opcode(uint16(b)<<8 | uint16(sub))
	}

	if !op.Known() {
		return nil, fmt.Errorf("offset 0x%x: illegal opcode: %v", start, op)
	}

	switch op {
	case opcode.Unreachable:
		return instruction.Unreachable{}, nil
	case opcode.Nop:
		return instruction.Nop{}, nil
	case opcode.Block:
		bt, err := rd.readBlockType()
		return instruction.Block{Type: bt}, err
	case opcode.Loop:
		bt, err := rd.readBlockType()
		return instruction.Loop{Type: bt}, err
	case opcode.If:
		bt, err := rd.readBlockType()
		return instruction.If{Type: bt}, err
	case opcode.Else:
		return instruction.Else{}, nil
	case opcode.End:
		return instruction.End{}, nil
	case opcode.Br:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.Br{Index: idx}, err
	case opcode.BrIf:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.BrIf{Index: idx}, err
	case opcode.BrTable:
		n, err := rd.readCount()
		if err != nil {
			return nil, err
		}
		var instr instruction.BrTable
		instr.Table = make([]uint32, n)
		for i := range instr.Table {
			if instr.Table[i], err = leb128.ReadVarUint32(rd.r); err != nil {
				return nil, err
			}
		}
		instr.Default, err = leb128.ReadVarUint32(rd.r)
		return instr, err
	case opcode.Return:
		return instruction.Return{}, nil
	case opcode.Call:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.Call{Index: idx}, err
	case opcode.CallIndirect:
		var instr instruction.CallIndirect
		if instr.Index, err = leb128.ReadVarUint32(rd.r); err != nil {
			return nil, err
		}
		instr.Table, err = leb128.ReadVarUint32(rd.r)
		return instr, err
	case opcode.Drop:
		return instruction.Drop{}, nil
	case opcode.Select:
		return instruction.Select{}, nil
	case opcode.SelectTyped:
		vts, err := rd.readValueTypes()
		if err != nil {
			return nil, err
		} else if len(vts) != 1 {
			return nil, fmt.Errorf("offset 0x%x: select must carry exactly one type", start)
		}
		return instruction.Select{Type: &vts[0]}, nil
	case opcode.GetLocal:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.GetLocal{Index: idx}, err
	case opcode.SetLocal:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.SetLocal{Index: idx}, err
	case opcode.TeeLocal:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.TeeLocal{Index: idx}, err
	case opcode.GetGlobal:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.GetGlobal{Index: idx}, err
	case opcode.SetGlobal:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.SetGlobal{Index: idx}, err
	case opcode.MemorySize:
		return instruction.MemorySize{}, rd.readReserved()
	case opcode.MemoryGrow:
		return instruction.MemoryGrow{}, rd.readReserved()
	case opcode.MemoryCopy:
		if err := rd.readReserved(); err != nil {
			return nil, err
		}
		return instruction.MemoryCopy{}, rd.readReserved()
	case opcode.MemoryFill:
		return instruction.MemoryFill{}, rd.readReserved()
	case opcode.MemoryInit:
		idx, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return nil, err
		}
		return instruction.MemoryInit{Data: idx}, rd.readReserved()
	case opcode.DataDrop:
		idx, err := leb128.ReadVarUint32(rd.r)
		return instruction.DataDrop{Data: idx}, err
	case opcode.I32Const:
		v, err := leb128.ReadVarInt32(rd.r)
		return instruction.I32Const{Value: v}, err
	case opcode.I64Const:
		v, err := leb128.ReadVarInt64(rd.r)
		return instruction.I64Const{Value: v}, err
	case opcode.F32Const:
		var bits uint32
		if err := binary.Read(rd.r, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		return instruction.F32Const{Value: math.Float32frombits(bits)}, nil
	case opcode.F64Const:
		var bits uint64
		if err := binary.Read(rd.r, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		return instruction.F64Const{Value: math.Float64frombits(bits)}, nil
	}

	switch {
	case op >= opcode.I32Load && op <= opcode.I64Load32U:
		var instr instruction.Load
		instr.Code = op
		instr.Align, instr.Offset, err = rd.readMemArg()
		return instr, err
	case op >= opcode.I32Store && op <= opcode.I64Store32:
		var instr instruction.Store
		instr.Code = op
		instr.Align, instr.Offset, err = rd.readMemArg()
		return instr, err
	}

	return instruction.Numeric{Code: op}, nil
}

func (rd *reader) readBlockType() (instruction.BlockType, error) {
	var bt instruction.BlockType
	b, err := rd.r.ReadByte()
	if err != nil {
		return bt, err
	}
	if b == emptyBlockType {
		return bt, nil
	}
	if validValueType(b) {
		vt := types.ValueType(b)
		bt.Result = &vt
		return bt, nil
	}
	if err := rd.r.UnreadByte(); err != nil {
		return bt, err
	}
	idx, err := leb128.ReadVarInt64(rd.r)
	if err != nil {
		return bt, err
	}
	if idx < 0 || idx > math.MaxUint32 {
		return bt, rd.errorf("illegal block type: %d", idx)
	}
	u := uint32(idx)
	bt.Index = &u
	return bt, nil
}

func (rd *reader) readMemArg() (uint32, uint32, error) {
	align, err := leb128.ReadVarUint32(rd.r)
	if err != nil {
		return 0, 0, err
	}
	offset, err := leb128.ReadVarUint32(rd.r)
	return align, offset, err
}

func (rd *reader) readReserved() error {
	b, err := rd.r.ReadByte()
	if err != nil {
		return err
	} else if b != 0 {
		return rd.errorf("only memory index 0 is supported")
	}
	return nil
}

func (rd *reader) readTableType() (types.ElementType, module.Limit, error) {
	b, err := rd.r.ReadByte()
	if err != nil {
		return 0, module.Limit{}, err
	} else if types.ElementType(b) != types.Anyfunc {
		return 0, module.Limit{}, rd.errorf("illegal element type: 0x%x", b)
	}
	lim, err := rd.readLimits()
	return types.Anyfunc, lim, err
}

func (rd *reader) readGlobalType() (types.ValueType, bool, error) {
	b, err := rd.r.ReadByte()
	if err != nil {
		return 0, false, err
	} else if !validValueType(b) {
		return 0, false, rd.errorf("illegal value type: 0x%x", b)
	}
	mut, err := rd.r.ReadByte()
	if err != nil {
		return 0, false, err
	}
	switch mut {
	case constantMutable:
		return types.ValueType(b), false, nil
	case variableMutable:
		return types.ValueType(b), true, nil
	}
	return 0, false, rd.errorf("illegal mutability flag: 0x%x", mut)
}

func (rd *reader) readLimits() (module.Limit, error) {
	var lim module.Limit
	b, err := rd.r.ReadByte()
	if err != nil {
		return lim, err
	}
	if lim.Min, err = leb128.ReadVarUint32(rd.r); err != nil {
		return lim, err
	}
	switch b {
	case limitsMinOnly:
	case limitsMinMax:
		upper, err := leb128.ReadVarUint32(rd.r)
		if err != nil {
			return lim, err
		}
		lim.Max = &upper
	default:
		return lim, rd.errorf("illegal limit flag: 0x%x", b)
	}
	return lim, nil
}

func (rd *reader) readValueTypes() ([]types.ValueType, error) {
	n, err := rd.readCount()
	if err != nil {
		return nil, err
	}
	result := make([]types.ValueType, n)
	for i := range result {
		b, err := rd.r.ReadByte()
		if err != nil {
			return nil, err
		} else if !validValueType(b) {
			return nil, rd.errorf("illegal value type: 0x%x", b)
		}
		result[i] = types.ValueType(b)
	}
	return result, nil
}

// readCount reads a vector length and rejects lengths that cannot fit in the
// remaining input (every element takes at least one byte).
func (rd *reader) readCount() (uint32, error) {
	n, err := leb128.ReadVarUint32(rd.r)
	if err != nil {
		return 0, err
	}
	if int64(n) > int64(rd.r.Len()) {
		return 0, rd.errorf("vector length %d exceeds remaining input", n)
	}
	return n, nil
}

func (rd *reader) readByteVector() ([]byte, error) {
	n, err := rd.readCount()
	if err != nil {
		return nil, err
	}
	bs := make([]byte, n)
	if _, err := io.ReadFull(rd.r, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

func (rd *reader) readByteVectorString() (string, error) {
	bs, err := rd.readByteVector()
	return string(bs), err
}

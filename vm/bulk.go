package vm

import (
	"github.com/friendlymatthew/whale/wasm"
)

// execMisc dispatches the 0xFC extension space: saturating truncation and
// the bulk memory/table operations, per spec.md §4.5.
func (f *activation) execMisc(ip int, instr wasm.Instruction) (int, []wasm.Value, error) {
	switch instr.Misc {
	case wasm.MiscI32TruncSatF32S, wasm.MiscI32TruncSatF32U:
		v := float64(f.pop().F32())
		if instr.Misc == wasm.MiscI32TruncSatF32S {
			f.push(wasm.I32(truncSatToI32(v)))
		} else {
			f.push(wasm.U32(truncSatToU32(v)))
		}
		return ip + 1, nil, nil
	case wasm.MiscI32TruncSatF64S, wasm.MiscI32TruncSatF64U:
		v := f.pop().F64()
		if instr.Misc == wasm.MiscI32TruncSatF64S {
			f.push(wasm.I32(truncSatToI32(v)))
		} else {
			f.push(wasm.U32(truncSatToU32(v)))
		}
		return ip + 1, nil, nil
	case wasm.MiscI64TruncSatF32S, wasm.MiscI64TruncSatF32U:
		v := float64(f.pop().F32())
		if instr.Misc == wasm.MiscI64TruncSatF32S {
			f.push(wasm.I64(truncSatToI64(v)))
		} else {
			f.push(wasm.U64(truncSatToU64(v)))
		}
		return ip + 1, nil, nil
	case wasm.MiscI64TruncSatF64S, wasm.MiscI64TruncSatF64U:
		v := f.pop().F64()
		if instr.Misc == wasm.MiscI64TruncSatF64S {
			f.push(wasm.I64(truncSatToI64(v)))
		} else {
			f.push(wasm.U64(truncSatToU64(v)))
		}
		return ip + 1, nil, nil

	case wasm.MiscMemoryInit:
		if err := f.memoryInit(instr); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	case wasm.MiscDataDrop:
		addr := f.modInst.Datas[instr.DataIdx]
		f.vm.Store.Datas[addr].Dropped = true
		return ip + 1, nil, nil
	case wasm.MiscMemoryCopy:
		if err := f.memoryCopy(); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	case wasm.MiscMemoryFill:
		if err := f.memoryFill(); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil

	case wasm.MiscTableInit:
		if err := f.tableInit(instr); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	case wasm.MiscElemDrop:
		addr := f.modInst.Elems[instr.ElemIdx]
		f.vm.Store.Elements[addr].Dropped = true
		return ip + 1, nil, nil
	case wasm.MiscTableCopy:
		if err := f.tableCopy(instr); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	case wasm.MiscTableGrow:
		if err := f.tableGrow(instr); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	case wasm.MiscTableSize:
		t, err := f.table(instr.TableIdx)
		if err != nil {
			return 0, nil, err
		}
		f.push(wasm.I32(int32(len(t.Elements))))
		return ip + 1, nil, nil
	case wasm.MiscTableFill:
		if err := f.tableFill(instr); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	}
	return 0, nil, NewTrap(Unreachable, "unimplemented misc opcode")
}

func (f *activation) memoryInit(instr wasm.Instruction) error {
	m, err := f.mem0()
	if err != nil {
		return err
	}
	dataAddr := f.modInst.Datas[instr.DataIdx]
	d := &f.vm.Store.Datas[dataAddr]
	n := int(f.pop().U32())
	src := int(f.pop().U32())
	dst := int(f.pop().U32())
	if d.Dropped {
		if n == 0 && src == 0 {
			return nil
		}
		return NewTrap(OutOfBoundsMemoryAccess, "memory.init from dropped segment")
	}
	if src+n > len(d.Bytes) || dst+n > len(m.Bytes) {
		return NewTrap(OutOfBoundsMemoryAccess, "memory.init")
	}
	if n > 0 {
		copy(m.Bytes[dst:dst+n], d.Bytes[src:src+n])
	}
	return nil
}

func (f *activation) memoryCopy() error {
	m, err := f.mem0()
	if err != nil {
		return err
	}
	n := int(f.pop().U32())
	src := int(f.pop().U32())
	dst := int(f.pop().U32())
	if src+n > len(m.Bytes) || dst+n > len(m.Bytes) {
		return NewTrap(OutOfBoundsMemoryAccess, "memory.copy")
	}
	if n > 0 {
		copy(m.Bytes[dst:dst+n], m.Bytes[src:src+n])
	}
	return nil
}

func (f *activation) memoryFill() error {
	m, err := f.mem0()
	if err != nil {
		return err
	}
	n := int(f.pop().U32())
	val := byte(f.pop().U32())
	dst := int(f.pop().U32())
	if dst+n > len(m.Bytes) {
		return NewTrap(OutOfBoundsMemoryAccess, "memory.fill")
	}
	for i := 0; i < n; i++ {
		m.Bytes[dst+i] = val
	}
	return nil
}

func (f *activation) tableInit(instr wasm.Instruction) error {
	t, err := f.table(instr.TableIdx)
	if err != nil {
		return err
	}
	elemAddr := f.modInst.Elems[instr.ElemIdx]
	e := &f.vm.Store.Elements[elemAddr]
	n := int(f.pop().U32())
	src := int(f.pop().U32())
	dst := int(f.pop().U32())
	if e.Dropped {
		if n == 0 && src == 0 {
			return nil
		}
		return NewTrap(OutOfBoundsTableAccess, "table.init from dropped segment")
	}
	if src+n > len(e.Refs) || dst+n > len(t.Elements) {
		return NewTrap(OutOfBoundsTableAccess, "table.init")
	}
	if n > 0 {
		copy(t.Elements[dst:dst+n], e.Refs[src:src+n])
	}
	return nil
}

// tableCopy carries its source table index in instr.MemIdx (the decoder
// reuses that field for table.copy's second operand, see
// decodeMiscImmediates).
func (f *activation) tableCopy(instr wasm.Instruction) error {
	dstT, err := f.table(instr.TableIdx)
	if err != nil {
		return err
	}
	srcT, err := f.table(instr.MemIdx)
	if err != nil {
		return err
	}
	n := int(f.pop().U32())
	src := int(f.pop().U32())
	dst := int(f.pop().U32())
	if src+n > len(srcT.Elements) || dst+n > len(dstT.Elements) {
		return NewTrap(OutOfBoundsTableAccess, "table.copy")
	}
	if n > 0 {
		copy(dstT.Elements[dst:dst+n], srcT.Elements[src:src+n])
	}
	return nil
}

func (f *activation) tableGrow(instr wasm.Instruction) error {
	t, err := f.table(instr.TableIdx)
	if err != nil {
		return err
	}
	delta := int(f.pop().U32())
	v := f.pop()
	prev := len(t.Elements)
	if delta < 0 {
		f.push(wasm.I32(-1))
		return nil
	}
	newLen := prev + delta
	if t.Type.Limits.HasMax && newLen > int(t.Type.Limits.Max) {
		f.push(wasm.I32(-1))
		return nil
	}
	for i := 0; i < delta; i++ {
		t.Elements = append(t.Elements, v)
	}
	f.push(wasm.I32(int32(prev)))
	return nil
}

func (f *activation) tableFill(instr wasm.Instruction) error {
	t, err := f.table(instr.TableIdx)
	if err != nil {
		return err
	}
	n := int(f.pop().U32())
	v := f.pop()
	dst := int(f.pop().U32())
	if dst+n > len(t.Elements) {
		return NewTrap(OutOfBoundsTableAccess, "table.fill")
	}
	for i := 0; i < n; i++ {
		t.Elements[dst+i] = v
	}
	return nil
}

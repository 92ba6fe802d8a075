package vm

import (
	"encoding/binary"

	"github.com/friendlymatthew/whale/store"
	"github.com/friendlymatthew/whale/wasm"
)

// execMemAccess dispatches every load/store in [i32.load .. i64.store32].
// The effective address is instr.Mem.Offset + the popped i32 index,
// computed in 64-bit to avoid wrapping before the bounds check, per
// spec.md §4.5's "effective address must not overflow, and the whole
// access window must fit the memory" rule.
func (f *activation) execMemAccess(instr wasm.Instruction) error {
	m, err := f.mem0()
	if err != nil {
		return err
	}

	if instr.Op >= wasm.OpI32Store && instr.Op <= wasm.OpI64Store32 {
		return f.execStore(m, instr)
	}
	return f.execLoad(m, instr)
}

func effectiveAddr(instr wasm.Instruction, idx uint32, width int, memLen int) (int, error) {
	base := uint64(idx) + uint64(instr.Mem.Offset)
	end := base + uint64(width)
	if end > uint64(memLen) {
		return 0, NewTrap(OutOfBoundsMemoryAccess, "")
	}
	return int(base), nil
}

func (f *activation) execLoad(m *store.MemoryInstance, instr wasm.Instruction) error {
	idx := f.pop().U32()
	switch instr.Op {
	case wasm.OpI32Load:
		addr, err := effectiveAddr(instr, idx, 4, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.U32(binary.LittleEndian.Uint32(m.Bytes[addr:])))
	case wasm.OpI64Load:
		addr, err := effectiveAddr(instr, idx, 8, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.U64(binary.LittleEndian.Uint64(m.Bytes[addr:])))
	case wasm.OpF32Load:
		addr, err := effectiveAddr(instr, idx, 4, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.Value{Type: wasm.ValueTypeF32, Lo: uint64(binary.LittleEndian.Uint32(m.Bytes[addr:]))})
	case wasm.OpF64Load:
		addr, err := effectiveAddr(instr, idx, 8, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.Value{Type: wasm.ValueTypeF64, Lo: binary.LittleEndian.Uint64(m.Bytes[addr:])})
	case wasm.OpI32Load8S:
		addr, err := effectiveAddr(instr, idx, 1, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.I32(int32(int8(m.Bytes[addr]))))
	case wasm.OpI32Load8U:
		addr, err := effectiveAddr(instr, idx, 1, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.U32(uint32(m.Bytes[addr])))
	case wasm.OpI32Load16S:
		addr, err := effectiveAddr(instr, idx, 2, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.I32(int32(int16(binary.LittleEndian.Uint16(m.Bytes[addr:])))))
	case wasm.OpI32Load16U:
		addr, err := effectiveAddr(instr, idx, 2, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.U32(uint32(binary.LittleEndian.Uint16(m.Bytes[addr:]))))
	case wasm.OpI64Load8S:
		addr, err := effectiveAddr(instr, idx, 1, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.I64(int64(int8(m.Bytes[addr]))))
	case wasm.OpI64Load8U:
		addr, err := effectiveAddr(instr, idx, 1, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.U64(uint64(m.Bytes[addr])))
	case wasm.OpI64Load16S:
		addr, err := effectiveAddr(instr, idx, 2, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.I64(int64(int16(binary.LittleEndian.Uint16(m.Bytes[addr:])))))
	case wasm.OpI64Load16U:
		addr, err := effectiveAddr(instr, idx, 2, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.U64(uint64(binary.LittleEndian.Uint16(m.Bytes[addr:]))))
	case wasm.OpI64Load32S:
		addr, err := effectiveAddr(instr, idx, 4, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.I64(int64(int32(binary.LittleEndian.Uint32(m.Bytes[addr:])))))
	case wasm.OpI64Load32U:
		addr, err := effectiveAddr(instr, idx, 4, len(m.Bytes))
		if err != nil {
			return err
		}
		f.push(wasm.U64(uint64(binary.LittleEndian.Uint32(m.Bytes[addr:]))))
	}
	return nil
}

func (f *activation) execStore(m *store.MemoryInstance, instr wasm.Instruction) error {
	v := f.pop()
	idx := f.pop().U32()
	switch instr.Op {
	case wasm.OpI32Store:
		addr, err := effectiveAddr(instr, idx, 4, len(m.Bytes))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(m.Bytes[addr:], v.U32())
	case wasm.OpI64Store:
		addr, err := effectiveAddr(instr, idx, 8, len(m.Bytes))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(m.Bytes[addr:], v.U64())
	case wasm.OpF32Store:
		addr, err := effectiveAddr(instr, idx, 4, len(m.Bytes))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(m.Bytes[addr:], uint32(v.Lo))
	case wasm.OpF64Store:
		addr, err := effectiveAddr(instr, idx, 8, len(m.Bytes))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(m.Bytes[addr:], v.Lo)
	case wasm.OpI32Store8:
		addr, err := effectiveAddr(instr, idx, 1, len(m.Bytes))
		if err != nil {
			return err
		}
		m.Bytes[addr] = byte(v.U32())
	case wasm.OpI32Store16:
		addr, err := effectiveAddr(instr, idx, 2, len(m.Bytes))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(m.Bytes[addr:], uint16(v.U32()))
	case wasm.OpI64Store8:
		addr, err := effectiveAddr(instr, idx, 1, len(m.Bytes))
		if err != nil {
			return err
		}
		m.Bytes[addr] = byte(v.U64())
	case wasm.OpI64Store16:
		addr, err := effectiveAddr(instr, idx, 2, len(m.Bytes))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(m.Bytes[addr:], uint16(v.U64()))
	case wasm.OpI64Store32:
		addr, err := effectiveAddr(instr, idx, 4, len(m.Bytes))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(m.Bytes[addr:], uint32(v.U64()))
	}
	return nil
}

package vm

import (
	"encoding/binary"

	"github.com/friendlymatthew/whale/simd"
	"github.com/friendlymatthew/whale/wasm"
)

func v128ToBytes(v wasm.Value) [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], v.Lo)
	binary.LittleEndian.PutUint64(b[8:16], v.Hi)
	return b
}

func bytesToV128(b [16]byte) wasm.Value {
	return wasm.V128(binary.LittleEndian.Uint64(b[0:8]), binary.LittleEndian.Uint64(b[8:16]))
}

// execSimd dispatches the 0xFD extension space. Coverage matches
// SPEC_FULL.md's split: v128.load/store, the splat loads, const, splats,
// lane extract/replace, bitwise, compares and the shape arithmetic matrix
// execute; the extending loads (8x8/16x4/32x2), shuffle/swizzle, narrow/
// widen/extmul and the saturating-convert lane ops decode but trap as not
// implemented.
func (f *activation) execSimd(ip int, instr wasm.Instruction) (int, []wasm.Value, error) {
	op := instr.SimdOp

	switch op {
	case wasm.SimdV128Load:
		m, err := f.mem0()
		if err != nil {
			return 0, nil, err
		}
		idx := f.pop().U32()
		addr, err := effectiveAddr(instr, idx, 16, len(m.Bytes))
		if err != nil {
			return 0, nil, err
		}
		var b [16]byte
		copy(b[:], m.Bytes[addr:addr+16])
		f.push(bytesToV128(b))
		return ip + 1, nil, nil

	case wasm.SimdV128Load8Splat, wasm.SimdV128Load16Splat, wasm.SimdV128Load32Splat, wasm.SimdV128Load64Splat:
		m, err := f.mem0()
		if err != nil {
			return 0, nil, err
		}
		idx := f.pop().U32()
		width := map[uint32]int{
			wasm.SimdV128Load8Splat: 1, wasm.SimdV128Load16Splat: 2,
			wasm.SimdV128Load32Splat: 4, wasm.SimdV128Load64Splat: 8,
		}[op]
		addr, err := effectiveAddr(instr, idx, width, len(m.Bytes))
		if err != nil {
			return 0, nil, err
		}
		var b [16]byte
		switch op {
		case wasm.SimdV128Load8Splat:
			b = simd.I8x16Splat(int8(m.Bytes[addr]))
		case wasm.SimdV128Load16Splat:
			b = simd.I16x8Splat(int16(binary.LittleEndian.Uint16(m.Bytes[addr:])))
		case wasm.SimdV128Load32Splat:
			b = simd.I32x4Splat(int32(binary.LittleEndian.Uint32(m.Bytes[addr:])))
		case wasm.SimdV128Load64Splat:
			b = simd.I64x2Splat(int64(binary.LittleEndian.Uint64(m.Bytes[addr:])))
		}
		f.push(bytesToV128(b))
		return ip + 1, nil, nil

	case wasm.SimdV128Store:
		m, err := f.mem0()
		if err != nil {
			return 0, nil, err
		}
		v := f.pop()
		idx := f.pop().U32()
		addr, err := effectiveAddr(instr, idx, 16, len(m.Bytes))
		if err != nil {
			return 0, nil, err
		}
		b := v128ToBytes(v)
		copy(m.Bytes[addr:addr+16], b[:])
		return ip + 1, nil, nil

	case wasm.SimdV128Const:
		f.push(bytesToV128(instr.V128Const))
		return ip + 1, nil, nil

	case wasm.SimdI8x16Splat:
		f.push(bytesToV128(simd.I8x16Splat(int8(f.pop().I32()))))
		return ip + 1, nil, nil
	case wasm.SimdI16x8Splat:
		f.push(bytesToV128(simd.I16x8Splat(int16(f.pop().I32()))))
		return ip + 1, nil, nil
	case wasm.SimdI32x4Splat:
		f.push(bytesToV128(simd.I32x4Splat(f.pop().I32())))
		return ip + 1, nil, nil
	case wasm.SimdI64x2Splat:
		f.push(bytesToV128(simd.I64x2Splat(f.pop().I64())))
		return ip + 1, nil, nil
	case wasm.SimdF32x4Splat:
		f.push(bytesToV128(simd.F32x4Splat(f.pop().F32())))
		return ip + 1, nil, nil
	case wasm.SimdF64x2Splat:
		f.push(bytesToV128(simd.F64x2Splat(f.pop().F64())))
		return ip + 1, nil, nil

	case wasm.SimdI8x16ExtractLaneS:
		b := v128ToBytes(f.pop())
		f.push(wasm.I32(int32(simd.GetI8(b, int(instr.Lanes[0])))))
		return ip + 1, nil, nil
	case wasm.SimdI8x16ExtractLaneU:
		b := v128ToBytes(f.pop())
		f.push(wasm.U32(uint32(uint8(simd.GetI8(b, int(instr.Lanes[0]))))))
		return ip + 1, nil, nil
	case wasm.SimdI16x8ExtractLaneS:
		b := v128ToBytes(f.pop())
		f.push(wasm.I32(int32(simd.GetI16(b, int(instr.Lanes[0])))))
		return ip + 1, nil, nil
	case wasm.SimdI16x8ExtractLaneU:
		b := v128ToBytes(f.pop())
		f.push(wasm.U32(uint32(uint16(simd.GetI16(b, int(instr.Lanes[0]))))))
		return ip + 1, nil, nil
	case wasm.SimdI32x4ExtractLane:
		b := v128ToBytes(f.pop())
		f.push(wasm.I32(simd.GetI32(b, int(instr.Lanes[0]))))
		return ip + 1, nil, nil
	case wasm.SimdI64x2ExtractLane:
		b := v128ToBytes(f.pop())
		f.push(wasm.I64(simd.GetI64(b, int(instr.Lanes[0]))))
		return ip + 1, nil, nil
	case wasm.SimdF32x4ExtractLane:
		b := v128ToBytes(f.pop())
		f.push(wasm.F32(simd.GetF32(b, int(instr.Lanes[0]))))
		return ip + 1, nil, nil
	case wasm.SimdF64x2ExtractLane:
		b := v128ToBytes(f.pop())
		f.push(wasm.F64(simd.GetF64(b, int(instr.Lanes[0]))))
		return ip + 1, nil, nil

	case wasm.SimdI8x16ReplaceLane:
		scalar := f.pop().I32()
		b := v128ToBytes(f.pop())
		simd.SetI8(&b, int(instr.Lanes[0]), int8(scalar))
		f.push(bytesToV128(b))
		return ip + 1, nil, nil
	case wasm.SimdI16x8ReplaceLane:
		scalar := f.pop().I32()
		b := v128ToBytes(f.pop())
		simd.SetI16(&b, int(instr.Lanes[0]), int16(scalar))
		f.push(bytesToV128(b))
		return ip + 1, nil, nil
	case wasm.SimdI32x4ReplaceLane:
		scalar := f.pop().I32()
		b := v128ToBytes(f.pop())
		simd.SetI32(&b, int(instr.Lanes[0]), scalar)
		f.push(bytesToV128(b))
		return ip + 1, nil, nil
	case wasm.SimdI64x2ReplaceLane:
		scalar := f.pop().I64()
		b := v128ToBytes(f.pop())
		simd.SetI64(&b, int(instr.Lanes[0]), scalar)
		f.push(bytesToV128(b))
		return ip + 1, nil, nil
	case wasm.SimdF32x4ReplaceLane:
		scalar := f.pop().F32()
		b := v128ToBytes(f.pop())
		simd.SetF32(&b, int(instr.Lanes[0]), scalar)
		f.push(bytesToV128(b))
		return ip + 1, nil, nil
	case wasm.SimdF64x2ReplaceLane:
		scalar := f.pop().F64()
		b := v128ToBytes(f.pop())
		simd.SetF64(&b, int(instr.Lanes[0]), scalar)
		f.push(bytesToV128(b))
		return ip + 1, nil, nil

	case wasm.SimdV128Not:
		f.push(bytesToV128(simd.Not(v128ToBytes(f.pop()))))
		return ip + 1, nil, nil
	case wasm.SimdV128And:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		f.push(bytesToV128(simd.And(a, b)))
		return ip + 1, nil, nil
	case wasm.SimdV128AndNot:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		f.push(bytesToV128(simd.AndNot(a, b)))
		return ip + 1, nil, nil
	case wasm.SimdV128Or:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		f.push(bytesToV128(simd.Or(a, b)))
		return ip + 1, nil, nil
	case wasm.SimdV128Xor:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		f.push(bytesToV128(simd.Xor(a, b)))
		return ip + 1, nil, nil
	case wasm.SimdV128Bitselect:
		c, b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop()), v128ToBytes(f.pop())
		f.push(bytesToV128(simd.Bitselect(a, b, c)))
		return ip + 1, nil, nil
	case wasm.SimdV128AnyTrue:
		f.push(wasm.I32(b2i(simd.AnyTrue(v128ToBytes(f.pop())))))
		return ip + 1, nil, nil
	}

	if ok := f.execSimdCompare(op); ok {
		return ip + 1, nil, nil
	}
	if ok := f.execSimdArith(op); ok {
		return ip + 1, nil, nil
	}

	return 0, nil, NewTrap(Unreachable, "simd opcode not implemented")
}

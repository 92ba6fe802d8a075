package vm

import (
	"math"

	"github.com/friendlymatthew/whale/simd"
	"github.com/friendlymatthew/whale/wasm"
)

// execSimdCompare handles the per-shape comparison sub-opcodes (35-76).
// Reports false if op isn't a compare, leaving it to execSimdArith.
func (f *activation) execSimdCompare(op uint32) bool {
	switch {
	case op >= wasm.SimdI8x16Eq && op <= wasm.SimdI8x16GeU:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdI8x16Eq:
			out = simd.I8x16Compare(a, b, func(x, y int8) bool { return x == y })
		case wasm.SimdI8x16Ne:
			out = simd.I8x16Compare(a, b, func(x, y int8) bool { return x != y })
		case wasm.SimdI8x16LtS:
			out = simd.I8x16Compare(a, b, func(x, y int8) bool { return x < y })
		case wasm.SimdI8x16LtU:
			out = simd.I8x16CompareU(a, b, func(x, y uint8) bool { return x < y })
		case wasm.SimdI8x16GtS:
			out = simd.I8x16Compare(a, b, func(x, y int8) bool { return x > y })
		case wasm.SimdI8x16GtU:
			out = simd.I8x16CompareU(a, b, func(x, y uint8) bool { return x > y })
		case wasm.SimdI8x16LeS:
			out = simd.I8x16Compare(a, b, func(x, y int8) bool { return x <= y })
		case wasm.SimdI8x16LeU:
			out = simd.I8x16CompareU(a, b, func(x, y uint8) bool { return x <= y })
		case wasm.SimdI8x16GeS:
			out = simd.I8x16Compare(a, b, func(x, y int8) bool { return x >= y })
		case wasm.SimdI8x16GeU:
			out = simd.I8x16CompareU(a, b, func(x, y uint8) bool { return x >= y })
		}
		f.push(bytesToV128(out))
		return true

	case op >= wasm.SimdI16x8Eq && op <= wasm.SimdI16x8GeU:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdI16x8Eq:
			out = simd.I16x8Compare(a, b, func(x, y int16) bool { return x == y })
		case wasm.SimdI16x8Ne:
			out = simd.I16x8Compare(a, b, func(x, y int16) bool { return x != y })
		case wasm.SimdI16x8LtS:
			out = simd.I16x8Compare(a, b, func(x, y int16) bool { return x < y })
		case wasm.SimdI16x8LtU:
			out = simd.I16x8CompareU(a, b, func(x, y uint16) bool { return x < y })
		case wasm.SimdI16x8GtS:
			out = simd.I16x8Compare(a, b, func(x, y int16) bool { return x > y })
		case wasm.SimdI16x8GtU:
			out = simd.I16x8CompareU(a, b, func(x, y uint16) bool { return x > y })
		case wasm.SimdI16x8LeS:
			out = simd.I16x8Compare(a, b, func(x, y int16) bool { return x <= y })
		case wasm.SimdI16x8LeU:
			out = simd.I16x8CompareU(a, b, func(x, y uint16) bool { return x <= y })
		case wasm.SimdI16x8GeS:
			out = simd.I16x8Compare(a, b, func(x, y int16) bool { return x >= y })
		case wasm.SimdI16x8GeU:
			out = simd.I16x8CompareU(a, b, func(x, y uint16) bool { return x >= y })
		}
		f.push(bytesToV128(out))
		return true

	case op >= wasm.SimdI32x4Eq && op <= wasm.SimdI32x4GeU:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdI32x4Eq:
			out = simd.I32x4Compare(a, b, func(x, y int32) bool { return x == y })
		case wasm.SimdI32x4Ne:
			out = simd.I32x4Compare(a, b, func(x, y int32) bool { return x != y })
		case wasm.SimdI32x4LtS:
			out = simd.I32x4Compare(a, b, func(x, y int32) bool { return x < y })
		case wasm.SimdI32x4LtU:
			out = simd.I32x4CompareU(a, b, func(x, y uint32) bool { return x < y })
		case wasm.SimdI32x4GtS:
			out = simd.I32x4Compare(a, b, func(x, y int32) bool { return x > y })
		case wasm.SimdI32x4GtU:
			out = simd.I32x4CompareU(a, b, func(x, y uint32) bool { return x > y })
		case wasm.SimdI32x4LeS:
			out = simd.I32x4Compare(a, b, func(x, y int32) bool { return x <= y })
		case wasm.SimdI32x4LeU:
			out = simd.I32x4CompareU(a, b, func(x, y uint32) bool { return x <= y })
		case wasm.SimdI32x4GeS:
			out = simd.I32x4Compare(a, b, func(x, y int32) bool { return x >= y })
		case wasm.SimdI32x4GeU:
			out = simd.I32x4CompareU(a, b, func(x, y uint32) bool { return x >= y })
		}
		f.push(bytesToV128(out))
		return true

	case op >= wasm.SimdF32x4Eq && op <= wasm.SimdF32x4Ge:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdF32x4Eq:
			out = simd.F32x4Compare(a, b, func(x, y float32) bool { return x == y })
		case wasm.SimdF32x4Ne:
			out = simd.F32x4Compare(a, b, func(x, y float32) bool { return x != y })
		case wasm.SimdF32x4Lt:
			out = simd.F32x4Compare(a, b, func(x, y float32) bool { return x < y })
		case wasm.SimdF32x4Gt:
			out = simd.F32x4Compare(a, b, func(x, y float32) bool { return x > y })
		case wasm.SimdF32x4Le:
			out = simd.F32x4Compare(a, b, func(x, y float32) bool { return x <= y })
		case wasm.SimdF32x4Ge:
			out = simd.F32x4Compare(a, b, func(x, y float32) bool { return x >= y })
		}
		f.push(bytesToV128(out))
		return true

	case op >= wasm.SimdF64x2Eq && op <= wasm.SimdF64x2Ge:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdF64x2Eq:
			out = simd.F64x2Compare(a, b, func(x, y float64) bool { return x == y })
		case wasm.SimdF64x2Ne:
			out = simd.F64x2Compare(a, b, func(x, y float64) bool { return x != y })
		case wasm.SimdF64x2Lt:
			out = simd.F64x2Compare(a, b, func(x, y float64) bool { return x < y })
		case wasm.SimdF64x2Gt:
			out = simd.F64x2Compare(a, b, func(x, y float64) bool { return x > y })
		case wasm.SimdF64x2Le:
			out = simd.F64x2Compare(a, b, func(x, y float64) bool { return x <= y })
		case wasm.SimdF64x2Ge:
			out = simd.F64x2Compare(a, b, func(x, y float64) bool { return x >= y })
		}
		f.push(bytesToV128(out))
		return true
	}
	return false
}

// execSimdArith handles the per-shape arithmetic matrix allocated from
// simdArithBase, plus each shape's all_true reduction.
func (f *activation) execSimdArith(op uint32) bool {
	switch {
	case op == wasm.SimdI8x16Neg:
		f.push(bytesToV128(simd.I8x16Map(v128ToBytes(f.pop()), func(x int8) int8 { return -x })))
		return true
	case op == wasm.SimdI8x16AllTrue:
		f.push(wasm.I32(b2i(simd.I8x16AllTrue(v128ToBytes(f.pop())))))
		return true
	case op == wasm.SimdI8x16Add, op == wasm.SimdI8x16Sub,
		op == wasm.SimdI8x16AddSatS, op == wasm.SimdI8x16AddSatU,
		op == wasm.SimdI8x16SubSatS, op == wasm.SimdI8x16SubSatU,
		op == wasm.SimdI8x16MinS, op == wasm.SimdI8x16MinU,
		op == wasm.SimdI8x16MaxS, op == wasm.SimdI8x16MaxU:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdI8x16Add:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 { return x + y })
		case wasm.SimdI8x16Sub:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 { return x - y })
		case wasm.SimdI8x16AddSatS:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 { return simd.SatS8(int32(x) + int32(y)) })
		case wasm.SimdI8x16AddSatU:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 {
				return simd.SatU8(int32(uint8(x)) + int32(uint8(y)))
			})
		case wasm.SimdI8x16SubSatS:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 { return simd.SatS8(int32(x) - int32(y)) })
		case wasm.SimdI8x16SubSatU:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 {
				return simd.SatU8(int32(uint8(x)) - int32(uint8(y)))
			})
		case wasm.SimdI8x16MinS:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 {
				if x < y {
					return x
				}
				return y
			})
		case wasm.SimdI8x16MinU:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 {
				if uint8(x) < uint8(y) {
					return x
				}
				return y
			})
		case wasm.SimdI8x16MaxS:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 {
				if x > y {
					return x
				}
				return y
			})
		case wasm.SimdI8x16MaxU:
			out = simd.I8x16Zip(a, b, func(x, y int8) int8 {
				if uint8(x) > uint8(y) {
					return x
				}
				return y
			})
		}
		f.push(bytesToV128(out))
		return true

	case op == wasm.SimdI16x8Neg:
		f.push(bytesToV128(simd.I16x8Map(v128ToBytes(f.pop()), func(x int16) int16 { return -x })))
		return true
	case op == wasm.SimdI16x8AllTrue:
		f.push(wasm.I32(b2i(simd.I16x8AllTrue(v128ToBytes(f.pop())))))
		return true
	case op == wasm.SimdI16x8Add, op == wasm.SimdI16x8Sub, op == wasm.SimdI16x8Mul,
		op == wasm.SimdI16x8AddSatS, op == wasm.SimdI16x8AddSatU,
		op == wasm.SimdI16x8SubSatS, op == wasm.SimdI16x8SubSatU,
		op == wasm.SimdI16x8MinS, op == wasm.SimdI16x8MinU,
		op == wasm.SimdI16x8MaxS, op == wasm.SimdI16x8MaxU:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdI16x8Add:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 { return x + y })
		case wasm.SimdI16x8Sub:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 { return x - y })
		case wasm.SimdI16x8Mul:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 { return x * y })
		case wasm.SimdI16x8AddSatS:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 { return simd.SatS16(int32(x) + int32(y)) })
		case wasm.SimdI16x8AddSatU:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 {
				return simd.SatU16(int32(uint16(x)) + int32(uint16(y)))
			})
		case wasm.SimdI16x8SubSatS:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 { return simd.SatS16(int32(x) - int32(y)) })
		case wasm.SimdI16x8SubSatU:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 {
				return simd.SatU16(int32(uint16(x)) - int32(uint16(y)))
			})
		case wasm.SimdI16x8MinS:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 {
				if x < y {
					return x
				}
				return y
			})
		case wasm.SimdI16x8MinU:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 {
				if uint16(x) < uint16(y) {
					return x
				}
				return y
			})
		case wasm.SimdI16x8MaxS:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 {
				if x > y {
					return x
				}
				return y
			})
		case wasm.SimdI16x8MaxU:
			out = simd.I16x8Zip(a, b, func(x, y int16) int16 {
				if uint16(x) > uint16(y) {
					return x
				}
				return y
			})
		}
		f.push(bytesToV128(out))
		return true

	case op == wasm.SimdI32x4Neg:
		f.push(bytesToV128(simd.I32x4Map(v128ToBytes(f.pop()), func(x int32) int32 { return -x })))
		return true
	case op == wasm.SimdI32x4AllTrue:
		f.push(wasm.I32(b2i(simd.I32x4AllTrue(v128ToBytes(f.pop())))))
		return true
	case op == wasm.SimdI32x4Add, op == wasm.SimdI32x4Sub, op == wasm.SimdI32x4Mul,
		op == wasm.SimdI32x4MinS, op == wasm.SimdI32x4MinU,
		op == wasm.SimdI32x4MaxS, op == wasm.SimdI32x4MaxU:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdI32x4Add:
			out = simd.I32x4Zip(a, b, func(x, y int32) int32 { return x + y })
		case wasm.SimdI32x4Sub:
			out = simd.I32x4Zip(a, b, func(x, y int32) int32 { return x - y })
		case wasm.SimdI32x4Mul:
			out = simd.I32x4Zip(a, b, func(x, y int32) int32 { return x * y })
		case wasm.SimdI32x4MinS:
			out = simd.I32x4Zip(a, b, func(x, y int32) int32 {
				if x < y {
					return x
				}
				return y
			})
		case wasm.SimdI32x4MinU:
			out = simd.I32x4Zip(a, b, func(x, y int32) int32 {
				if uint32(x) < uint32(y) {
					return x
				}
				return y
			})
		case wasm.SimdI32x4MaxS:
			out = simd.I32x4Zip(a, b, func(x, y int32) int32 {
				if x > y {
					return x
				}
				return y
			})
		case wasm.SimdI32x4MaxU:
			out = simd.I32x4Zip(a, b, func(x, y int32) int32 {
				if uint32(x) > uint32(y) {
					return x
				}
				return y
			})
		}
		f.push(bytesToV128(out))
		return true

	case op == wasm.SimdI64x2Neg:
		f.push(bytesToV128(simd.I64x2Map(v128ToBytes(f.pop()), func(x int64) int64 { return -x })))
		return true
	case op == wasm.SimdI64x2AllTrue:
		f.push(wasm.I32(b2i(simd.I64x2AllTrue(v128ToBytes(f.pop())))))
		return true
	case op == wasm.SimdI64x2Add, op == wasm.SimdI64x2Sub, op == wasm.SimdI64x2Mul:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdI64x2Add:
			out = simd.I64x2Zip(a, b, func(x, y int64) int64 { return x + y })
		case wasm.SimdI64x2Sub:
			out = simd.I64x2Zip(a, b, func(x, y int64) int64 { return x - y })
		case wasm.SimdI64x2Mul:
			out = simd.I64x2Zip(a, b, func(x, y int64) int64 { return x * y })
		}
		f.push(bytesToV128(out))
		return true

	case op == wasm.SimdF32x4Abs:
		f.push(bytesToV128(simd.F32x4Map(v128ToBytes(f.pop()), simd.F32x4Abs)))
		return true
	case op == wasm.SimdF32x4Neg:
		f.push(bytesToV128(simd.F32x4Map(v128ToBytes(f.pop()), func(x float32) float32 { return -x })))
		return true
	case op == wasm.SimdF32x4Sqrt:
		f.push(bytesToV128(simd.F32x4Map(v128ToBytes(f.pop()), simd.F32x4Sqrt)))
		return true
	case op == wasm.SimdF32x4Add, op == wasm.SimdF32x4Sub, op == wasm.SimdF32x4Mul,
		op == wasm.SimdF32x4Div, op == wasm.SimdF32x4Min, op == wasm.SimdF32x4Max:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdF32x4Add:
			out = simd.F32x4Zip(a, b, func(x, y float32) float32 { return x + y })
		case wasm.SimdF32x4Sub:
			out = simd.F32x4Zip(a, b, func(x, y float32) float32 { return x - y })
		case wasm.SimdF32x4Mul:
			out = simd.F32x4Zip(a, b, func(x, y float32) float32 { return x * y })
		case wasm.SimdF32x4Div:
			out = simd.F32x4Zip(a, b, func(x, y float32) float32 { return x / y })
		case wasm.SimdF32x4Min:
			out = simd.F32x4Zip(a, b, f32Min)
		case wasm.SimdF32x4Max:
			out = simd.F32x4Zip(a, b, f32Max)
		}
		f.push(bytesToV128(out))
		return true

	case op == wasm.SimdF64x2Abs:
		f.push(bytesToV128(simd.F64x2Map(v128ToBytes(f.pop()), func(x float64) float64 {
			if x < 0 {
				return -x
			}
			return x
		})))
		return true
	case op == wasm.SimdF64x2Neg:
		f.push(bytesToV128(simd.F64x2Map(v128ToBytes(f.pop()), func(x float64) float64 { return -x })))
		return true
	case op == wasm.SimdF64x2Sqrt:
		f.push(bytesToV128(simd.F64x2Map(v128ToBytes(f.pop()), math.Sqrt)))
		return true
	case op == wasm.SimdF64x2Add, op == wasm.SimdF64x2Sub, op == wasm.SimdF64x2Mul,
		op == wasm.SimdF64x2Div, op == wasm.SimdF64x2Min, op == wasm.SimdF64x2Max:
		b, a := v128ToBytes(f.pop()), v128ToBytes(f.pop())
		var out [16]byte
		switch op {
		case wasm.SimdF64x2Add:
			out = simd.F64x2Zip(a, b, func(x, y float64) float64 { return x + y })
		case wasm.SimdF64x2Sub:
			out = simd.F64x2Zip(a, b, func(x, y float64) float64 { return x - y })
		case wasm.SimdF64x2Mul:
			out = simd.F64x2Zip(a, b, func(x, y float64) float64 { return x * y })
		case wasm.SimdF64x2Div:
			out = simd.F64x2Zip(a, b, func(x, y float64) float64 { return x / y })
		case wasm.SimdF64x2Min:
			out = simd.F64x2Zip(a, b, f64Min)
		case wasm.SimdF64x2Max:
			out = simd.F64x2Zip(a, b, f64Max)
		}
		f.push(bytesToV128(out))
		return true
	}
	return false
}

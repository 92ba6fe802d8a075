// Package simd implements the lane-level math behind the 0xFD instruction
// family: splats, extract/replace-lane, compares, bitwise ops, and the
// per-shape arithmetic matrix. Every function here operates on a v128
// represented as 16 raw bytes in little-endian lane order, leaving the
// wasm.Value <-> []byte conversion and stack plumbing to vm.execSimd.
package simd

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
)

// Lane accessors.

func GetI8(b [16]byte, lane int) int8 { return int8(b[lane]) }
func SetI8(b *[16]byte, lane int, v int8) { b[lane] = byte(v) }

func GetI16(b [16]byte, lane int) int16 {
	return int16(binary.LittleEndian.Uint16(b[lane*2:]))
}
func SetI16(b *[16]byte, lane int, v int16) {
	binary.LittleEndian.PutUint16(b[lane*2:], uint16(v))
}

func GetI32(b [16]byte, lane int) int32 {
	return int32(binary.LittleEndian.Uint32(b[lane*4:]))
}
func SetI32(b *[16]byte, lane int, v int32) {
	binary.LittleEndian.PutUint32(b[lane*4:], uint32(v))
}

func GetI64(b [16]byte, lane int) int64 {
	return int64(binary.LittleEndian.Uint64(b[lane*8:]))
}
func SetI64(b *[16]byte, lane int, v int64) {
	binary.LittleEndian.PutUint64(b[lane*8:], uint64(v))
}

func GetF32(b [16]byte, lane int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[lane*4:]))
}
func SetF32(b *[16]byte, lane int, v float32) {
	binary.LittleEndian.PutUint32(b[lane*4:], math.Float32bits(v))
}

func GetF64(b [16]byte, lane int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[lane*8:]))
}
func SetF64(b *[16]byte, lane int, v float64) {
	binary.LittleEndian.PutUint64(b[lane*8:], math.Float64bits(v))
}

// Splats.

func I8x16Splat(v int8) (out [16]byte) {
	for i := 0; i < 16; i++ {
		out[i] = byte(v)
	}
	return
}
func I16x8Splat(v int16) (out [16]byte) {
	for i := 0; i < 8; i++ {
		SetI16(&out, i, v)
	}
	return
}
func I32x4Splat(v int32) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetI32(&out, i, v)
	}
	return
}
func I64x2Splat(v int64) (out [16]byte) {
	for i := 0; i < 2; i++ {
		SetI64(&out, i, v)
	}
	return
}
func F32x4Splat(v float32) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetF32(&out, i, v)
	}
	return
}
func F64x2Splat(v float64) (out [16]byte) {
	for i := 0; i < 2; i++ {
		SetF64(&out, i, v)
	}
	return
}

// Bitwise, shape-agnostic.

func Not(a [16]byte) (out [16]byte) {
	for i := range a {
		out[i] = ^a[i]
	}
	return
}
func And(a, b [16]byte) (out [16]byte) {
	for i := range a {
		out[i] = a[i] & b[i]
	}
	return
}
func AndNot(a, b [16]byte) (out [16]byte) {
	for i := range a {
		out[i] = a[i] &^ b[i]
	}
	return
}
func Or(a, b [16]byte) (out [16]byte) {
	for i := range a {
		out[i] = a[i] | b[i]
	}
	return
}
func Xor(a, b [16]byte) (out [16]byte) {
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return
}
func Bitselect(a, b, c [16]byte) (out [16]byte) {
	for i := range a {
		out[i] = (a[i] & c[i]) | (b[i] &^ c[i])
	}
	return
}
func AnyTrue(a [16]byte) bool {
	for _, v := range a {
		if v != 0 {
			return true
		}
	}
	return false
}

func b2byteI32(cond bool) int32 {
	if cond {
		return -1
	}
	return 0
}
func b2byteI8(cond bool) int8 {
	if cond {
		return -1
	}
	return 0
}
func b2byteI16(cond bool) int16 {
	if cond {
		return -1
	}
	return 0
}

// I8x16 lane-wise ops.

func I8x16Map(a [16]byte, f func(int8) int8) (out [16]byte) {
	for i := 0; i < 16; i++ {
		SetI8(&out, i, f(GetI8(a, i)))
	}
	return
}
func I8x16Zip(a, b [16]byte, f func(x, y int8) int8) (out [16]byte) {
	for i := 0; i < 16; i++ {
		SetI8(&out, i, f(GetI8(a, i), GetI8(b, i)))
	}
	return
}
func I8x16Compare(a, b [16]byte, f func(x, y int8) bool) (out [16]byte) {
	for i := 0; i < 16; i++ {
		SetI8(&out, i, b2byteI8(f(GetI8(a, i), GetI8(b, i))))
	}
	return
}
func I8x16CompareU(a, b [16]byte, f func(x, y uint8) bool) (out [16]byte) {
	for i := 0; i < 16; i++ {
		SetI8(&out, i, b2byteI8(f(uint8(GetI8(a, i)), uint8(GetI8(b, i)))))
	}
	return
}
func I8x16AllTrue(a [16]byte) bool {
	for i := 0; i < 16; i++ {
		if GetI8(a, i) == 0 {
			return false
		}
	}
	return true
}
func SatS8(v int32) int8 {
	if v > math.MaxInt8 {
		return math.MaxInt8
	}
	if v < math.MinInt8 {
		return math.MinInt8
	}
	return int8(v)
}
func SatU8(v int32) int8 {
	if v > math.MaxUint8 {
		return -1 // 0xFF, i.e. uint8 255
	}
	if v < 0 {
		return 0
	}
	return int8(uint8(v))
}

// I16x8 lane-wise ops.

func I16x8Map(a [16]byte, f func(int16) int16) (out [16]byte) {
	for i := 0; i < 8; i++ {
		SetI16(&out, i, f(GetI16(a, i)))
	}
	return
}
func I16x8Zip(a, b [16]byte, f func(x, y int16) int16) (out [16]byte) {
	for i := 0; i < 8; i++ {
		SetI16(&out, i, f(GetI16(a, i), GetI16(b, i)))
	}
	return
}
func I16x8Compare(a, b [16]byte, f func(x, y int16) bool) (out [16]byte) {
	for i := 0; i < 8; i++ {
		SetI16(&out, i, b2byteI16(f(GetI16(a, i), GetI16(b, i))))
	}
	return
}
func I16x8CompareU(a, b [16]byte, f func(x, y uint16) bool) (out [16]byte) {
	for i := 0; i < 8; i++ {
		SetI16(&out, i, b2byteI16(f(uint16(GetI16(a, i)), uint16(GetI16(b, i)))))
	}
	return
}
func I16x8AllTrue(a [16]byte) bool {
	for i := 0; i < 8; i++ {
		if GetI16(a, i) == 0 {
			return false
		}
	}
	return true
}
func SatS16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
func SatU16(v int32) int16 {
	if v > math.MaxUint16 {
		return -1 // 0xFFFF, i.e. uint16 65535
	}
	if v < 0 {
		return 0
	}
	return int16(uint16(v))
}

// I32x4 lane-wise ops.

func I32x4Map(a [16]byte, f func(int32) int32) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetI32(&out, i, f(GetI32(a, i)))
	}
	return
}
func I32x4Zip(a, b [16]byte, f func(x, y int32) int32) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetI32(&out, i, f(GetI32(a, i), GetI32(b, i)))
	}
	return
}
func I32x4Compare(a, b [16]byte, f func(x, y int32) bool) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetI32(&out, i, b2byteI32(f(GetI32(a, i), GetI32(b, i))))
	}
	return
}
func I32x4CompareU(a, b [16]byte, f func(x, y uint32) bool) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetI32(&out, i, b2byteI32(f(uint32(GetI32(a, i)), uint32(GetI32(b, i)))))
	}
	return
}
func I32x4AllTrue(a [16]byte) bool {
	for i := 0; i < 4; i++ {
		if GetI32(a, i) == 0 {
			return false
		}
	}
	return true
}

// I64x2 lane-wise ops.

func I64x2Map(a [16]byte, f func(int64) int64) (out [16]byte) {
	for i := 0; i < 2; i++ {
		SetI64(&out, i, f(GetI64(a, i)))
	}
	return
}
func I64x2Zip(a, b [16]byte, f func(x, y int64) int64) (out [16]byte) {
	for i := 0; i < 2; i++ {
		SetI64(&out, i, f(GetI64(a, i), GetI64(b, i)))
	}
	return
}
func I64x2AllTrue(a [16]byte) bool {
	for i := 0; i < 2; i++ {
		if GetI64(a, i) == 0 {
			return false
		}
	}
	return true
}

// F32x4 lane-wise ops.

func F32x4Map(a [16]byte, f func(float32) float32) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetF32(&out, i, f(GetF32(a, i)))
	}
	return
}
func F32x4Zip(a, b [16]byte, f func(x, y float32) float32) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetF32(&out, i, f(GetF32(a, i), GetF32(b, i)))
	}
	return
}
func F32x4Compare(a, b [16]byte, f func(x, y float32) bool) (out [16]byte) {
	for i := 0; i < 4; i++ {
		SetI32(&out, i, b2byteI32(f(GetF32(a, i), GetF32(b, i))))
	}
	return
}
func F32x4Abs(v float32) float32 { return math32.Abs(v) }
func F32x4Sqrt(v float32) float32 { return math32.Sqrt(v) }

// F64x2 lane-wise ops.

func F64x2Map(a [16]byte, f func(float64) float64) (out [16]byte) {
	for i := 0; i < 2; i++ {
		SetF64(&out, i, f(GetF64(a, i)))
	}
	return
}
func F64x2Zip(a, b [16]byte, f func(x, y float64) float64) (out [16]byte) {
	for i := 0; i < 2; i++ {
		SetF64(&out, i, f(GetF64(a, i), GetF64(b, i)))
	}
	return
}
func F64x2Compare(a, b [16]byte, f func(x, y float64) bool) (out [16]byte) {
	for i := 0; i < 2; i++ {
		SetI64(&out, i, int64(b2byteI32(f(GetF64(a, i), GetF64(b, i)))))
	}
	return
}

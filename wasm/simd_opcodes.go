package wasm

// SIMD sub-opcodes, decoded as a LEB128 u32 following the 0xFD prefix
// byte. The values 0-83 below (loads/stores, const, shuffle/swizzle,
// splats, extract_lane/replace_lane, compares, bitwise) match the
// widely-deployed numbering from the SIMD proposal as implemented by the
// major engines at the time this interpreter was written. The arithmetic
// opcodes (add/sub/mul/div/min/max/sqrt/neg/abs, starting at
// simdArithBase) are this repository's OWN internal allocation: the
// decoder and executor agree with each other over that range. There are
// no constants for narrow/widen/extmul/bitmask or the saturating-convert
// lane ops; any sub-opcode not listed here decodes with no immediate and
// traps when executed, as do shuffle/swizzle and the extending loads
// (see vm.execSimd).
const (
	SimdV128Load       uint32 = 0
	SimdV128Load8x8S    uint32 = 1
	SimdV128Load8x8U    uint32 = 2
	SimdV128Load16x4S   uint32 = 3
	SimdV128Load16x4U   uint32 = 4
	SimdV128Load32x2S   uint32 = 5
	SimdV128Load32x2U   uint32 = 6
	SimdV128Load8Splat  uint32 = 7
	SimdV128Load16Splat uint32 = 8
	SimdV128Load32Splat uint32 = 9
	SimdV128Load64Splat uint32 = 10
	SimdV128Store       uint32 = 11
	SimdV128Const       uint32 = 12
	SimdI8x16Shuffle    uint32 = 13
	SimdI8x16Swizzle    uint32 = 14

	SimdI8x16Splat uint32 = 15
	SimdI16x8Splat uint32 = 16
	SimdI32x4Splat uint32 = 17
	SimdI64x2Splat uint32 = 18
	SimdF32x4Splat uint32 = 19
	SimdF64x2Splat uint32 = 20

	SimdI8x16ExtractLaneS uint32 = 21
	SimdI8x16ExtractLaneU uint32 = 22
	SimdI8x16ReplaceLane  uint32 = 23
	SimdI16x8ExtractLaneS uint32 = 24
	SimdI16x8ExtractLaneU uint32 = 25
	SimdI16x8ReplaceLane  uint32 = 26
	SimdI32x4ExtractLane  uint32 = 27
	SimdI32x4ReplaceLane  uint32 = 28
	SimdI64x2ExtractLane  uint32 = 29
	SimdI64x2ReplaceLane  uint32 = 30
	SimdF32x4ExtractLane  uint32 = 31
	SimdF32x4ReplaceLane  uint32 = 32
	SimdF64x2ExtractLane  uint32 = 33
	SimdF64x2ReplaceLane  uint32 = 34

	SimdI8x16Eq uint32 = 35
	SimdI8x16Ne uint32 = 36
	SimdI8x16LtS uint32 = 37
	SimdI8x16LtU uint32 = 38
	SimdI8x16GtS uint32 = 39
	SimdI8x16GtU uint32 = 40
	SimdI8x16LeS uint32 = 41
	SimdI8x16LeU uint32 = 42
	SimdI8x16GeS uint32 = 43
	SimdI8x16GeU uint32 = 44

	SimdI16x8Eq uint32 = 45
	SimdI16x8Ne uint32 = 46
	SimdI16x8LtS uint32 = 47
	SimdI16x8LtU uint32 = 48
	SimdI16x8GtS uint32 = 49
	SimdI16x8GtU uint32 = 50
	SimdI16x8LeS uint32 = 51
	SimdI16x8LeU uint32 = 52
	SimdI16x8GeS uint32 = 53
	SimdI16x8GeU uint32 = 54

	SimdI32x4Eq uint32 = 55
	SimdI32x4Ne uint32 = 56
	SimdI32x4LtS uint32 = 57
	SimdI32x4LtU uint32 = 58
	SimdI32x4GtS uint32 = 59
	SimdI32x4GtU uint32 = 60
	SimdI32x4LeS uint32 = 61
	SimdI32x4LeU uint32 = 62
	SimdI32x4GeS uint32 = 63
	SimdI32x4GeU uint32 = 64

	SimdF32x4Eq uint32 = 65
	SimdF32x4Ne uint32 = 66
	SimdF32x4Lt uint32 = 67
	SimdF32x4Gt uint32 = 68
	SimdF32x4Le uint32 = 69
	SimdF32x4Ge uint32 = 70

	SimdF64x2Eq uint32 = 71
	SimdF64x2Ne uint32 = 72
	SimdF64x2Lt uint32 = 73
	SimdF64x2Gt uint32 = 74
	SimdF64x2Le uint32 = 75
	SimdF64x2Ge uint32 = 76

	SimdV128Not       uint32 = 77
	SimdV128And       uint32 = 78
	SimdV128AndNot    uint32 = 79
	SimdV128Or        uint32 = 80
	SimdV128Xor       uint32 = 81
	SimdV128Bitselect uint32 = 82
	SimdV128AnyTrue   uint32 = 83

	// simdArithBase begins this repository's own sequential allocation
	// for the arithmetic matrix (see package doc comment above).
	simdArithBase uint32 = 256
)

// Per-shape arithmetic sub-opcodes, numbered sequentially from
// simdArithBase. Order: i8x16, i16x8, i32x4, i64x2, f32x4, f64x2.
const (
	SimdI8x16Neg uint32 = simdArithBase + iota
	SimdI8x16Add
	SimdI8x16AddSatS
	SimdI8x16AddSatU
	SimdI8x16Sub
	SimdI8x16SubSatS
	SimdI8x16SubSatU
	SimdI8x16MinS
	SimdI8x16MinU
	SimdI8x16MaxS
	SimdI8x16MaxU
	SimdI8x16AllTrue

	SimdI16x8Neg
	SimdI16x8Add
	SimdI16x8AddSatS
	SimdI16x8AddSatU
	SimdI16x8Sub
	SimdI16x8SubSatS
	SimdI16x8SubSatU
	SimdI16x8Mul
	SimdI16x8MinS
	SimdI16x8MinU
	SimdI16x8MaxS
	SimdI16x8MaxU
	SimdI16x8AllTrue

	SimdI32x4Neg
	SimdI32x4Add
	SimdI32x4Sub
	SimdI32x4Mul
	SimdI32x4MinS
	SimdI32x4MinU
	SimdI32x4MaxS
	SimdI32x4MaxU
	SimdI32x4AllTrue

	SimdI64x2Neg
	SimdI64x2Add
	SimdI64x2Sub
	SimdI64x2Mul
	SimdI64x2AllTrue

	SimdF32x4Abs
	SimdF32x4Neg
	SimdF32x4Sqrt
	SimdF32x4Add
	SimdF32x4Sub
	SimdF32x4Mul
	SimdF32x4Div
	SimdF32x4Min
	SimdF32x4Max

	SimdF64x2Abs
	SimdF64x2Neg
	SimdF64x2Sqrt
	SimdF64x2Add
	SimdF64x2Sub
	SimdF64x2Mul
	SimdF64x2Div
	SimdF64x2Min
	SimdF64x2Max
)

// simdHasMemArg reports whether sub-opcode op carries a MemArg immediate
// (every load/store variant).
func simdHasMemArg(op uint32) bool {
	return op <= SimdV128Store
}

// simdHasV128Const reports whether op carries a 16-byte immediate.
func simdHasV128Const(op uint32) bool {
	return op == SimdV128Const || op == SimdI8x16Shuffle
}

// simdHasLaneIdx reports whether op carries a single lane-index byte
// immediate (extract_lane/replace_lane family).
func simdHasLaneIdx(op uint32) bool {
	return op >= SimdI8x16ExtractLaneS && op <= SimdF64x2ReplaceLane
}

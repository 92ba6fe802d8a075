package wasm

import "math"

// Value is a tagged runtime value. Numeric values are stored in Lo as raw
// bits (i32/f32 in the low 32 bits, i64/f64 filling all 64); a v128 uses
// both Lo and Hi for its 128 bits. A reference value stores its target
// store address in Lo (see RefNull/IsNull).
//
// This generalizes the teacher's flat int64 operand stack
// (vertexvm/vm.VM.stack []int64) to carry a type tag and the extra 64 bits
// a v128 needs, per SPEC_FULL.md's stack model.
type Value struct {
	Type ValueType
	Lo   uint64
	Hi   uint64
}

// refNullSentinel marks a null reference in Value.Lo.
const refNullSentinel = math.MaxUint64

// I32 constructs an i32 value.
func I32(v int32) Value { return Value{Type: ValueTypeI32, Lo: uint64(uint32(v))} }

// U32 constructs an i32 value from an unsigned bit pattern.
func U32(v uint32) Value { return Value{Type: ValueTypeI32, Lo: uint64(v)} }

// I64 constructs an i64 value.
func I64(v int64) Value { return Value{Type: ValueTypeI64, Lo: uint64(v)} }

// U64 constructs an i64 value from an unsigned bit pattern.
func U64(v uint64) Value { return Value{Type: ValueTypeI64, Lo: v} }

// F32 constructs an f32 value.
func F32(v float32) Value { return Value{Type: ValueTypeF32, Lo: uint64(math.Float32bits(v))} }

// F64 constructs an f64 value.
func F64(v float64) Value { return Value{Type: ValueTypeF64, Lo: math.Float64bits(v)} }

// V128 constructs a v128 value from its two 64-bit halves.
func V128(lo, hi uint64) Value { return Value{Type: ValueTypeV128, Lo: lo, Hi: hi} }

// RefNull constructs a null reference of the given reference type.
func RefNull(t ValueType) Value { return Value{Type: t, Lo: refNullSentinel} }

// RefFunc constructs a non-null funcref pointing at the given store address.
func RefFunc(addr int) Value { return Value{Type: ValueTypeFuncref, Lo: uint64(addr)} }

// RefExtern constructs a non-null externref pointing at the given store address.
func RefExtern(addr int) Value { return Value{Type: ValueTypeExternref, Lo: uint64(addr)} }

// IsNull reports whether a reference value is null. Only meaningful when
// Type.IsReference() is true.
func (v Value) IsNull() bool { return v.Lo == refNullSentinel }

// Addr returns the store address carried by a non-null reference value.
func (v Value) Addr() int { return int(v.Lo) }

// I32 returns the i32 interpretation of v's low bits.
func (v Value) I32() int32 { return int32(uint32(v.Lo)) }

// U32 returns the u32 interpretation of v's low bits.
func (v Value) U32() uint32 { return uint32(v.Lo) }

// I64 returns the i64 interpretation of v's bits.
func (v Value) I64() int64 { return int64(v.Lo) }

// U64 returns the u64 interpretation of v's bits.
func (v Value) U64() uint64 { return v.Lo }

// F32 returns the f32 interpretation of v's low bits.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.Lo)) }

// F64 returns the f64 interpretation of v's bits.
func (v Value) F64() float64 { return math.Float64frombits(v.Lo) }

// DefaultValue returns the zero/null value for a value type, per
// spec.md §3 ("Default value by value-type: numeric zero, v128 zero, null
// reference").
func DefaultValue(t ValueType) Value {
	switch t {
	case ValueTypeI32:
		return I32(0)
	case ValueTypeI64:
		return I64(0)
	case ValueTypeF32:
		return F32(0)
	case ValueTypeF64:
		return F64(0)
	case ValueTypeV128:
		return V128(0, 0)
	case ValueTypeFuncref, ValueTypeExternref:
		return RefNull(t)
	default:
		panic("wasm: invalid value type")
	}
}

package wasm

// ValueType is a WebAssembly value type byte, as defined by
// https://webassembly.github.io/spec/core/binary/types.html#value-types
// and the SIMD/reference-types extensions this interpreter also supports.
type ValueType byte

// Value type encoding, per the binary format.
const (
	ValueTypeI32      ValueType = 0x7F
	ValueTypeI64      ValueType = 0x7E
	ValueTypeF32      ValueType = 0x7D
	ValueTypeF64      ValueType = 0x7C
	ValueTypeV128     ValueType = 0x7B
	ValueTypeFuncref  ValueType = 0x70
	ValueTypeExternref ValueType = 0x6F
)

// IsNumeric reports whether t is one of i32/i64/f32/f64/v128.
func (t ValueType) IsNumeric() bool {
	switch t {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128:
		return true
	}
	return false
}

// IsReference reports whether t is funcref or externref.
func (t ValueType) IsReference() bool {
	return t == ValueTypeFuncref || t == ValueTypeExternref
}

func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return "invalid-valtype"
	}
}

// Mutability of a global.
type Mutability byte

const (
	Const Mutability = 0x00
	Var   Mutability = 0x01
)

// FuncType is a function signature: an ordered parameter list and an
// ordered result list.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Equal reports structural equality, used by call_indirect's runtime
// signature check.
func (f FuncType) Equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// Limits bounds the size of a table or memory.
type Limits struct {
	Min uint32
	Max uint32
	HasMax bool
}

// TableType describes a table's element type and size bounds.
type TableType struct {
	ElemType ValueType // ValueTypeFuncref or ValueTypeExternref
	Limits   Limits
}

// MemType describes a memory's size bounds, in units of 64KiB pages.
type MemType struct {
	Limits Limits
}

// PageSize is the fixed WebAssembly linear memory page size, in bytes.
const PageSize = 65536

// MaxPages is the hard cap on memory size: 4GiB of address space.
const MaxPages = 65536

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mut     Mutability
}

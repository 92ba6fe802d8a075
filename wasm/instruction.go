package wasm

// BlockKind tags how a structured instruction's type is encoded.
type BlockKind byte

const (
	BlockKindEmpty BlockKind = iota
	BlockKindValue
	BlockKindFuncType
)

// BlockType is the decoded type annotation of a block/loop/if.
type BlockType struct {
	Kind    BlockKind
	ValType ValueType
	TypeIdx uint32 // valid when Kind == BlockKindFuncType
}

// Signature resolves a block's parameter and result types against the
// enclosing module's type section (needed because BlockKindFuncType refers
// to an arbitrary multi-value signature).
func (b BlockType) Signature(types []FuncType) (params, results []ValueType) {
	switch b.Kind {
	case BlockKindEmpty:
		return nil, nil
	case BlockKindValue:
		return nil, []ValueType{b.ValType}
	case BlockKindFuncType:
		ft := types[b.TypeIdx]
		return ft.Params, ft.Results
	default:
		panic("wasm: invalid block kind")
	}
}

// MemArg is the alignment/offset pair carried by every memory load/store
// and the v128 load/store family.
type MemArg struct {
	Align  uint32
	Offset uint32
}

// Instruction is one decoded instruction in a function body's flattened
// instruction stream. Only the fields relevant to Op are populated; this
// mirrors the teacher's choice of a single dispatch loop over a uniform
// representation (vertexvm's byte-opcode switch) generalized from "opcode
// byte plus inline LEB reads" to "opcode plus pre-decoded immediates",
// per SPEC_FULL.md's decision to resolve control-flow targets at decode
// time instead of at branch time.
type Instruction struct {
	Op Opcode

	// control: block/loop/if
	Block      BlockType
	ElseTarget int // body index of the matching Else, or -1
	EndTarget  int // body index of the matching End

	// br, br_if: target label depth; br_table: depths + default
	LabelIdx uint32
	Labels   []uint32
	Default  uint32

	// call / call_indirect / ref.func
	FuncIdx uint32
	TypeIdx uint32
	TableIdx uint32

	// local.*, global.*
	Idx uint32

	// memory/table index operands used by 0xFC bulk ops, table.get/set
	MemIdx  uint32
	DataIdx uint32
	ElemIdx uint32

	Mem MemArg

	// constants
	I32Val int32
	I64Val int64
	F32Bits uint32
	F64Bits uint64

	// select (typed form)
	SelectTypes []ValueType

	// ref.null
	RefType ValueType

	// 0xFC sub-opcode
	Misc MiscOpcode

	// 0xFD (SIMD) sub-opcode and immediates
	SimdOp    uint32
	V128Const [16]byte
	Lanes     []byte // shuffle/lane-index immediates
}

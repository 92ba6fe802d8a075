package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x61, 0x73, 0x6d + 1, 0x01, 0x00, 0x00, 0x00})
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, InvalidHeader, de.Kind)
}

func TestParseRejectsBadVersion(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestParseEmptyModule(t *testing.T) {
	b := newModuleBuilder().bytes()
	m, err := Parse(b)
	require.NoError(t, err)
	require.Empty(t, m.Types)
	require.Empty(t, m.Codes)
}

func TestParseSectionOrderViolation(t *testing.T) {
	b := newModuleBuilder().
		section(secExport, u32vec(0)).
		section(secType, typeSection(nil, nil)).
		bytes()
	_, err := Parse(b)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, InvalidSectionOrder, de.Kind)
}

func TestParseFuncAndCodeCountMismatch(t *testing.T) {
	b := newModuleBuilder().
		section(secType, typeSection(nil, nil)).
		section(secFunc, funcSection(0, 0)).
		section(secCode, codeSection([]byte{byte(OpEnd)})).
		bytes()
	_, err := Parse(b)
	require.Error(t, err)
}

func TestParseSimpleAddFunction(t *testing.T) {
	// (func (param i32 i32) (result i32) local.get 0 local.get 1 i32.add)
	body := []byte{
		byte(OpLocalGet), 0x00,
		byte(OpLocalGet), 0x01,
		byte(OpI32Add),
		byte(OpEnd),
	}
	b := newModuleBuilder().
		section(secType, typeSection([]ValueType{ValueTypeI32, ValueTypeI32}, []ValueType{ValueTypeI32})).
		section(secFunc, funcSection(0)).
		section(secCode, codeSection(body)).
		bytes()

	m, err := Parse(b)
	require.NoError(t, err)
	require.Len(t, m.Types, 1)
	require.Len(t, m.Codes, 1)

	instrs := m.Codes[0].Body
	require.Len(t, instrs, 4)
	require.Equal(t, OpLocalGet, instrs[0].Op)
	require.Equal(t, uint32(0), instrs[0].Idx)
	require.Equal(t, OpLocalGet, instrs[1].Op)
	require.Equal(t, uint32(1), instrs[1].Idx)
	require.Equal(t, OpI32Add, instrs[2].Op)
	require.Equal(t, OpEnd, instrs[3].Op)
}

func TestDecodeFuncBodyResolvesIfElseEnd(t *testing.T) {
	// if (result i32) i32.const 1 else i32.const 2 end
	body := []byte{
		byte(OpI32Const), 0x00, // push a dummy condition
		byte(OpIf), byte(ValueTypeI32),
		byte(OpI32Const), 0x01,
		byte(OpElse),
		byte(OpI32Const), 0x02,
		byte(OpEnd),
		byte(OpEnd),
	}
	b := newModuleBuilder().
		section(secType, typeSection(nil, []ValueType{ValueTypeI32})).
		section(secFunc, funcSection(0)).
		section(secCode, codeSection(body)).
		bytes()

	m, err := Parse(b)
	require.NoError(t, err)

	instrs := m.Codes[0].Body
	// index 0: i32.const 0
	// index 1: if
	// index 2: i32.const 1
	// index 3: else
	// index 4: i32.const 2
	// index 5: end (matches if)
	// index 6: end (function terminator)
	require.Equal(t, OpIf, instrs[1].Op)
	require.Equal(t, 3, instrs[1].ElseTarget)
	require.Equal(t, 5, instrs[1].EndTarget)
	require.Equal(t, BlockKindValue, instrs[1].Block.Kind)
	require.Equal(t, ValueTypeI32, instrs[1].Block.ValType)
	require.Equal(t, OpElse, instrs[3].Op)
	require.Equal(t, 5, instrs[3].EndTarget)
}

func TestDecodeFuncBodyResolvesNestedBlocks(t *testing.T) {
	// block
	//   loop
	//     br 0
	//   end
	// end
	body := []byte{
		byte(OpBlock), blockTypeEmpty,
		byte(OpLoop), blockTypeEmpty,
		byte(OpBr), 0x00,
		byte(OpEnd),
		byte(OpEnd),
		byte(OpEnd),
	}
	b := newModuleBuilder().
		section(secType, typeSection(nil, nil)).
		section(secFunc, funcSection(0)).
		section(secCode, codeSection(body)).
		bytes()

	m, err := Parse(b)
	require.NoError(t, err)
	instrs := m.Codes[0].Body
	require.Equal(t, OpBlock, instrs[0].Op)
	require.Equal(t, 4, instrs[0].EndTarget)
	require.Equal(t, OpLoop, instrs[1].Op)
	require.Equal(t, 3, instrs[1].EndTarget)
	require.Equal(t, OpBr, instrs[2].Op)
	require.Equal(t, uint32(0), instrs[2].LabelIdx)
}

func TestDecodeConstExprRejectsNonConstOpcode(t *testing.T) {
	body := []byte{
		byte(OpI32Const), 0x00,
	}
	global := append([]byte{byte(ValueTypeI32), byte(Const)}, body...)
	global = append(global, byte(OpEnd))

	bad := append([]byte{byte(ValueTypeI32), byte(Const)}, byte(OpLocalGet), 0x00, byte(OpEnd))

	okBytes := u32vec(1)
	okBytes = append(okBytes, global...)
	m, err := Parse(newModuleBuilder().section(secGlobal, okBytes).bytes())
	require.NoError(t, err)
	require.Len(t, m.Globals, 1)

	badBytes := u32vec(1)
	badBytes = append(badBytes, bad...)
	_, err = Parse(newModuleBuilder().section(secGlobal, badBytes).bytes())
	require.Error(t, err)
}

func TestDecodeMemoryLoadStoreMemArg(t *testing.T) {
	body := []byte{
		byte(OpI32Const), 0x00,
		byte(OpI32Load), 0x02, 0x04, // align=2, offset=4
		byte(OpDrop),
		byte(OpEnd),
	}
	b := newModuleBuilder().
		section(secType, typeSection(nil, nil)).
		section(secFunc, funcSection(0)).
		section(secMemory, append(u32vec(1), 0x00, 0x01)).
		section(secCode, codeSection(body)).
		bytes()

	m, err := Parse(b)
	require.NoError(t, err)
	instrs := m.Codes[0].Body
	require.Equal(t, OpI32Load, instrs[1].Op)
	require.Equal(t, uint32(2), instrs[1].Mem.Align)
	require.Equal(t, uint32(4), instrs[1].Mem.Offset)
}

func TestDecodeMiscTruncSatAndBulkMemory(t *testing.T) {
	body := []byte{
		byte(OpI32Const), 0x00,
		byte(OpF32Const), 0x00, 0x00, 0x00, 0x00,
		byte(OpMiscPrefix), byte(MiscI32TruncSatF32S),
		byte(OpDrop),
		byte(OpMiscPrefix), byte(MiscMemoryFill), 0x00,
		byte(OpEnd),
	}
	b := newModuleBuilder().
		section(secType, typeSection(nil, nil)).
		section(secFunc, funcSection(0)).
		section(secMemory, append(u32vec(1), 0x00, 0x01)).
		section(secCode, codeSection(body)).
		bytes()

	m, err := Parse(b)
	require.NoError(t, err)
	instrs := m.Codes[0].Body
	require.Equal(t, OpMiscPrefix, instrs[2].Op)
	require.Equal(t, MiscI32TruncSatF32S, instrs[2].Misc)
	require.Equal(t, OpMiscPrefix, instrs[4].Op)
	require.Equal(t, MiscMemoryFill, instrs[4].Misc)
}

func TestDecodeSimdV128Const(t *testing.T) {
	v128bytes := make([]byte, 16)
	for i := range v128bytes {
		v128bytes[i] = byte(i)
	}
	body := append([]byte{byte(OpSimdPrefix), byte(SimdV128Const)}, v128bytes...)
	body = append(body, byte(OpDrop), byte(OpEnd))

	b := newModuleBuilder().
		section(secType, typeSection(nil, nil)).
		section(secFunc, funcSection(0)).
		section(secCode, codeSection(body)).
		bytes()

	m, err := Parse(b)
	require.NoError(t, err)
	instrs := m.Codes[0].Body
	require.Equal(t, OpSimdPrefix, instrs[0].Op)
	require.Equal(t, SimdV128Const, instrs[0].SimdOp)
	require.Equal(t, v128bytes, instrs[0].V128Const[:])
}

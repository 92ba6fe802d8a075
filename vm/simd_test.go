package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/friendlymatthew/whale/store"
	"github.com/friendlymatthew/whale/wasm"
)

func TestSimdSplatAddExtractLane(t *testing.T) {
	body := []wasm.Instruction{
		{Op: wasm.OpI32Const, I32Val: 5},
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdI32x4Splat},
		{Op: wasm.OpI32Const, I32Val: 3},
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdI32x4Splat},
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdI32x4Add},
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdI32x4ExtractLane, Lanes: []byte{0}},
		{Op: wasm.OpEnd},
	}
	m := &wasm.Module{
		Types:        []wasm.FuncType{{Results: []wasm.ValueType{wasm.ValueTypeI32}}},
		FuncTypeIdxs: []uint32{0},
		Codes:        []wasm.Code{{Body: body}},
		Exports:      []wasm.Export{{Name: "f", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	inst, err := store.Instantiate(s, m, nil, nil)
	require.NoError(t, err)

	v := New(s)
	ev, _ := s.ReadExport(inst, "f")
	res, err := v.Invoke(ev.Addr, nil)
	require.NoError(t, err)
	require.Equal(t, int32(8), res[0].I32())
}

func TestSimdV128ConstAndCompare(t *testing.T) {
	var bits [16]byte
	for i := range bits {
		bits[i] = byte(i)
	}
	body := []wasm.Instruction{
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdV128Const, V128Const: bits},
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdV128Const, V128Const: bits},
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdI8x16Eq},
		{Op: wasm.OpSimdPrefix, SimdOp: wasm.SimdV128AnyTrue},
		{Op: wasm.OpEnd},
	}
	m := &wasm.Module{
		Types:        []wasm.FuncType{{Results: []wasm.ValueType{wasm.ValueTypeI32}}},
		FuncTypeIdxs: []uint32{0},
		Codes:        []wasm.Code{{Body: body}},
		Exports:      []wasm.Export{{Name: "f", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	inst, err := store.Instantiate(s, m, nil, nil)
	require.NoError(t, err)

	v := New(s)
	ev, _ := s.ReadExport(inst, "f")
	res, err := v.Invoke(ev.Addr, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), res[0].I32())
}

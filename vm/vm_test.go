package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/friendlymatthew/whale/store"
	"github.com/friendlymatthew/whale/wasm"
)

func i32ft(params, results int) wasm.FuncType {
	ft := wasm.FuncType{}
	for i := 0; i < params; i++ {
		ft.Params = append(ft.Params, wasm.ValueTypeI32)
	}
	for i := 0; i < results; i++ {
		ft.Results = append(ft.Results, wasm.ValueTypeI32)
	}
	return ft
}

func TestInvokeAdd(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{i32ft(2, 1)},
		FuncTypeIdxs: []uint32{0},
		Codes: []wasm.Code{{Body: []wasm.Instruction{
			{Op: wasm.OpLocalGet, Idx: 0},
			{Op: wasm.OpLocalGet, Idx: 1},
			{Op: wasm.OpI32Add},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	inst, err := store.Instantiate(s, m, nil, nil)
	require.NoError(t, err)

	v := New(s)
	ev, ok := s.ReadExport(inst, "add")
	require.True(t, ok)
	res, err := v.Invoke(ev.Addr, []wasm.Value{wasm.I32(3), wasm.I32(4)})
	require.NoError(t, err)
	require.Equal(t, int32(7), res[0].I32())
}

func TestInvokeDivByZeroTraps(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{i32ft(2, 1)},
		FuncTypeIdxs: []uint32{0},
		Codes: []wasm.Code{{Body: []wasm.Instruction{
			{Op: wasm.OpLocalGet, Idx: 0},
			{Op: wasm.OpLocalGet, Idx: 1},
			{Op: wasm.OpI32DivS},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "div", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	inst, err := store.Instantiate(s, m, nil, nil)
	require.NoError(t, err)

	v := New(s)
	ev, _ := s.ReadExport(inst, "div")
	_, err = v.Invoke(ev.Addr, []wasm.Value{wasm.I32(1), wasm.I32(0)})
	require.Error(t, err)
	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, DivByZero, trap.Kind)
}

func TestInvokeIndirectCall(t *testing.T) {
	addType := i32ft(2, 1)
	m := &wasm.Module{
		Types:        []wasm.FuncType{addType},
		FuncTypeIdxs: []uint32{0},
		Tables:       []wasm.TableType{{ElemType: wasm.ValueTypeFuncref, Limits: wasm.Limits{Min: 1}}},
		Elements: []wasm.Element{{
			TableIdx: 0,
			Offset:   []wasm.Instruction{{Op: wasm.OpI32Const, I32Val: 0}, {Op: wasm.OpEnd}},
			FuncIdxs: []uint32{0},
		}},
		Codes: []wasm.Code{{Body: []wasm.Instruction{
			{Op: wasm.OpLocalGet, Idx: 0},
			{Op: wasm.OpLocalGet, Idx: 1},
			{Op: wasm.OpI32Add},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	inst, err := store.Instantiate(s, m, nil, nil)
	require.NoError(t, err)

	v := New(s)
	tableAddr := inst.Tables[0]
	ref := s.Tables[tableAddr].Elements[0]
	require.False(t, ref.IsNull())

	callerBody := []wasm.Instruction{
		{Op: wasm.OpI32Const, I32Val: 10},
		{Op: wasm.OpI32Const, I32Val: 32},
		{Op: wasm.OpI32Const, I32Val: 0},
		{Op: wasm.OpCallIndirect, TypeIdx: 0, TableIdx: 0},
		{Op: wasm.OpEnd},
	}
	callerAddr := s.AllocateFunction(i32ft(0, 1), 0, nil, callerBody)
	res, err := v.Invoke(callerAddr, nil)
	require.NoError(t, err)
	require.Equal(t, int32(42), res[0].I32())
}

func TestMemoryGrowth(t *testing.T) {
	m := &wasm.Module{
		Mems: []wasm.MemType{{Limits: wasm.Limits{Min: 1, HasMax: true, Max: 2}}},
		Codes: []wasm.Code{{Body: []wasm.Instruction{
			{Op: wasm.OpI32Const, I32Val: 1},
			{Op: wasm.OpMemoryGrow},
			{Op: wasm.OpEnd},
		}}},
		Types:        []wasm.FuncType{i32ft(0, 1)},
		FuncTypeIdxs: []uint32{0},
		Exports:      []wasm.Export{{Name: "grow", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	inst, err := store.Instantiate(s, m, nil, nil)
	require.NoError(t, err)

	v := New(s)
	ev, _ := s.ReadExport(inst, "grow")
	res, err := v.Invoke(ev.Addr, nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), res[0].I32())

	memAddr := inst.Mems[0]
	require.Equal(t, 2, s.Memories[memAddr].Pages())

	res, err = v.Invoke(ev.Addr, nil)
	require.NoError(t, err)
	require.Equal(t, int32(-1), res[0].I32())
}

func TestHostImportInvocation(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{i32ft(1, 1)},
		Imports:      []wasm.Import{{Module: "env", Name: "double", Desc: wasm.ImportDesc{Kind: wasm.ExternalFunction, TypeIdx: 0}}},
		FuncTypeIdxs: nil,
		Exports:      []wasm.Export{{Name: "double", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	hostAddr := s.AllocateHostFunction(i32ft(1, 1), func(args []wasm.Value) ([]wasm.Value, error) {
		return []wasm.Value{wasm.I32(args[0].I32() * 2)}, nil
	})
	imports := []store.Import{{Module: "env", Name: "double", Value: store.ExternalValue{Kind: wasm.ExternalFunction, Addr: hostAddr}}}

	inst, err := store.Instantiate(s, m, imports, nil)
	require.NoError(t, err)

	v := New(s)
	ev, _ := s.ReadExport(inst, "double")
	res, err := v.Invoke(ev.Addr, []wasm.Value{wasm.I32(21)})
	require.NoError(t, err)
	require.Equal(t, int32(42), res[0].I32())
}

func TestStartFunctionTrapPropagates(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{i32ft(0, 0)},
		FuncTypeIdxs: []uint32{0},
		Codes: []wasm.Code{{Body: []wasm.Instruction{
			{Op: wasm.OpUnreachable},
			{Op: wasm.OpEnd},
		}}},
		HasStart:     true,
		StartFuncIdx: 0,
	}
	s := store.New()
	v := New(s)
	_, err := store.Instantiate(s, m, nil, v.StartInvoker())
	require.Error(t, err)
	var le *store.LinkError
	require.ErrorAs(t, err, &le)
	require.Equal(t, store.StartTrap, le.Kind)
}

func TestStackDisciplineNestedBlocksRestoreDepth(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{i32ft(0, 1)},
		FuncTypeIdxs: []uint32{0},
		Codes: []wasm.Code{{Body: []wasm.Instruction{
			{Op: wasm.OpI32Const, I32Val: 1},
			{Op: wasm.OpBlock, Block: wasm.BlockType{Kind: wasm.BlockKindEmpty}, ElseTarget: -1, EndTarget: 4},
			{Op: wasm.OpI32Const, I32Val: 2},
			{Op: wasm.OpDrop},
			{Op: wasm.OpEnd},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "f", Kind: wasm.ExternalFunction, Idx: 0}},
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

func TestIfElseTrueConditionFallsThroughToEnd(t *testing.T) {
	// if (result i32) i32.const 10 else i32.const 20 end, condition true.
	// Indices: 0 const-cond, 1 if, 2 const-10, 3 else, 4 const-20, 5 end(if), 6 end(func).
	// ElseTarget/EndTarget mirror what decodeInstrSeq now produces: the If's
	// own slot gets both, and the Else pseudo-instruction's slot is
	// backfilled with the same EndTarget so falling through a true
	// then-branch lands past the matching end instead of back into Else.
	body := []wasm.Instruction{
		{Op: wasm.OpI32Const, I32Val: 1},
		{Op: wasm.OpIf, Block: wasm.BlockType{Kind: wasm.BlockKindValue, ValType: wasm.ValueTypeI32}, ElseTarget: 3, EndTarget: 5},
		{Op: wasm.OpI32Const, I32Val: 10},
		{Op: wasm.OpElse, EndTarget: 5},
		{Op: wasm.OpI32Const, I32Val: 20},
		{Op: wasm.OpEnd},
		{Op: wasm.OpEnd},
	}
	m := &wasm.Module{
		Types:        []wasm.FuncType{i32ft(0, 1)},
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
	require.Equal(t, int32(10), res[0].I32())
}

func TestMeteredGasPolicyExhausts(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{i32ft(0, 1)},
		FuncTypeIdxs: []uint32{0},
		Codes: []wasm.Code{{Body: []wasm.Instruction{
			{Op: wasm.OpI32Const, I32Val: 1},
			{Op: wasm.OpI32Const, I32Val: 2},
			{Op: wasm.OpI32Add},
			{Op: wasm.OpEnd},
		}}},
		Exports: []wasm.Export{{Name: "f", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := store.New()
	inst, err := store.Instantiate(s, m, nil, nil)
	require.NoError(t, err)

	v := NewMetered(s, MeteredGasPolicy{}, 2)
	ev, _ := s.ReadExport(inst, "f")
	_, err = v.Invoke(ev.Addr, nil)
	require.Error(t, err)
	var trap *Trap
	require.ErrorAs(t, err, &trap)
	require.Equal(t, OutOfGas, trap.Kind)
}

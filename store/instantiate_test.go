package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/friendlymatthew/whale/wasm"
)

func addFuncType() wasm.FuncType {
	return wasm.FuncType{
		Params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
		Results: []wasm.ValueType{wasm.ValueTypeI32},
	}
}

func addModule() *wasm.Module {
	return &wasm.Module{
		Types:        []wasm.FuncType{addFuncType()},
		FuncTypeIdxs: []uint32{0},
		Codes: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.OpLocalGet, Idx: 0},
				{Op: wasm.OpLocalGet, Idx: 1},
				{Op: wasm.OpI32Add},
				{Op: wasm.OpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExternalFunction, Idx: 0}},
	}
}

func TestInstantiateWithNoImports(t *testing.T) {
	s := New()
	inst, err := Instantiate(s, addModule(), nil, nil)
	require.NoError(t, err)
	require.Len(t, inst.Funcs, 1)
	ev, ok := inst.Exports["add"]
	require.True(t, ok)
	require.Equal(t, wasm.ExternalFunction, ev.Kind)
}

func TestInstantiateMissingImport(t *testing.T) {
	m := addModule()
	m.Imports = []wasm.Import{{
		Module: "env",
		Name:   "missing",
		Desc:   wasm.ImportDesc{Kind: wasm.ExternalFunction, TypeIdx: 0},
	}}
	s := New()
	_, err := Instantiate(s, m, nil, nil)
	require.Error(t, err)
	var le *LinkError
	require.ErrorAs(t, err, &le)
	require.Equal(t, MissingImport, le.Kind)
}

func TestInstantiateImportSignatureMismatch(t *testing.T) {
	m := addModule()
	m.Imports = []wasm.Import{{
		Module: "env",
		Name:   "f",
		Desc:   wasm.ImportDesc{Kind: wasm.ExternalFunction, TypeIdx: 0},
	}}
	s := New()
	wrongType := wasm.FuncType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	hostAddr := s.AllocateHostFunction(wrongType, func(args []wasm.Value) ([]wasm.Value, error) {
		return nil, nil
	})
	imports := []Import{{Module: "env", Name: "f", Value: ExternalValue{Kind: wasm.ExternalFunction, Addr: hostAddr}}}
	_, err := Instantiate(s, m, imports, nil)
	require.Error(t, err)
	var le *LinkError
	require.ErrorAs(t, err, &le)
	require.Equal(t, ImportTypeMismatch, le.Kind)
}

func TestInstantiateResolvesHostImport(t *testing.T) {
	m := &wasm.Module{
		Types:        []wasm.FuncType{{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}},
		Imports:      []wasm.Import{{Module: "env", Name: "add1", Desc: wasm.ImportDesc{Kind: wasm.ExternalFunction, TypeIdx: 0}}},
		FuncTypeIdxs: nil,
		Exports:      []wasm.Export{{Name: "add1", Kind: wasm.ExternalFunction, Idx: 0}},
	}
	s := New()
	ft := wasm.FuncType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}
	hostAddr := s.AllocateHostFunction(ft, func(args []wasm.Value) ([]wasm.Value, error) {
		return []wasm.Value{wasm.I32(args[0].I32() + 1)}, nil
	})
	imports := []Import{{Module: "env", Name: "add1", Value: ExternalValue{Kind: wasm.ExternalFunction, Addr: hostAddr}}}

	inst, err := Instantiate(s, m, imports, nil)
	require.NoError(t, err)
	require.Equal(t, hostAddr, inst.Funcs[0])

	res, err := s.Functions[hostAddr].Host([]wasm.Value{wasm.I32(9)})
	require.NoError(t, err)
	require.Equal(t, int32(10), res[0].I32())
}

func TestInstantiateActiveElementSegmentOutOfBounds(t *testing.T) {
	m := addModule()
	m.Tables = []wasm.TableType{{ElemType: wasm.ValueTypeFuncref, Limits: wasm.Limits{Min: 1}}}
	m.Elements = []wasm.Element{{
		TableIdx: 0,
		Offset:   []wasm.Instruction{{Op: wasm.OpI32Const, I32Val: 5}, {Op: wasm.OpEnd}},
		FuncIdxs: []uint32{0},
	}}
	s := New()
	_, err := Instantiate(s, m, nil, nil)
	require.Error(t, err)
	var le *LinkError
	require.ErrorAs(t, err, &le)
	require.Equal(t, SegmentOutOfBounds, le.Kind)
}

func TestInstantiateActiveDataSegment(t *testing.T) {
	m := addModule()
	m.Mems = []wasm.MemType{{Limits: wasm.Limits{Min: 1}}}
	m.Datas = []wasm.Data{{
		MemIdx: 0,
		Offset: []wasm.Instruction{{Op: wasm.OpI32Const, I32Val: 0}, {Op: wasm.OpEnd}},
		Init:   []byte("hi"),
	}}
	s := New()
	inst, err := Instantiate(s, m, nil, nil)
	require.NoError(t, err)
	memAddr := inst.Mems[0]
	require.Equal(t, []byte("hi"), s.Memories[memAddr].Bytes[:2])
}

func TestInstantiateStartFunctionTrap(t *testing.T) {
	m := addModule()
	m.HasStart = true
	m.StartFuncIdx = 0
	s := New()
	boom := func(s *Store, addr int) error {
		return require.AnError
	}
	_, err := Instantiate(s, m, nil, StartInvoker(boom))
	require.Error(t, err)
	var le *LinkError
	require.ErrorAs(t, err, &le)
	require.Equal(t, StartTrap, le.Kind)
}

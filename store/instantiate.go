package store

import (
	"github.com/friendlymatthew/whale/wasm"
)

// Import is one caller-supplied resolved import: the (module, name) pair the
// embedder is offering, bound to an already-allocated Store address of the
// matching kind (a host function via AllocateHostFunction, a table via
// AllocateTable, etc).
type Import struct {
	Module string
	Name   string
	Value  ExternalValue
}

// StartInvoker is supplied by the execution engine (package vm) so that
// Instantiate can run a module's start function without the store package
// importing vm — avoiding the import cycle store ↔ vm would otherwise
// require, per spec.md §9's layering (store only knows addresses; the
// engine knows how to run them).
type StartInvoker func(s *Store, funcAddr int) error

// Instantiate implements spec.md §4.4: resolve imports, allocate
// module-declared functions/tables/memories/globals/elements/data, wire
// exports, initialize active segments, and run the start function if any.
func Instantiate(s *Store, m *wasm.Module, imports []Import, start StartInvoker) (*ModuleInstance, error) {
	inst := &ModuleInstance{
		Types:   m.Types,
		Exports: make(map[string]ExternalValue, len(m.Exports)),
	}

	if err := resolveImports(s, m, imports, inst); err != nil {
		return nil, err
	}

	allocateDeclaredFunctions(s, m, inst)
	allocateDeclaredTables(s, m, inst)
	allocateDeclaredMemories(s, m, inst)

	if err := allocateGlobals(s, m, inst); err != nil {
		return nil, err
	}

	elemRefs, err := computeElementRefs(s, m, inst)
	if err != nil {
		return nil, err
	}
	for i := range m.Elements {
		inst.Elems = append(inst.Elems, s.AllocateElementSegment(wasm.ValueTypeFuncref, elemRefs[i]))
	}

	for _, d := range m.Datas {
		inst.Datas = append(inst.Datas, s.AllocateDataSegment(d.Init))
	}

	wireExports(m, inst)

	if err := initActiveElements(s, m, inst); err != nil {
		return nil, err
	}
	if err := initActiveData(s, m, inst); err != nil {
		return nil, err
	}

	s.Modules = append(s.Modules, inst)

	if m.HasStart {
		if start == nil {
			return nil, NewLinkError(StartTrap, "module declares a start function but no invoker was supplied")
		}
		funcAddr := inst.Funcs[m.StartFuncIdx]
		if err := start(s, funcAddr); err != nil {
			return nil, NewLinkError(StartTrap, err.Error())
		}
	}

	return inst, nil
}

func resolveImports(s *Store, m *wasm.Module, imports []Import, inst *ModuleInstance) error {
	for _, imp := range m.Imports {
		var matched *Import
		for i := range imports {
			cand := &imports[i]
			if cand.Module == imp.Module && cand.Name == imp.Name {
				if matched != nil {
					return NewLinkError(AmbiguousImport, imp.Module+"."+imp.Name)
				}
				matched = cand
			}
		}
		if matched == nil {
			return NewLinkError(MissingImport, imp.Module+"."+imp.Name)
		}
		if matched.Value.Kind != imp.Desc.Kind {
			return NewLinkError(ImportTypeMismatch, imp.Module+"."+imp.Name)
		}
		if err := checkImportDescMatch(s, m, imp, matched.Value); err != nil {
			return err
		}

		switch imp.Desc.Kind {
		case wasm.ExternalFunction:
			inst.Funcs = append(inst.Funcs, matched.Value.Addr)
		case wasm.ExternalTable:
			inst.Tables = append(inst.Tables, matched.Value.Addr)
		case wasm.ExternalMemory:
			inst.Mems = append(inst.Mems, matched.Value.Addr)
		case wasm.ExternalGlobal:
			inst.Globals = append(inst.Globals, matched.Value.Addr)
		}
	}
	return nil
}

func checkImportDescMatch(s *Store, m *wasm.Module, imp wasm.Import, ev ExternalValue) error {
	switch imp.Desc.Kind {
	case wasm.ExternalFunction:
		actual := s.Functions[ev.Addr].Type
		want := m.Types[imp.Desc.TypeIdx]
		if !actual.Equal(want) {
			return NewLinkError(ImportTypeMismatch, imp.Module+"."+imp.Name+": function signature")
		}
		return nil
	case wasm.ExternalTable:
		actual := s.Tables[ev.Addr].Type
		want := *imp.Desc.Table
		if actual.ElemType != want.ElemType {
			return NewLinkError(ImportTypeMismatch, imp.Module+"."+imp.Name+": table element type")
		}
		if !limitsCompatible(actual.Limits, want.Limits) {
			return NewLinkError(ImportTypeMismatch, imp.Module+"."+imp.Name+": table limits")
		}
	case wasm.ExternalMemory:
		actual := s.Memories[ev.Addr].Type
		want := *imp.Desc.Mem
		if !limitsCompatible(actual.Limits, want.Limits) {
			return NewLinkError(ImportTypeMismatch, imp.Module+"."+imp.Name+": memory limits")
		}
	case wasm.ExternalGlobal:
		actual := s.Globals[ev.Addr].Type
		want := *imp.Desc.Global
		if actual.ValType != want.ValType || actual.Mut != want.Mut {
			return NewLinkError(ImportTypeMismatch, imp.Module+"."+imp.Name+": global type")
		}
	}
	return nil
}

// limitsCompatible reports whether an actual limits value satisfies an
// imported declaration's requested limits (the usual subtyping rule:
// actual.min must be at least as large, and if the import demands a max,
// the actual must also have one that is no larger).
func limitsCompatible(actual, want wasm.Limits) bool {
	if actual.Min < want.Min {
		return false
	}
	if want.HasMax {
		if !actual.HasMax || actual.Max > want.Max {
			return false
		}
	}
	return true
}

func allocateDeclaredFunctions(s *Store, m *wasm.Module, inst *ModuleInstance) {
	modAddr := len(s.Modules) // this instance's eventual address in s.Modules
	for i, typeIdx := range m.FuncTypeIdxs {
		code := m.Codes[i]
		addr := s.AllocateFunction(m.Types[typeIdx], modAddr, code.Locals, code.Body)
		inst.Funcs = append(inst.Funcs, addr)
	}
}

func allocateDeclaredTables(s *Store, m *wasm.Module, inst *ModuleInstance) {
	for _, t := range m.Tables {
		addr := s.AllocateTable(t, wasm.RefNull(t.ElemType))
		inst.Tables = append(inst.Tables, addr)
	}
}

func allocateDeclaredMemories(s *Store, m *wasm.Module, inst *ModuleInstance) {
	for _, mt := range m.Mems {
		addr := s.AllocateMemory(mt)
		inst.Mems = append(inst.Mems, addr)
	}
}

func allocateGlobals(s *Store, m *wasm.Module, inst *ModuleInstance) error {
	for _, g := range m.Globals {
		v, err := evalConstExpr(s, inst, g.Init)
		if err != nil {
			return err
		}
		addr := s.AllocateGlobal(g.Type, v)
		inst.Globals = append(inst.Globals, addr)
	}
	return nil
}

func computeElementRefs(s *Store, m *wasm.Module, inst *ModuleInstance) ([][]wasm.Value, error) {
	out := make([][]wasm.Value, len(m.Elements))
	for i, e := range m.Elements {
		refs := make([]wasm.Value, len(e.FuncIdxs))
		for j, fidx := range e.FuncIdxs {
			refs[j] = wasm.RefFunc(inst.Funcs[fidx])
		}
		out[i] = refs
	}
	return out, nil
}

func wireExports(m *wasm.Module, inst *ModuleInstance) {
	for _, ex := range m.Exports {
		var addr int
		switch ex.Kind {
		case wasm.ExternalFunction:
			addr = inst.Funcs[ex.Idx]
		case wasm.ExternalTable:
			addr = inst.Tables[ex.Idx]
		case wasm.ExternalMemory:
			addr = inst.Mems[ex.Idx]
		case wasm.ExternalGlobal:
			addr = inst.Globals[ex.Idx]
		}
		inst.Exports[ex.Name] = ExternalValue{Kind: ex.Kind, Addr: addr}
	}
}

func initActiveElements(s *Store, m *wasm.Module, inst *ModuleInstance) error {
	for i, e := range m.Elements {
		offVal, err := evalConstExpr(s, inst, e.Offset)
		if err != nil {
			return err
		}
		off := int(offVal.I32())
		tableAddr := inst.Tables[e.TableIdx]
		table := &s.Tables[tableAddr]
		elemAddr := inst.Elems[i]
		elem := &s.Elements[elemAddr]

		if off < 0 || off+len(elem.Refs) > len(table.Elements) {
			return NewLinkError(SegmentOutOfBounds, "element segment does not fit in table")
		}
		copy(table.Elements[off:], elem.Refs)
		elem.Dropped = true
	}
	return nil
}

func initActiveData(s *Store, m *wasm.Module, inst *ModuleInstance) error {
	for i, d := range m.Datas {
		offVal, err := evalConstExpr(s, inst, d.Offset)
		if err != nil {
			return err
		}
		off := int(offVal.I32())
		memAddr := inst.Mems[d.MemIdx]
		mem := &s.Memories[memAddr]
		dataAddr := inst.Datas[i]
		data := &s.Datas[dataAddr]

		if off < 0 || off+len(data.Bytes) > len(mem.Bytes) {
			return NewLinkError(SegmentOutOfBounds, "data segment does not fit in memory")
		}
		copy(mem.Bytes[off:], data.Bytes)
		data.Dropped = true
	}
	return nil
}

// evalConstExpr evaluates a constant initializer expression: the restricted
// grammar decoded by wasm.decodeConstExpr (numeric consts, global.get of an
// already-imported global, ref.null, ref.func), per spec.md §4.4 step 6/7.
func evalConstExpr(s *Store, inst *ModuleInstance, expr []wasm.Instruction) (wasm.Value, error) {
	for _, instr := range expr {
		switch instr.Op {
		case wasm.OpI32Const:
			return wasm.I32(instr.I32Val), nil
		case wasm.OpI64Const:
			return wasm.I64(instr.I64Val), nil
		case wasm.OpF32Const:
			return wasm.Value{Type: wasm.ValueTypeF32, Lo: uint64(instr.F32Bits)}, nil
		case wasm.OpF64Const:
			return wasm.Value{Type: wasm.ValueTypeF64, Lo: instr.F64Bits}, nil
		case wasm.OpGlobalGet:
			addr := inst.Globals[instr.Idx]
			return s.Globals[addr].Value, nil
		case wasm.OpRefNull:
			return wasm.RefNull(instr.RefType), nil
		case wasm.OpRefFunc:
			return wasm.RefFunc(inst.Funcs[instr.FuncIdx]), nil
		case wasm.OpEnd:
			continue
		}
	}
	return wasm.Value{}, NewLinkError(ImportTypeMismatch, "empty constant expression")
}

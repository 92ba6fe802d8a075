// Package store implements the runtime heap of a WebAssembly embedder: the
// append-only instance arrays described by spec.md §3/§4.3, and the
// instantiation algorithm of §4.4 that populates them from a decoded
// wasm.Module plus caller-supplied imports.
//
// This generalizes the teacher's single in-process VM (which kept one
// module's functions/globals as plain slices on the VM struct itself,
// vertexvm/vm.VM) into a shared, addressable store so that more than one
// module instance can coexist and reference each other's exports, per
// spec.md §3's "Store ... addressed by stable indices" and §9's
// self-referential instance graph design note.
package store

import (
	"github.com/friendlymatthew/whale/wasm"
)

// FunctionInstance is either a Local function (backed by a decoded body in
// some ModuleInstance) or a Host function (backed by a Go callback).
type FunctionInstance struct {
	Type wasm.FuncType

	// Local function fields. ModInst is the owning instance's address into
	// Store.Modules, resolved lazily so Store.Instantiate can construct a
	// FunctionInstance before the owning ModuleInstance itself is finished
	// (locals/body reference the instance that is still being built).
	IsHost   bool
	ModInst  int
	Locals   []wasm.LocalDecl
	Body     []wasm.Instruction

	// Host callback. Accepts the popped argument Values and returns result
	// Values or a trap-producing error.
	Host HostFunc
}

// HostFunc is the embedder-supplied callback behind a Host FunctionInstance,
// per spec.md §9 ("closures for host functions").
type HostFunc func(args []wasm.Value) ([]wasm.Value, error)

// TableInstance is a growable vector of reference values.
type TableInstance struct {
	Type     wasm.TableType
	Elements []wasm.Value
}

// MemoryInstance is a growable byte buffer, always a whole number of
// 64KiB pages.
type MemoryInstance struct {
	Type  wasm.MemType
	Bytes []byte
}

// Pages returns the current size of m in 64KiB pages.
func (m *MemoryInstance) Pages() int {
	return len(m.Bytes) / wasm.PageSize
}

// GlobalInstance is a single mutable-or-constant storage cell.
type GlobalInstance struct {
	Type  wasm.GlobalType
	Value wasm.Value
}

// ElementInstance carries an element segment's function references after
// instantiation. Dropped (emptied) by elem.drop or by consumption during
// active initialization.
type ElementInstance struct {
	RefType wasm.ValueType
	Refs    []wasm.Value
	Dropped bool
}

// DataInstance carries a data segment's bytes after instantiation. Dropped
// by data.drop or by consumption during active initialization.
type DataInstance struct {
	Bytes   []byte
	Dropped bool
}

// ExternalValue is a tagged reference to one exported item, as returned by
// ReadExport.
type ExternalValue struct {
	Kind    wasm.ExternalKind
	Addr    int
}

// ModuleInstance is the per-instantiation record described by spec.md §3:
// the module's function types plus address lists into the Store's arrays
// (imports first, then module-declared items, so binary-format indices
// resolve correctly), plus the resolved export table.
type ModuleInstance struct {
	Types   []wasm.FuncType
	Funcs   []int
	Tables  []int
	Mems    []int
	Globals []int
	Elems   []int
	Datas   []int
	Exports map[string]ExternalValue
}

// Store owns the six append-only instance arrays plus the arena of
// ModuleInstances, per spec.md §3 and §9's "store module instances in
// their own append-only arena" note.
type Store struct {
	Functions []FunctionInstance
	Tables    []TableInstance
	Memories  []MemoryInstance
	Globals   []GlobalInstance
	Elements  []ElementInstance
	Datas     []DataInstance
	Modules   []*ModuleInstance
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// AllocateFunction stores a local function instance and returns its address.
func (s *Store) AllocateFunction(ft wasm.FuncType, modInst int, locals []wasm.LocalDecl, body []wasm.Instruction) int {
	addr := len(s.Functions)
	s.Functions = append(s.Functions, FunctionInstance{
		Type:    ft,
		ModInst: modInst,
		Locals:  locals,
		Body:    body,
	})
	return addr
}

// AllocateHostFunction stores a host function instance and returns its
// address.
func (s *Store) AllocateHostFunction(ft wasm.FuncType, fn HostFunc) int {
	addr := len(s.Functions)
	s.Functions = append(s.Functions, FunctionInstance{Type: ft, IsHost: true, Host: fn})
	return addr
}

// AllocateTable creates a table of type.Limits.Min elements, each set to
// initRef, and returns its address.
func (s *Store) AllocateTable(t wasm.TableType, initRef wasm.Value) int {
	elems := make([]wasm.Value, t.Limits.Min)
	for i := range elems {
		elems[i] = initRef
	}
	addr := len(s.Tables)
	s.Tables = append(s.Tables, TableInstance{Type: t, Elements: elems})
	return addr
}

// AllocateMemory creates a zero-filled memory of type.Limits.Min pages and
// returns its address.
func (s *Store) AllocateMemory(t wasm.MemType) int {
	addr := len(s.Memories)
	s.Memories = append(s.Memories, MemoryInstance{
		Type:  t,
		Bytes: make([]byte, int(t.Limits.Min)*wasm.PageSize),
	})
	return addr
}

// AllocateGlobal stores a pre-evaluated global value and returns its
// address.
func (s *Store) AllocateGlobal(t wasm.GlobalType, v wasm.Value) int {
	addr := len(s.Globals)
	s.Globals = append(s.Globals, GlobalInstance{Type: t, Value: v})
	return addr
}

// AllocateElementSegment stores a live (not dropped) element segment and
// returns its address.
func (s *Store) AllocateElementSegment(refType wasm.ValueType, refs []wasm.Value) int {
	addr := len(s.Elements)
	s.Elements = append(s.Elements, ElementInstance{RefType: refType, Refs: refs})
	return addr
}

// AllocateDataSegment stores a live (not dropped) data segment and returns
// its address.
func (s *Store) AllocateDataSegment(b []byte) int {
	addr := len(s.Datas)
	s.Datas = append(s.Datas, DataInstance{Bytes: b})
	return addr
}

// ReadExport resolves name against inst's export table.
func (s *Store) ReadExport(inst *ModuleInstance, name string) (ExternalValue, bool) {
	ev, ok := inst.Exports[name]
	return ev, ok
}

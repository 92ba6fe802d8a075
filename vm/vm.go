// Package vm implements the execution engine of spec.md §4.5: a stack
// machine that runs a decoded function body against a store.Store,
// producing result values or a Trap.
//
// The teacher (vertexvm/vm.VM) threads one explicit frame/block array
// through a single dispatch loop over raw bytes. This engine keeps the same
// "one dispatch loop, explicit label stack" shape per function activation,
// but represents an activation as a Go call (vm.invokeFuncAddr recurses for
// call/call_indirect) instead of a manually managed frame array — the
// language's own call stack plays the role of spec.md §4.5's activation
// stack, which the design notes (§9) call an equally valid representation.
package vm

import (
	"github.com/friendlymatthew/whale/store"
	"github.com/friendlymatthew/whale/wasm"
)

// VM runs function bodies against a shared store.
type VM struct {
	Store   *store.Store
	Gas     GasPolicy
	Used    uint64
	GasCap  uint64 // 0 means unlimited
	depth   int
}

const maxCallDepth = 1 << 16

// New returns a VM with a FreeGasPolicy and no gas cap.
func New(s *store.Store) *VM {
	return &VM{Store: s, Gas: FreeGasPolicy{}}
}

// NewMetered returns a VM charging policy p against a fixed budget cap
// (0 = unlimited).
func NewMetered(s *store.Store, p GasPolicy, cap uint64) *VM {
	return &VM{Store: s, Gas: p, GasCap: cap}
}

// Invoke implements spec.md §4.5's invoke(function_addr, args): checks
// arity/argument types, runs the function, and returns its results or a
// Trap/InvokeError.
func (vm *VM) Invoke(funcAddr int, args []wasm.Value) ([]wasm.Value, error) {
	if funcAddr < 0 || funcAddr >= len(vm.Store.Functions) {
		return nil, NewInvokeError(UnknownFunction, "no function at that address")
	}
	fi := vm.Store.Functions[funcAddr]
	if len(args) != len(fi.Type.Params) {
		return nil, NewInvokeError(ArgumentArityMismatch, "")
	}
	for i, a := range args {
		if a.Type != fi.Type.Params[i] {
			return nil, NewInvokeError(ArgumentTypeMismatch, "")
		}
	}
	return vm.invokeFuncAddr(funcAddr, args)
}

// StartInvoker adapts this VM's function invocation to store.StartInvoker,
// running the start function with no arguments and closing the layering
// gap described in store.StartInvoker's doc comment.
func (vm *VM) StartInvoker() store.StartInvoker {
	return func(s *store.Store, funcAddr int) error {
		_, err := vm.invokeFuncAddr(funcAddr, nil)
		return err
	}
}

func (vm *VM) invokeFuncAddr(funcAddr int, args []wasm.Value) ([]wasm.Value, error) {
	vm.depth++
	defer func() { vm.depth-- }()
	if vm.depth > maxCallDepth {
		return nil, NewTrap(CallStackExhausted, "")
	}

	fi := vm.Store.Functions[funcAddr]
	if fi.IsHost {
		res, err := fi.Host(args)
		if err != nil {
			return nil, NewTrap(HostTrap, err.Error())
		}
		return res, nil
	}

	locals := make([]wasm.Value, len(args))
	copy(locals, args)
	for _, decl := range fi.Locals {
		for i := uint32(0); i < decl.Count; i++ {
			locals = append(locals, wasm.DefaultValue(decl.ValType))
		}
	}

	f := &activation{
		vm:        vm,
		modInst:   vm.Store.Modules[fi.ModInst],
		locals:    locals,
		body:      fi.Body,
		retArity:  len(fi.Type.Results),
	}
	return f.run()
}

// label is one entry of the control-flow label stack maintained within a
// single activation, per spec.md §4.5.
type label struct {
	arity        int // values produced (block/if) or consumed on re-entry (loop)
	isLoop       bool
	continuation int // body index to resume at
	operandBase  int // operand stack depth when this label was pushed
}

// activation runs one function body: spec.md's Activation{arity, locals,
// enclosing_module_instance}. Operand and label stacks are private to this
// Go call frame; nested calls get their own activation.
type activation struct {
	vm       *VM
	modInst  *store.ModuleInstance
	locals   []wasm.Value
	body     []wasm.Instruction
	retArity int

	stack  []wasm.Value
	labels []label
}

func (f *activation) push(v wasm.Value)    { f.stack = append(f.stack, v) }
func (f *activation) pop() wasm.Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}
func (f *activation) popN(n int) []wasm.Value {
	out := append([]wasm.Value(nil), f.stack[len(f.stack)-n:]...)
	f.stack = f.stack[:len(f.stack)-n]
	return out
}

func (f *activation) run() ([]wasm.Value, error) {
	ip := 0
	for {
		if f.vm.GasCap != 0 && f.vm.Used >= f.vm.GasCap {
			return nil, NewTrap(OutOfGas, "")
		}
		instr := f.body[ip]
		f.vm.Used += f.vm.Gas.Cost(instr.Op)

		if instr.Op == wasm.OpEnd {
			if len(f.labels) == 0 {
				return f.popN(f.retArity), nil
			}
			f.labels = f.labels[:len(f.labels)-1]
			ip++
			continue
		}
		if instr.Op == wasm.OpElse {
			f.labels = f.labels[:len(f.labels)-1]
			ip = instr.EndTarget + 1
			continue
		}

		next, result, err := f.step(ip, instr)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		ip = next
	}
}

func (f *activation) blockArity(kind bool, bt wasm.BlockType) int {
	params, results := bt.Signature(f.modInst.Types)
	if kind {
		return len(params)
	}
	return len(results)
}

// step executes one non-control-terminator instruction and returns the next
// instruction pointer, or (non-nil, nil) if the function is returning.
func (f *activation) step(ip int, instr wasm.Instruction) (int, []wasm.Value, error) {
	switch instr.Op {
	case wasm.OpUnreachable:
		return 0, nil, NewTrap(Unreachable, "")
	case wasm.OpNop:
		return ip + 1, nil, nil

	case wasm.OpBlock:
		f.labels = append(f.labels, label{arity: f.blockArity(false, instr.Block), continuation: instr.EndTarget + 1, operandBase: len(f.stack)})
		return ip + 1, nil, nil
	case wasm.OpLoop:
		f.labels = append(f.labels, label{arity: f.blockArity(true, instr.Block), isLoop: true, continuation: ip + 1, operandBase: len(f.stack)})
		return ip + 1, nil, nil
	case wasm.OpIf:
		cond := f.pop()
		taken := cond.I32() != 0
		if taken {
			f.labels = append(f.labels, label{arity: f.blockArity(false, instr.Block), continuation: instr.EndTarget + 1, operandBase: len(f.stack)})
			return ip + 1, nil, nil
		}
		if instr.ElseTarget >= 0 {
			f.labels = append(f.labels, label{arity: f.blockArity(false, instr.Block), continuation: instr.EndTarget + 1, operandBase: len(f.stack)})
			return instr.ElseTarget + 1, nil, nil
		}
		return instr.EndTarget + 1, nil, nil

	case wasm.OpBr:
		return f.branch(int(instr.LabelIdx))
	case wasm.OpBrIf:
		cond := f.pop()
		if cond.I32() != 0 {
			return f.branch(int(instr.LabelIdx))
		}
		return ip + 1, nil, nil
	case wasm.OpBrTable:
		idx := f.pop().U32()
		target := instr.Default
		if int(idx) < len(instr.Labels) {
			target = instr.Labels[idx]
		}
		return f.branch(int(target))

	case wasm.OpReturn:
		return 0, f.popN(f.retArity), nil

	case wasm.OpCall:
		return f.call(int(instr.FuncIdx), ip)
	case wasm.OpCallIndirect:
		return f.callIndirect(instr, ip)

	case wasm.OpDrop:
		f.pop()
		return ip + 1, nil, nil
	case wasm.OpSelect, wasm.OpSelectVec:
		cond := f.pop()
		b := f.pop()
		a := f.pop()
		if cond.I32() != 0 {
			f.push(a)
		} else {
			f.push(b)
		}
		return ip + 1, nil, nil

	case wasm.OpLocalGet:
		f.push(f.locals[instr.Idx])
		return ip + 1, nil, nil
	case wasm.OpLocalSet:
		f.locals[instr.Idx] = f.pop()
		return ip + 1, nil, nil
	case wasm.OpLocalTee:
		f.locals[instr.Idx] = f.stack[len(f.stack)-1]
		return ip + 1, nil, nil
	case wasm.OpGlobalGet:
		addr := f.modInst.Globals[instr.Idx]
		f.push(f.vm.Store.Globals[addr].Value)
		return ip + 1, nil, nil
	case wasm.OpGlobalSet:
		addr := f.modInst.Globals[instr.Idx]
		f.vm.Store.Globals[addr].Value = f.pop()
		return ip + 1, nil, nil

	case wasm.OpTableGet:
		t, err := f.table(instr.TableIdx)
		if err != nil {
			return 0, nil, err
		}
		idx := f.pop().U32()
		if int(idx) >= len(t.Elements) {
			return 0, nil, NewTrap(OutOfBoundsTableAccess, "")
		}
		f.push(t.Elements[idx])
		return ip + 1, nil, nil
	case wasm.OpTableSet:
		t, err := f.table(instr.TableIdx)
		if err != nil {
			return 0, nil, err
		}
		v := f.pop()
		idx := f.pop().U32()
		if int(idx) >= len(t.Elements) {
			return 0, nil, NewTrap(OutOfBoundsTableAccess, "")
		}
		t.Elements[idx] = v
		return ip + 1, nil, nil

	case wasm.OpRefNull:
		f.push(wasm.RefNull(instr.RefType))
		return ip + 1, nil, nil
	case wasm.OpRefIsNull:
		v := f.pop()
		if v.IsNull() {
			f.push(wasm.I32(1))
		} else {
			f.push(wasm.I32(0))
		}
		return ip + 1, nil, nil
	case wasm.OpRefFunc:
		f.push(wasm.RefFunc(f.modInst.Funcs[instr.FuncIdx]))
		return ip + 1, nil, nil

	case wasm.OpMemorySize:
		m, err := f.mem0()
		if err != nil {
			return 0, nil, err
		}
		f.push(wasm.I32(int32(m.Pages())))
		return ip + 1, nil, nil
	case wasm.OpMemoryGrow:
		m, err := f.mem0()
		if err != nil {
			return 0, nil, err
		}
		delta := int(f.pop().U32())
		prev := m.Pages()
		if !growMemory(m, delta, f.vm.Gas, f.vm) {
			f.push(wasm.I32(-1))
		} else {
			f.push(wasm.I32(int32(prev)))
		}
		return ip + 1, nil, nil

	case wasm.OpMiscPrefix:
		return f.execMisc(ip, instr)
	case wasm.OpSimdPrefix:
		return f.execSimd(ip, instr)
	}

	if instr.Op >= wasm.OpI32Load && instr.Op <= wasm.OpI64Store32 {
		if err := f.execMemAccess(instr); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	}
	if instr.Op >= wasm.OpI32Const && instr.Op <= wasm.OpF64Const {
		f.execConst(instr)
		return ip + 1, nil, nil
	}
	if instr.Op >= wasm.OpI32Eqz && instr.Op <= wasm.OpF64ReinterpretI64 {
		if err := f.execNumeric(instr); err != nil {
			return 0, nil, err
		}
		return ip + 1, nil, nil
	}
	if instr.Op >= wasm.OpI32Extend8S && instr.Op <= wasm.OpI64Extend32S {
		f.execSignExtend(instr)
		return ip + 1, nil, nil
	}

	return 0, nil, NewTrap(Unreachable, "unimplemented opcode")
}

func (f *activation) branch(n int) (int, []wasm.Value, error) {
	targetIdx := len(f.labels) - 1 - n
	if targetIdx < 0 {
		return 0, nil, NewTrap(Unreachable, "invalid branch depth")
	}
	target := f.labels[targetIdx]
	vals := f.popN(target.arity)
	f.stack = f.stack[:target.operandBase]
	f.stack = append(f.stack, vals...)
	if target.isLoop {
		f.labels = f.labels[:targetIdx+1]
	} else {
		f.labels = f.labels[:targetIdx]
	}
	return target.continuation, nil, nil
}

func (f *activation) call(funcIdx int, ip int) (int, []wasm.Value, error) {
	addr := f.modInst.Funcs[funcIdx]
	ft := f.vm.Store.Functions[addr].Type
	args := f.popN(len(ft.Params))
	res, err := f.vm.invokeFuncAddr(addr, args)
	if err != nil {
		return 0, nil, err
	}
	for _, r := range res {
		f.push(r)
	}
	return ip + 1, nil, nil
}

func (f *activation) callIndirect(instr wasm.Instruction, ip int) (int, []wasm.Value, error) {
	t, err := f.table(instr.TableIdx)
	if err != nil {
		return 0, nil, err
	}
	idx := f.pop().U32()
	if int(idx) >= len(t.Elements) {
		return 0, nil, NewTrap(OutOfBoundsTableAccess, "")
	}
	ref := t.Elements[idx]
	if ref.IsNull() {
		return 0, nil, NewTrap(UndefinedElement, "")
	}
	addr := ref.Addr()
	want := f.modInst.Types[instr.TypeIdx]
	got := f.vm.Store.Functions[addr].Type
	if !got.Equal(want) {
		return 0, nil, NewTrap(IndirectCallTypeMismatch, "")
	}
	args := f.popN(len(want.Params))
	res, err := f.vm.invokeFuncAddr(addr, args)
	if err != nil {
		return 0, nil, err
	}
	for _, r := range res {
		f.push(r)
	}
	return ip + 1, nil, nil
}

func (f *activation) table(idx uint32) (*store.TableInstance, error) {
	if int(idx) >= len(f.modInst.Tables) {
		return nil, NewTrap(OutOfBoundsTableAccess, "no such table")
	}
	addr := f.modInst.Tables[idx]
	return &f.vm.Store.Tables[addr], nil
}

func (f *activation) mem0() (*store.MemoryInstance, error) {
	if len(f.modInst.Mems) == 0 {
		return nil, NewTrap(OutOfBoundsMemoryAccess, "no memory")
	}
	addr := f.modInst.Mems[0]
	return &f.vm.Store.Memories[addr], nil
}

func (f *activation) execConst(instr wasm.Instruction) {
	switch instr.Op {
	case wasm.OpI32Const:
		f.push(wasm.I32(instr.I32Val))
	case wasm.OpI64Const:
		f.push(wasm.I64(instr.I64Val))
	case wasm.OpF32Const:
		f.push(wasm.Value{Type: wasm.ValueTypeF32, Lo: uint64(instr.F32Bits)})
	case wasm.OpF64Const:
		f.push(wasm.Value{Type: wasm.ValueTypeF64, Lo: instr.F64Bits})
	}
}

func (f *activation) execSignExtend(instr wasm.Instruction) {
	switch instr.Op {
	case wasm.OpI32Extend8S:
		f.push(wasm.I32(int32(int8(f.pop().I32()))))
	case wasm.OpI32Extend16S:
		f.push(wasm.I32(int32(int16(f.pop().I32()))))
	case wasm.OpI64Extend8S:
		f.push(wasm.I64(int64(int8(f.pop().I64()))))
	case wasm.OpI64Extend16S:
		f.push(wasm.I64(int64(int16(f.pop().I64()))))
	case wasm.OpI64Extend32S:
		f.push(wasm.I64(int64(int32(f.pop().I64()))))
	}
}

// growMemory attempts to grow m by delta pages, charging policy p against
// vm's gas budget; returns false (no trap, per spec.md §4.5) on failure.
func growMemory(m *store.MemoryInstance, delta int, p GasPolicy, vm *VM) bool {
	if delta < 0 {
		return false
	}
	newPages := m.Pages() + delta
	if newPages > wasm.MaxPages {
		return false
	}
	if m.Type.Limits.HasMax && newPages > int(m.Type.Limits.Max) {
		return false
	}
	vm.Used += p.GrowCost(delta)
	m.Bytes = append(m.Bytes, make([]byte, delta*wasm.PageSize)...)
	return true
}

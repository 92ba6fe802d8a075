package main

import (
	"golang.org/x/crypto/sha3"

	"github.com/friendlymatthew/whale/store"
	"github.com/friendlymatthew/whale/vm"
	"github.com/friendlymatthew/whale/wasm"
)

// demoHashFuncType is demo.hash's signature: (ptr, len, outPtr) -> (),
// writing a 32-byte SHA3-256 digest of memory[ptr:ptr+len] to outPtr.
var demoHashFuncType = wasm.FuncType{
	Params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeI32},
}

// demoImports registers the "demo" host namespace, modeled on the teacher's
// set_storage/get_storage host functions: both read a (ptr, len) region out
// of the running instance's own memory. Since the host function is
// allocated before the instance whose memory it touches exists, it closes
// over the store and resolves the instance's memory 0 lazily on each call
// via instAddr.
func demoImports(s *store.Store, instAddr *int) []store.Import {
	hashAddr := s.AllocateHostFunction(demoHashFuncType, func(args []wasm.Value) ([]wasm.Value, error) {
		inst := s.Modules[*instAddr]
		if len(inst.Mems) == 0 {
			return nil, vm.NewTrap(vm.OutOfBoundsMemoryAccess, "demo.hash: module has no memory")
		}
		mem := &s.Memories[inst.Mems[0]]

		ptr := int(args[0].U32())
		length := int(args[1].U32())
		outPtr := int(args[2].U32())
		if ptr < 0 || length < 0 || ptr+length > len(mem.Bytes) || outPtr+32 > len(mem.Bytes) {
			return nil, vm.NewTrap(vm.OutOfBoundsMemoryAccess, "demo.hash")
		}

		digest := sha3.Sum256(mem.Bytes[ptr : ptr+length])
		copy(mem.Bytes[outPtr:outPtr+32], digest[:])
		return nil, nil
	})

	return []store.Import{
		{Module: "demo", Name: "hash", Value: store.ExternalValue{Kind: wasm.ExternalFunction, Addr: hashAddr}},
	}
}

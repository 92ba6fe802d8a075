package vm

import "github.com/friendlymatthew/whale/wasm"

// GasPolicy prices execution, per spec.md §5's invitation for an embedder
// fuel counter. Generalized from the teacher's vm.GasPolicy interface
// (vertexvm/vm.GasPolicy: GetCostForOp/GetCostForMalloc) to this
// interpreter's opcode type.
type GasPolicy interface {
	// Cost returns the price of dispatching a single instruction.
	Cost(op wasm.Opcode) uint64
	// GrowCost returns the additional price of growing memory by pages.
	GrowCost(pages int) uint64
}

// FreeGasPolicy never charges, matching the teacher's FreeGasPolicy; the
// default for tests and the CLI.
type FreeGasPolicy struct{}

func (FreeGasPolicy) Cost(wasm.Opcode) uint64    { return 0 }
func (FreeGasPolicy) GrowCost(pages int) uint64  { return 0 }

// MeteredGasPolicy charges 1 per instruction and 1024 per grown page,
// matching the teacher's SimpleGasPolicy.
type MeteredGasPolicy struct{}

func (MeteredGasPolicy) Cost(wasm.Opcode) uint64   { return 1 }
func (MeteredGasPolicy) GrowCost(pages int) uint64 { return uint64(pages) * 1024 }

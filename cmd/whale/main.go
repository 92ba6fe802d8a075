// Command whale runs a standalone WebAssembly 1.0 module: decode, link with
// no imports but the demo host namespace, run the start function if any,
// then invoke an exported "main" if present.
//
// Modeled on the teacher's main.go, which reads a module file, builds a VM
// against a Resolver, finds an entry function by name, and invokes it.
package main

import (
	"fmt"
	"os"

	"github.com/friendlymatthew/whale/store"
	"github.com/friendlymatthew/whale/vm"
	"github.com/friendlymatthew/whale/wasm"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: whale <module.wasm>")
		return 1
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Println("decode error:", err)
		return 1
	}

	m, err := wasm.Parse(data)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	s := store.New()
	machine := vm.New(s)

	instAddr := len(s.Modules)
	imports := demoImports(s, &instAddr)

	inst, err := store.Instantiate(s, m, imports, machine.StartInvoker())
	if err != nil {
		fmt.Println(err)
		return 1
	}

	ev, ok := s.ReadExport(inst, "main")
	if !ok {
		fmt.Println("ok")
		return 0
	}

	res, err := machine.Invoke(ev.Addr, nil)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	fmt.Println("ok")
	if len(res) == 1 {
		return int(res[0].I32())
	}
	return 0
}

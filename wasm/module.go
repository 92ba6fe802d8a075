package wasm

// Magic is the 4-byte WebAssembly binary magic number, `\0asm`.
const Magic uint32 = 0x6D736100

// Version is the only binary format version this interpreter accepts.
const Version uint32 = 0x1

// ExternalKind tags the kind of an import or export.
type ExternalKind byte

const (
	ExternalFunction ExternalKind = 0x00
	ExternalTable    ExternalKind = 0x01
	ExternalMemory   ExternalKind = 0x02
	ExternalGlobal   ExternalKind = 0x03
)

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc is the tagged description of what an import expects to bind.
type ImportDesc struct {
	Kind       ExternalKind
	TypeIdx    uint32      // valid when Kind == ExternalFunction
	Table      *TableType  // valid when Kind == ExternalTable
	Mem        *MemType    // valid when Kind == ExternalMemory
	Global     *GlobalType // valid when Kind == ExternalGlobal
}

// Export is one entry of the export section.
type Export struct {
	Name string
	Kind ExternalKind
	Idx  uint32
}

// LocalDecl declares Count locals of a single value type, as packed by the
// binary format's run-length local declarations.
type LocalDecl struct {
	Count   uint32
	ValType ValueType
}

// Code is a decoded function body: its locals and its flattened,
// jump-resolved instruction stream.
type Code struct {
	Locals       []LocalDecl
	Body         []Instruction
	NumLocalVars int // total declared locals, i.e. sum of LocalDecl.Count
}

// Global is a module-declared global: its type and constant initializer.
type Global struct {
	Type GlobalType
	Init []Instruction // a constant expression, per spec.md §4.4 step 6
}

// Element is one element segment. A segment with TableIdx implicitly 0 and
// a non-nil Offset is "active"; this decoder only supports the MVP
// encoding (flag byte 0x00) which is always active against table 0.
type Element struct {
	TableIdx uint32
	Offset   []Instruction // constant expression
	FuncIdxs []uint32
}

// Data is one data segment (always active against memory 0 in the MVP
// encoding this decoder accepts).
type Data struct {
	MemIdx uint32
	Offset []Instruction // constant expression
	Init   []byte
}

// CustomSection carries a custom section's name and opaque payload,
// per SPEC_FULL.md's "Custom section pass-through by name".
type CustomSection struct {
	Name string
	Data []byte
}

// Module is the decoded, immutable intermediate representation produced by
// Parse. Index spaces (types, funcs, tables, mems, globals) are exactly the
// binary format's: imports occupy the low indices, module-declared items
// follow, matching spec.md §3's ModuleInstance invariant.
type Module struct {
	Types    []FuncType
	Imports  []Import
	// FuncTypeIdxs[i] is the type index of the i-th module-declared
	// function (i.e. excluding imported functions).
	FuncTypeIdxs []uint32
	Tables       []TableType
	Mems         []MemType
	Globals      []Global
	Exports      []Export
	HasStart     bool
	StartFuncIdx uint32
	Elements     []Element
	Codes        []Code
	Datas        []Data
	DataCount    *uint32 // from the optional data-count section, if present
	Customs      []CustomSection
}

// NumFuncsImported returns how many of Module.Imports are functions.
func (m *Module) NumFuncsImported() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ExternalFunction {
			n++
		}
	}
	return n
}

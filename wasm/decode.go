package wasm

import (
	"unicode/utf8"

	"github.com/friendlymatthew/whale/leb128"
	"github.com/friendlymatthew/whale/leb128/bytecursor"
)

// MaxStringBytes bounds a decoded name string, per spec.md §4.2.
const MaxStringBytes = 100000

// section ids, in the order spec.md §4.2 requires for non-custom sections.
const (
	secCustom  = 0
	secType    = 1
	secImport  = 2
	secFunc    = 3
	secTable   = 4
	secMemory  = 5
	secGlobal  = 6
	secExport  = 7
	secStart   = 8
	secElement = 9
	secCode    = 10
	secData    = 11
	secDataCount = 12
)

// Parse decodes a complete WebAssembly binary module from b, per spec.md
// §4.2. It checks the preamble, section order, vector/string bounds,
// opcode legality, the type indices of the function section, and (when a
// data-count section is present) the data indices of memory.init and
// data.drop. Other indices inside function bodies (locals, globals,
// functions, types, tables, elements, labels) are not bounds-checked here,
// and operand stacks are not type-checked across control flow.
func Parse(b []byte) (*Module, error) {
	c := bytecursor.New(b)
	if err := decodePreamble(c); err != nil {
		return nil, err
	}

	m := &Module{}
	lastID := -1
	for c.Len() > 0 {
		startOffset := c.Pos()
		id, err := c.ReadByte()
		if err != nil {
			return nil, wrapEOF(err, c.Pos())
		}

		size, _, err := leb128.ReadU32(c)
		if err != nil {
			return nil, lebErr(err, c.Pos())
		}

		sec, err := c.Limit(int(size))
		if err != nil {
			return nil, NewDecodeError(UnexpectedEOF, c.Pos(), "section body shorter than declared size")
		}

		if id == secCustom {
			cs, err := decodeCustomSection(sec)
			if err != nil {
				return nil, err
			}
			m.Customs = append(m.Customs, cs)
			continue
		}

		if int(id) <= lastID {
			return nil, NewDecodeError(InvalidSectionOrder, startOffset, "non-custom sections must be strictly increasing")
		}
		lastID = int(id)

		switch id {
		case secType:
			err = decodeTypeSection(m, sec)
		case secImport:
			err = decodeImportSection(m, sec)
		case secFunc:
			err = decodeFunctionSection(m, sec)
		case secTable:
			err = decodeTableSection(m, sec)
		case secMemory:
			err = decodeMemorySection(m, sec)
		case secGlobal:
			err = decodeGlobalSection(m, sec)
		case secExport:
			err = decodeExportSection(m, sec)
		case secStart:
			err = decodeStartSection(m, sec)
		case secElement:
			err = decodeElementSection(m, sec)
		case secCode:
			err = decodeCodeSection(m, sec)
		case secData:
			err = decodeDataSection(m, sec)
		case secDataCount:
			err = decodeDataCountSection(m, sec)
		default:
			err = NewDecodeError(UnknownSectionID, startOffset, "")
		}
		if err != nil {
			return nil, err
		}
		if sec.Len() != 0 {
			return nil, NewDecodeError(UnexpectedEOF, sec.Pos(), "section declared size did not match consumed bytes")
		}
	}

	if m.DataCount != nil && len(m.Codes) > 0 {
		if err := checkDataIdxBounds(m, c.Pos()); err != nil {
			return nil, err
		}
	}
	if len(m.FuncTypeIdxs) != len(m.Codes) {
		return nil, NewDecodeError(InvalidOperand, c.Pos(), "function and code section counts must match")
	}

	return m, nil
}

func decodePreamble(c *bytecursor.Cursor) error {
	magic, err := c.Read(4)
	if err != nil || !(len(magic) == 4 && magic[0] == 0x00 && magic[1] == 'a' && magic[2] == 's' && magic[3] == 'm') {
		return NewDecodeError(InvalidHeader, 0, "missing \\0asm magic")
	}
	ver, err := c.Read(4)
	if err != nil || !(ver[0] == 0x01 && ver[1] == 0 && ver[2] == 0 && ver[3] == 0) {
		return NewDecodeError(InvalidHeader, 4, "unsupported version, expected 1")
	}
	return nil
}

func wrapEOF(err error, offset int) error {
	return NewDecodeError(UnexpectedEOF, offset, err.Error())
}

func lebErr(err error, offset int) error {
	return NewDecodeError(LebOverflow, offset, err.Error())
}

func readU32(c *bytecursor.Cursor) (uint32, error) {
	v, _, err := leb128.ReadU32(c)
	if err != nil {
		return 0, lebErr(err, c.Pos())
	}
	return v, nil
}

func readI32(c *bytecursor.Cursor) (int32, error) {
	v, _, err := leb128.ReadI32(c)
	if err != nil {
		return 0, lebErr(err, c.Pos())
	}
	return v, nil
}

func readI64(c *bytecursor.Cursor) (int64, error) {
	v, _, err := leb128.ReadI64(c)
	if err != nil {
		return 0, lebErr(err, c.Pos())
	}
	return v, nil
}

func readByte(c *bytecursor.Cursor) (byte, error) {
	b, err := c.ReadByte()
	if err != nil {
		return 0, wrapEOF(err, c.Pos())
	}
	return b, nil
}

func readBytes(c *bytecursor.Cursor, n int) ([]byte, error) {
	b, err := c.Read(n)
	if err != nil {
		return nil, NewDecodeError(UnexpectedEOF, c.Pos(), "")
	}
	return b, nil
}

func readName(c *bytecursor.Cursor) (string, error) {
	n, err := readU32(c)
	if err != nil {
		return "", err
	}
	if n > MaxStringBytes {
		return "", NewDecodeError(StringTooLong, c.Pos(), "")
	}
	b, err := readBytes(c, int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", NewDecodeError(InvalidUTF8, c.Pos(), "")
	}
	return string(b), nil
}

func readValueType(c *bytecursor.Cursor) (ValueType, error) {
	b, err := readByte(c)
	if err != nil {
		return 0, err
	}
	switch ValueType(b) {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128, ValueTypeFuncref, ValueTypeExternref:
		return ValueType(b), nil
	default:
		return 0, NewDecodeError(InvalidOperand, c.Pos(), "invalid value type byte")
	}
}

func readRefType(c *bytecursor.Cursor) (ValueType, error) {
	t, err := readValueType(c)
	if err != nil {
		return 0, err
	}
	if !t.IsReference() {
		return 0, NewDecodeError(InvalidOperand, c.Pos(), "expected a reference type")
	}
	return t, nil
}

func readLimits(c *bytecursor.Cursor) (Limits, error) {
	flag, err := readByte(c)
	if err != nil {
		return Limits{}, err
	}
	var l Limits
	switch flag {
	case 0x00:
		min, err := readU32(c)
		if err != nil {
			return Limits{}, err
		}
		l = Limits{Min: min}
	case 0x01:
		min, err := readU32(c)
		if err != nil {
			return Limits{}, err
		}
		max, err := readU32(c)
		if err != nil {
			return Limits{}, err
		}
		l = Limits{Min: min, Max: max, HasMax: true}
	default:
		// 0x02/0x03 are the threads/memory64 shared-memory flags, out of
		// scope per spec.md's Non-goals.
		return Limits{}, NewDecodeError(InvalidLimits, c.Pos(), "")
	}
	return l, nil
}

func readGlobalType(c *bytecursor.Cursor) (GlobalType, error) {
	vt, err := readValueType(c)
	if err != nil {
		return GlobalType{}, err
	}
	mb, err := readByte(c)
	if err != nil {
		return GlobalType{}, err
	}
	if mb != 0x00 && mb != 0x01 {
		return GlobalType{}, NewDecodeError(InvalidOperand, c.Pos(), "invalid mutability flag")
	}
	return GlobalType{ValType: vt, Mut: Mutability(mb)}, nil
}

func decodeCustomSection(c *bytecursor.Cursor) (CustomSection, error) {
	name, err := readName(c)
	if err != nil {
		return CustomSection{}, err
	}
	return CustomSection{Name: name, Data: append([]byte(nil), c.Rest()...)}, nil
}

func decodeTypeSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		form, err := readByte(c)
		if err != nil {
			return err
		}
		if form != 0x60 {
			return NewDecodeError(InvalidOperand, c.Pos(), "functype must start with 0x60")
		}
		params, err := readValueTypeVec(c)
		if err != nil {
			return err
		}
		results, err := readValueTypeVec(c)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValueTypeVec(c *bytecursor.Cursor) ([]ValueType, error) {
	n, err := readU32(c)
	if err != nil {
		return nil, err
	}
	if int(n) > c.Len() {
		return nil, NewDecodeError(UnexpectedEOF, c.Pos(), "declared vector length exceeds remaining input")
	}
	out := make([]ValueType, n)
	for i := range out {
		out[i], err = readValueType(c)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeImportSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, n)
	for i := uint32(0); i < n; i++ {
		modName, err := readName(c)
		if err != nil {
			return err
		}
		field, err := readName(c)
		if err != nil {
			return err
		}
		kindB, err := readByte(c)
		if err != nil {
			return err
		}
		var desc ImportDesc
		desc.Kind = ExternalKind(kindB)
		switch desc.Kind {
		case ExternalFunction:
			desc.TypeIdx, err = readU32(c)
		case ExternalTable:
			var tt TableType
			tt.ElemType, err = readRefType(c)
			if err == nil {
				tt.Limits, err = readLimits(c)
			}
			desc.Table = &tt
		case ExternalMemory:
			var mt MemType
			mt.Limits, err = readLimits(c)
			desc.Mem = &mt
		case ExternalGlobal:
			gt, gerr := readGlobalType(c)
			err = gerr
			desc.Global = &gt
		default:
			return NewDecodeError(InvalidOperand, c.Pos(), "invalid import external kind")
		}
		if err != nil {
			return err
		}
		m.Imports = append(m.Imports, Import{Module: modName, Name: field, Desc: desc})
	}
	return nil
}

func decodeFunctionSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.FuncTypeIdxs = make([]uint32, n)
	for i := range m.FuncTypeIdxs {
		m.FuncTypeIdxs[i], err = readU32(c)
		if err != nil {
			return err
		}
		if int(m.FuncTypeIdxs[i]) >= len(m.Types) {
			return NewDecodeError(InvalidIndex, c.Pos(), "function type index out of range")
		}
	}
	return nil
}

func decodeTableSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Tables = make([]TableType, n)
	for i := range m.Tables {
		m.Tables[i].ElemType, err = readRefType(c)
		if err == nil {
			m.Tables[i].Limits, err = readLimits(c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeMemorySection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Mems = make([]MemType, n)
	for i := range m.Mems {
		m.Mems[i].Limits, err = readLimits(c)
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeGlobalSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Globals = make([]Global, n)
	for i := range m.Globals {
		gt, err := readGlobalType(c)
		if err != nil {
			return err
		}
		init, err := decodeConstExpr(c)
		if err != nil {
			return err
		}
		m.Globals[i] = Global{Type: gt, Init: init}
	}
	return nil
}

func decodeExportSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Exports = make([]Export, n)
	seen := make(map[string]bool, n)
	for i := range m.Exports {
		name, err := readName(c)
		if err != nil {
			return err
		}
		if seen[name] {
			return NewDecodeError(InvalidOperand, c.Pos(), "duplicate export name")
		}
		seen[name] = true
		kindB, err := readByte(c)
		if err != nil {
			return err
		}
		if kindB > 0x03 {
			return NewDecodeError(InvalidOperand, c.Pos(), "invalid export kind")
		}
		idx, err := readU32(c)
		if err != nil {
			return err
		}
		m.Exports[i] = Export{Name: name, Kind: ExternalKind(kindB), Idx: idx}
	}
	return nil
}

func decodeStartSection(m *Module, c *bytecursor.Cursor) error {
	idx, err := readU32(c)
	if err != nil {
		return err
	}
	m.HasStart = true
	m.StartFuncIdx = idx
	return nil
}

func decodeElementSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Elements = make([]Element, n)
	for i := range m.Elements {
		tblIdx, err := readU32(c)
		if err != nil {
			return err
		}
		offset, err := decodeConstExpr(c)
		if err != nil {
			return err
		}
		cnt, err := readU32(c)
		if err != nil {
			return err
		}
		idxs := make([]uint32, cnt)
		for j := range idxs {
			idxs[j], err = readU32(c)
			if err != nil {
				return err
			}
		}
		m.Elements[i] = Element{TableIdx: tblIdx, Offset: offset, FuncIdxs: idxs}
	}
	return nil
}

func decodeCodeSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.Codes = make([]Code, n)
	for i := range m.Codes {
		size, err := readU32(c)
		if err != nil {
			return err
		}
		body, err := c.Limit(int(size))
		if err != nil {
			return NewDecodeError(UnexpectedEOF, c.Pos(), "code entry shorter than declared size")
		}
		locals, numLocals, err := decodeLocals(body)
		if err != nil {
			return err
		}
		instrs, err := decodeFuncBody(body)
		if err != nil {
			return err
		}
		m.Codes[i] = Code{Locals: locals, Body: instrs, NumLocalVars: numLocals}
		if body.Len() != 0 {
			return NewDecodeError(UnexpectedEOF, body.Pos(), "code entry had trailing bytes")
		}
	}
	return nil
}

func decodeLocals(c *bytecursor.Cursor) ([]LocalDecl, int, error) {
	n, err := readU32(c)
	if err != nil {
		return nil, 0, err
	}
	decls := make([]LocalDecl, n)
	total := 0
	for i := range decls {
		cnt, err := readU32(c)
		if err != nil {
			return nil, 0, err
		}
		vt, err := readValueType(c)
		if err != nil {
			return nil, 0, err
		}
		decls[i] = LocalDecl{Count: cnt, ValType: vt}
		total += int(cnt)
	}
	return decls, total, nil
}

func decodeDataSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	if m.DataCount != nil && *m.DataCount != n {
		return NewDecodeError(InvalidOperand, c.Pos(), "data section count does not match data-count section")
	}
	m.Datas = make([]Data, n)
	for i := range m.Datas {
		memIdx, err := readU32(c)
		if err != nil {
			return err
		}
		offset, err := decodeConstExpr(c)
		if err != nil {
			return err
		}
		size, err := readU32(c)
		if err != nil {
			return err
		}
		init, err := readBytes(c, int(size))
		if err != nil {
			return err
		}
		m.Datas[i] = Data{MemIdx: memIdx, Offset: offset, Init: append([]byte(nil), init...)}
	}
	return nil
}

func decodeDataCountSection(m *Module, c *bytecursor.Cursor) error {
	n, err := readU32(c)
	if err != nil {
		return err
	}
	m.DataCount = &n
	return nil
}

// checkDataIdxBounds rejects any memory.init or data.drop whose data index
// is not below the count declared by the data-count section.
func checkDataIdxBounds(m *Module, offset int) error {
	for _, code := range m.Codes {
		for _, instr := range code.Body {
			if instr.Op != OpMiscPrefix || (instr.Misc != MiscMemoryInit && instr.Misc != MiscDataDrop) {
				continue
			}
			if instr.DataIdx >= *m.DataCount {
				return NewDecodeError(InvalidIndex, offset, "data index out of range")
			}
		}
	}
	return nil
}

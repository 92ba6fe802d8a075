package wasm

import "github.com/friendlymatthew/whale/leb128/bytecursor"

// decodeFuncBody decodes a function's instruction stream (the `expr` that
// follows its locals) into a flat, jump-resolved slice. It consumes
// exactly one matching top-level End.
func decodeFuncBody(c *bytecursor.Cursor) ([]Instruction, error) {
	return decodeInstrSeq(c, false)
}

// decodeConstExpr decodes a restricted constant expression (global/element/
// data initializers): i32.const, i64.const, f32.const, f64.const,
// global.get, ref.null, ref.func, terminated by end. No nested control
// flow is permitted, matching the teacher's Module.ExecInitExpr opcode
// set (vertexvm/wasm.Module.ExecInitExpr).
func decodeConstExpr(c *bytecursor.Cursor) ([]Instruction, error) {
	return decodeInstrSeq(c, true)
}

func decodeInstrSeq(c *bytecursor.Cursor, constOnly bool) ([]Instruction, error) {
	var body []Instruction
	var stack []int

	for {
		idx := len(body)
		opByte, err := readByte(c)
		if err != nil {
			return nil, err
		}
		op := Opcode(opByte)

		if constOnly {
			switch op {
			case OpI32Const, OpI64Const, OpF32Const, OpF64Const, OpGlobalGet, OpRefNull, OpRefFunc, OpEnd:
			default:
				return nil, NewDecodeError(InvalidOperand, c.Pos(), "opcode not permitted in a constant expression")
			}
		}

		instr := Instruction{Op: op}

		switch op {
		case OpBlock, OpLoop, OpIf:
			bt, err := decodeBlockType(c)
			if err != nil {
				return nil, err
			}
			instr.Block = bt
			instr.ElseTarget = -1
			body = append(body, instr)
			stack = append(stack, idx)
			continue

		case OpElse:
			if len(stack) == 0 {
				return nil, NewDecodeError(InvalidOperand, c.Pos(), "else with no matching if")
			}
			top := stack[len(stack)-1]
			if body[top].Op != OpIf {
				return nil, NewDecodeError(InvalidOperand, c.Pos(), "else with no matching if")
			}
			body[top].ElseTarget = idx
			body = append(body, instr)
			continue

		case OpEnd:
			body = append(body, instr)
			if len(stack) == 0 {
				return body, nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			body[top].EndTarget = idx
			if body[top].Op == OpIf && body[top].ElseTarget >= 0 {
				// The Else pseudo-instruction's own body slot never gets an
				// EndTarget otherwise; vm.go's OpElse case jumps through it
				// (the then-branch falls through to Else on a true if).
				body[body[top].ElseTarget].EndTarget = idx
			}
			continue

		default:
			if err := decodeImmediates(c, &instr); err != nil {
				return nil, err
			}
			body = append(body, instr)
		}
	}
}

func decodeBlockType(c *bytecursor.Cursor) (BlockType, error) {
	b, err := c.PeekByte()
	if err != nil {
		return BlockType{}, wrapEOF(err, c.Pos())
	}
	if b == blockTypeEmpty {
		c.ReadByte()
		return BlockType{Kind: BlockKindEmpty}, nil
	}
	switch ValueType(b) {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128, ValueTypeFuncref, ValueTypeExternref:
		c.ReadByte()
		return BlockType{Kind: BlockKindValue, ValType: ValueType(b)}, nil
	}
	// Otherwise it's a signed LEB128 type index (s33 in the formal
	// grammar; a plain non-negative s32 covers every type index a real
	// module can declare).
	idx, err := readI64SignedTypeIdx(c)
	if err != nil {
		return BlockType{}, err
	}
	return BlockType{Kind: BlockKindFuncType, TypeIdx: uint32(idx)}, nil
}

func readI64SignedTypeIdx(c *bytecursor.Cursor) (int64, error) {
	return readI64(c)
}

// decodeImmediates reads the operand(s) for every non-control opcode (i.e.
// every opcode other than block/loop/if/else/end, which are handled by
// decodeInstrSeq itself).
func decodeImmediates(c *bytecursor.Cursor, instr *Instruction) error {
	switch instr.Op {
	case OpUnreachable, OpNop, OpReturn,
		OpDrop, OpSelect,
		OpI32Eqz, OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU, OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU,
		OpI64Eqz, OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU, OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU,
		OpF32Eq, OpF32Ne, OpF32Lt, OpF32Gt, OpF32Le, OpF32Ge,
		OpF64Eq, OpF64Ne, OpF64Lt, OpF64Gt, OpF64Le, OpF64Ge,
		OpI32Clz, OpI32Ctz, OpI32Popcnt, OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU,
		OpI32And, OpI32Or, OpI32Xor, OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr,
		OpI64Clz, OpI64Ctz, OpI64Popcnt, OpI64Add, OpI64Sub, OpI64Mul, OpI64DivS, OpI64DivU, OpI64RemS, OpI64RemU,
		OpI64And, OpI64Or, OpI64Xor, OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr,
		OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt,
		OpF32Add, OpF32Sub, OpF32Mul, OpF32Div, OpF32Min, OpF32Max, OpF32Copysign,
		OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt,
		OpF64Add, OpF64Sub, OpF64Mul, OpF64Div, OpF64Min, OpF64Max, OpF64Copysign,
		OpI32WrapI64, OpI32TruncF32S, OpI32TruncF32U, OpI32TruncF64S, OpI32TruncF64U,
		OpI64ExtendI32S, OpI64ExtendI32U, OpI64TruncF32S, OpI64TruncF32U, OpI64TruncF64S, OpI64TruncF64U,
		OpF32ConvertI32S, OpF32ConvertI32U, OpF32ConvertI64S, OpF32ConvertI64U, OpF32DemoteF64,
		OpF64ConvertI32S, OpF64ConvertI32U, OpF64ConvertI64S, OpF64ConvertI64U, OpF64PromoteF32,
		OpI32ReinterpretF32, OpI64ReinterpretF64, OpF32ReinterpretI32, OpF64ReinterpretI64,
		OpI32Extend8S, OpI32Extend16S, OpI64Extend8S, OpI64Extend16S, OpI64Extend32S,
		OpRefIsNull:
		return nil

	case OpSelectVec:
		n, err := readU32(c)
		if err != nil {
			return err
		}
		types := make([]ValueType, n)
		for i := range types {
			types[i], err = readValueType(c)
			if err != nil {
				return err
			}
		}
		instr.SelectTypes = types
		return nil

	case OpBr, OpBrIf:
		v, err := readU32(c)
		if err != nil {
			return err
		}
		instr.LabelIdx = v
		return nil

	case OpBrTable:
		n, err := readU32(c)
		if err != nil {
			return err
		}
		labels := make([]uint32, n)
		for i := range labels {
			labels[i], err = readU32(c)
			if err != nil {
				return err
			}
		}
		def, err := readU32(c)
		if err != nil {
			return err
		}
		instr.Labels = labels
		instr.Default = def
		return nil

	case OpCall:
		v, err := readU32(c)
		if err != nil {
			return err
		}
		instr.FuncIdx = v
		return nil

	case OpCallIndirect:
		typeIdx, err := readU32(c)
		if err != nil {
			return err
		}
		tableIdx, err := readReservedOrTableIdx(c)
		if err != nil {
			return err
		}
		instr.TypeIdx = typeIdx
		instr.TableIdx = tableIdx
		return nil

	case OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet, OpGlobalSet:
		v, err := readU32(c)
		if err != nil {
			return err
		}
		instr.Idx = v
		return nil

	case OpTableGet, OpTableSet:
		v, err := readU32(c)
		if err != nil {
			return err
		}
		instr.TableIdx = v
		return nil

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		align, err := readU32(c)
		if err != nil {
			return err
		}
		offset, err := readU32(c)
		if err != nil {
			return err
		}
		instr.Mem = MemArg{Align: align, Offset: offset}
		return nil

	case OpMemorySize, OpMemoryGrow:
		b, err := readByte(c)
		if err != nil {
			return err
		}
		if b != 0x00 {
			return NewDecodeError(InvalidOperand, c.Pos(), "reserved memory index byte must be zero")
		}
		return nil

	case OpI32Const:
		v, err := readI32(c)
		if err != nil {
			return err
		}
		instr.I32Val = v
		return nil

	case OpI64Const:
		v, err := readI64(c)
		if err != nil {
			return err
		}
		instr.I64Val = v
		return nil

	case OpF32Const:
		b, err := readBytes(c, 4)
		if err != nil {
			return err
		}
		instr.F32Bits = leU32(b)
		return nil

	case OpF64Const:
		b, err := readBytes(c, 8)
		if err != nil {
			return err
		}
		instr.F64Bits = leU64(b)
		return nil

	case OpRefNull:
		t, err := readRefType(c)
		if err != nil {
			return err
		}
		instr.RefType = t
		return nil

	case OpRefFunc:
		v, err := readU32(c)
		if err != nil {
			return err
		}
		instr.FuncIdx = v
		return nil

	case OpMiscPrefix:
		return decodeMiscImmediates(c, instr)

	case OpSimdPrefix:
		return decodeSimdImmediates(c, instr)

	default:
		return NewDecodeError(UnknownOpcode, c.Pos()-1, "")
	}
}

func readReservedOrTableIdx(c *bytecursor.Cursor) (uint32, error) {
	// The MVP binary format reserves this as a single zero byte; later
	// proposals widen it to a full table index. Accept either encoding's
	// zero case and a real LEB128 table index transparently.
	v, err := readU32(c)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func decodeMiscImmediates(c *bytecursor.Cursor, instr *Instruction) error {
	sub, err := readU32(c)
	if err != nil {
		return err
	}
	instr.Misc = MiscOpcode(sub)
	switch instr.Misc {
	case MiscI32TruncSatF32S, MiscI32TruncSatF32U, MiscI32TruncSatF64S, MiscI32TruncSatF64U,
		MiscI64TruncSatF32S, MiscI64TruncSatF32U, MiscI64TruncSatF64S, MiscI64TruncSatF64U:
		return nil
	case MiscMemoryInit:
		if instr.DataIdx, err = readU32(c); err != nil {
			return err
		}
		return readReservedByte(c)
	case MiscDataDrop:
		instr.DataIdx, err = readU32(c)
		return err
	case MiscMemoryCopy:
		if err := readReservedByte(c); err != nil {
			return err
		}
		return readReservedByte(c)
	case MiscMemoryFill:
		return readReservedByte(c)
	case MiscTableInit:
		if instr.ElemIdx, err = readU32(c); err != nil {
			return err
		}
		instr.TableIdx, err = readU32(c)
		return err
	case MiscElemDrop:
		instr.ElemIdx, err = readU32(c)
		return err
	case MiscTableCopy:
		if instr.TableIdx, err = readU32(c); err != nil {
			return err
		}
		instr.MemIdx, err = readU32(c) // reused to carry the source table index
		return err
	case MiscTableGrow, MiscTableSize, MiscTableFill:
		instr.TableIdx, err = readU32(c)
		return err
	default:
		return NewDecodeError(UnknownOpcode, c.Pos(), "unknown 0xFC sub-opcode")
	}
}

func readReservedByte(c *bytecursor.Cursor) error {
	b, err := readByte(c)
	if err != nil {
		return err
	}
	if b != 0x00 {
		return NewDecodeError(InvalidOperand, c.Pos(), "reserved index byte must be zero")
	}
	return nil
}

func decodeSimdImmediates(c *bytecursor.Cursor, instr *Instruction) error {
	sub, err := readU32(c)
	if err != nil {
		return err
	}
	instr.SimdOp = sub

	if simdHasMemArg(sub) {
		align, err := readU32(c)
		if err != nil {
			return err
		}
		offset, err := readU32(c)
		if err != nil {
			return err
		}
		instr.Mem = MemArg{Align: align, Offset: offset}
		return nil
	}
	if sub == SimdV128Const {
		b, err := readBytes(c, 16)
		if err != nil {
			return err
		}
		copy(instr.V128Const[:], b)
		return nil
	}
	if sub == SimdI8x16Shuffle {
		b, err := readBytes(c, 16)
		if err != nil {
			return err
		}
		instr.Lanes = append([]byte(nil), b...)
		return nil
	}
	if simdHasLaneIdx(sub) {
		b, err := readByte(c)
		if err != nil {
			return err
		}
		instr.Lanes = []byte{b}
		return nil
	}
	// Remaining sub-opcodes (comparisons, bitwise ops, and this
	// repository's arithmetic allocation) take no further immediate.
	return nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

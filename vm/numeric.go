package vm

import (
	"math"
	"math/bits"

	"github.com/chewxy/math32"

	"github.com/friendlymatthew/whale/wasm"
)

// execNumeric dispatches every comparison, arithmetic, and conversion
// opcode in the range [i32.eqz .. f64.reinterpret_i64]. Binary operators
// follow spec.md §9's resolved pop order: b = pop; a = pop; push(a op b).
func (f *activation) execNumeric(instr wasm.Instruction) error {
	switch {
	case instr.Op >= wasm.OpI32Eqz && instr.Op <= wasm.OpI32GeU:
		return f.execI32Compare(instr.Op)
	case instr.Op >= wasm.OpI64Eqz && instr.Op <= wasm.OpI64GeU:
		return f.execI64Compare(instr.Op)
	case instr.Op >= wasm.OpF32Eq && instr.Op <= wasm.OpF32Ge:
		f.execF32Compare(instr.Op)
		return nil
	case instr.Op >= wasm.OpF64Eq && instr.Op <= wasm.OpF64Ge:
		f.execF64Compare(instr.Op)
		return nil
	case instr.Op >= wasm.OpI32Clz && instr.Op <= wasm.OpI32Rotr:
		return f.execI32Arith(instr.Op)
	case instr.Op >= wasm.OpI64Clz && instr.Op <= wasm.OpI64Rotr:
		return f.execI64Arith(instr.Op)
	case instr.Op >= wasm.OpF32Abs && instr.Op <= wasm.OpF32Copysign:
		f.execF32Arith(instr.Op)
		return nil
	case instr.Op >= wasm.OpF64Abs && instr.Op <= wasm.OpF64Copysign:
		f.execF64Arith(instr.Op)
		return nil
	case instr.Op >= wasm.OpI32WrapI64 && instr.Op <= wasm.OpF64ReinterpretI64:
		return f.execConversion(instr.Op)
	}
	return NewTrap(Unreachable, "unimplemented numeric opcode")
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (f *activation) execI32Compare(op wasm.Opcode) error {
	if op == wasm.OpI32Eqz {
		f.push(wasm.I32(b2i(f.pop().I32() == 0)))
		return nil
	}
	b := f.pop().I32()
	a := f.pop().I32()
	ub, ua := uint32(b), uint32(a)
	var r int32
	switch op {
	case wasm.OpI32Eq:
		r = b2i(a == b)
	case wasm.OpI32Ne:
		r = b2i(a != b)
	case wasm.OpI32LtS:
		r = b2i(a < b)
	case wasm.OpI32LtU:
		r = b2i(ua < ub)
	case wasm.OpI32GtS:
		r = b2i(a > b)
	case wasm.OpI32GtU:
		r = b2i(ua > ub)
	case wasm.OpI32LeS:
		r = b2i(a <= b)
	case wasm.OpI32LeU:
		r = b2i(ua <= ub)
	case wasm.OpI32GeS:
		r = b2i(a >= b)
	case wasm.OpI32GeU:
		r = b2i(ua >= ub)
	}
	f.push(wasm.I32(r))
	return nil
}

func (f *activation) execI64Compare(op wasm.Opcode) error {
	if op == wasm.OpI64Eqz {
		f.push(wasm.I32(b2i(f.pop().I64() == 0)))
		return nil
	}
	b := f.pop().I64()
	a := f.pop().I64()
	ub, ua := uint64(b), uint64(a)
	var r int32
	switch op {
	case wasm.OpI64Eq:
		r = b2i(a == b)
	case wasm.OpI64Ne:
		r = b2i(a != b)
	case wasm.OpI64LtS:
		r = b2i(a < b)
	case wasm.OpI64LtU:
		r = b2i(ua < ub)
	case wasm.OpI64GtS:
		r = b2i(a > b)
	case wasm.OpI64GtU:
		r = b2i(ua > ub)
	case wasm.OpI64LeS:
		r = b2i(a <= b)
	case wasm.OpI64LeU:
		r = b2i(ua <= ub)
	case wasm.OpI64GeS:
		r = b2i(a >= b)
	case wasm.OpI64GeU:
		r = b2i(ua >= ub)
	}
	f.push(wasm.I32(r))
	return nil
}

func (f *activation) execF32Compare(op wasm.Opcode) {
	b := f.pop().F32()
	a := f.pop().F32()
	var r int32
	switch op {
	case wasm.OpF32Eq:
		r = b2i(a == b)
	case wasm.OpF32Ne:
		r = b2i(a != b)
	case wasm.OpF32Lt:
		r = b2i(a < b)
	case wasm.OpF32Gt:
		r = b2i(a > b)
	case wasm.OpF32Le:
		r = b2i(a <= b)
	case wasm.OpF32Ge:
		r = b2i(a >= b)
	}
	f.push(wasm.I32(r))
}

func (f *activation) execF64Compare(op wasm.Opcode) {
	b := f.pop().F64()
	a := f.pop().F64()
	var r int32
	switch op {
	case wasm.OpF64Eq:
		r = b2i(a == b)
	case wasm.OpF64Ne:
		r = b2i(a != b)
	case wasm.OpF64Lt:
		r = b2i(a < b)
	case wasm.OpF64Gt:
		r = b2i(a > b)
	case wasm.OpF64Le:
		r = b2i(a <= b)
	case wasm.OpF64Ge:
		r = b2i(a >= b)
	}
	f.push(wasm.I32(r))
}

func (f *activation) execI32Arith(op wasm.Opcode) error {
	if op == wasm.OpI32Clz {
		f.push(wasm.I32(int32(bits.LeadingZeros32(uint32(f.pop().I32())))))
		return nil
	}
	if op == wasm.OpI32Ctz {
		f.push(wasm.I32(int32(bits.TrailingZeros32(uint32(f.pop().I32())))))
		return nil
	}
	if op == wasm.OpI32Popcnt {
		f.push(wasm.I32(int32(bits.OnesCount32(uint32(f.pop().I32())))))
		return nil
	}
	b := f.pop().I32()
	a := f.pop().I32()
	ub, ua := uint32(b), uint32(a)
	var c int32
	switch op {
	case wasm.OpI32Add:
		c = a + b
	case wasm.OpI32Sub:
		c = a - b
	case wasm.OpI32Mul:
		c = a * b
	case wasm.OpI32DivS:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		if a == math.MinInt32 && b == -1 {
			return NewTrap(IntegerOverflow, "")
		}
		c = a / b
	case wasm.OpI32DivU:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		c = int32(ua / ub)
	case wasm.OpI32RemS:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		if a == math.MinInt32 && b == -1 {
			c = 0
		} else {
			c = a % b
		}
	case wasm.OpI32RemU:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		c = int32(ua % ub)
	case wasm.OpI32And:
		c = a & b
	case wasm.OpI32Or:
		c = a | b
	case wasm.OpI32Xor:
		c = a ^ b
	case wasm.OpI32Shl:
		c = a << (ub % 32)
	case wasm.OpI32ShrS:
		c = a >> (ub % 32)
	case wasm.OpI32ShrU:
		c = int32(ua >> (ub % 32))
	case wasm.OpI32Rotl:
		c = int32(bits.RotateLeft32(ua, int(ub)))
	case wasm.OpI32Rotr:
		c = int32(bits.RotateLeft32(ua, -int(ub)))
	}
	f.push(wasm.I32(c))
	return nil
}

func (f *activation) execI64Arith(op wasm.Opcode) error {
	if op == wasm.OpI64Clz {
		f.push(wasm.I64(int64(bits.LeadingZeros64(uint64(f.pop().I64())))))
		return nil
	}
	if op == wasm.OpI64Ctz {
		f.push(wasm.I64(int64(bits.TrailingZeros64(uint64(f.pop().I64())))))
		return nil
	}
	if op == wasm.OpI64Popcnt {
		f.push(wasm.I64(int64(bits.OnesCount64(uint64(f.pop().I64())))))
		return nil
	}
	b := f.pop().I64()
	a := f.pop().I64()
	ub, ua := uint64(b), uint64(a)
	var c int64
	switch op {
	case wasm.OpI64Add:
		c = a + b
	case wasm.OpI64Sub:
		c = a - b
	case wasm.OpI64Mul:
		c = a * b
	case wasm.OpI64DivS:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		if a == math.MinInt64 && b == -1 {
			return NewTrap(IntegerOverflow, "")
		}
		c = a / b
	case wasm.OpI64DivU:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		c = int64(ua / ub)
	case wasm.OpI64RemS:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		if a == math.MinInt64 && b == -1 {
			c = 0
		} else {
			c = a % b
		}
	case wasm.OpI64RemU:
		if b == 0 {
			return NewTrap(DivByZero, "")
		}
		c = int64(ua % ub)
	case wasm.OpI64And:
		c = a & b
	case wasm.OpI64Or:
		c = a | b
	case wasm.OpI64Xor:
		c = a ^ b
	case wasm.OpI64Shl:
		c = a << (ub % 64)
	case wasm.OpI64ShrS:
		c = a >> (ub % 64)
	case wasm.OpI64ShrU:
		c = int64(ua >> (ub % 64))
	case wasm.OpI64Rotl:
		c = int64(bits.RotateLeft64(ua, int(ub)))
	case wasm.OpI64Rotr:
		c = int64(bits.RotateLeft64(ua, -int(ub)))
	}
	f.push(wasm.I64(c))
	return nil
}

func (f *activation) execF32Arith(op wasm.Opcode) {
	switch op {
	case wasm.OpF32Abs:
		f.push(wasm.F32(math32.Abs(f.pop().F32())))
	case wasm.OpF32Neg:
		f.push(wasm.F32(-f.pop().F32()))
	case wasm.OpF32Ceil:
		f.push(wasm.F32(math32.Ceil(f.pop().F32())))
	case wasm.OpF32Floor:
		f.push(wasm.F32(math32.Floor(f.pop().F32())))
	case wasm.OpF32Trunc:
		f.push(wasm.F32(math32.Trunc(f.pop().F32())))
	case wasm.OpF32Nearest:
		v := f.pop().F32()
		f.push(wasm.F32(float32(math.RoundToEven(float64(v)))))
	case wasm.OpF32Sqrt:
		f.push(wasm.F32(math32.Sqrt(f.pop().F32())))
	default:
		b := f.pop().F32()
		a := f.pop().F32()
		var c float32
		switch op {
		case wasm.OpF32Add:
			c = a + b
		case wasm.OpF32Sub:
			c = a - b
		case wasm.OpF32Mul:
			c = a * b
		case wasm.OpF32Div:
			c = a / b
		case wasm.OpF32Min:
			c = f32Min(a, b)
		case wasm.OpF32Max:
			c = f32Max(a, b)
		case wasm.OpF32Copysign:
			c = f32Copysign(a, b)
		}
		f.push(wasm.F32(c))
	}
}

func (f *activation) execF64Arith(op wasm.Opcode) {
	switch op {
	case wasm.OpF64Abs:
		f.push(wasm.F64(math.Abs(f.pop().F64())))
	case wasm.OpF64Neg:
		f.push(wasm.F64(-f.pop().F64()))
	case wasm.OpF64Ceil:
		f.push(wasm.F64(math.Ceil(f.pop().F64())))
	case wasm.OpF64Floor:
		f.push(wasm.F64(math.Floor(f.pop().F64())))
	case wasm.OpF64Trunc:
		f.push(wasm.F64(math.Trunc(f.pop().F64())))
	case wasm.OpF64Nearest:
		f.push(wasm.F64(math.RoundToEven(f.pop().F64())))
	case wasm.OpF64Sqrt:
		f.push(wasm.F64(math.Sqrt(f.pop().F64())))
	default:
		b := f.pop().F64()
		a := f.pop().F64()
		var c float64
		switch op {
		case wasm.OpF64Add:
			c = a + b
		case wasm.OpF64Sub:
			c = a - b
		case wasm.OpF64Mul:
			c = a * b
		case wasm.OpF64Div:
			c = a / b
		case wasm.OpF64Min:
			c = f64Min(a, b)
		case wasm.OpF64Max:
			c = f64Max(a, b)
		case wasm.OpF64Copysign:
			c = math.Copysign(a, b)
		}
		f.push(wasm.F64(c))
	}
}

// f32Min/f32Max/f64Min/f64Max implement IEEE-754 min/max with NaN
// propagation, per spec.md §4.5 ("min/max propagate NaN").
func f32Min(a, b float32) float32 {
	if math32.IsNaN(a) || math32.IsNaN(b) {
		return math32.NaN()
	}
	if a == 0 && b == 0 {
		if math32.Signbit(a) {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

func f32Max(a, b float32) float32 {
	if math32.IsNaN(a) || math32.IsNaN(b) {
		return math32.NaN()
	}
	if a == 0 && b == 0 {
		if math32.Signbit(a) {
			return b
		}
		return a
	}
	if a > b {
		return a
	}
	return b
}

func f32Copysign(a, b float32) float32 {
	abits := math.Float32bits(a) &^ (1 << 31)
	bsign := math.Float32bits(b) & (1 << 31)
	return math.Float32frombits(abits | bsign)
}

func f64Min(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

func f64Max(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return b
		}
		return a
	}
	if a > b {
		return a
	}
	return b
}

func (f *activation) execConversion(op wasm.Opcode) error {
	switch op {
	case wasm.OpI32WrapI64:
		f.push(wasm.I32(int32(f.pop().I64())))
	case wasm.OpI32TruncF32S:
		v, err := truncToI32(float64(f.pop().F32()), true)
		if err != nil {
			return err
		}
		f.push(wasm.I32(v))
	case wasm.OpI32TruncF32U:
		v, err := truncToU32(float64(f.pop().F32()))
		if err != nil {
			return err
		}
		f.push(wasm.U32(v))
	case wasm.OpI32TruncF64S:
		v, err := truncToI32(f.pop().F64(), true)
		if err != nil {
			return err
		}
		f.push(wasm.I32(v))
	case wasm.OpI32TruncF64U:
		v, err := truncToU32(f.pop().F64())
		if err != nil {
			return err
		}
		f.push(wasm.U32(v))
	case wasm.OpI64ExtendI32S:
		f.push(wasm.I64(int64(f.pop().I32())))
	case wasm.OpI64ExtendI32U:
		f.push(wasm.I64(int64(f.pop().U32())))
	case wasm.OpI64TruncF32S:
		v, err := truncToI64(float64(f.pop().F32()))
		if err != nil {
			return err
		}
		f.push(wasm.I64(v))
	case wasm.OpI64TruncF32U:
		v, err := truncToU64(float64(f.pop().F32()))
		if err != nil {
			return err
		}
		f.push(wasm.U64(v))
	case wasm.OpI64TruncF64S:
		v, err := truncToI64(f.pop().F64())
		if err != nil {
			return err
		}
		f.push(wasm.I64(v))
	case wasm.OpI64TruncF64U:
		v, err := truncToU64(f.pop().F64())
		if err != nil {
			return err
		}
		f.push(wasm.U64(v))
	case wasm.OpF32ConvertI32S:
		f.push(wasm.F32(float32(f.pop().I32())))
	case wasm.OpF32ConvertI32U:
		f.push(wasm.F32(float32(f.pop().U32())))
	case wasm.OpF32ConvertI64S:
		f.push(wasm.F32(float32(f.pop().I64())))
	case wasm.OpF32ConvertI64U:
		f.push(wasm.F32(float32(f.pop().U64())))
	case wasm.OpF32DemoteF64:
		f.push(wasm.F32(float32(f.pop().F64())))
	case wasm.OpF64ConvertI32S:
		f.push(wasm.F64(float64(f.pop().I32())))
	case wasm.OpF64ConvertI32U:
		f.push(wasm.F64(float64(f.pop().U32())))
	case wasm.OpF64ConvertI64S:
		f.push(wasm.F64(float64(f.pop().I64())))
	case wasm.OpF64ConvertI64U:
		f.push(wasm.F64(float64(f.pop().U64())))
	case wasm.OpF64PromoteF32:
		f.push(wasm.F64(float64(f.pop().F32())))
	case wasm.OpI32ReinterpretF32:
		f.push(wasm.U32(uint32(f.pop().Lo)))
	case wasm.OpI64ReinterpretF64:
		f.push(wasm.U64(f.pop().Lo))
	case wasm.OpF32ReinterpretI32:
		f.push(wasm.Value{Type: wasm.ValueTypeF32, Lo: uint64(f.pop().U32())})
	case wasm.OpF64ReinterpretI64:
		f.push(wasm.Value{Type: wasm.ValueTypeF64, Lo: f.pop().U64()})
	}
	return nil
}

func truncToI32(v float64, _ bool) (int32, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewTrap(InvalidConversionToInt, "")
	}
	t := math.Trunc(v)
	if t < math.MinInt32 || t > math.MaxInt32 {
		return 0, NewTrap(IntegerOverflow, "")
	}
	return int32(t), nil
}

func truncToU32(v float64) (uint32, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewTrap(InvalidConversionToInt, "")
	}
	t := math.Trunc(v)
	if t < 0 || t > math.MaxUint32 {
		return 0, NewTrap(IntegerOverflow, "")
	}
	return uint32(t), nil
}

func truncToI64(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewTrap(InvalidConversionToInt, "")
	}
	t := math.Trunc(v)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, NewTrap(IntegerOverflow, "")
	}
	return int64(t), nil
}

func truncToU64(v float64) (uint64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewTrap(InvalidConversionToInt, "")
	}
	t := math.Trunc(v)
	if t < 0 || t >= math.MaxUint64 {
		return 0, NewTrap(IntegerOverflow, "")
	}
	return uint64(t), nil
}

// truncSat implements the 0xFC saturating-truncation family: NaN saturates
// to 0, out-of-range saturates to the destination's min/max instead of
// trapping, per spec.md §4.5.
func truncSatToI32(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	if t < math.MinInt32 {
		return math.MinInt32
	}
	if t > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(t)
}

func truncSatToU32(v float64) uint32 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	if t < 0 {
		return 0
	}
	if t > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(t)
}

func truncSatToI64(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	if t < math.MinInt64 {
		return math.MinInt64
	}
	if t >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(t)
}

func truncSatToU64(v float64) uint64 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	if t < 0 {
		return 0
	}
	if t >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(t)
}

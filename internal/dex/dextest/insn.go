package dextest

import "dexspect/internal/dalvik"

// Insn encodes one instruction, interning any ids it references.
type Insn func(b *Builder) []uint16

func units(u ...uint16) Insn { return func(*Builder) []uint16 { return u } }

func op8(op dalvik.Opcode, hi uint32) uint16 { return uint16(hi&0xff)<<8 | uint16(op) }

// Raw emits code units verbatim.
func Raw(u ...uint16) Insn { return units(u...) }

func Nop() Insn           { return units(0x0000) }
func ReturnVoid() Insn    { return units(0x000e) }
func Return(a uint8) Insn { return units(op8(0x0f, uint32(a))) }
func ReturnObject(a uint8) Insn {
	return units(op8(0x11, uint32(a)))
}
func MoveResult(a uint8) Insn       { return units(op8(0x0a, uint32(a))) }
func MoveResultObject(a uint8) Insn { return units(op8(0x0c, uint32(a))) }
func Throw(a uint8) Insn            { return units(op8(0x27, uint32(a))) }

// Const4 is const/4 vA, #lit with a 4-bit signed literal.
func Const4(a uint8, lit int8) Insn {
	return units(uint16(lit&0xf)<<12 | uint16(a&0xf)<<8 | 0x12)
}

func Const16(a uint8, lit int16) Insn { return units(op8(0x13, uint32(a)), uint16(lit)) }

func Const(a uint8, lit int32) Insn {
	return units(op8(0x14, uint32(a)), uint16(uint32(lit)), uint16(uint32(lit)>>16))
}

func ConstString(a uint8, s string) Insn {
	return func(b *Builder) []uint16 { return []uint16{op8(0x1a, uint32(a)), uint16(b.stringID(s))} }
}

func ConstStringJumbo(a uint8, s string) Insn {
	return func(b *Builder) []uint16 {
		idx := b.stringID(s)
		return []uint16{op8(0x1b, uint32(a)), uint16(idx), uint16(idx >> 16)}
	}
}

func ConstClass(a uint8, desc string) Insn  { return typeInsn(0x1c, a, desc) }
func NewInstance(a uint8, desc string) Insn { return typeInsn(0x22, a, desc) }
func CheckCast(a uint8, desc string) Insn   { return typeInsn(0x1f, a, desc) }

func typeInsn(op dalvik.Opcode, a uint8, desc string) Insn {
	return func(b *Builder) []uint16 { return []uint16{op8(op, uint32(a)), uint16(b.typeID(desc))} }
}

func Goto(off int8) Insn    { return units(op8(0x28, uint32(uint8(off)))) }
func Goto16(off int16) Insn { return units(0x0029, uint16(off)) }
func Goto32(off int32) Insn { return units(0x002a, uint16(uint32(off)), uint16(uint32(off)>>16)) }

func IfEqz(a uint8, off int16) Insn { return units(op8(0x38, uint32(a)), uint16(off)) }
func IfNez(a uint8, off int16) Insn { return units(op8(0x39, uint32(a)), uint16(off)) }

// IfEq is if-eq vA, vB, +off.
func IfEq(a, b uint8, off int16) Insn {
	return units(op8(0x32, uint32(b&0xf)<<4|uint32(a&0xf)), uint16(off))
}

// Iget and friends take the 22c form: op vA, vB, field.
func Iget(a, obj uint8, f dalvik.FieldRef) Insn       { return instanceField(0x52, a, obj, f) }
func IgetObject(a, obj uint8, f dalvik.FieldRef) Insn { return instanceField(0x54, a, obj, f) }
func IgetWide(a, obj uint8, f dalvik.FieldRef) Insn   { return instanceField(0x53, a, obj, f) }
func Iput(a, obj uint8, f dalvik.FieldRef) Insn       { return instanceField(0x59, a, obj, f) }
func IputBoolean(a, obj uint8, f dalvik.FieldRef) Insn {
	return instanceField(0x5c, a, obj, f)
}

func instanceField(op dalvik.Opcode, a, obj uint8, f dalvik.FieldRef) Insn {
	return func(b *Builder) []uint16 {
		return []uint16{op8(op, uint32(obj&0xf)<<4|uint32(a&0xf)), uint16(b.fieldID(f))}
	}
}

func Sget(a uint8, f dalvik.FieldRef) Insn       { return staticField(0x60, a, f) }
func SgetObject(a uint8, f dalvik.FieldRef) Insn { return staticField(0x62, a, f) }
func Sput(a uint8, f dalvik.FieldRef) Insn       { return staticField(0x67, a, f) }
func SputShort(a uint8, f dalvik.FieldRef) Insn  { return staticField(0x6d, a, f) }

func staticField(op dalvik.Opcode, a uint8, f dalvik.FieldRef) Insn {
	return func(b *Builder) []uint16 { return []uint16{op8(op, uint32(a)), uint16(b.fieldID(f))} }
}

func InvokeVirtual(m dalvik.MethodRef, args ...uint8) Insn {
	return Invoke(dalvik.OpInvokeVirtual, m, args...)
}

func InvokeSuper(m dalvik.MethodRef, args ...uint8) Insn {
	return Invoke(dalvik.OpInvokeSuper, m, args...)
}

func InvokeDirect(m dalvik.MethodRef, args ...uint8) Insn {
	return Invoke(dalvik.OpInvokeDirect, m, args...)
}

func InvokeStatic(m dalvik.MethodRef, args ...uint8) Insn {
	return Invoke(dalvik.OpInvokeStatic, m, args...)
}

func InvokeInterface(m dalvik.MethodRef, args ...uint8) Insn {
	return Invoke(dalvik.OpInvokeInterface, m, args...)
}

// Invoke encodes a 35c invoke with up to five argument registers.
func Invoke(op dalvik.Opcode, m dalvik.MethodRef, args ...uint8) Insn {
	if len(args) > 5 {
		panic("dextest: invoke takes at most 5 registers")
	}
	return func(b *Builder) []uint16 {
		var regs [5]uint16
		for i, r := range args {
			regs[i] = uint16(r & 0xf)
		}
		first := uint16(len(args))<<12 | regs[4]<<8 | uint16(op)
		return []uint16{first, uint16(b.methodID(m)), regs[0] | regs[1]<<4 | regs[2]<<8 | regs[3]<<12}
	}
}

// InvokeRange encodes a 3rc invoke over count registers from first.
func InvokeRange(op dalvik.Opcode, m dalvik.MethodRef, first uint16, count uint8) Insn {
	return func(b *Builder) []uint16 {
		return []uint16{op8(op, uint32(count)), uint16(b.methodID(m)), first}
	}
}

func PackedSwitch(a uint8, payload int32) Insn { return branch31(0x2b, a, payload) }
func SparseSwitch(a uint8, payload int32) Insn { return branch31(0x2c, a, payload) }
func FillArrayData(a uint8, payload int32) Insn {
	return branch31(0x26, a, payload)
}

func branch31(op dalvik.Opcode, a uint8, off int32) Insn {
	return units(op8(op, uint32(a)), uint16(uint32(off)), uint16(uint32(off)>>16))
}

func split32(v int32) (uint16, uint16) { return uint16(uint32(v)), uint16(uint32(v) >> 16) }

// PackedSwitchPayload encodes consecutive keys from first.
func PackedSwitchPayload(first int32, targets ...int32) Insn {
	lo, hi := split32(first)
	u := []uint16{uint16(dalvik.OpPackedSwitchPayload), uint16(len(targets)), lo, hi}
	for _, t := range targets {
		lo, hi := split32(t)
		u = append(u, lo, hi)
	}
	return units(u...)
}

// SparseSwitchPayload encodes sorted keys and their targets.
func SparseSwitchPayload(keys, targets []int32) Insn {
	u := []uint16{uint16(dalvik.OpSparseSwitchPayload), uint16(len(keys))}
	for _, list := range [][]int32{keys, targets} {
		for _, v := range list {
			lo, hi := split32(v)
			u = append(u, lo, hi)
		}
	}
	return units(u...)
}

// FillArrayPayload encodes data as elements of width bytes each.
func FillArrayPayload(width uint16, data []byte) Insn {
	n := uint32(len(data)) / uint32(width)
	u := []uint16{uint16(dalvik.OpFillArrayDataPayload), width, uint16(n), uint16(n >> 16)}
	for i := 0; i < len(data); i += 2 {
		w := uint16(data[i])
		if i+1 < len(data) {
			w |= uint16(data[i+1]) << 8
		}
		u = append(u, w)
	}
	return units(u...)
}

package dalvik

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated     = errors.New("dalvik: truncated instruction")
	ErrUnusedOpcode  = errors.New("dalvik: unused opcode")
	ErrBadPayload    = errors.New("dalvik: bad payload")
	ErrBadArgCount   = errors.New("dalvik: bad argument count")
	ErrStepLimit     = errors.New("dalvik: instruction limit reached")
	ErrNoInstruction = errors.New("dalvik: no instruction at offset")
)

// Resolver resolves constant pool indices to symbolic references.
type Resolver interface {
	String(idx uint32) (string, error)
	Type(idx uint32) (string, error)
	Field(idx uint32) (FieldRef, error)
	Method(idx uint32) (MethodRef, error)
	Proto(idx uint32) (Proto, error)
}

// Decode decodes a method body given as 16-bit code units. Every index
// operand is resolved through res, so the returned instructions carry
// their symbolic references. Switch and fill-array-data instructions are
// linked to their payloads.
//
// maxSteps caps the number of decoded instructions; 0 means no cap. When
// the cap is hit the instructions decoded so far are returned together
// with ErrStepLimit.
func Decode(units []uint16, res Resolver, maxSteps int) ([]Inst, error) {
	var insts []Inst
	for pc := 0; pc < len(units); {
		if maxSteps > 0 && len(insts) >= maxSteps {
			return insts, fmt.Errorf("%w: %d instructions", ErrStepLimit, maxSteps)
		}
		inst, err := decodeOne(units, pc, res)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
		pc += inst.Size
	}
	if err := linkPayloads(insts); err != nil {
		return nil, err
	}
	return insts, nil
}

func decodeOne(units []uint16, pc int, res Resolver) (Inst, error) {
	w := units[pc]
	op := Opcode(w & 0xff)
	if op == OpNop && w != 0 {
		return decodePayload(units, pc)
	}
	info, ok := op.info()
	if !ok {
		return Inst{}, fmt.Errorf("%w 0x%02x at 0x%04x", ErrUnusedOpcode, uint16(op), pc)
	}
	n := info.format.Units()
	if pc+n > len(units) {
		return Inst{}, fmt.Errorf("%w: %s at 0x%04x needs %d units", ErrTruncated, op, pc, n)
	}
	u := units[pc : pc+n]
	inst := Inst{Offset: uint32(pc), Op: op, Size: n}
	hi := uint32(w >> 8)
	var index uint32

	switch info.format {
	case Fmt10x:
	case Fmt12x:
		inst.A, inst.B = hi&0xf, hi>>4
	case Fmt11n:
		inst.A = hi & 0xf
		inst.Literal = int64(int8(uint8(hi)) >> 4)
	case Fmt11x:
		inst.A = hi
	case Fmt10t:
		inst.Branch = int32(int8(uint8(hi)))
	case Fmt20t:
		inst.Branch = int32(int16(u[1]))
	case Fmt22x:
		inst.A, inst.B = hi, uint32(u[1])
	case Fmt21t:
		inst.A, inst.Branch = hi, int32(int16(u[1]))
	case Fmt21s:
		inst.A, inst.Literal = hi, int64(int16(u[1]))
	case Fmt21h:
		inst.A = hi
		if op == 0x15 {
			inst.Literal = int64(int16(u[1])) << 16
		} else {
			inst.Literal = int64(int16(u[1])) << 48
		}
	case Fmt21c:
		inst.A, index = hi, uint32(u[1])
	case Fmt23x:
		inst.A, inst.B, inst.C = hi, uint32(u[1]&0xff), uint32(u[1]>>8)
	case Fmt22b:
		inst.A, inst.B = hi, uint32(u[1]&0xff)
		inst.Literal = int64(int8(uint8(u[1] >> 8)))
	case Fmt22t:
		inst.A, inst.B, inst.Branch = hi&0xf, hi>>4, int32(int16(u[1]))
	case Fmt22s:
		inst.A, inst.B, inst.Literal = hi&0xf, hi>>4, int64(int16(u[1]))
	case Fmt22c:
		inst.A, inst.B, index = hi&0xf, hi>>4, uint32(u[1])
	case Fmt30t:
		inst.Branch = int32(uint32(u[1]) | uint32(u[2])<<16)
	case Fmt32x:
		inst.A, inst.B = uint32(u[1]), uint32(u[2])
	case Fmt31i:
		inst.A, inst.Literal = hi, int64(int32(uint32(u[1])|uint32(u[2])<<16))
	case Fmt31t:
		inst.A, inst.Branch = hi, int32(uint32(u[1])|uint32(u[2])<<16)
	case Fmt31c:
		inst.A, index = hi, uint32(u[1])|uint32(u[2])<<16
	case Fmt35c, Fmt45cc:
		count := hi >> 4
		if count > 5 {
			return Inst{}, fmt.Errorf("%w: %s at 0x%04x has %d args", ErrBadArgCount, op, pc, count)
		}
		regs := [5]uint16{u[2] & 0xf, (u[2] >> 4) & 0xf, (u[2] >> 8) & 0xf, u[2] >> 12, uint16(hi & 0xf)}
		inst.A, index = count, uint32(u[1])
		inst.Args = append([]uint16(nil), regs[:count]...)
	case Fmt3rc, Fmt4rcc:
		inst.A, index, inst.C = hi, uint32(u[1]), uint32(u[2])
		inst.Args = make([]uint16, hi)
		for k := range inst.Args {
			inst.Args[k] = uint16(inst.C) + uint16(k)
		}
	case Fmt51l:
		inst.A = hi
		inst.Literal = int64(uint64(u[1]) | uint64(u[2])<<16 | uint64(u[3])<<32 | uint64(u[4])<<48)
	}

	if info.ref != RefNone {
		ref, err := resolve(res, info.ref, index)
		if err != nil {
			return Inst{}, fmt.Errorf("dalvik: %s at 0x%04x: %w", op, pc, err)
		}
		if info.format == Fmt45cc || info.format == Fmt4rcc {
			ref.Proto, err = res.Proto(uint32(u[3]))
			if err != nil {
				return Inst{}, fmt.Errorf("dalvik: %s at 0x%04x: proto: %w", op, pc, err)
			}
		}
		inst.Ref = ref
	}
	return inst, nil
}

func resolve(res Resolver, kind RefKind, index uint32) (Ref, error) {
	ref := Ref{Kind: kind, Index: index}
	var err error
	switch kind {
	case RefString:
		ref.String, err = res.String(index)
	case RefType:
		ref.String, err = res.Type(index)
	case RefField:
		ref.Field, err = res.Field(index)
	case RefMethod:
		ref.Method, err = res.Method(index)
	case RefProto:
		ref.Proto, err = res.Proto(index)
	case RefCallSite, RefMethodHandle:
		// Call sites and method handles are kept by index.
	}
	return ref, err
}

func decodePayload(units []uint16, pc int) (Inst, error) {
	op := Opcode(units[pc])
	rest := units[pc:]
	u32 := func(i int) uint32 { return uint32(rest[i]) | uint32(rest[i+1])<<16 }
	p := &Payload{}
	var n int

	switch op {
	case OpPackedSwitchPayload:
		if len(rest) < 4 {
			return Inst{}, fmt.Errorf("%w: packed-switch at 0x%04x", ErrTruncated, pc)
		}
		size := int(rest[1])
		n = 4 + size*2
		if len(rest) < n {
			return Inst{}, fmt.Errorf("%w: packed-switch at 0x%04x", ErrTruncated, pc)
		}
		p.FirstKey = int32(u32(2))
		p.Targets = make([]int32, size)
		for k := range size {
			p.Targets[k] = int32(u32(4 + 2*k))
		}
	case OpSparseSwitchPayload:
		if len(rest) < 2 {
			return Inst{}, fmt.Errorf("%w: sparse-switch at 0x%04x", ErrTruncated, pc)
		}
		size := int(rest[1])
		n = 2 + size*4
		if len(rest) < n {
			return Inst{}, fmt.Errorf("%w: sparse-switch at 0x%04x", ErrTruncated, pc)
		}
		p.Keys = make([]int32, size)
		p.Targets = make([]int32, size)
		for k := range size {
			p.Keys[k] = int32(u32(2 + 2*k))
			p.Targets[k] = int32(u32(2 + 2*size + 2*k))
		}
	case OpFillArrayDataPayload:
		if len(rest) < 4 {
			return Inst{}, fmt.Errorf("%w: fill-array-data at 0x%04x", ErrTruncated, pc)
		}
		p.ElementWidth = rest[1]
		size := int(u32(2))
		nbytes := size * int(p.ElementWidth)
		n = 4 + (nbytes+1)/2
		if size < 0 || len(rest) < n {
			return Inst{}, fmt.Errorf("%w: fill-array-data at 0x%04x", ErrTruncated, pc)
		}
		p.Data = make([]byte, nbytes)
		for k := range nbytes {
			word := rest[4+k/2]
			p.Data[k] = byte(word >> (8 * (k % 2)))
		}
	default:
		return Inst{}, fmt.Errorf("%w: ident 0x%04x at 0x%04x", ErrBadPayload, uint16(op), pc)
	}
	return Inst{Offset: uint32(pc), Op: op, Size: n, Payload: p}, nil
}

// linkPayloads attaches each switch and fill-array-data instruction to
// the payload its branch operand points at.
func linkPayloads(insts []Inst) error {
	byOffset := make(map[uint32]int, len(insts))
	for i, inst := range insts {
		byOffset[inst.Offset] = i
	}
	for i := range insts {
		inst := &insts[i]
		var want Opcode
		switch inst.Op {
		case OpPackedSwitch:
			want = OpPackedSwitchPayload
		case OpSparseSwitch:
			want = OpSparseSwitchPayload
		case OpFillArrayData:
			want = OpFillArrayDataPayload
		default:
			continue
		}
		target := int64(inst.Offset) + int64(inst.Branch)
		j, ok := byOffset[uint32(target)]
		if target < 0 || !ok || insts[j].Op != want {
			return fmt.Errorf("%w: %s at 0x%04x points at 0x%x", ErrBadPayload, inst.Op, inst.Offset, target)
		}
		inst.Payload = insts[j].Payload
	}
	return nil
}

// IndexAt returns the index of the instruction starting at code-unit
// offset off.
func IndexAt(insts []Inst, off uint32) (int, error) {
	lo, hi := 0, len(insts)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case insts[mid].Offset == off:
			return mid, nil
		case insts[mid].Offset < off:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1, fmt.Errorf("%w 0x%04x", ErrNoInstruction, off)
}

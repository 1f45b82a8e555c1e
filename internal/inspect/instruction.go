package inspect

import "dexspect/internal/dalvik"

// InstructionSubject wraps one decoded instruction. The zero value is
// absent and every predicate on it is false.
type InstructionSubject struct {
	inst *dalvik.Inst
}

// Present reports whether the subject holds an instruction.
func (s InstructionSubject) Present() bool { return s.inst != nil }

// Inst returns the decoded instruction. It panics on an absent subject.
func (s InstructionSubject) Inst() dalvik.Inst { return *s.inst }

func (s InstructionSubject) kind() dalvik.Kind {
	if s.inst == nil {
		return dalvik.KindOther
	}
	return s.inst.Kind()
}

func (s InstructionSubject) category() dalvik.Category {
	if s.inst == nil {
		return dalvik.CategoryOther
	}
	return s.inst.Category()
}

func (s InstructionSubject) is(k dalvik.Kind) bool { return s.inst != nil && s.inst.Kind() == k }

// Kind returns the classification. Absent subjects are KindOther.
func (s InstructionSubject) Kind() dalvik.Kind { return s.kind() }

// Offset is the code-unit offset within the method body.
func (s InstructionSubject) Offset() uint32 {
	if s.inst == nil {
		return 0
	}
	return s.inst.Offset
}

func (s InstructionSubject) IsInvoke() bool          { return s.category() == dalvik.CategoryInvoke }
func (s InstructionSubject) IsInvokeVirtual() bool   { return s.is(dalvik.KindInvokeVirtual) }
func (s InstructionSubject) IsInvokeInterface() bool { return s.is(dalvik.KindInvokeInterface) }
func (s InstructionSubject) IsInvokeDirect() bool    { return s.is(dalvik.KindInvokeDirect) }
func (s InstructionSubject) IsInvokeSuper() bool     { return s.is(dalvik.KindInvokeSuper) }
func (s InstructionSubject) IsInvokeStatic() bool    { return s.is(dalvik.KindInvokeStatic) }

func (s InstructionSubject) IsFieldAccess() bool { return s.category() == dalvik.CategoryFieldAccess }
func (s InstructionSubject) IsInstanceGet() bool { return s.is(dalvik.KindInstanceGet) }
func (s InstructionSubject) IsInstancePut() bool { return s.is(dalvik.KindInstancePut) }
func (s InstructionSubject) IsStaticGet() bool   { return s.is(dalvik.KindStaticGet) }
func (s InstructionSubject) IsStaticPut() bool   { return s.is(dalvik.KindStaticPut) }

// IsConstString reports a const-string loading exactly value.
func (s InstructionSubject) IsConstString(value string) bool {
	v, ok := s.StringValue()
	return ok && v == value
}

// IsConstStringAny reports any const-string instruction.
func (s InstructionSubject) IsConstStringAny() bool { return s.is(dalvik.KindConstString) }

func (s InstructionSubject) IsConst4() bool     { return s.is(dalvik.KindConst4) }
func (s InstructionSubject) IsConst() bool      { return s.category() == dalvik.CategoryConst }
func (s InstructionSubject) IsGoto() bool       { return s.is(dalvik.KindGoto) }
func (s InstructionSubject) IsIfEqz() bool      { return s.is(dalvik.KindIfEqz) }
func (s InstructionSubject) IsIfNez() bool      { return s.is(dalvik.KindIfNez) }
func (s InstructionSubject) IsSwitch() bool     { return s.is(dalvik.KindSwitch) }
func (s InstructionSubject) IsReturnVoid() bool { return s.is(dalvik.KindReturnVoid) }
func (s InstructionSubject) IsReturn() bool     { return s.is(dalvik.KindReturn) }
func (s InstructionSubject) IsThrow() bool      { return s.is(dalvik.KindThrow) }
func (s InstructionSubject) IsNop() bool        { return s.is(dalvik.KindNop) }
func (s InstructionSubject) IsControl() bool    { return s.category() == dalvik.CategoryControl }
func (s InstructionSubject) IsPayload() bool    { return s.inst != nil && s.inst.Op.IsPayload() }
func (s InstructionSubject) IsIf() bool {
	k := s.kind()
	return k == dalvik.KindIf || k == dalvik.KindIfEqz || k == dalvik.KindIfNez
}

// StringValue returns the value a const-string loads.
func (s InstructionSubject) StringValue() (string, bool) {
	if s.inst == nil {
		return "", false
	}
	return s.inst.StringValue()
}

// Method returns the invoked method. It panics on an instruction that
// is not an invoke; absent subjects return the zero reference.
func (s InstructionSubject) Method() dalvik.MethodRef {
	if s.inst == nil {
		return dalvik.MethodRef{}
	}
	return s.inst.Method()
}

// Field returns the accessed field. It panics on an instruction that is
// not a field access; absent subjects return the zero reference.
func (s InstructionSubject) Field() dalvik.FieldRef {
	if s.inst == nil {
		return dalvik.FieldRef{}
	}
	return s.inst.Field()
}

// Equal compares opcode and decoded operands.
func (s InstructionSubject) Equal(o InstructionSubject) bool {
	if s.inst == nil || o.inst == nil {
		return s.inst == o.inst
	}
	return s.inst.Equal(*o.inst)
}

func (s InstructionSubject) String() string {
	if s.inst == nil {
		return "<absent instruction>"
	}
	return s.inst.String()
}

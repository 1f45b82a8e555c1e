package dalvik

import (
	"fmt"
	"slices"
	"strings"
)

// Proto is a method prototype in descriptor form.
type Proto struct {
	Return string
	Params []string
}

// Descriptor returns the method descriptor, e.g. "(ILjava/lang/String;)V".
func (p Proto) Descriptor() string {
	return "(" + strings.Join(p.Params, "") + ")" + p.Return
}

// Equal reports whether two protos have the same return and parameter types.
func (p Proto) Equal(o Proto) bool {
	return p.Return == o.Return && slices.Equal(p.Params, o.Params)
}

// FieldRef identifies a field by holder, name and type descriptors.
type FieldRef struct {
	Holder string
	Name   string
	Type   string
}

func (f FieldRef) String() string {
	return f.Holder + "->" + f.Name + ":" + f.Type
}

// MethodRef identifies a method by holder, name and prototype.
type MethodRef struct {
	Holder string
	Name   string
	Proto  Proto
}

func (m MethodRef) String() string {
	return m.Holder + "->" + m.Name + m.Proto.Descriptor()
}

// Equal reports whether two method references name the same method.
func (m MethodRef) Equal(o MethodRef) bool {
	return m.Holder == o.Holder && m.Name == o.Name && m.Proto.Equal(o.Proto)
}

// Ref is the symbolic reference carried by an instruction's index
// operand, resolved once at decode time.
type Ref struct {
	Kind   RefKind
	Index  uint32
	String string // string value (RefString) or type descriptor (RefType)
	Field  FieldRef
	Method MethodRef
	Proto  Proto // RefProto, or the call-site proto of invoke-polymorphic
}

// Equal reports whether two references resolve to the same entity.
func (r Ref) Equal(o Ref) bool {
	return r.Kind == o.Kind && r.Index == o.Index && r.String == o.String &&
		r.Field == o.Field && r.Method.Equal(o.Method) && r.Proto.Equal(o.Proto)
}

// Payload is the decoded body of a switch or fill-array-data payload.
// Targets are relative to the switch instruction that uses the payload.
type Payload struct {
	FirstKey     int32
	Keys         []int32
	Targets      []int32
	ElementWidth uint16
	Data         []byte
}

// Equal compares payload contents.
func (p *Payload) Equal(o *Payload) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.FirstKey == o.FirstKey && p.ElementWidth == o.ElementWidth &&
		slices.Equal(p.Keys, o.Keys) && slices.Equal(p.Targets, o.Targets) &&
		slices.Equal(p.Data, o.Data)
}

// Inst is a decoded Dalvik instruction.
type Inst struct {
	Offset  uint32 // code-unit offset from the start of the method body
	Op      Opcode
	Size    int      // width in code units
	A, B, C uint32   // register operands by format position (vA, vB, vC)
	Args    []uint16 // argument registers for invoke and filled-new-array
	Literal int64
	Branch  int32 // relative branch or payload offset in code units
	Ref     Ref
	Payload *Payload
}

// Kind returns the instruction's classification.
func (i Inst) Kind() Kind { return i.Op.Kind() }

// Category returns the category of the instruction's kind.
func (i Inst) Category() Category { return i.Op.Kind().Category() }

// Equal reports whether two instructions have the same opcode and
// decoded operands. Offsets are not compared.
func (i Inst) Equal(o Inst) bool {
	return i.Op == o.Op && i.Size == o.Size && i.A == o.A && i.B == o.B && i.C == o.C &&
		slices.Equal(i.Args, o.Args) && i.Literal == o.Literal && i.Branch == o.Branch &&
		i.Ref.Equal(o.Ref) && i.Payload.Equal(o.Payload)
}

// Method returns the method referenced by an invoke instruction. It
// panics when called on any other instruction: a caller asking an
// arbitrary instruction for its method has a classification bug.
func (i Inst) Method() MethodRef {
	switch i.Kind() {
	case KindInvokeVirtual, KindInvokeInterface, KindInvokeDirect, KindInvokeSuper,
		KindInvokeStatic, KindInvokePolymorphic:
		if i.Ref.Kind != RefMethod {
			panic(fmt.Sprintf("dalvik: %s at 0x%04x has no method reference", i.Op, i.Offset))
		}
		return i.Ref.Method
	}
	panic(fmt.Sprintf("dalvik: %s at 0x%04x is not an invoke", i.Op, i.Offset))
}

// Field returns the field referenced by a field access instruction. It
// panics when called on any other instruction.
func (i Inst) Field() FieldRef {
	if i.Category() != CategoryFieldAccess || i.Ref.Kind != RefField {
		panic(fmt.Sprintf("dalvik: %s at 0x%04x is not a field access", i.Op, i.Offset))
	}
	return i.Ref.Field
}

// StringValue returns the string loaded by a const-string instruction.
func (i Inst) StringValue() (string, bool) {
	if i.Kind() != KindConstString {
		return "", false
	}
	return i.Ref.String, true
}

// IsWideConst reports whether a const instruction loads a register pair.
func (i Inst) IsWideConst() bool {
	return i.Op >= 0x16 && i.Op <= 0x19
}

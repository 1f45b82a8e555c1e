package dextest

import (
	"math"

	"dexspect/internal/dalvik"
)

// Annotation describes an annotation_item.
type Annotation struct {
	Type       string
	Visibility byte
	Elements   []Element
}

// Element is one name-value pair.
type Element struct {
	Name  string
	Value Value
}

// Value describes an encoded_value. Build one with the constructors below.
type Value struct {
	kind   byte
	bits   uint64
	size   int
	str    string
	field  dalvik.FieldRef
	method dalvik.MethodRef
	array  []Value
	ann    *Annotation
}

func Byte(v int8) Value      { return Value{kind: 0x00, bits: uint64(uint8(v)), size: 1} }
func Short(v int16) Value    { return Value{kind: 0x02, bits: uint64(uint16(v)), size: 2} }
func Char(v uint16) Value    { return Value{kind: 0x03, bits: uint64(v), size: 2} }
func Int(v int32) Value      { return Value{kind: 0x04, bits: uint64(uint32(v)), size: 4} }
func Long(v int64) Value     { return Value{kind: 0x06, bits: uint64(v), size: 8} }
func Float(v float32) Value  { return Value{kind: 0x10, bits: uint64(math.Float32bits(v)), size: 4} }
func Double(v float64) Value { return Value{kind: 0x11, bits: math.Float64bits(v), size: 8} }
func String(s string) Value  { return Value{kind: 0x17, str: s} }
func Type(desc string) Value { return Value{kind: 0x18, str: desc} }
func Null() Value            { return Value{kind: 0x1e} }

// Bool encodes a boolean in the value_arg bits.
func Bool(v bool) Value {
	if v {
		return Value{kind: 0x1f, bits: 1}
	}
	return Value{kind: 0x1f}
}

func FieldValue(f dalvik.FieldRef) Value   { return Value{kind: 0x19, field: f} }
func Enum(f dalvik.FieldRef) Value         { return Value{kind: 0x1b, field: f} }
func MethodValue(m dalvik.MethodRef) Value { return Value{kind: 0x1a, method: m} }
func Array(vs ...Value) Value              { return Value{kind: 0x1c, array: vs} }
func Nested(a Annotation) Value            { return Value{kind: 0x1d, ann: &a} }

func (w *writer) sized(kind byte, bits uint64, size int) {
	w.u8(byte(size-1)<<5 | kind)
	for i := range size {
		w.u8(byte(bits >> (8 * i)))
	}
}

func (w *writer) value(v Value) {
	b := w.b
	switch v.kind {
	case 0x17:
		w.sized(v.kind, uint64(b.stringID(v.str)), 4)
	case 0x18:
		w.sized(v.kind, uint64(b.typeID(v.str)), 4)
	case 0x19, 0x1b:
		w.sized(v.kind, uint64(b.fieldID(v.field)), 4)
	case 0x1a:
		w.sized(v.kind, uint64(b.methodID(v.method)), 4)
	case 0x1c:
		w.u8(v.kind)
		w.uleb(uint32(len(v.array)))
		for _, e := range v.array {
			w.value(e)
		}
	case 0x1d:
		w.u8(v.kind)
		w.annotation(*v.ann)
	case 0x1e:
		w.u8(v.kind)
	case 0x1f:
		w.u8(byte(v.bits)<<5 | v.kind)
	default:
		w.sized(v.kind, v.bits, v.size)
	}
}

// annotation writes an encoded_annotation.
func (w *writer) annotation(a Annotation) {
	b := w.b
	w.uleb(b.typeID(a.Type))
	w.uleb(uint32(len(a.Elements)))
	for _, e := range a.Elements {
		w.uleb(b.stringID(e.Name))
		w.value(e.Value)
	}
}

// Runtime returns a runtime-visible annotation.
func Runtime(typ string, elems ...Element) Annotation {
	return Annotation{Type: typ, Visibility: VisRuntime, Elements: elems}
}

// Signature returns a dalvik.annotation.Signature holding parts.
func Signature(parts ...string) Annotation {
	vals := make([]Value, len(parts))
	for i, p := range parts {
		vals[i] = String(p)
	}
	return system("Ldalvik/annotation/Signature;", Element{"value", Array(vals...)})
}

// InnerClass returns a named dalvik.annotation.InnerClass.
func InnerClass(name string, access uint32) Annotation {
	return system("Ldalvik/annotation/InnerClass;",
		Element{"accessFlags", Int(int32(access))},
		Element{"name", String(name)})
}

// AnonymousClass returns a dalvik.annotation.InnerClass with a null name.
func AnonymousClass(access uint32) Annotation {
	return system("Ldalvik/annotation/InnerClass;",
		Element{"accessFlags", Int(int32(access))},
		Element{"name", Null()})
}

// EnclosingClass returns a dalvik.annotation.EnclosingClass.
func EnclosingClass(desc string) Annotation {
	return system("Ldalvik/annotation/EnclosingClass;", Element{"value", Type(desc)})
}

// EnclosingMethod returns a dalvik.annotation.EnclosingMethod.
func EnclosingMethod(m dalvik.MethodRef) Annotation {
	return system("Ldalvik/annotation/EnclosingMethod;", Element{"value", MethodValue(m)})
}

// MemberClasses returns a dalvik.annotation.MemberClasses.
func MemberClasses(descs ...string) Annotation {
	vals := make([]Value, len(descs))
	for i, d := range descs {
		vals[i] = Type(d)
	}
	return system("Ldalvik/annotation/MemberClasses;", Element{"value", Array(vals...)})
}

func system(typ string, elems ...Element) Annotation {
	return Annotation{Type: typ, Visibility: VisSystem, Elements: elems}
}

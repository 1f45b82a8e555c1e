package dex

import (
	"strings"

	"dexspect/internal/dalvik"
)

// Well-known system annotation types.
const (
	SignatureAnnotation       = "Ldalvik/annotation/Signature;"
	InnerClassAnnotation      = "Ldalvik/annotation/InnerClass;"
	EnclosingClassAnnotation  = "Ldalvik/annotation/EnclosingClass;"
	EnclosingMethodAnnotation = "Ldalvik/annotation/EnclosingMethod;"
	MemberClassesAnnotation   = "Ldalvik/annotation/MemberClasses;"
)

// Visibility is an annotation_item visibility byte.
type Visibility uint8

const (
	VisibilityBuild   Visibility = 0x00
	VisibilityRuntime Visibility = 0x01
	VisibilitySystem  Visibility = 0x02
)

func (v Visibility) String() string {
	switch v {
	case VisibilityBuild:
		return "build"
	case VisibilityRuntime:
		return "runtime"
	case VisibilitySystem:
		return "system"
	}
	return "unknown"
}

// Annotation is a decoded annotation_item or nested encoded_annotation.
type Annotation struct {
	Type       string
	Visibility Visibility
	Elements   []Element
}

// Element is one name-value pair of an annotation.
type Element struct {
	Name  string
	Value Value
}

// Element returns the value of the named element.
func (a *Annotation) Element(name string) (Value, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

func findAnnotation(set []*Annotation, desc string) *Annotation {
	for _, a := range set {
		if a.Type == desc {
			return a
		}
	}
	return nil
}

// ValueKind is the value_type of an encoded_value.
type ValueKind uint8

const (
	ValueByte         ValueKind = 0x00
	ValueShort        ValueKind = 0x02
	ValueChar         ValueKind = 0x03
	ValueInt          ValueKind = 0x04
	ValueLong         ValueKind = 0x06
	ValueFloat        ValueKind = 0x10
	ValueDouble       ValueKind = 0x11
	ValueMethodType   ValueKind = 0x15
	ValueMethodHandle ValueKind = 0x16
	ValueString       ValueKind = 0x17
	ValueType         ValueKind = 0x18
	ValueField        ValueKind = 0x19
	ValueMethod       ValueKind = 0x1a
	ValueEnum         ValueKind = 0x1b
	ValueArray        ValueKind = 0x1c
	ValueAnnotation   ValueKind = 0x1d
	ValueNull         ValueKind = 0x1e
	ValueBoolean      ValueKind = 0x1f
)

var valueKindNames = map[ValueKind]string{
	ValueByte: "byte", ValueShort: "short", ValueChar: "char", ValueInt: "int",
	ValueLong: "long", ValueFloat: "float", ValueDouble: "double",
	ValueMethodType: "method-type", ValueMethodHandle: "method-handle",
	ValueString: "string", ValueType: "type", ValueField: "field",
	ValueMethod: "method", ValueEnum: "enum", ValueArray: "array",
	ValueAnnotation: "annotation", ValueNull: "null", ValueBoolean: "boolean",
}

func (k ValueKind) String() string {
	if n, ok := valueKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Value is a decoded encoded_value. Only the fields matching Kind are set.
type Value struct {
	Kind       ValueKind
	Int        int64   // byte, short, char, int, long, boolean (0/1), method type/handle index
	Float      float64 // float, double
	String     string  // string value or type descriptor
	Field      dalvik.FieldRef
	Method     dalvik.MethodRef
	Proto      dalvik.Proto // method type
	Array      []Value
	Annotation *Annotation
}

// Strings returns the string elements of an array value.
func (v Value) Strings() ([]string, bool) {
	if v.Kind != ValueArray {
		return nil, false
	}
	out := make([]string, 0, len(v.Array))
	for _, e := range v.Array {
		if e.Kind != ValueString {
			return nil, false
		}
		out = append(out, e.String)
	}
	return out, true
}

// joinSignature concatenates the string parts of a Signature annotation.
func joinSignature(set []*Annotation) (sig string, present bool, ok bool) {
	a := findAnnotation(set, SignatureAnnotation)
	if a == nil {
		return "", false, true
	}
	v, found := a.Element("value")
	if !found {
		return "", true, false
	}
	parts, isStrings := v.Strings()
	if !isStrings {
		return "", true, false
	}
	return strings.Join(parts, ""), true, true
}

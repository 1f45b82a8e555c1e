package inspect

import (
	"dexspect/internal/dalvik"
	"dexspect/internal/dex"
	"dexspect/internal/mapping"
	"dexspect/internal/signature"
)

// MethodSubject is a method lookup result. The zero value is absent.
type MethodSubject struct {
	class  ClassSubject
	m      *dex.Method
	naming *mapping.MemberNaming
}

// Present reports whether the method exists.
func (s MethodSubject) Present() bool { return s.m != nil }

// Method returns the backing method, or nil when absent.
func (s MethodSubject) Method() *dex.Method { return s.m }

// Holder returns the declaring class.
func (s MethodSubject) Holder() ClassSubject { return s.class }

// Naming returns the member's mapping entry, or nil.
func (s MethodSubject) Naming() *mapping.MemberNaming { return s.naming }

// Ref returns the method reference as stored in the program.
func (s MethodSubject) Ref() dalvik.MethodRef {
	if s.m == nil {
		return dalvik.MethodRef{}
	}
	return s.m.Ref
}

// FinalName is the name the method has in the program.
func (s MethodSubject) FinalName() string {
	if s.m == nil {
		return ""
	}
	return s.m.Ref.Name
}

// OriginalName is the source name of the method.
func (s MethodSubject) OriginalName() string {
	if s.naming != nil {
		return s.naming.Original.Name
	}
	return s.FinalName()
}

// FinalSignature is the method signature in Java form as stored.
func (s MethodSubject) FinalSignature() mapping.Signature {
	if s.m == nil {
		return mapping.Signature{}
	}
	return methodSig(s.m.Ref)
}

// OriginalSignature maps the final signature back to source form. It
// equals FinalSignature when the class has no mapping entry.
func (s MethodSubject) OriginalSignature() mapping.Signature {
	final := s.FinalSignature()
	if s.m == nil || s.class.naming == nil {
		return final
	}
	orig, _ := s.class.in.table.OriginalSignature(s.class.naming, final)
	return orig
}

// Renamed reports whether the class has a mapping entry and the
// method's final name differs from its original.
func (s MethodSubject) Renamed() bool {
	return s.m != nil && s.class.naming != nil && s.OriginalName() != s.FinalName()
}

// Access returns the method access flags.
func (s MethodSubject) Access() dex.AccessFlags {
	if s.m == nil {
		return 0
	}
	return s.m.Access
}

func (s MethodSubject) has(f dex.AccessFlags) bool { return s.m != nil && s.m.Access.Has(f) }

func (s MethodSubject) IsPublic() bool       { return s.has(dex.AccPublic) }
func (s MethodSubject) IsPrivate() bool      { return s.has(dex.AccPrivate) }
func (s MethodSubject) IsProtected() bool    { return s.has(dex.AccProtected) }
func (s MethodSubject) IsStatic() bool       { return s.has(dex.AccStatic) }
func (s MethodSubject) IsFinal() bool        { return s.has(dex.AccFinal) }
func (s MethodSubject) IsAbstract() bool     { return s.has(dex.AccAbstract) }
func (s MethodSubject) IsNative() bool       { return s.has(dex.AccNative) }
func (s MethodSubject) IsSynthetic() bool    { return s.has(dex.AccSynthetic) }
func (s MethodSubject) IsBridge() bool       { return s.has(dex.AccBridge) }
func (s MethodSubject) IsSynchronized() bool { return s.has(dex.AccDeclaredSynchronized) }
func (s MethodSubject) IsConstructor() bool  { return s.has(dex.AccConstructor) }
func (s MethodSubject) IsClassInitializer() bool {
	return s.IsConstructor() && s.IsStatic()
}

// Annotation finds a method annotation by original type name.
func (s MethodSubject) Annotation(name string) AnnotationSubject {
	if s.m == nil {
		return AnnotationSubject{}
	}
	return s.class.in.annotation(s.m.Annotations, name)
}

// ParameterAnnotation finds an annotation on parameter i.
func (s MethodSubject) ParameterAnnotation(i int, name string) AnnotationSubject {
	if s.m == nil || i < 0 || i >= len(s.m.ParamAnnotations) {
		return AnnotationSubject{}
	}
	return s.class.in.annotation(s.m.ParamAnnotations[i], name)
}

// FinalSignatureAttribute returns the generic signature as stored.
func (s MethodSubject) FinalSignatureAttribute() string {
	if s.m == nil {
		return ""
	}
	return s.m.Signature
}

// OriginalSignatureAttribute returns the generic signature with type
// names mapped back to their originals.
func (s MethodSubject) OriginalSignatureAttribute() string {
	if s.m == nil {
		return ""
	}
	return s.class.in.OriginalSignature(signature.KindMethod, s.m.Signature)
}

// Code returns the decoded body, or nil for abstract, native and absent
// methods.
func (s MethodSubject) Code() *dex.Code {
	if s.m == nil {
		return nil
	}
	return s.m.Code
}

// Instructions iterates the decoded body. Absent and bodiless methods
// yield an empty iterator.
func (s MethodSubject) Instructions() *InstructionIterator {
	if s.m == nil || s.m.Code == nil {
		return &InstructionIterator{}
	}
	return &InstructionIterator{insts: s.m.Code.Insts}
}

// Iterate iterates the instructions that satisfy pred.
func (s MethodSubject) Iterate(pred func(InstructionSubject) bool) *FilteredIterator {
	return Filter(s.Instructions(), pred)
}

func (s MethodSubject) String() string {
	if s.m == nil {
		return "<absent method>"
	}
	if s.Renamed() {
		return s.OriginalSignature().String() + " -> " + s.FinalName()
	}
	return s.FinalSignature().String()
}

// FieldSubject is a field lookup result. The zero value is absent.
type FieldSubject struct {
	class  ClassSubject
	f      *dex.Field
	naming *mapping.MemberNaming
}

// Present reports whether the field exists.
func (s FieldSubject) Present() bool { return s.f != nil }

// Field returns the backing field, or nil when absent.
func (s FieldSubject) Field() *dex.Field { return s.f }

// Holder returns the declaring class.
func (s FieldSubject) Holder() ClassSubject { return s.class }

// Naming returns the member's mapping entry, or nil.
func (s FieldSubject) Naming() *mapping.MemberNaming { return s.naming }

// Ref returns the field reference as stored in the program.
func (s FieldSubject) Ref() dalvik.FieldRef {
	if s.f == nil {
		return dalvik.FieldRef{}
	}
	return s.f.Ref
}

// FinalName is the name the field has in the program.
func (s FieldSubject) FinalName() string {
	if s.f == nil {
		return ""
	}
	return s.f.Ref.Name
}

// OriginalName is the source name of the field.
func (s FieldSubject) OriginalName() string {
	if s.naming != nil {
		return s.naming.Original.Name
	}
	return s.FinalName()
}

// FinalSignature is "type name" as stored.
func (s FieldSubject) FinalSignature() mapping.Signature {
	if s.f == nil {
		return mapping.Signature{}
	}
	return fieldSig(s.f.Ref)
}

// OriginalSignature maps the final signature back to source form.
func (s FieldSubject) OriginalSignature() mapping.Signature {
	final := s.FinalSignature()
	if s.f == nil || s.class.naming == nil {
		return final
	}
	orig, _ := s.class.in.table.OriginalSignature(s.class.naming, final)
	return orig
}

// Renamed reports whether the class has a mapping entry and the field's
// final name differs from its original.
func (s FieldSubject) Renamed() bool {
	return s.f != nil && s.class.naming != nil && s.OriginalName() != s.FinalName()
}

// Access returns the field access flags.
func (s FieldSubject) Access() dex.AccessFlags {
	if s.f == nil {
		return 0
	}
	return s.f.Access
}

func (s FieldSubject) has(f dex.AccessFlags) bool { return s.f != nil && s.f.Access.Has(f) }

func (s FieldSubject) IsPublic() bool    { return s.has(dex.AccPublic) }
func (s FieldSubject) IsPrivate() bool   { return s.has(dex.AccPrivate) }
func (s FieldSubject) IsProtected() bool { return s.has(dex.AccProtected) }
func (s FieldSubject) IsStatic() bool    { return s.has(dex.AccStatic) }
func (s FieldSubject) IsFinal() bool     { return s.has(dex.AccFinal) }
func (s FieldSubject) IsVolatile() bool  { return s.has(dex.AccVolatile) }
func (s FieldSubject) IsTransient() bool { return s.has(dex.AccTransient) }
func (s FieldSubject) IsSynthetic() bool { return s.has(dex.AccSynthetic) }

// StaticValue returns the encoded initial value of a static field.
func (s FieldSubject) StaticValue() (dex.Value, bool) {
	if s.f == nil || s.f.StaticValue == nil {
		return dex.Value{}, false
	}
	return *s.f.StaticValue, true
}

// Annotation finds a field annotation by original type name.
func (s FieldSubject) Annotation(name string) AnnotationSubject {
	if s.f == nil {
		return AnnotationSubject{}
	}
	return s.class.in.annotation(s.f.Annotations, name)
}

// FinalSignatureAttribute returns the generic signature as stored.
func (s FieldSubject) FinalSignatureAttribute() string {
	if s.f == nil {
		return ""
	}
	return s.f.Signature
}

// OriginalSignatureAttribute returns the generic signature with type
// names mapped back to their originals.
func (s FieldSubject) OriginalSignatureAttribute() string {
	if s.f == nil {
		return ""
	}
	return s.class.in.OriginalSignature(signature.KindField, s.f.Signature)
}

func (s FieldSubject) String() string {
	if s.f == nil {
		return "<absent field>"
	}
	if s.Renamed() {
		return s.OriginalSignature().String() + " -> " + s.FinalName()
	}
	return s.FinalSignature().String()
}

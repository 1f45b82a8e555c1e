package inspect

import (
	"dexspect/internal/dex"
	"dexspect/internal/dexfmt"
	"dexspect/internal/mapping"
	"dexspect/internal/signature"
)

// ClassSubject is a class lookup result. The zero value is absent and
// answers every query with a zero value.
type ClassSubject struct {
	in     *Inspector
	cls    *dex.Class
	naming *mapping.ClassNaming
}

// Present reports whether the class exists in the program.
func (c ClassSubject) Present() bool { return c.cls != nil }

// Class returns the backing class, or nil when absent.
func (c ClassSubject) Class() *dex.Class { return c.cls }

// Naming returns the class's mapping entry, or nil.
func (c ClassSubject) Naming() *mapping.ClassNaming { return c.naming }

// FinalName is the Java name the class has in the program.
func (c ClassSubject) FinalName() string {
	if c.cls == nil {
		return ""
	}
	return javaType(c.cls.Descriptor)
}

// FinalDescriptor is the type descriptor the class has in the program.
func (c ClassSubject) FinalDescriptor() string {
	if c.cls == nil {
		return ""
	}
	return c.cls.Descriptor
}

// OriginalName is the source name of the class.
func (c ClassSubject) OriginalName() string {
	if c.naming != nil {
		return c.naming.OriginalName
	}
	return c.FinalName()
}

// OriginalDescriptor is the type descriptor of OriginalName.
func (c ClassSubject) OriginalDescriptor() string {
	if c.cls == nil {
		return ""
	}
	return dexfmt.JavaToDescriptor(c.OriginalName())
}

// Renamed reports whether the class has a mapping entry and its final
// name differs from the original.
func (c ClassSubject) Renamed() bool {
	return c.cls != nil && c.naming != nil && c.naming.OriginalName != c.FinalName()
}

// Access returns the class access flags.
func (c ClassSubject) Access() dex.AccessFlags {
	if c.cls == nil {
		return 0
	}
	return c.cls.Access
}

func (c ClassSubject) IsPublic() bool     { return c.cls != nil && c.cls.Access.Has(dex.AccPublic) }
func (c ClassSubject) IsFinal() bool      { return c.cls != nil && c.cls.Access.Has(dex.AccFinal) }
func (c ClassSubject) IsAbstract() bool   { return c.cls != nil && c.cls.Access.Has(dex.AccAbstract) }
func (c ClassSubject) IsInterface() bool  { return c.cls != nil && c.cls.Access.Has(dex.AccInterface) }
func (c ClassSubject) IsAnnotation() bool { return c.cls != nil && c.cls.Access.Has(dex.AccAnnotation) }
func (c ClassSubject) IsEnum() bool       { return c.cls != nil && c.cls.Access.Has(dex.AccEnum) }
func (c ClassSubject) IsSynthetic() bool  { return c.cls != nil && c.cls.Access.Has(dex.AccSynthetic) }

// SourceFile returns the source file attribute, falling back to the
// name recorded in the mapping file.
func (c ClassSubject) SourceFile() string {
	if c.cls == nil {
		return ""
	}
	if c.cls.SourceFile == "" && c.naming != nil {
		return c.naming.SourceFile
	}
	return c.cls.SourceFile
}

// Superclass resolves the superclass within the program. A superclass
// defined outside the loaded inputs is absent.
func (c ClassSubject) Superclass() ClassSubject {
	if c.cls == nil || c.cls.Superclass == "" {
		return ClassSubject{}
	}
	return c.classByDescriptor(c.cls.Superclass)
}

// SuperclassName returns the original Java name of the superclass,
// which need not be in the program. It is empty for java.lang.Object.
func (c ClassSubject) SuperclassName() string {
	if c.cls == nil || c.cls.Superclass == "" || c.cls.Superclass == "Ljava/lang/Object;" {
		return ""
	}
	return c.in.originalType(c.cls.Superclass)
}

// Interfaces returns the original Java names of the direct interfaces.
func (c ClassSubject) Interfaces() []string {
	if c.cls == nil || len(c.cls.Interfaces) == 0 {
		return nil
	}
	out := make([]string, len(c.cls.Interfaces))
	for i, d := range c.cls.Interfaces {
		out[i] = c.in.originalType(d)
	}
	return out
}

func (c ClassSubject) classByDescriptor(desc string) ClassSubject {
	cls := c.in.prog.Class(desc)
	if cls == nil {
		return ClassSubject{}
	}
	return c.in.subject(cls)
}

// Method finds a method by its original return type, name and
// parameter types, all in Java form. Direct methods are searched
// before virtual methods.
func (c ClassSubject) Method(ret, name string, params ...string) MethodSubject {
	if c.cls == nil {
		return MethodSubject{}
	}
	final, naming := c.in.table.FinalSignature(c.naming, mapping.MethodSig(ret, name, params...))
	proto := protoDescriptor(final)
	for _, list := range [][]*dex.Method{c.cls.DirectMethods, c.cls.VirtualMethods} {
		for _, m := range list {
			if m.Ref.Name == final.Name && m.Ref.Proto.Descriptor() == proto {
				return MethodSubject{class: c, m: m, naming: naming}
			}
		}
	}
	return MethodSubject{}
}

// Init finds a constructor.
func (c ClassSubject) Init(params ...string) MethodSubject {
	return c.Method("void", "<init>", params...)
}

// Clinit finds the static initializer.
func (c ClassSubject) Clinit() MethodSubject { return c.Method("void", "<clinit>") }

// Field finds a field by its original type and name. Static fields are
// searched before instance fields.
func (c ClassSubject) Field(typ, name string) FieldSubject {
	if c.cls == nil {
		return FieldSubject{}
	}
	final, naming := c.in.table.FinalSignature(c.naming, mapping.FieldSig(typ, name))
	desc := dexfmt.JavaToDescriptor(final.Type)
	for _, list := range [][]*dex.Field{c.cls.StaticFields, c.cls.InstanceFields} {
		for _, f := range list {
			if f.Ref.Name == final.Name && f.Ref.Type == desc {
				return FieldSubject{class: c, f: f, naming: naming}
			}
		}
	}
	return FieldSubject{}
}

// Methods returns every method, direct before virtual.
func (c ClassSubject) Methods() []MethodSubject {
	if c.cls == nil {
		return nil
	}
	out := make([]MethodSubject, 0, len(c.cls.DirectMethods)+len(c.cls.VirtualMethods))
	for _, m := range c.cls.Methods() {
		out = append(out, c.method(m))
	}
	return out
}

// Fields returns every field, static before instance.
func (c ClassSubject) Fields() []FieldSubject {
	if c.cls == nil {
		return nil
	}
	out := make([]FieldSubject, 0, len(c.cls.StaticFields)+len(c.cls.InstanceFields))
	for _, f := range c.cls.Fields() {
		out = append(out, c.field(f))
	}
	return out
}

func (c ClassSubject) method(m *dex.Method) MethodSubject {
	s := MethodSubject{class: c, m: m}
	_, s.naming = c.in.table.OriginalSignature(c.naming, s.FinalSignature())
	return s
}

func (c ClassSubject) field(f *dex.Field) FieldSubject {
	s := FieldSubject{class: c, f: f}
	_, s.naming = c.in.table.OriginalSignature(c.naming, s.FinalSignature())
	return s
}

// Annotation finds a class annotation by original Java type name or
// descriptor.
func (c ClassSubject) Annotation(name string) AnnotationSubject {
	if c.cls == nil {
		return AnnotationSubject{}
	}
	return c.in.annotation(c.cls.Annotations, name)
}

// IsMemberClass reports a named inner class with an enclosing class and
// no enclosing method.
func (c ClassSubject) IsMemberClass() bool {
	if c.cls == nil || c.cls.InnerClass == nil {
		return false
	}
	return c.cls.InnerClass.Name != nil && c.cls.EnclosingClass != "" && c.cls.EnclosingMethod == nil
}

// IsLocalClass reports a named inner class declared inside a method.
func (c ClassSubject) IsLocalClass() bool {
	if c.cls == nil || c.cls.InnerClass == nil {
		return false
	}
	return c.cls.InnerClass.Name != nil && c.cls.EnclosingMethod != nil
}

// IsAnonymousClass reports an unnamed inner class declared inside a
// method.
func (c ClassSubject) IsAnonymousClass() bool {
	if c.cls == nil || c.cls.InnerClass == nil {
		return false
	}
	return c.cls.InnerClass.Name == nil && c.cls.EnclosingMethod != nil
}

// EnclosingClass resolves the class named by the EnclosingClass
// attribute, or by the holder of the EnclosingMethod attribute.
func (c ClassSubject) EnclosingClass() ClassSubject {
	switch {
	case c.cls == nil:
		return ClassSubject{}
	case c.cls.EnclosingClass != "":
		return c.classByDescriptor(c.cls.EnclosingClass)
	case c.cls.EnclosingMethod != nil:
		return c.classByDescriptor(c.cls.EnclosingMethod.Holder)
	}
	return ClassSubject{}
}

// FinalSignatureAttribute returns the generic signature as stored.
func (c ClassSubject) FinalSignatureAttribute() string {
	if c.cls == nil {
		return ""
	}
	return c.cls.Signature
}

// OriginalSignatureAttribute returns the generic signature with every
// type name mapped back to its original.
func (c ClassSubject) OriginalSignatureAttribute() string {
	if c.cls == nil {
		return ""
	}
	return c.in.OriginalSignature(signature.KindClass, c.cls.Signature)
}

func (c ClassSubject) String() string {
	if c.cls == nil {
		return "<absent class>"
	}
	if c.Renamed() {
		return c.OriginalName() + " -> " + c.FinalName()
	}
	return c.FinalName()
}

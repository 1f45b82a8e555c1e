package inspect

import (
	"dexspect/internal/dalvik"
	"dexspect/internal/mapping"
)

// ResolveMethod finds the method a reference names, matching the stored
// holder, name and proto exactly. Inherited methods are not searched.
func (in *Inspector) ResolveMethod(ref dalvik.MethodRef) MethodSubject {
	cls := in.prog.Class(ref.Holder)
	if cls == nil {
		return MethodSubject{}
	}
	c := in.subject(cls)
	proto := ref.Proto.Descriptor()
	for _, m := range cls.Methods() {
		if m.Ref.Name == ref.Name && m.Ref.Proto.Descriptor() == proto {
			return c.method(m)
		}
	}
	return MethodSubject{}
}

// ResolveField finds the field a reference names.
func (in *Inspector) ResolveField(ref dalvik.FieldRef) FieldSubject {
	cls := in.prog.Class(ref.Holder)
	if cls == nil {
		return FieldSubject{}
	}
	c := in.subject(cls)
	for _, f := range cls.Fields() {
		if f.Ref.Name == ref.Name && f.Ref.Type == ref.Type {
			return c.field(f)
		}
	}
	return FieldSubject{}
}

// OriginalMethod returns the original holder and signature of a method
// reference. A reference into a class outside the program keeps its
// name; its types are still mapped.
func (in *Inspector) OriginalMethod(ref dalvik.MethodRef) (holder string, sig mapping.Signature) {
	if m := in.ResolveMethod(ref); m.Present() {
		return m.Holder().OriginalName(), m.OriginalSignature()
	}
	return in.originalType(ref.Holder), methodSig(ref).Map(in.table.DeobfuscateType)
}

// OriginalField returns the original holder and signature of a field
// reference.
func (in *Inspector) OriginalField(ref dalvik.FieldRef) (holder string, sig mapping.Signature) {
	if f := in.ResolveField(ref); f.Present() {
		return f.Holder().OriginalName(), f.OriginalSignature()
	}
	return in.originalType(ref.Holder), fieldSig(ref).Map(in.table.DeobfuscateType)
}

func methodSig(ref dalvik.MethodRef) mapping.Signature {
	var params []string
	for _, t := range ref.Proto.Params {
		params = append(params, javaType(t))
	}
	return mapping.MethodSig(javaType(ref.Proto.Return), ref.Name, params...)
}

func fieldSig(ref dalvik.FieldRef) mapping.Signature {
	return mapping.FieldSig(javaType(ref.Type), ref.Name)
}

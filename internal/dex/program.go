package dex

import (
	"dexspect/internal/dalvik"
	"dexspect/internal/dexfmt"
)

// Program owns every class decoded from one or more containers. It is
// immutable once returned by Open or Load.
type Program struct {
	files   []*File
	classes []*Class
	byDesc  map[string]*Class
	diags   dexfmt.Diags
}

// Files returns a summary of each loaded container, in load order.
func (p *Program) Files() []*File { return p.files }

// Classes returns all classes in container order.
func (p *Program) Classes() []*Class { return p.classes }

// Class returns the class with the given type descriptor, or nil.
func (p *Program) Class(desc string) *Class { return p.byDesc[desc] }

// Diags returns the non-fatal findings recorded while loading.
func (p *Program) Diags() []dexfmt.Diag { return p.diags.Items() }

// File summarizes one loaded DEX container.
type File struct {
	Name     string
	Version  string
	Size     int
	Checksum uint32
	Strings  int
	Types    int
	Protos   int
	Fields   int
	Methods  int
	Classes  int
}

// Class is a decoded class_def with its class data.
type Class struct {
	Descriptor  string
	Access      AccessFlags
	Superclass  string // "" for java.lang.Object
	Interfaces  []string
	SourceFile  string
	Annotations []*Annotation

	StaticFields   []*Field
	InstanceFields []*Field
	DirectMethods  []*Method
	VirtualMethods []*Method

	// Signature is the dalvik.annotation.Signature value with its
	// string parts joined, or "" when the class has none.
	Signature       string
	InnerClass      *InnerClass
	EnclosingClass  string
	EnclosingMethod *dalvik.MethodRef
	MemberClasses   []string

	File string // container the class was loaded from
}

// InnerClass is the dalvik.annotation.InnerClass metadata. Name is nil
// for anonymous classes.
type InnerClass struct {
	Name   *string
	Access AccessFlags
}

// Methods returns direct methods followed by virtual methods.
func (c *Class) Methods() []*Method {
	out := make([]*Method, 0, len(c.DirectMethods)+len(c.VirtualMethods))
	out = append(out, c.DirectMethods...)
	return append(out, c.VirtualMethods...)
}

// Fields returns static fields followed by instance fields.
func (c *Class) Fields() []*Field {
	out := make([]*Field, 0, len(c.StaticFields)+len(c.InstanceFields))
	out = append(out, c.StaticFields...)
	return append(out, c.InstanceFields...)
}

// Annotation returns the class annotation with the given type
// descriptor, or nil.
func (c *Class) Annotation(desc string) *Annotation { return findAnnotation(c.Annotations, desc) }

// Method is a decoded encoded_method.
type Method struct {
	Ref              dalvik.MethodRef
	Access           AccessFlags
	Annotations      []*Annotation
	ParamAnnotations [][]*Annotation
	Signature        string
	Code             *Code // nil for abstract and native methods
}

// Annotation returns the method annotation with the given type
// descriptor, or nil.
func (m *Method) Annotation(desc string) *Annotation { return findAnnotation(m.Annotations, desc) }

// Field is a decoded encoded_field.
type Field struct {
	Ref         dalvik.FieldRef
	Access      AccessFlags
	Annotations []*Annotation
	Signature   string
	StaticValue *Value // nil unless the class carries an initial value
}

// Annotation returns the field annotation with the given type
// descriptor, or nil.
func (f *Field) Annotation(desc string) *Annotation { return findAnnotation(f.Annotations, desc) }

// Code is a decoded code_item.
type Code struct {
	Registers uint16
	Ins       uint16
	Outs      uint16
	Units     int // insns_size in 16-bit code units
	Tries     []Try
	Insts     []dalvik.Inst
}

// Try is a try_item with its resolved handler list.
type Try struct {
	Start    uint32 // code-unit offset
	Count    uint16 // code units covered
	Handlers []Handler
	CatchAll int64 // code-unit offset of the catch-all handler, -1 if none
}

// Handler is one typed catch clause.
type Handler struct {
	Type string
	Addr uint32
}

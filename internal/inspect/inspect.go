// Package inspect is the query surface over a loaded program. Every
// lookup accepts original (source) names and answers under both the
// original and the obfuscated identity. A lookup that finds nothing
// returns an absent subject instead of an error.
package inspect

import (
	"fmt"
	"strings"

	"github.com/apex/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"dexspect/internal/dex"
	"dexspect/internal/dexfmt"
	"dexspect/internal/mapping"
)

// signatureCacheSize bounds the rewritten generic signatures kept per
// inspector.
const signatureCacheSize = 4096

// Inspector joins a Program with an optional mapping table. Both are
// immutable, so an Inspector is safe for concurrent queries.
type Inspector struct {
	prog  *dex.Program
	table *mapping.Table
	sigs  *lru.Cache[string, string]
}

// New wraps an already loaded program. table may be nil.
func New(prog *dex.Program, table *mapping.Table) *Inspector {
	sigs, err := lru.New[string, string](signatureCacheSize)
	if err != nil {
		panic(err)
	}
	return &Inspector{prog: prog, table: table, sigs: sigs}
}

// Open loads inputs and, when mappingPath is not empty, the mapping file.
// Any failure returns no inspector.
func Open(paths []string, mappingPath string, opts dexfmt.Options) (*Inspector, error) {
	prog, err := dex.OpenFiles(paths, opts)
	if err != nil {
		return nil, err
	}
	var table *mapping.Table
	if mappingPath != "" {
		if table, err = mapping.ParseFile(mappingPath); err != nil {
			return nil, err
		}
	}
	log.WithFields(log.Fields{
		"inputs":  len(paths),
		"classes": len(prog.Classes()),
		"mapping": table.Len(),
	}).Debug("inspect: ready")
	return New(prog, table), nil
}

// Program returns the underlying program.
func (in *Inspector) Program() *dex.Program { return in.prog }

// Mapping returns the mapping table, or nil.
func (in *Inspector) Mapping() *mapping.Table { return in.table }

// Class resolves a class by Java name, original or obfuscated, or by
// type descriptor. Primitive and array types are always absent.
func (in *Inspector) Class(name string) ClassSubject {
	if dexfmt.IsDescriptor(name) {
		name = dexfmt.DescriptorToJava(name)
	}
	if name == "" || dexfmt.IsPrimitive(name) || dexfmt.IsArray(name) {
		return ClassSubject{}
	}
	naming := in.table.ClassNaming(name)
	final := name
	if naming != nil {
		final = naming.RenamedName
	}
	cls := in.prog.Class(dexfmt.JavaToDescriptor(final))
	if cls == nil {
		return ClassSubject{}
	}
	return ClassSubject{in: in, cls: cls, naming: naming}
}

// Classes returns a subject for every class, in container order.
func (in *Inspector) Classes() []ClassSubject {
	out := make([]ClassSubject, 0, len(in.prog.Classes()))
	in.AllClasses(func(c ClassSubject) { out = append(out, c) })
	return out
}

// AllClasses calls fn for every class in container order.
func (in *Inspector) AllClasses(fn func(ClassSubject)) {
	for _, cls := range in.prog.Classes() {
		fn(in.subject(cls))
	}
}

func (in *Inspector) subject(cls *dex.Class) ClassSubject {
	final := dexfmt.DescriptorToJava(cls.Descriptor)
	return ClassSubject{in: in, cls: cls, naming: in.table.RenamedClass(final)}
}

// javaType converts a descriptor to a Java type name.
func javaType(desc string) string { return dexfmt.DescriptorToJava(desc) }

// descriptorOf accepts a Java name or a descriptor and returns the
// descriptor of its obfuscated form.
func (in *Inspector) descriptorOf(name string) string {
	if dexfmt.IsDescriptor(name) {
		name = dexfmt.DescriptorToJava(name)
	}
	return dexfmt.JavaToDescriptor(in.table.ObfuscateType(name))
}

// originalType maps a descriptor to the original Java type name.
func (in *Inspector) originalType(desc string) string {
	return in.table.DeobfuscateType(javaType(desc))
}

func protoDescriptor(sig mapping.Signature) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range sig.Params {
		b.WriteString(dexfmt.JavaToDescriptor(p))
	}
	b.WriteByte(')')
	b.WriteString(dexfmt.JavaToDescriptor(sig.Type))
	return b.String()
}

func (in *Inspector) String() string {
	return fmt.Sprintf("inspector(%d classes, %d mapped)", len(in.prog.Classes()), in.table.Len())
}

// Package mapping loads Proguard/R8 mapping files and translates class
// and member names between their original and obfuscated forms.
package mapping

import (
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Table is a parsed mapping file. A nil *Table is valid and maps every
// name to itself.
type Table struct {
	classes   *linkedhashmap.Map // obfuscated name -> *ClassNaming, file order
	origToObf map[string]string
	obfToOrig map[string]string
}

func newTable() *Table {
	return &Table{
		classes:   linkedhashmap.New(),
		origToObf: make(map[string]string),
		obfToOrig: make(map[string]string),
	}
}

// Len returns the number of class entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.classes.Size()
}

// Classes returns every class naming in file order.
func (t *Table) Classes() []*ClassNaming {
	if t == nil {
		return nil
	}
	out := make([]*ClassNaming, 0, t.classes.Size())
	for _, v := range t.classes.Values() {
		out = append(out, v.(*ClassNaming))
	}
	return out
}

// ClassNaming resolves name as an original name first and then as an
// obfuscated one, and returns that class's naming, or nil.
func (t *Table) ClassNaming(name string) *ClassNaming {
	if t == nil {
		return nil
	}
	if obf, ok := t.origToObf[name]; ok {
		return t.RenamedClass(obf)
	}
	return t.RenamedClass(name)
}

// RenamedClass returns the naming of the class whose obfuscated name is
// obf, or nil.
func (t *Table) RenamedClass(obf string) *ClassNaming {
	if t == nil {
		return nil
	}
	v, found := t.classes.Get(obf)
	if !found {
		return nil
	}
	return v.(*ClassNaming)
}

// ObfuscatedName returns the obfuscated name of an original class name.
func (t *Table) ObfuscatedName(orig string) (string, bool) {
	if t == nil {
		return "", false
	}
	obf, ok := t.origToObf[orig]
	return obf, ok
}

// OriginalName returns the original name of an obfuscated class name.
func (t *Table) OriginalName(obf string) (string, bool) {
	if t == nil {
		return "", false
	}
	orig, ok := t.obfToOrig[obf]
	return orig, ok
}

// ObfuscateType maps a Java type name through original→obfuscated.
// Array types map their element type; primitives and unmapped names are
// returned unchanged.
func (t *Table) ObfuscateType(name string) string {
	return mapType(name, func(n string) (string, bool) { return t.ObfuscatedName(n) })
}

// DeobfuscateType maps a Java type name through obfuscated→original.
func (t *Table) DeobfuscateType(name string) string {
	return mapType(name, func(n string) (string, bool) { return t.OriginalName(n) })
}

// OriginalSignature translates a signature as it appears in the
// compiled program into its original form: types through the inverse
// class mapping, then the name through the class's member naming. It
// returns the translated signature and the naming used, if any.
func (t *Table) OriginalSignature(class *ClassNaming, final Signature) (Signature, *MemberNaming) {
	orig := final.Map(t.DeobfuscateType)
	if m := class.Lookup(orig.WithName(final.Name)); m != nil {
		return m.Original, m
	}
	return orig, nil
}

// FinalSignature translates an original signature into the form it has
// in the compiled program.
func (t *Table) FinalSignature(class *ClassNaming, orig Signature) (Signature, *MemberNaming) {
	final := orig.Map(t.ObfuscateType)
	if m := class.LookupByOriginal(orig); m != nil {
		return final.WithName(m.RenamedName), m
	}
	return final, nil
}

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

func mapType(name string, lookup func(string) (string, bool)) string {
	elem, dims := name, ""
	if i := strings.IndexByte(name, '['); i >= 0 {
		elem, dims = name[:i], name[i:]
	}
	if primitives[elem] {
		return name
	}
	if mapped, ok := lookup(elem); ok {
		return mapped + dims
	}
	return name
}

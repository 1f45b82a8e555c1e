package inspect

import (
	"strconv"
	"strings"

	"dexspect/internal/dexfmt"
	"dexspect/internal/mapping"
	"dexspect/internal/signature"
)

// OriginalSignature rewrites a generic signature attribute so every
// class name is the original one. Without a mapping table, or when the
// attribute does not parse, the input is returned unchanged.
func (in *Inspector) OriginalSignature(kind signature.Kind, final string) string {
	if final == "" || in.table == nil {
		return final
	}
	key := strconv.Itoa(int(kind)) + final
	if s, ok := in.sigs.Get(key); ok {
		return s
	}
	r := &rewriter{table: in.table}
	out := final
	if err := signature.Parse(kind, final, r); err == nil {
		out = r.out.String()
	}
	in.sigs.Add(key, out)
	return out
}

// rewriter is a signature.Action that re-emits the signature with each
// type name mapped obfuscated to original. Type callbacks return the
// obfuscated name so inner types can be rebuilt from it.
type rewriter struct {
	table *mapping.Table
	out   strings.Builder
}

func (r *rewriter) Start()                     { r.out.Reset() }
func (r *rewriter) Stop()                      {}
func (r *rewriter) ParsedSymbol(c byte)        { r.out.WriteByte(c) }
func (r *rewriter) ParsedIdentifier(id string) { r.out.WriteString(id) }

func (r *rewriter) ParsedTypeName(name string) string {
	r.out.WriteString(r.original(name))
	return name
}

// ParsedInnerTypeName looks up enclosing$name as a whole class and
// emits the part of its original name after the original enclosing
// class.
func (r *rewriter) ParsedInnerTypeName(enclosing, name string) string {
	full := enclosing + "$" + name
	orig, ok := r.table.OriginalName(dexfmt.InternalToJava(full))
	if !ok {
		r.out.WriteString(name)
		return full
	}
	orig = dexfmt.JavaToInternal(orig)
	outer := r.original(enclosing) + "$"
	switch {
	case strings.HasPrefix(orig, outer):
		r.out.WriteString(orig[len(outer):])
	case strings.LastIndexByte(orig, '$') >= 0:
		r.out.WriteString(orig[strings.LastIndexByte(orig, '$')+1:])
	default:
		r.out.WriteString(orig[strings.LastIndexByte(orig, '/')+1:])
	}
	return full
}

// original maps an internal class name to its original internal name.
func (r *rewriter) original(internal string) string {
	if orig, ok := r.table.OriginalName(dexfmt.InternalToJava(internal)); ok {
		return dexfmt.JavaToInternal(orig)
	}
	return internal
}

// Package dextest builds small DEX containers in memory so the reader
// and everything above it can be tested against real bytes.
//
// Id tables are emitted in first-use order rather than sorted; the
// reader does not depend on the sort order the format recommends.
package dextest

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"hash/adler32"
	"sort"
	"unicode/utf16"

	"dexspect/internal/dalvik"
	"dexspect/internal/dexfmt"
)

// Object is the default superclass.
const Object = "Ljava/lang/Object;"

// Annotation visibilities.
const (
	VisBuild   byte = 0x00
	VisRuntime byte = 0x01
	VisSystem  byte = 0x02
)

// Class describes one class_def. An empty Super means java.lang.Object,
// except for java.lang.Object itself, which has no superclass.
type Class struct {
	Descriptor  string
	Access      uint32
	Super       string
	Interfaces  []string
	SourceFile  string
	Annotations []Annotation

	StaticFields   []Field
	InstanceFields []Field
	DirectMethods  []Method
	VirtualMethods []Method
}

// Field describes an encoded_field. Value is only written for static
// fields; a static field without one that precedes a field with one is
// padded with null.
type Field struct {
	Name        string
	Type        string
	Access      uint32
	Annotations []Annotation
	Value       *Value
}

// Method describes an encoded_method. A nil Code leaves code_off at 0.
type Method struct {
	Name             string
	Return           string
	Params           []string
	Access           uint32
	Annotations      []Annotation
	ParamAnnotations [][]Annotation
	Code             *Code
}

// Code describes a code_item.
type Code struct {
	Registers uint16
	Ins       uint16
	Outs      uint16
	Insns     []Insn
	Tries     []Try
}

// Body returns a Code with the given register count.
func Body(registers uint16, insns ...Insn) *Code {
	return &Code{Registers: registers, Insns: insns}
}

// Try describes a try_item and its handler.
type Try struct {
	Start       uint32
	Count       uint16
	Handlers    []Handler
	HasCatchAll bool
	CatchAll    uint32
}

// Handler is one typed catch clause.
type Handler struct {
	Type string
	Addr uint32
}

// FieldRef returns a field reference.
func FieldRef(holder, name, typ string) dalvik.FieldRef {
	return dalvik.FieldRef{Holder: holder, Name: name, Type: typ}
}

// MethodRef returns a method reference.
func MethodRef(holder, name, ret string, params ...string) dalvik.MethodRef {
	return dalvik.MethodRef{Holder: holder, Name: name, Proto: dalvik.Proto{Return: ret, Params: params}}
}

type protoID struct {
	shorty, ret uint32
	params      []string
}

type memberID struct {
	class, typ uint16
	name       uint32
}

// Builder accumulates classes and serializes them into one DEX file.
type Builder struct {
	Version string // "035" when empty

	classes []*Class

	strings   []string
	stringIdx map[string]uint32
	types     []uint32
	typeIdx   map[string]uint32
	protos    []protoID
	protoIdx  map[string]uint32
	fields    []memberID
	fieldIdx  map[dalvik.FieldRef]uint32
	methods   []memberID
	methodIdx map[string]uint32
}

// New returns an empty builder.
func New() *Builder { return &Builder{} }

// Add appends classes in definition order.
func (b *Builder) Add(classes ...*Class) *Builder {
	b.classes = append(b.classes, classes...)
	return b
}

func (b *Builder) reset() {
	b.strings, b.types, b.protos, b.fields, b.methods = nil, nil, nil, nil, nil
	b.stringIdx = make(map[string]uint32)
	b.typeIdx = make(map[string]uint32)
	b.protoIdx = make(map[string]uint32)
	b.fieldIdx = make(map[dalvik.FieldRef]uint32)
	b.methodIdx = make(map[string]uint32)
}

func (b *Builder) stringID(s string) uint32 {
	if i, ok := b.stringIdx[s]; ok {
		return i
	}
	i := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	b.stringIdx[s] = i
	return i
}

func (b *Builder) typeID(desc string) uint32 {
	if i, ok := b.typeIdx[desc]; ok {
		return i
	}
	s := b.stringID(desc)
	i := uint32(len(b.types))
	b.types = append(b.types, s)
	b.typeIdx[desc] = i
	return i
}

func (b *Builder) protoID(p dalvik.Proto) uint32 {
	key := p.Descriptor()
	if i, ok := b.protoIdx[key]; ok {
		return i
	}
	shorty := []byte{dexfmt.ShortyChar(p.Return)}
	for _, t := range p.Params {
		shorty = append(shorty, dexfmt.ShortyChar(t))
		b.typeID(t)
	}
	id := protoID{shorty: b.stringID(string(shorty)), ret: b.typeID(p.Return), params: p.Params}
	i := uint32(len(b.protos))
	b.protos = append(b.protos, id)
	b.protoIdx[key] = i
	return i
}

func (b *Builder) fieldID(f dalvik.FieldRef) uint32 {
	if i, ok := b.fieldIdx[f]; ok {
		return i
	}
	id := memberID{class: uint16(b.typeID(f.Holder)), typ: uint16(b.typeID(f.Type)), name: b.stringID(f.Name)}
	i := uint32(len(b.fields))
	b.fields = append(b.fields, id)
	b.fieldIdx[f] = i
	return i
}

func (b *Builder) methodID(m dalvik.MethodRef) uint32 {
	key := m.String()
	if i, ok := b.methodIdx[key]; ok {
		return i
	}
	id := memberID{class: uint16(b.typeID(m.Holder)), typ: uint16(b.protoID(m.Proto)), name: b.stringID(m.Name)}
	i := uint32(len(b.methods))
	b.methods = append(b.methods, id)
	b.methodIdx[key] = i
	return i
}

const headerSize = 0x70

// Build serializes the classes. The data section is written twice: the
// first pass interns every id, the second runs with final offsets.
func (b *Builder) Build() []byte {
	b.reset()
	// Members first, so each class_data list has ascending indices.
	for _, c := range b.classes {
		for _, f := range append(append([]Field(nil), c.StaticFields...), c.InstanceFields...) {
			b.fieldID(FieldRef(c.Descriptor, f.Name, f.Type))
		}
		for _, m := range append(append([]Method(nil), c.DirectMethods...), c.VirtualMethods...) {
			b.methodID(MethodRef(c.Descriptor, m.Name, m.Return, m.Params...))
		}
	}
	b.writeData(0)

	off := headerSize
	stringsOff := off
	off += 4 * len(b.strings)
	typesOff := off
	off += 4 * len(b.types)
	protosOff := off
	off += 12 * len(b.protos)
	fieldsOff := off
	off += 8 * len(b.fields)
	methodsOff := off
	off += 8 * len(b.methods)
	classesOff := off
	off += 32 * len(b.classes)
	dataOff := (off + 3) &^ 3

	w := b.writeData(dataOff)
	out := make([]byte, dataOff, dataOff+len(w.buf))
	out = append(out, w.buf...)
	le := binary.LittleEndian

	version := b.Version
	if version == "" {
		version = "035"
	}
	copy(out, "dex\n"+version+"\x00")
	le.PutUint32(out[32:], uint32(len(out)))
	le.PutUint32(out[36:], headerSize)
	le.PutUint32(out[40:], 0x12345678)
	tables := []struct {
		at, size, off int
	}{
		{56, len(b.strings), stringsOff},
		{64, len(b.types), typesOff},
		{72, len(b.protos), protosOff},
		{80, len(b.fields), fieldsOff},
		{88, len(b.methods), methodsOff},
		{96, len(b.classes), classesOff},
	}
	for _, t := range tables {
		le.PutUint32(out[t.at:], uint32(t.size))
		if t.size > 0 {
			le.PutUint32(out[t.at+4:], uint32(t.off))
		}
	}
	le.PutUint32(out[104:], uint32(len(w.buf)))
	le.PutUint32(out[108:], uint32(dataOff))

	for i, o := range w.stringOffs {
		le.PutUint32(out[stringsOff+4*i:], o)
	}
	for i, s := range b.types {
		le.PutUint32(out[typesOff+4*i:], s)
	}
	for i, p := range b.protos {
		item := out[protosOff+12*i:]
		le.PutUint32(item, p.shorty)
		le.PutUint32(item[4:], p.ret)
		le.PutUint32(item[8:], w.protoParams[i])
	}
	for i, f := range b.fields {
		item := out[fieldsOff+8*i:]
		le.PutUint16(item, f.class)
		le.PutUint16(item[2:], f.typ)
		le.PutUint32(item[4:], f.name)
	}
	for i, m := range b.methods {
		item := out[methodsOff+8*i:]
		le.PutUint16(item, m.class)
		le.PutUint16(item[2:], m.typ)
		le.PutUint32(item[4:], m.name)
	}
	for i, def := range w.classDefs {
		item := out[classesOff+32*i:]
		for k, v := range def {
			le.PutUint32(item[4*k:], v)
		}
	}

	sig := sha1.Sum(out[32:])
	copy(out[12:], sig[:])
	le.PutUint32(out[8:], adler32.Checksum(out[12:]))
	return out
}

// writer lays out the data section starting at an absolute offset.
type writer struct {
	b     *Builder
	start int
	buf   []byte

	stringOffs  []uint32
	protoParams []uint32
	classDefs   [][8]uint32
}

func (w *writer) off() uint32 { return uint32(w.start + len(w.buf)) }

func (w *writer) align() {
	for (w.start+len(w.buf))%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) u8(v byte) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) uleb(v uint32) { w.buf = appendUleb(w.buf, v) }

func appendUleb(buf []byte, v uint32) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func appendSleb(buf []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(buf, c)
		}
		buf = append(buf, c|0x80)
	}
}

// mutf8 encodes s as modified UTF-8 without the terminator.
func mutf8(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xc0|byte(u>>6), 0x80|byte(u&0x3f))
		default:
			out = append(out, 0xe0|byte(u>>12), 0x80|byte((u>>6)&0x3f), 0x80|byte(u&0x3f))
		}
	}
	return out
}

func (w *writer) typeList(types []string) uint32 {
	if len(types) == 0 {
		return 0
	}
	w.align()
	off := w.off()
	w.u32(uint32(len(types)))
	for _, t := range types {
		w.u16(uint16(w.b.typeID(t)))
	}
	return off
}

func (b *Builder) writeData(start int) *writer {
	w := &writer{b: b, start: start}

	// Class-level ids before string data, so pass two sees them all.
	for _, c := range b.classes {
		b.typeID(c.Descriptor)
		if c.SourceFile != "" {
			b.stringID(c.SourceFile)
		}
	}
	w.stringOffs = make([]uint32, len(b.strings))
	for i, s := range b.strings {
		w.stringOffs[i] = w.off()
		w.uleb(uint32(len(utf16.Encode([]rune(s)))))
		w.buf = append(w.buf, mutf8(s)...)
		w.u8(0)
	}

	for _, c := range b.classes {
		w.classDefs = append(w.classDefs, w.class(c))
	}

	// Proto parameter lists last: code may have interned new protos.
	w.protoParams = make([]uint32, len(b.protos))
	for i, p := range b.protos {
		w.protoParams[i] = w.typeList(p.params)
	}
	return w
}

func (w *writer) class(c *Class) [8]uint32 {
	b := w.b
	var def [8]uint32
	def[0] = b.typeID(c.Descriptor)
	def[1] = c.Access
	def[2] = 0xffffffff
	switch {
	case c.Super != "":
		def[2] = b.typeID(c.Super)
	case c.Descriptor != Object:
		def[2] = b.typeID(Object)
	}
	def[3] = w.typeList(c.Interfaces)
	def[4] = 0xffffffff
	if c.SourceFile != "" {
		def[4] = b.stringID(c.SourceFile)
	}
	def[5] = w.directory(c)

	codeOffs := make(map[uint32]uint32)
	for _, m := range append(append([]Method(nil), c.DirectMethods...), c.VirtualMethods...) {
		if m.Code != nil {
			idx := b.methodID(MethodRef(c.Descriptor, m.Name, m.Return, m.Params...))
			codeOffs[idx] = w.code(m.Code)
		}
	}
	def[6] = w.classData(c, codeOffs)
	def[7] = w.staticValues(c)
	return def
}

type annotated struct {
	idx uint32
	off uint32
}

func (w *writer) directory(c *Class) uint32 {
	b := w.b
	classSet := w.annotationSet(c.Annotations)
	var fields, methods, params []annotated
	for _, f := range append(append([]Field(nil), c.StaticFields...), c.InstanceFields...) {
		if len(f.Annotations) > 0 {
			idx := b.fieldID(FieldRef(c.Descriptor, f.Name, f.Type))
			fields = append(fields, annotated{idx, w.annotationSet(f.Annotations)})
		}
	}
	for _, m := range append(append([]Method(nil), c.DirectMethods...), c.VirtualMethods...) {
		idx := b.methodID(MethodRef(c.Descriptor, m.Name, m.Return, m.Params...))
		if len(m.Annotations) > 0 {
			methods = append(methods, annotated{idx, w.annotationSet(m.Annotations)})
		}
		if len(m.ParamAnnotations) > 0 {
			params = append(params, annotated{idx, w.annotationSetRefList(m.ParamAnnotations)})
		}
	}
	if classSet == 0 && len(fields) == 0 && len(methods) == 0 && len(params) == 0 {
		return 0
	}
	w.align()
	off := w.off()
	w.u32(classSet)
	w.u32(uint32(len(fields)))
	w.u32(uint32(len(methods)))
	w.u32(uint32(len(params)))
	for _, list := range [][]annotated{fields, methods, params} {
		sort.Slice(list, func(i, j int) bool { return list[i].idx < list[j].idx })
		for _, a := range list {
			w.u32(a.idx)
			w.u32(a.off)
		}
	}
	return off
}

func (w *writer) annotationSet(set []Annotation) uint32 {
	if len(set) == 0 {
		return 0
	}
	items := make([]uint32, len(set))
	for i, a := range set {
		items[i] = w.off()
		w.u8(a.Visibility)
		w.annotation(a)
	}
	w.align()
	off := w.off()
	w.u32(uint32(len(items)))
	for _, o := range items {
		w.u32(o)
	}
	return off
}

func (w *writer) annotationSetRefList(sets [][]Annotation) uint32 {
	offs := make([]uint32, len(sets))
	for i, s := range sets {
		offs[i] = w.annotationSet(s)
	}
	w.align()
	off := w.off()
	w.u32(uint32(len(offs)))
	for _, o := range offs {
		w.u32(o)
	}
	return off
}

func (w *writer) code(c *Code) uint32 {
	b := w.b
	var units []uint16
	for _, insn := range c.Insns {
		units = append(units, insn(b)...)
	}
	w.align()
	off := w.off()
	w.u16(c.Registers)
	w.u16(c.Ins)
	w.u16(c.Outs)
	w.u16(uint16(len(c.Tries)))
	w.u32(0) // debug_info_off
	w.u32(uint32(len(units)))
	for _, u := range units {
		w.u16(u)
	}
	if len(c.Tries) == 0 {
		return off
	}
	if len(units)%2 == 1 {
		w.u16(0)
	}
	handlers := appendUleb(nil, uint32(len(c.Tries)))
	handlerOffs := make([]uint16, len(c.Tries))
	for i, t := range c.Tries {
		handlerOffs[i] = uint16(len(handlers))
		size := int32(len(t.Handlers))
		if t.HasCatchAll {
			size = -size
		}
		handlers = appendSleb(handlers, size)
		for _, h := range t.Handlers {
			handlers = appendUleb(handlers, b.typeID(h.Type))
			handlers = appendUleb(handlers, h.Addr)
		}
		if t.HasCatchAll {
			handlers = appendUleb(handlers, t.CatchAll)
		}
	}
	for i, t := range c.Tries {
		w.u32(t.Start)
		w.u16(t.Count)
		w.u16(handlerOffs[i])
	}
	w.buf = append(w.buf, handlers...)
	return off
}

func (w *writer) classData(c *Class, codeOffs map[uint32]uint32) uint32 {
	b := w.b
	n := len(c.StaticFields) + len(c.InstanceFields) + len(c.DirectMethods) + len(c.VirtualMethods)
	if n == 0 {
		return 0
	}
	off := w.off()
	w.uleb(uint32(len(c.StaticFields)))
	w.uleb(uint32(len(c.InstanceFields)))
	w.uleb(uint32(len(c.DirectMethods)))
	w.uleb(uint32(len(c.VirtualMethods)))
	for _, list := range [][]Field{c.StaticFields, c.InstanceFields} {
		var prev uint32
		for _, f := range list {
			idx := b.fieldID(FieldRef(c.Descriptor, f.Name, f.Type))
			w.uleb(idx - prev)
			w.uleb(f.Access)
			prev = idx
		}
	}
	for _, list := range [][]Method{c.DirectMethods, c.VirtualMethods} {
		var prev uint32
		for _, m := range list {
			idx := b.methodID(MethodRef(c.Descriptor, m.Name, m.Return, m.Params...))
			w.uleb(idx - prev)
			w.uleb(m.Access)
			w.uleb(codeOffs[idx])
			prev = idx
		}
	}
	return off
}

func (w *writer) staticValues(c *Class) uint32 {
	last := -1
	for i, f := range c.StaticFields {
		if f.Value != nil {
			last = i
		}
	}
	if last < 0 {
		return 0
	}
	off := w.off()
	w.uleb(uint32(last + 1))
	for _, f := range c.StaticFields[:last+1] {
		if f.Value == nil {
			w.value(Null())
			continue
		}
		w.value(*f.Value)
	}
	return off
}

// Zip packs named entries into an archive in the given order.
func Zip(entries ...Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := zw.Create(e.Name)
		if err != nil {
			panic(err)
		}
		if _, err := f.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Entry is one file in a Zip archive.
type Entry struct {
	Name string
	Data []byte
}

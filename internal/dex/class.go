package dex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"dexspect/internal/dalvik"
	"dexspect/internal/dexfmt"
	"dexspect/internal/signature"
)

// container decodes the classes of one DEX file.
type container struct {
	name  string
	data  []byte
	p     *pools
	opts  dexfmt.Options
	diags *dexfmt.Diags
}

func (c *container) readClasses(h *header) ([]*Class, error) {
	raw, err := table(c.data, "class_defs", h.ClassDefsSize, h.ClassDefsOff, classDefSize)
	if err != nil {
		return nil, err
	}
	defs := make([]classDef, h.ClassDefsSize)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, defs); err != nil {
		return nil, fmt.Errorf("dex: class_defs: %w", err)
	}
	classes := make([]*Class, 0, len(defs))
	for i, def := range defs {
		cls, err := c.readClass(def)
		if err != nil {
			return nil, fmt.Errorf("dex: class_def %d: %w", i, err)
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

func (c *container) readClass(def classDef) (*Class, error) {
	p := c.p
	desc, err := p.Type(def.ClassIdx)
	if err != nil {
		return nil, err
	}
	cls := &Class{Descriptor: desc, Access: AccessFlags(def.AccessFlags), File: c.name}
	if cls.Superclass, err = p.optType(def.SuperclassIdx); err != nil {
		return nil, fmt.Errorf("%s: superclass: %w", desc, err)
	}
	if cls.Interfaces, err = p.typeList(def.InterfacesOff); err != nil {
		return nil, fmt.Errorf("%s: interfaces: %w", desc, err)
	}
	if cls.SourceFile, err = p.optString(def.SourceFileIdx); err != nil {
		return nil, fmt.Errorf("%s: source file: %w", desc, err)
	}
	dir, err := p.annotationsDirectory(def.AnnotationsOff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", desc, err)
	}
	cls.Annotations = dir.class
	if err := c.readClassData(cls, def.ClassDataOff, dir); err != nil {
		return nil, fmt.Errorf("%s: %w", desc, err)
	}
	if def.StaticValuesOff != 0 {
		vals, err := p.readArray(dexfmt.NewStreamAt(c.data, int(def.StaticValuesOff)), 0)
		if err != nil {
			return nil, fmt.Errorf("%s: static values: %w", desc, err)
		}
		for i := range min(len(vals), len(cls.StaticFields)) {
			v := vals[i]
			cls.StaticFields[i].StaticValue = &v
		}
	}
	if err := c.readSystemAnnotations(cls); err != nil {
		return nil, fmt.Errorf("%s: %w", desc, err)
	}
	return cls, nil
}

func (c *container) readClassData(cls *Class, off uint32, dir *directory) error {
	if off == 0 {
		return nil
	}
	s := dexfmt.NewStreamAt(c.data, int(off))
	var counts [4]uint32
	for i := range counts {
		n, err := s.ReadUleb128()
		if err != nil {
			return fmt.Errorf("class_data at 0x%x: %w", off, err)
		}
		counts[i] = n
	}

	// Each of the four lists restarts its index delta.
	for list := range 2 {
		fields := make([]*Field, 0, min(counts[list], uint32(s.Remaining())))
		var idx uint32
		for i := range counts[list] {
			diff, err := s.ReadUleb128()
			if err != nil {
				return fmt.Errorf("class_data field %d: %w", i, err)
			}
			access, err := s.ReadUleb128()
			if err != nil {
				return fmt.Errorf("class_data field %d: %w", i, err)
			}
			idx += diff
			ref, err := c.p.Field(idx)
			if err != nil {
				return err
			}
			f := &Field{Ref: ref, Access: AccessFlags(access), Annotations: dir.fields[idx]}
			if f.Signature, err = c.memberSignature(f.Annotations, signature.KindField, ref.String()); err != nil {
				return err
			}
			fields = append(fields, f)
		}
		if list == 0 {
			cls.StaticFields = fields
		} else {
			cls.InstanceFields = fields
		}
	}

	for list := range 2 {
		methods := make([]*Method, 0, min(counts[2+list], uint32(s.Remaining())))
		var idx uint32
		for i := range counts[2+list] {
			var vals [3]uint32
			for k := range vals {
				v, err := s.ReadUleb128()
				if err != nil {
					return fmt.Errorf("class_data method %d: %w", i, err)
				}
				vals[k] = v
			}
			idx += vals[0]
			ref, err := c.p.Method(idx)
			if err != nil {
				return err
			}
			m := &Method{
				Ref:              ref,
				Access:           AccessFlags(vals[1]),
				Annotations:      dir.methods[idx],
				ParamAnnotations: dir.params[idx],
			}
			if m.Signature, err = c.memberSignature(m.Annotations, signature.KindMethod, ref.String()); err != nil {
				return err
			}
			if vals[2] != 0 {
				if m.Code, err = c.readCode(ref, vals[2]); err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
			}
			methods = append(methods, m)
		}
		if list == 0 {
			cls.DirectMethods = methods
		} else {
			cls.VirtualMethods = methods
		}
	}
	return nil
}

func (c *container) readCode(ref dalvik.MethodRef, off uint32) (*Code, error) {
	s := dexfmt.NewStreamAt(c.data, int(off))
	var hdr [4]uint16
	for i := range hdr {
		v, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("%w: code_item at 0x%x", ErrTruncated, off)
		}
		hdr[i] = v
	}
	if _, err := s.ReadUint32(); err != nil { // debug_info_off
		return nil, fmt.Errorf("%w: code_item at 0x%x", ErrTruncated, off)
	}
	size, err := s.ReadUint32()
	if err != nil || uint64(size)*2 > uint64(s.Remaining()) {
		return nil, fmt.Errorf("%w: code_item at 0x%x insns", ErrTruncated, off)
	}
	units := make([]uint16, size)
	for i := range units {
		units[i], _ = s.ReadUint16()
	}
	code := &Code{Registers: hdr[0], Ins: hdr[1], Outs: hdr[2], Units: int(size)}

	if tries := int(hdr[3]); tries > 0 {
		if size%2 == 1 {
			s.Skip(2)
		}
		if code.Tries, err = c.readTries(s, tries); err != nil {
			return nil, fmt.Errorf("code_item at 0x%x: %w", off, err)
		}
	}

	insts, err := dalvik.Decode(units, c.p, c.opts.EffectiveMaxSteps())
	if errors.Is(err, dalvik.ErrStepLimit) && c.opts.Mode == dexfmt.ModeBestEffort {
		c.diags.Addf(c.name, uint64(off), dexfmt.DiagClamped, "%s: decode stopped after %d instructions", ref, len(insts))
		err = nil
	}
	if err != nil {
		return nil, err
	}
	code.Insts = insts
	return code, nil
}

func (c *container) readTries(s *dexfmt.Stream, n int) ([]Try, error) {
	if n*8 > s.Remaining() {
		return nil, fmt.Errorf("%w: %d try items", ErrTruncated, n)
	}
	type rawTry struct {
		start      uint32
		count      uint16
		handlerOff uint16
	}
	raw := make([]rawTry, n)
	for i := range raw {
		raw[i].start, _ = s.ReadUint32()
		raw[i].count, _ = s.ReadUint16()
		raw[i].handlerOff, _ = s.ReadUint16()
	}
	base := s.Position()
	tries := make([]Try, n)
	for i, r := range raw {
		hs := dexfmt.NewStreamAt(c.data, base+int(r.handlerOff))
		handlers, catchAll, err := c.readHandler(hs)
		if err != nil {
			return nil, fmt.Errorf("try %d: %w", i, err)
		}
		tries[i] = Try{Start: r.start, Count: r.count, Handlers: handlers, CatchAll: catchAll}
	}
	return tries, nil
}

// readHandler decodes one encoded_catch_handler.
func (c *container) readHandler(s *dexfmt.Stream) ([]Handler, int64, error) {
	size, err := s.ReadSleb128()
	if err != nil {
		return nil, -1, err
	}
	n := size
	if n < 0 {
		n = -n
	}
	if int(n) > s.Remaining() {
		return nil, -1, fmt.Errorf("%w: catch handler with %d entries", ErrTruncated, n)
	}
	handlers := make([]Handler, n)
	for i := range handlers {
		typeIdx, err := s.ReadUleb128()
		if err != nil {
			return nil, -1, err
		}
		addr, err := s.ReadUleb128()
		if err != nil {
			return nil, -1, err
		}
		typ, err := c.p.Type(typeIdx)
		if err != nil {
			return nil, -1, err
		}
		handlers[i] = Handler{Type: typ, Addr: addr}
	}
	catchAll := int64(-1)
	if size <= 0 {
		addr, err := s.ReadUleb128()
		if err != nil {
			return nil, -1, err
		}
		catchAll = int64(addr)
	}
	return handlers, catchAll, nil
}

// memberSignature extracts and validates a Signature annotation. A
// malformed attribute fails the load in strict mode and is dropped with
// a diagnostic otherwise.
func (c *container) memberSignature(set []*Annotation, kind signature.Kind, owner string) (string, error) {
	sig, present, ok := joinSignature(set)
	if !present {
		return "", nil
	}
	var err error
	if !ok {
		err = fmt.Errorf("%w: %s: Signature value is not a string array", ErrMalformed, owner)
	} else if verr := signature.Validate(kind, sig); verr != nil {
		err = fmt.Errorf("%w: %s: %w", ErrMalformed, owner, verr)
	}
	if err == nil {
		return sig, nil
	}
	if c.opts.Mode == dexfmt.ModeStrict {
		return "", err
	}
	c.diags.Add(c.name, 0, dexfmt.DiagSignature, err.Error())
	return "", nil
}

// readSystemAnnotations fills the signature and inner-class metadata
// of cls from its dalvik.annotation.* entries.
func (c *container) readSystemAnnotations(cls *Class) error {
	var err error
	if cls.Signature, err = c.memberSignature(cls.Annotations, signature.KindClass, cls.Descriptor); err != nil {
		return err
	}
	if a := cls.Annotation(InnerClassAnnotation); a != nil {
		ic := &InnerClass{}
		if v, ok := a.Element("accessFlags"); ok {
			ic.Access = AccessFlags(v.Int)
		}
		if v, ok := a.Element("name"); ok && v.Kind == ValueString {
			name := v.String
			ic.Name = &name
		}
		cls.InnerClass = ic
	}
	if a := cls.Annotation(EnclosingClassAnnotation); a != nil {
		if v, ok := a.Element("value"); ok && v.Kind == ValueType {
			cls.EnclosingClass = v.String
		}
	}
	if a := cls.Annotation(EnclosingMethodAnnotation); a != nil {
		if v, ok := a.Element("value"); ok && v.Kind == ValueMethod {
			m := v.Method
			cls.EnclosingMethod = &m
		}
	}
	if a := cls.Annotation(MemberClassesAnnotation); a != nil {
		if v, ok := a.Element("value"); ok && v.Kind == ValueArray {
			for _, e := range v.Array {
				if e.Kind == ValueType {
					cls.MemberClasses = append(cls.MemberClasses, e.String)
				}
			}
		}
	}
	return nil
}

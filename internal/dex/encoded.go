package dex

import (
	"fmt"
	"math"

	"dexspect/internal/dexfmt"
)

// maxValueDepth bounds nesting of arrays and annotations in encoded values.
const maxValueDepth = 64

func (p *pools) readValue(s *dexfmt.Stream, depth int) (Value, error) {
	if depth > maxValueDepth {
		return Value{}, fmt.Errorf("%w: encoded_value nesting deeper than %d", ErrMalformed, maxValueDepth)
	}
	start := s.Position()
	tag, err := s.ReadByte()
	if err != nil {
		return Value{}, fmt.Errorf("%w: encoded_value at 0x%x", ErrTruncated, start)
	}
	kind, arg := ValueKind(tag&0x1f), int(tag>>5)
	v := Value{Kind: kind}
	size := arg + 1

	switch kind {
	case ValueByte, ValueShort, ValueInt, ValueLong:
		raw, err := s.ReadSized(size, true)
		if err != nil {
			return Value{}, err
		}
		v.Int = int64(raw)
	case ValueChar:
		raw, err := s.ReadSized(size, false)
		if err != nil {
			return Value{}, err
		}
		v.Int = int64(raw)
	case ValueFloat:
		if size > 4 {
			return Value{}, fmt.Errorf("%w: %d-byte float at 0x%x", ErrMalformed, size, start)
		}
		raw, err := s.ReadSized(size, false)
		if err != nil {
			return Value{}, err
		}
		// Zero-extended to the right.
		v.Float = float64(math.Float32frombits(uint32(raw << (8 * (4 - size)))))
	case ValueDouble:
		raw, err := s.ReadSized(size, false)
		if err != nil {
			return Value{}, err
		}
		v.Float = math.Float64frombits(raw << (8 * (8 - size)))
	case ValueMethodType, ValueMethodHandle, ValueString, ValueType, ValueField, ValueMethod, ValueEnum:
		raw, err := s.ReadSized(size, false)
		if err != nil {
			return Value{}, err
		}
		idx := uint32(raw)
		switch kind {
		case ValueMethodType:
			v.Int = int64(idx)
			v.Proto, err = p.Proto(idx)
		case ValueMethodHandle:
			v.Int = int64(idx)
		case ValueString:
			v.String, err = p.String(idx)
		case ValueType:
			v.String, err = p.Type(idx)
		case ValueField, ValueEnum:
			v.Field, err = p.Field(idx)
		case ValueMethod:
			v.Method, err = p.Method(idx)
		}
		if err != nil {
			return Value{}, fmt.Errorf("dex: encoded %s at 0x%x: %w", kind, start, err)
		}
	case ValueArray:
		arr, err := p.readArray(s, depth+1)
		if err != nil {
			return Value{}, err
		}
		v.Array = arr
	case ValueAnnotation:
		a, err := p.readAnnotation(s, depth+1)
		if err != nil {
			return Value{}, err
		}
		v.Annotation = a
	case ValueNull:
	case ValueBoolean:
		v.Int = int64(arg & 1)
	default:
		return Value{}, fmt.Errorf("%w: value type 0x%02x at 0x%x", ErrMalformed, uint8(kind), start)
	}
	return v, nil
}

// readArray decodes an encoded_array.
func (p *pools) readArray(s *dexfmt.Stream, depth int) ([]Value, error) {
	n, err := s.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if int(n) > s.Remaining() {
		return nil, fmt.Errorf("%w: encoded_array of %d values", ErrTruncated, n)
	}
	out := make([]Value, n)
	for i := range out {
		if out[i], err = p.readValue(s, depth); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readAnnotation decodes an encoded_annotation.
func (p *pools) readAnnotation(s *dexfmt.Stream, depth int) (*Annotation, error) {
	typeIdx, err := s.ReadUleb128()
	if err != nil {
		return nil, err
	}
	typ, err := p.Type(typeIdx)
	if err != nil {
		return nil, fmt.Errorf("dex: annotation type: %w", err)
	}
	n, err := s.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if int(n) > s.Remaining() {
		return nil, fmt.Errorf("%w: annotation %s with %d elements", ErrTruncated, typ, n)
	}
	a := &Annotation{Type: typ, Elements: make([]Element, n)}
	for i := range a.Elements {
		nameIdx, err := s.ReadUleb128()
		if err != nil {
			return nil, err
		}
		name, err := p.String(nameIdx)
		if err != nil {
			return nil, fmt.Errorf("dex: annotation %s element name: %w", typ, err)
		}
		val, err := p.readValue(s, depth)
		if err != nil {
			return nil, fmt.Errorf("dex: annotation %s element %s: %w", typ, name, err)
		}
		a.Elements[i] = Element{Name: name, Value: val}
	}
	return a, nil
}

// annotationSet decodes an annotation_set_item at off. Offset 0 is empty.
func (p *pools) annotationSet(off uint32) ([]*Annotation, error) {
	if off == 0 {
		return nil, nil
	}
	s := dexfmt.NewStreamAt(p.data, int(off))
	n, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: annotation_set at 0x%x", ErrTruncated, off)
	}
	if uint64(n)*4 > uint64(s.Remaining()) {
		return nil, fmt.Errorf("%w: annotation_set at 0x%x has %d entries", ErrTruncated, off, n)
	}
	out := make([]*Annotation, 0, n)
	for range n {
		itemOff, _ := s.ReadUint32()
		item := dexfmt.NewStreamAt(p.data, int(itemOff))
		vis, err := item.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: annotation_item at 0x%x", ErrTruncated, itemOff)
		}
		a, err := p.readAnnotation(item, 0)
		if err != nil {
			return nil, err
		}
		a.Visibility = Visibility(vis)
		out = append(out, a)
	}
	return out, nil
}

// annotationSetRefList decodes parameter annotations.
func (p *pools) annotationSetRefList(off uint32) ([][]*Annotation, error) {
	s := dexfmt.NewStreamAt(p.data, int(off))
	n, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: annotation_set_ref_list at 0x%x", ErrTruncated, off)
	}
	if uint64(n)*4 > uint64(s.Remaining()) {
		return nil, fmt.Errorf("%w: annotation_set_ref_list at 0x%x has %d entries", ErrTruncated, off, n)
	}
	out := make([][]*Annotation, n)
	for i := range out {
		setOff, _ := s.ReadUint32()
		if out[i], err = p.annotationSet(setOff); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// directory is a decoded annotations_directory_item keyed by id index.
type directory struct {
	class   []*Annotation
	fields  map[uint32][]*Annotation
	methods map[uint32][]*Annotation
	params  map[uint32][][]*Annotation
}

func (p *pools) annotationsDirectory(off uint32) (*directory, error) {
	d := &directory{}
	if off == 0 {
		return d, nil
	}
	s := dexfmt.NewStreamAt(p.data, int(off))
	var hdr [4]uint32
	for i := range hdr {
		v, err := s.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: annotations_directory at 0x%x", ErrTruncated, off)
		}
		hdr[i] = v
	}
	var err error
	if d.class, err = p.annotationSet(hdr[0]); err != nil {
		return nil, err
	}
	total := (uint64(hdr[1]) + uint64(hdr[2]) + uint64(hdr[3])) * 8
	if total > uint64(s.Remaining()) {
		return nil, fmt.Errorf("%w: annotations_directory at 0x%x", ErrTruncated, off)
	}
	pair := func() (uint32, uint32) {
		idx, _ := s.ReadUint32()
		o, _ := s.ReadUint32()
		return idx, o
	}
	d.fields = make(map[uint32][]*Annotation, hdr[1])
	for range hdr[1] {
		idx, o := pair()
		if d.fields[idx], err = p.annotationSet(o); err != nil {
			return nil, err
		}
	}
	d.methods = make(map[uint32][]*Annotation, hdr[2])
	for range hdr[2] {
		idx, o := pair()
		if d.methods[idx], err = p.annotationSet(o); err != nil {
			return nil, err
		}
	}
	d.params = make(map[uint32][][]*Annotation, hdr[3])
	for range hdr[3] {
		idx, o := pair()
		if d.params[idx], err = p.annotationSetRefList(o); err != nil {
			return nil, err
		}
	}
	return d, nil
}

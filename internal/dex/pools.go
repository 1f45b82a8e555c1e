package dex

import (
	"encoding/binary"
	"fmt"

	"dexspect/internal/dalvik"
	"dexspect/internal/dexfmt"
)

type fieldID struct {
	class, typ uint16
	name       uint32
}

type methodID struct {
	class, proto uint16
	name         uint32
}

// pools holds the id tables of one container, decoded eagerly. It
// implements dalvik.Resolver.
type pools struct {
	data    []byte
	strings []string
	types   []string
	protos  []dalvik.Proto
	fields  []fieldID
	methods []methodID
}

// table returns the byte range of an id table, checking it is in bounds.
func table(data []byte, what string, size, off uint32, itemSize int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	end := uint64(off) + uint64(size)*uint64(itemSize)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %s table [0x%x, 0x%x) past end of file", ErrTruncated, what, off, end)
	}
	return data[off:end], nil
}

func readPools(data []byte, h *header) (*pools, error) {
	p := &pools{data: data}
	le := binary.LittleEndian

	raw, err := table(data, "string_ids", h.StringIdsSize, h.StringIdsOff, 4)
	if err != nil {
		return nil, err
	}
	p.strings = make([]string, h.StringIdsSize)
	for i := range p.strings {
		off := le.Uint32(raw[4*i:])
		if int(off) >= len(data) {
			return nil, fmt.Errorf("%w: string %d data at 0x%x", ErrBadIndex, i, off)
		}
		s, err := dexfmt.NewStreamAt(data, int(off)).ReadMUTF8()
		if err != nil {
			return nil, fmt.Errorf("dex: string %d: %w", i, err)
		}
		p.strings[i] = s
	}

	raw, err = table(data, "type_ids", h.TypeIdsSize, h.TypeIdsOff, 4)
	if err != nil {
		return nil, err
	}
	p.types = make([]string, h.TypeIdsSize)
	for i := range p.types {
		if p.types[i], err = p.String(le.Uint32(raw[4*i:])); err != nil {
			return nil, fmt.Errorf("dex: type %d: %w", i, err)
		}
	}

	raw, err = table(data, "proto_ids", h.ProtoIdsSize, h.ProtoIdsOff, 12)
	if err != nil {
		return nil, err
	}
	p.protos = make([]dalvik.Proto, h.ProtoIdsSize)
	for i := range p.protos {
		item := raw[12*i:]
		ret, err := p.Type(le.Uint32(item[4:]))
		if err != nil {
			return nil, fmt.Errorf("dex: proto %d: %w", i, err)
		}
		params, err := p.typeList(le.Uint32(item[8:]))
		if err != nil {
			return nil, fmt.Errorf("dex: proto %d: %w", i, err)
		}
		p.protos[i] = dalvik.Proto{Return: ret, Params: params}
	}

	raw, err = table(data, "field_ids", h.FieldIdsSize, h.FieldIdsOff, 8)
	if err != nil {
		return nil, err
	}
	p.fields = make([]fieldID, h.FieldIdsSize)
	for i := range p.fields {
		item := raw[8*i:]
		p.fields[i] = fieldID{class: le.Uint16(item), typ: le.Uint16(item[2:]), name: le.Uint32(item[4:])}
	}

	raw, err = table(data, "method_ids", h.MethodIdsSize, h.MethodIdsOff, 8)
	if err != nil {
		return nil, err
	}
	p.methods = make([]methodID, h.MethodIdsSize)
	for i := range p.methods {
		item := raw[8*i:]
		p.methods[i] = methodID{class: le.Uint16(item), proto: le.Uint16(item[2:]), name: le.Uint32(item[4:])}
	}
	return p, nil
}

// typeList decodes a type_list at off. Offset 0 is the empty list.
func (p *pools) typeList(off uint32) ([]string, error) {
	if off == 0 {
		return nil, nil
	}
	s := dexfmt.NewStreamAt(p.data, int(off))
	n, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: type_list at 0x%x", ErrTruncated, off)
	}
	if uint64(n)*2 > uint64(s.Remaining()) {
		return nil, fmt.Errorf("%w: type_list at 0x%x has %d entries", ErrTruncated, off, n)
	}
	out := make([]string, n)
	for i := range out {
		idx, _ := s.ReadUint16()
		if out[i], err = p.Type(uint32(idx)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *pools) String(idx uint32) (string, error) {
	if idx >= uint32(len(p.strings)) {
		return "", fmt.Errorf("%w: string %d of %d", ErrBadIndex, idx, len(p.strings))
	}
	return p.strings[idx], nil
}

func (p *pools) Type(idx uint32) (string, error) {
	if idx >= uint32(len(p.types)) {
		return "", fmt.Errorf("%w: type %d of %d", ErrBadIndex, idx, len(p.types))
	}
	return p.types[idx], nil
}

func (p *pools) Proto(idx uint32) (dalvik.Proto, error) {
	if idx >= uint32(len(p.protos)) {
		return dalvik.Proto{}, fmt.Errorf("%w: proto %d of %d", ErrBadIndex, idx, len(p.protos))
	}
	return p.protos[idx], nil
}

func (p *pools) Field(idx uint32) (dalvik.FieldRef, error) {
	if idx >= uint32(len(p.fields)) {
		return dalvik.FieldRef{}, fmt.Errorf("%w: field %d of %d", ErrBadIndex, idx, len(p.fields))
	}
	f := p.fields[idx]
	holder, err := p.Type(uint32(f.class))
	if err != nil {
		return dalvik.FieldRef{}, err
	}
	typ, err := p.Type(uint32(f.typ))
	if err != nil {
		return dalvik.FieldRef{}, err
	}
	name, err := p.String(f.name)
	if err != nil {
		return dalvik.FieldRef{}, err
	}
	return dalvik.FieldRef{Holder: holder, Name: name, Type: typ}, nil
}

func (p *pools) Method(idx uint32) (dalvik.MethodRef, error) {
	if idx >= uint32(len(p.methods)) {
		return dalvik.MethodRef{}, fmt.Errorf("%w: method %d of %d", ErrBadIndex, idx, len(p.methods))
	}
	m := p.methods[idx]
	holder, err := p.Type(uint32(m.class))
	if err != nil {
		return dalvik.MethodRef{}, err
	}
	proto, err := p.Proto(uint32(m.proto))
	if err != nil {
		return dalvik.MethodRef{}, err
	}
	name, err := p.String(m.name)
	if err != nil {
		return dalvik.MethodRef{}, err
	}
	return dalvik.MethodRef{Holder: holder, Name: name, Proto: proto}, nil
}

// optType resolves a type index that may be NO_INDEX.
func (p *pools) optType(idx uint32) (string, error) {
	if idx == noIndex {
		return "", nil
	}
	return p.Type(idx)
}

// optString resolves a string index that may be NO_INDEX.
func (p *pools) optString(idx uint32) (string, error) {
	if idx == noIndex {
		return "", nil
	}
	return p.String(idx)
}

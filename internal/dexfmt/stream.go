// DEX data stream reader.
// Implements the fixed-width little-endian and LEB128 encodings used by
// the DEX format, plus MUTF-8 string data.
package dexfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

var (
	ErrStreamEOF     = errors.New("stream: unexpected end of data")
	ErrStreamOverrun = errors.New("stream: value too large")
	ErrBadMUTF8      = errors.New("stream: malformed MUTF-8")
)

// Stream reads DEX data.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	return &Stream{data: data, pos: offset, end: len(data)}
}

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// SetPosition sets the read position.
func (s *Stream) SetPosition(pos int) {
	if pos > s.end {
		pos = s.end
	}
	s.pos = pos
}

// Remaining returns bytes left to read.
func (s *Stream) Remaining() int { return s.end - s.pos }

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.pos+n > s.end {
		return nil, ErrStreamEOF
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if s.pos+2 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// ReadUleb128 reads an unsigned LEB128 value (at most 5 bytes).
func (s *Stream) ReadUleb128() (uint32, error) {
	var r uint32
	for i := 0; i < 5; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		r |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return r, nil
		}
	}
	return 0, ErrStreamOverrun
}

// ReadUleb128p1 reads a uleb128p1 value: the encoded value minus one, so
// that NO_INDEX (0xffffffff) fits in a single byte.
func (s *Stream) ReadUleb128p1() (uint32, error) {
	v, err := s.ReadUleb128()
	return v - 1, err
}

// ReadSleb128 reads a signed LEB128 value (at most 5 bytes).
func (s *Stream) ReadSleb128() (int32, error) {
	var r int32
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		r |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 32 && b&0x40 != 0 {
				r |= -1 << shift
			}
			return r, nil
		}
	}
	return 0, ErrStreamOverrun
}

// ReadSized reads a little-endian integer of n (1..8) bytes, as used by
// encoded_value. If signExtend is set the top byte's sign is extended.
func (s *Stream) ReadSized(n int, signExtend bool) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, ErrStreamOverrun
	}
	if s.pos+n > s.end {
		return 0, ErrStreamEOF
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(s.data[s.pos+i]) << (8 * i)
	}
	s.pos += n
	if signExtend && n < 8 && v&(1<<(8*n-1)) != 0 {
		v |= ^uint64(0) << (8 * n)
	}
	return v, nil
}

// ReadMUTF8 reads a string_data_item: a uleb128 UTF-16 length followed by
// NUL-terminated modified UTF-8.
func (s *Stream) ReadMUTF8() (string, error) {
	start := s.pos
	n, err := s.ReadUleb128()
	if err != nil {
		return "", err
	}
	units := make([]uint16, 0, n)
	for {
		b, err := s.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: unterminated string at offset %d", ErrStreamEOF, start)
		}
		switch {
		case b == 0:
			if uint32(len(units)) != n {
				return "", fmt.Errorf("%w: length %d, decoded %d at offset %d", ErrBadMUTF8, n, len(units), start)
			}
			return string(utf16.Decode(units)), nil
		case b < 0x80:
			units = append(units, uint16(b))
		case b&0xe0 == 0xc0:
			b2, err := s.ReadByte()
			if err != nil || b2&0xc0 != 0x80 {
				return "", fmt.Errorf("%w at offset %d", ErrBadMUTF8, s.pos)
			}
			units = append(units, uint16(b&0x1f)<<6|uint16(b2&0x3f))
		case b&0xf0 == 0xe0:
			b2, err2 := s.ReadByte()
			b3, err3 := s.ReadByte()
			if err2 != nil || err3 != nil || b2&0xc0 != 0x80 || b3&0xc0 != 0x80 {
				return "", fmt.Errorf("%w at offset %d", ErrBadMUTF8, s.pos)
			}
			units = append(units, uint16(b&0x0f)<<12|uint16(b2&0x3f)<<6|uint16(b3&0x3f))
		default:
			return "", fmt.Errorf("%w: lead byte 0x%02x at offset %d", ErrBadMUTF8, b, s.pos-1)
		}
	}
}

// Align advances position to the next alignment boundary.
func (s *Stream) Align(alignment int) {
	if alignment <= 0 {
		return
	}
	rem := s.pos % alignment
	if rem != 0 {
		s.pos += alignment - rem
	}
	if s.pos > s.end {
		s.pos = s.end
	}
}

// Skip advances the position by n bytes.
func (s *Stream) Skip(n int) error {
	if s.pos+n > s.end {
		return ErrStreamEOF
	}
	s.pos += n
	return nil
}

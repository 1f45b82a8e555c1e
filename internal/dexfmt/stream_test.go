package dexfmt

import (
	"errors"
	"testing"
)

func TestReadUleb128(t *testing.T) {
	tests := []struct {
		in   []byte
		want uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x7f}, 16256},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff},
	}
	for _, tt := range tests {
		got, err := NewStream(tt.in).ReadUleb128()
		if err != nil {
			t.Errorf("ReadUleb128(%x): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadUleb128(%x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadUleb128p1(t *testing.T) {
	got, err := NewStream([]byte{0x00}).ReadUleb128p1()
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xffffffff {
		t.Errorf("ReadUleb128p1(0) = 0x%x, want NO_INDEX", got)
	}
}

func TestReadSleb128(t *testing.T) {
	tests := []struct {
		in   []byte
		want int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, -1},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0x3f}, 63},
		{[]byte{0x40}, -64},
	}
	for _, tt := range tests {
		got, err := NewStream(tt.in).ReadSleb128()
		if err != nil {
			t.Errorf("ReadSleb128(%x): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadSleb128(%x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadUleb128_Overrun(t *testing.T) {
	_, err := NewStream([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}).ReadUleb128()
	if !errors.Is(err, ErrStreamOverrun) {
		t.Errorf("err = %v, want ErrStreamOverrun", err)
	}
	_, err = NewStream([]byte{0x80}).ReadUleb128()
	if !errors.Is(err, ErrStreamEOF) {
		t.Errorf("err = %v, want ErrStreamEOF", err)
	}
}

func TestReadSized(t *testing.T) {
	v, err := NewStream([]byte{0xff}).ReadSized(1, true)
	if err != nil {
		t.Fatal(err)
	}
	if int64(v) != -1 {
		t.Errorf("ReadSized(0xff, signed) = %d, want -1", int64(v))
	}
	v, err = NewStream([]byte{0x34, 0x12}).ReadSized(2, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Errorf("ReadSized = 0x%x, want 0x1234", v)
	}
}

func TestReadMUTF8(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0x00, 0x00}, ""},
		{[]byte{0x03, 'f', 'o', 'o', 0x00}, "foo"},
		// Encoded NUL is two bytes in MUTF-8.
		{[]byte{0x01, 0xc0, 0x80, 0x00}, "\x00"},
		// U+00E9 (é).
		{[]byte{0x01, 0xc3, 0xa9, 0x00}, "é"},
		// U+1F600 as a surrogate pair, each half a 3-byte sequence.
		{[]byte{0x02, 0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80, 0x00}, "😀"},
	}
	for _, tt := range tests {
		got, err := NewStream(tt.in).ReadMUTF8()
		if err != nil {
			t.Errorf("ReadMUTF8(%x): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadMUTF8(%x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadMUTF8_Errors(t *testing.T) {
	if _, err := NewStream([]byte{0x03, 'f', 'o'}).ReadMUTF8(); !errors.Is(err, ErrStreamEOF) {
		t.Errorf("unterminated: err = %v, want ErrStreamEOF", err)
	}
	if _, err := NewStream([]byte{0x05, 'f', 0x00}).ReadMUTF8(); !errors.Is(err, ErrBadMUTF8) {
		t.Errorf("length mismatch: err = %v, want ErrBadMUTF8", err)
	}
}

func TestAlign(t *testing.T) {
	s := NewStream(make([]byte, 16))
	s.SetPosition(5)
	s.Align(4)
	if s.Position() != 8 {
		t.Errorf("Align(4) from 5 = %d, want 8", s.Position())
	}
}

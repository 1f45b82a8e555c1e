package dex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
)

const (
	headerSize     = 0x70
	endianConstant = 0x12345678
	noIndex        = 0xffffffff
)

// header is header_item. Exported field names let binary.Read fill it.
type header struct {
	Magic         [8]byte
	Checksum      uint32
	Signature     [20]byte
	FileSize      uint32
	HeaderSize    uint32
	EndianTag     uint32
	LinkSize      uint32
	LinkOff       uint32
	MapOff        uint32
	StringIdsSize uint32
	StringIdsOff  uint32
	TypeIdsSize   uint32
	TypeIdsOff    uint32
	ProtoIdsSize  uint32
	ProtoIdsOff   uint32
	FieldIdsSize  uint32
	FieldIdsOff   uint32
	MethodIdsSize uint32
	MethodIdsOff  uint32
	ClassDefsSize uint32
	ClassDefsOff  uint32
	DataSize      uint32
	DataOff       uint32
}

// classDef is class_def_item.
type classDef struct {
	ClassIdx        uint32
	AccessFlags     uint32
	SuperclassIdx   uint32
	InterfacesOff   uint32
	SourceFileIdx   uint32
	AnnotationsOff  uint32
	ClassDataOff    uint32
	StaticValuesOff uint32
}

const classDefSize = 32

// isDexMagic reports whether data starts with "dex\n" + 3 digits + NUL.
func isDexMagic(data []byte) bool {
	if len(data) < 8 || !bytes.Equal(data[:4], []byte("dex\n")) || data[7] != 0 {
		return false
	}
	for _, c := range data[4:7] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseHeader decodes and validates header_item. It returns the format
// version and whether the stored checksum matches the data.
func parseHeader(data []byte) (header, string, bool, error) {
	var h header
	if !isDexMagic(data) {
		return h, "", false, ErrNotDex
	}
	version := string(data[4:7])
	if version < "035" || version > "041" {
		return h, "", false, fmt.Errorf("%w: unsupported version %s", ErrNotDex, version)
	}
	if len(data) < headerSize {
		return h, "", false, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, headerSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &h); err != nil {
		return h, "", false, fmt.Errorf("dex: header: %w", err)
	}
	if h.EndianTag != endianConstant {
		return h, "", false, fmt.Errorf("%w: 0x%08x", ErrBadEndian, h.EndianTag)
	}
	if h.FileSize < headerSize || int(h.FileSize) > len(data) {
		return h, "", false, fmt.Errorf("%w: file_size %d, have %d bytes", ErrTruncated, h.FileSize, len(data))
	}
	sum := adler32.Checksum(data[12:h.FileSize])
	return h, version, sum == h.Checksum, nil
}

package godbf

import (
	"strings"
	"time"
)

const (
	preambleSize        = 32
	fieldDescriptorSize = 32
	fieldNameSize       = 11
)

// Marker bytes used in the field table and data section.
const (
	Terminator = 0x0D
	Present    = 0x20
	Deleted    = 0x2A
	EndOfFile  = 0x1A
	NUL        = 0x00
)

// FieldType is the semantic type named by a descriptor's type tag.
type FieldType int

const (
	TypeNone FieldType = iota
	TypeCharacter
	TypeDate
	TypeFloat
	TypeLogical
	TypeMemo
	TypeNumeric
)

var fieldTypeTags = map[byte]FieldType{
	'C': TypeCharacter,
	'D': TypeDate,
	'F': TypeFloat,
	'L': TypeLogical,
	'M': TypeMemo,
	'N': TypeNumeric,
}

// FieldTypeOf maps a type tag to its FieldType; unknown tags map to TypeNone.
func FieldTypeOf(tag byte) FieldType {
	return fieldTypeTags[tag]
}

// String names the type, or "NoType" for TypeNone.
func (t FieldType) String() string {
	switch t {
	case TypeCharacter:
		return "Character"
	case TypeDate:
		return "Date"
	case TypeFloat:
		return "Float"
	case TypeLogical:
		return "Logical"
	case TypeMemo:
		return "Memo"
	case TypeNumeric:
		return "Numeric"
	}
	return "NoType"
}

// preamble is the fixed 32-byte start of a DBF file as stored on disk.
type preamble struct {
	Version          byte
	LastUpdateYear   byte
	LastUpdateMonth  byte
	LastUpdateDay    byte
	NumRecords       uint32
	HeaderLength     uint16
	RecordLength     uint16
	Reserved         [2]byte
	TransactionFlag  byte
	EncryptionFlag   byte
	Reserved2        [12]byte
	MDXFlag          byte
	LanguageDriverID byte
	Reserved3        [2]byte
}

// rawFieldDescriptor is one 32-byte entry of the field table as stored on disk.
type rawFieldDescriptor struct {
	Name      [fieldNameSize]byte
	Type      byte
	Reserved1 [4]byte
	Length    byte
	Decimals  byte
	Reserved2 [2]byte
	Example   byte
	Reserved3 [10]byte
	MDXFlag   byte
}

// Header is the decoded file preamble plus its field table. It is built once
// per Reader and must not be modified.
type Header struct {
	Version          byte
	LastUpdateYear   byte
	LastUpdateMonth  byte
	LastUpdateDay    byte
	NumRecords       uint32
	HeaderLength     uint16
	RecordLength     uint16 // includes the marker byte
	Reserved         [2]byte
	TransactionFlag  byte
	EncryptionFlag   byte
	Reserved2        [12]byte
	MDXFlag          byte
	LanguageDriverID byte
	Reserved3        [2]byte

	// Terminator is the byte found after the last descriptor.
	Terminator byte
	Fields     []*FieldDescriptor
}

// LastUpdate returns the last-update date. The year byte counts from 1900.
func (h *Header) LastUpdate() time.Time {
	return time.Date(1900+int(h.LastUpdateYear), time.Month(h.LastUpdateMonth), int(h.LastUpdateDay), 0, 0, 0, 0, time.UTC)
}

// FieldByName looks a descriptor up by name, ignoring case.
func (h *Header) FieldByName(name string) (*FieldDescriptor, bool) {
	for _, f := range h.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return nil, false
}

// Columns returns the field names in table order.
func (h *Header) Columns() []string {
	columns := make([]string, len(h.Fields))
	for i, f := range h.Fields {
		columns[i] = f.Name
	}
	return columns
}

// dataLength is the sum of the declared field lengths.
func (h *Header) dataLength() int {
	n := 0
	for _, f := range h.Fields {
		n += int(f.Length)
	}
	return n
}

// FieldDescriptor describes one column.
type FieldDescriptor struct {
	Name     string
	RawName  [fieldNameSize]byte
	Tag      byte
	Type     FieldType
	Length   uint8
	Decimals uint8 // only meaningful for Numeric and Float

	Reserved1 [4]byte
	Reserved2 [2]byte
	Example   byte
	Reserved3 [10]byte
	MDXFlag   byte
}

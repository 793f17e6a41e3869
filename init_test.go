package godbf

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/axgle/mahonia"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadHeader_Scenario(t *testing.T) {
	data := []byte{
		0x03, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x41, 0x00,
		0x15, 0x00,
	}
	data = append(data, make([]byte, 20)...)
	data = append(data, descriptorBytes(testField{"NAME", 'C', 20, 0})...)
	data = append(data, Terminator)
	data = append(data, Present)
	data = append(data, []byte("first record        ")...)
	data = append(data, Present)
	data = append(data, []byte("second record       ")...)
	data = append(data, Terminator)

	dbf, hook := newTestReader(t, data, nil)
	header := dbf.Header()
	assert.Equal(t, byte(3), header.Version)
	assert.Equal(t, uint32(2), header.NumRecords)
	assert.Equal(t, uint16(65), header.HeaderLength)
	assert.Equal(t, uint16(21), header.RecordLength)
	require.Len(t, header.Fields, 1)
	assert.Equal(t, "NAME", header.Fields[0].Name)
	assert.Equal(t, TypeCharacter, header.Fields[0].Type)
	assert.Equal(t, uint8(20), header.Fields[0].Length)

	rows, err := dbf.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	v, err := rows[1].Fields[0].Value()
	require.NoError(t, err)
	assert.Equal(t, Text("second record"), v)
	assert.Empty(t, warnings(hook))
}

func TestReadHeader_LittleEndian(t *testing.T) {
	f := newFixture(testField{"ID", 'N', 4, 0})
	f.numRecords = 0x01020304
	data := f.header()

	header, err := ReadHeader(bytes.NewReader(data), &Config{Logger: nullLogger()})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), header.NumRecords)
	assert.Equal(t, uint16(65), header.HeaderLength)
	assert.Equal(t, uint16(5), header.RecordLength)
	assert.Equal(t, time.Date(2024, time.October, 19, 0, 0, 0, 0, time.UTC), header.LastUpdate())
}

func TestReadHeader_PreservesReservedBytes(t *testing.T) {
	data := newFixture(testField{"ID", 'N', 4, 0}).header()
	data[12], data[13] = 0xAA, 0xBB
	data[14] = 1
	data[15] = 1
	data[16] = 0xCC
	data[28] = 1
	data[29] = 0x57
	data[31] = 0xDD

	header, err := ReadHeader(bytes.NewReader(data), &Config{Logger: nullLogger()})
	require.NoError(t, err)
	assert.Equal(t, [2]byte{0xAA, 0xBB}, header.Reserved)
	assert.Equal(t, byte(1), header.TransactionFlag)
	assert.Equal(t, byte(1), header.EncryptionFlag)
	assert.Equal(t, byte(0xCC), header.Reserved2[0])
	assert.Equal(t, byte(1), header.MDXFlag)
	assert.Equal(t, byte(0x57), header.LanguageDriverID)
	assert.Equal(t, [2]byte{0, 0xDD}, header.Reserved3)
}

func TestReadHeader_FieldCountFromHeaderLength(t *testing.T) {
	fields := []testField{
		{"NAME", 'C', 10, 0},
		{"BORN", 'D', 8, 0},
		{"SALARY", 'N', 10, 2},
		{"RATE", 'F', 6, 3},
		{"ACTIVE", 'L', 1, 0},
		{"NOTES", 'M', 10, 0},
		{"BLOB", 'B', 10, 0},
	}
	data := newFixture(fields...).header()

	header, err := ReadHeader(bytes.NewReader(data), &Config{Logger: nullLogger()})
	require.NoError(t, err)
	require.Len(t, header.Fields, len(fields))
	assert.Equal(t, int(header.HeaderLength), preambleSize+fieldDescriptorSize*len(header.Fields)+1)

	want := []FieldType{TypeCharacter, TypeDate, TypeNumeric, TypeFloat, TypeLogical, TypeMemo, TypeNone}
	for i, f := range header.Fields {
		assert.Equal(t, fields[i].name, f.Name)
		assert.Equal(t, fields[i].tag, f.Tag)
		assert.Equal(t, want[i], f.Type)
		assert.Equal(t, fields[i].decimals, f.Decimals)
	}

	f, ok := header.FieldByName("salary")
	require.True(t, ok)
	assert.Equal(t, uint8(2), f.Decimals)
	_, ok = header.FieldByName("missing")
	assert.False(t, ok)
}

func TestReadHeader_TruncatedPreamble(t *testing.T) {
	data := newFixture(testField{"ID", 'N', 4, 0}).header()
	_, err := ReadHeader(bytes.NewReader(data[:20]), nil)
	assert.ErrorIs(t, err, ErrTruncatedHeader)

	_, err = ReadHeader(bytes.NewReader(nil), nil)
	assert.ErrorIs(t, err, ErrTruncatedHeader)
}

func TestReadHeader_TruncatedFieldTable(t *testing.T) {
	data := newFixture(testField{"ID", 'N', 4, 0}, testField{"NAME", 'C', 8, 0}).header()
	_, err := ReadHeader(bytes.NewReader(data[:preambleSize+fieldDescriptorSize+10]), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedFieldTable)
	assert.ErrorIs(t, err, ErrTruncatedField)

	var tableErr *TruncatedFieldTableError
	require.ErrorAs(t, err, &tableErr)
	assert.Equal(t, 1, tableErr.Index)
	var fieldErr *TruncatedFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, 10, fieldErr.Got)
}

func TestReadHeader_MissingTerminator(t *testing.T) {
	data := newFixture(testField{"ID", 'N', 4, 0}).header()
	_, err := ReadHeader(bytes.NewReader(data[:len(data)-1]), nil)
	assert.ErrorIs(t, err, ErrTruncatedHeader)
}

func TestReadHeader_StreamError(t *testing.T) {
	errDisk := errors.New("disk failure")
	data := newFixture(testField{"ID", 'N', 4, 0}, testField{"NAME", 'C', 8, 0}).header()

	for name, n := range map[string]int{
		"preamble":     0,
		"mid preamble": 10,
		"descriptor":   preambleSize + fieldDescriptorSize + 10,
		"terminator":   len(data) - 1,
	} {
		_, err := ReadHeader(&failingReader{data: append([]byte(nil), data[:n]...), err: errDisk}, nil)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, errDisk, name)
		assert.NotErrorIs(t, err, ErrTruncatedHeader, name)
		assert.NotErrorIs(t, err, ErrTruncatedFieldTable, name)
	}
}

func TestReadHeader_BadHeaderLength(t *testing.T) {
	for _, length := range []uint16{0, 32, 40, 66, 96} {
		data := newFixture(testField{"ID", 'N', 4, 0}).header()
		binary.LittleEndian.PutUint16(data[8:10], length)
		_, err := ReadHeader(bytes.NewReader(data), nil)
		assert.ErrorIs(t, err, ErrHeaderLength, "header length %d", length)
	}
}

func TestReadHeader_NoFields(t *testing.T) {
	data := newFixture().header()
	header, err := ReadHeader(bytes.NewReader(data), &Config{Logger: nullLogger()})
	require.NoError(t, err)
	assert.Equal(t, uint16(33), header.HeaderLength)
	assert.Empty(t, header.Fields)
}

func TestReadHeader_UnexpectedTerminator(t *testing.T) {
	f := newFixture(testField{"ID", 'N', 4, 0})
	f.terminator = 0x00
	data := f.header()

	log, hook := test.NewNullLogger()
	header, err := ReadHeader(bytes.NewReader(data), &Config{Logger: log})
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), header.Terminator)
	assert.Equal(t, []string{"unexpected field table terminator"}, warnings(hook))

	_, err = ReadHeader(bytes.NewReader(data), &Config{Logger: log, StrictTerminator: true})
	assert.ErrorIs(t, err, ErrBadTerminator)
}

// The declared header length wins over a descriptor that starts with 0x0D.
func TestReadHeader_EarlyTerminatorInTable(t *testing.T) {
	data := newFixture(testField{"ID", 'N', 4, 0}, testField{"\rX", 'C', 2, 0}).header()

	log, hook := test.NewNullLogger()
	header, err := ReadHeader(bytes.NewReader(data), &Config{Logger: log})
	require.NoError(t, err)
	require.Len(t, header.Fields, 2)
	assert.Equal(t, "\rX", header.Fields[1].Name)
	assert.Equal(t, []string{"field table terminator found before the declared header length"}, warnings(hook))
}

func TestReadHeader_RecordLengthMismatch(t *testing.T) {
	data := newFixture(testField{"ID", 'N', 4, 0}).header()
	binary.LittleEndian.PutUint16(data[10:12], 21)

	log, hook := test.NewNullLogger()
	header, err := ReadHeader(bytes.NewReader(data), &Config{Logger: log})
	require.NoError(t, err)
	assert.Equal(t, uint16(21), header.RecordLength)
	assert.Equal(t, []string{"record length does not match the field table"}, warnings(hook))
}

func TestReadFieldDescriptor(t *testing.T) {
	dec := mahonia.NewDecoder("utf-8")
	raw := descriptorBytes(testField{"PRICE", 'N', 12, 4})
	raw[20] = 0x01
	raw[31] = 0x01

	f, err := ReadFieldDescriptor(bytes.NewReader(raw), dec)
	require.NoError(t, err)
	assert.Equal(t, "PRICE", f.Name)
	assert.Equal(t, byte('N'), f.Tag)
	assert.Equal(t, TypeNumeric, f.Type)
	assert.Equal(t, uint8(12), f.Length)
	assert.Equal(t, uint8(4), f.Decimals)
	assert.Equal(t, byte(0x01), f.Example)
	assert.Equal(t, byte(0x01), f.MDXFlag)
}

func TestReadFieldDescriptor_EndOfTable(t *testing.T) {
	_, err := ReadFieldDescriptor(bytes.NewReader([]byte{Terminator, 0x20}), nil)
	assert.Equal(t, ErrEndOfTable, err)
}

func TestReadFieldDescriptor_Truncated(t *testing.T) {
	raw := descriptorBytes(testField{"PRICE", 'N', 12, 4})

	_, err := ReadFieldDescriptor(bytes.NewReader(raw[:17]), nil)
	var fieldErr *TruncatedFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, 17, fieldErr.Got)
	assert.ErrorIs(t, err, ErrTruncatedField)

	_, err = ReadFieldDescriptor(bytes.NewReader(nil), nil)
	assert.ErrorIs(t, err, ErrTruncatedField)
}

func TestReadFieldDescriptor_StreamError(t *testing.T) {
	errDisk := errors.New("disk failure")
	raw := descriptorBytes(testField{"PRICE", 'N', 12, 4})

	for _, n := range []int{0, 17} {
		_, err := ReadFieldDescriptor(&failingReader{data: append([]byte(nil), raw[:n]...), err: errDisk}, nil)
		assert.ErrorIs(t, err, errDisk)
		assert.NotErrorIs(t, err, ErrTruncatedField)
	}
}

func TestReadFieldDescriptor_NameWithoutNUL(t *testing.T) {
	raw := descriptorBytes(testField{"ABCDEFGHIJK", 'C', 1, 0})
	f, err := ReadFieldDescriptor(bytes.NewReader(raw), mahonia.NewDecoder("utf-8"))
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJK", f.Name)
}

func TestReadFieldDescriptor_IgnoresBytesAfterNUL(t *testing.T) {
	raw := descriptorBytes(testField{"AB\x00CD", 'C', 1, 0})
	f, err := ReadFieldDescriptor(bytes.NewReader(raw), mahonia.NewDecoder("utf-8"))
	require.NoError(t, err)
	assert.Equal(t, "AB", f.Name)
}

func TestReadFieldDescriptor_Encoding(t *testing.T) {
	raw := descriptorBytes(testField{"\xd6\xd0\xce\xc4", 'C', 4, 0})
	f, err := ReadFieldDescriptor(bytes.NewReader(raw), mahonia.NewDecoder("gbk"))
	require.NoError(t, err)
	assert.Equal(t, "中文", f.Name)
}

// Encoding a decoded name and padding it with NULs gives back the raw bytes.
func TestFieldName_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		encoding string
		name     string
	}{
		{"utf-8", "NAME"},
		{"utf-8", "STOCK_CODE"},
		{"gbk", "\xd6\xd0\xce\xc4"},
	} {
		raw := descriptorBytes(testField{tc.name, 'C', 4, 0})
		f, err := ReadFieldDescriptor(bytes.NewReader(raw), mahonia.NewDecoder(tc.encoding))
		require.NoError(t, err)

		encoded := mahonia.NewEncoder(tc.encoding).ConvertString(f.Name)
		var padded [fieldNameSize]byte
		copy(padded[:], encoded)
		assert.Equal(t, f.RawName, padded, tc.encoding)
		assert.Equal(t, raw[:fieldNameSize], padded[:], tc.encoding)
	}
}

func TestFieldType_String(t *testing.T) {
	assert.Equal(t, "Numeric", FieldTypeOf('N').String())
	assert.Equal(t, "Date", FieldTypeOf('D').String())
	assert.Equal(t, "NoType", FieldTypeOf('X').String())
}

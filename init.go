package godbf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/axgle/mahonia"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ReadHeader decodes the preamble and the field table from r, leaving r
// positioned at the first record marker. A nil cfg uses the defaults.
func ReadHeader(r io.Reader, cfg *Config) (*Header, error) {
	opts, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return readHeader(r, opts)
}

func readHeader(r io.Reader, opts *options) (*Header, error) {
	var buf [preambleSize]byte
	if n, err := io.ReadFull(r, buf[:]); err != nil {
		if !truncated(err) {
			return nil, errors.Wrap(err, "dbf: read preamble")
		}
		return nil, errors.Wrapf(ErrTruncatedHeader, "read %d of %d preamble bytes", n, preambleSize)
	}
	var p preamble
	// counts and lengths are stored little-endian
	if err := binary.Read(bytes.NewReader(buf[:]), binary.LittleEndian, &p); err != nil {
		return nil, errors.Wrap(err, "dbf: decode preamble")
	}

	header := &Header{
		Version:          p.Version,
		LastUpdateYear:   p.LastUpdateYear,
		LastUpdateMonth:  p.LastUpdateMonth,
		LastUpdateDay:    p.LastUpdateDay,
		NumRecords:       p.NumRecords,
		HeaderLength:     p.HeaderLength,
		RecordLength:     p.RecordLength,
		Reserved:         p.Reserved,
		TransactionFlag:  p.TransactionFlag,
		EncryptionFlag:   p.EncryptionFlag,
		Reserved2:        p.Reserved2,
		MDXFlag:          p.MDXFlag,
		LanguageDriverID: p.LanguageDriverID,
		Reserved3:        p.Reserved3,
	}

	fieldNum, err := fieldCount(header.HeaderLength)
	if err != nil {
		return nil, err
	}

	// The declared header length decides how many descriptors are read, a
	// terminator byte found earlier is only reported.
	header.Fields = make([]*FieldDescriptor, 0, fieldNum)
	for i := 0; i < fieldNum; i++ {
		var raw [fieldDescriptorSize]byte
		if n, err := io.ReadFull(r, raw[:]); err != nil {
			if !truncated(err) {
				return nil, errors.Wrapf(err, "dbf: read field descriptor %d", i)
			}
			return nil, &TruncatedFieldTableError{Index: i, Err: &TruncatedFieldError{Got: n}}
		}
		if raw[0] == Terminator {
			opts.log.WithFields(logrus.Fields{
				"descriptor":    i,
				"header_length": header.HeaderLength,
			}).Warn("field table terminator found before the declared header length")
		}
		descriptor, err := parseFieldDescriptor(raw[:], opts.decoder)
		if err != nil {
			return nil, &TruncatedFieldTableError{Index: i, Err: err}
		}
		header.Fields = append(header.Fields, descriptor)
	}

	var term [1]byte
	if _, err := io.ReadFull(r, term[:]); err != nil {
		if !truncated(err) {
			return nil, errors.Wrap(err, "dbf: read field table terminator")
		}
		return nil, errors.Wrap(ErrTruncatedHeader, "missing field table terminator")
	}
	header.Terminator = term[0]
	if header.Terminator != Terminator {
		if opts.strictTerminator {
			return nil, errors.Wrapf(ErrBadTerminator, "found 0x%02X", header.Terminator)
		}
		opts.log.WithField("terminator", header.Terminator).Warn("unexpected field table terminator")
	}

	if want := 1 + header.dataLength(); want != int(header.RecordLength) {
		opts.log.WithFields(logrus.Fields{
			"record_length": header.RecordLength,
			"field_bytes":   want,
		}).Warn("record length does not match the field table")
	}

	opts.log.WithFields(logrus.Fields{
		"version": header.Version,
		"records": header.NumRecords,
		"fields":  len(header.Fields),
	}).Debug("dbf header decoded")
	return header, nil
}

// fieldCount derives the number of descriptors from the header length,
// which must equal 32 + 32*k + 1.
func fieldCount(headerLength uint16) (int, error) {
	n := int(headerLength) - preambleSize - 1
	if n < 0 || n%fieldDescriptorSize != 0 {
		return 0, errors.Wrapf(ErrHeaderLength, "header length %d", headerLength)
	}
	return n / fieldDescriptorSize, nil
}

// ReadFieldDescriptor decodes one descriptor from r. It returns ErrEndOfTable
// if the first byte is the field table terminator.
func ReadFieldDescriptor(r io.Reader, dec mahonia.Decoder) (*FieldDescriptor, error) {
	var raw [fieldDescriptorSize]byte
	if _, err := io.ReadFull(r, raw[:1]); err != nil {
		if !truncated(err) {
			return nil, errors.Wrap(err, "dbf: read field descriptor")
		}
		return nil, &TruncatedFieldError{Got: 0}
	}
	if raw[0] == Terminator {
		return nil, ErrEndOfTable
	}
	if n, err := io.ReadFull(r, raw[1:]); err != nil {
		if !truncated(err) {
			return nil, errors.Wrap(err, "dbf: read field descriptor")
		}
		return nil, &TruncatedFieldError{Got: n + 1}
	}
	return parseFieldDescriptor(raw[:], dec)
}

// truncated reports whether err from io.ReadFull means the stream ended early,
// as opposed to a failure of the stream itself.
func truncated(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func parseFieldDescriptor(raw []byte, dec mahonia.Decoder) (*FieldDescriptor, error) {
	var rd rawFieldDescriptor
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &rd); err != nil {
		return nil, &TruncatedFieldError{Got: len(raw)}
	}
	return &FieldDescriptor{
		Name:      decodeName(rd.Name, dec),
		RawName:   rd.Name,
		Tag:       rd.Type,
		Type:      FieldTypeOf(rd.Type),
		Length:    rd.Length,
		Decimals:  rd.Decimals,
		Reserved1: rd.Reserved1,
		Reserved2: rd.Reserved2,
		Example:   rd.Example,
		Reserved3: rd.Reserved3,
		MDXFlag:   rd.MDXFlag,
	}, nil
}

// decodeName decodes the bytes before the first NUL, or all 11 if there is none.
func decodeName(name [fieldNameSize]byte, dec mahonia.Decoder) string {
	index := bytes.IndexByte(name[:], NUL)
	if index == -1 {
		index = len(name)
	}
	return decodeText(name[:index], dec)
}

func decodeText(b []byte, dec mahonia.Decoder) string {
	if dec == nil {
		return string(b)
	}
	return dec.ConvertString(string(b))
}

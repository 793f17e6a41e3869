package godbf

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTruncatedHeader     = errors.New("dbf: truncated header")
	ErrTruncatedFieldTable = errors.New("dbf: truncated field table")
	ErrTruncatedField      = errors.New("dbf: truncated field descriptor")
	ErrTruncatedRecord     = errors.New("dbf: truncated record")
	ErrMisalignedRecord    = errors.New("dbf: misaligned record")
	ErrMalformedNumeric    = errors.New("dbf: malformed numeric value")
	ErrHeaderLength        = errors.New("dbf: header length does not match a field table")
	ErrBadTerminator       = errors.New("dbf: field table terminator is not 0x0D")
	ErrUnknownEncoding     = errors.New("dbf: unknown text encoding")

	// ErrEndOfTable is returned by ReadFieldDescriptor when the next byte is
	// the field table terminator.
	ErrEndOfTable = errors.New("dbf: end of field table")
)

// TruncatedFieldError reports a field descriptor that ended before its 32 bytes.
type TruncatedFieldError struct {
	Got int
}

func (e *TruncatedFieldError) Error() string {
	return fmt.Sprintf("dbf: truncated field descriptor: read %d of %d bytes", e.Got, fieldDescriptorSize)
}

func (e *TruncatedFieldError) Is(target error) bool { return target == ErrTruncatedField }

// TruncatedFieldTableError wraps the descriptor failure that stopped header decoding.
type TruncatedFieldTableError struct {
	Index int
	Err   error
}

func (e *TruncatedFieldTableError) Error() string {
	return fmt.Sprintf("dbf: truncated field table at descriptor %d: %v", e.Index, e.Err)
}

func (e *TruncatedFieldTableError) Is(target error) bool { return target == ErrTruncatedFieldTable }

func (e *TruncatedFieldTableError) Unwrap() error { return e.Err }

// TruncatedRecordError names the field of the record where the data section ran out.
type TruncatedRecordError struct {
	Record int
	Field  string
	Want   int
	Got    int
}

func (e *TruncatedRecordError) Error() string {
	return fmt.Sprintf("dbf: truncated record %d: field %s read %d of %d bytes", e.Record, e.Field, e.Got, e.Want)
}

func (e *TruncatedRecordError) Is(target error) bool { return target == ErrTruncatedRecord }

// MisalignedRecordError carries the unexpected byte found where a record marker belongs.
type MisalignedRecordError struct {
	Record int
	Marker byte
}

func (e *MisalignedRecordError) Error() string {
	return fmt.Sprintf("dbf: misaligned record %d: unexpected marker 0x%02X", e.Record, e.Marker)
}

func (e *MisalignedRecordError) Is(target error) bool { return target == ErrMisalignedRecord }

// MalformedNumericError is a Numeric or Float field whose text does not parse.
type MalformedNumericError struct {
	Field string
	Text  string
	Err   error
}

func (e *MalformedNumericError) Error() string {
	return fmt.Sprintf("dbf: malformed numeric value %q in field %s: %v", e.Text, e.Field, e.Err)
}

func (e *MalformedNumericError) Is(target error) bool { return target == ErrMalformedNumeric }

func (e *MalformedNumericError) Unwrap() error { return e.Err }

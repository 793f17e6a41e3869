package godbf

import (
	"strconv"
	"strings"
	"time"

	"github.com/axgle/mahonia"
	"github.com/shopspring/decimal"
)

// Value is a decoded field value: one of Text, Integer, Real, Decimal,
// Boolean, Date or Absent.
type Value interface {
	// Interface returns the plain Go value, nil for Absent.
	Interface() interface{}
	isValue()
}

type (
	Text    string
	Integer int64
	Real    float64
	Boolean bool
	Decimal struct{ decimal.Decimal }
	Date    struct{ time.Time }
	// Absent is the value of blank numeric and date fields and of unknown types.
	Absent struct{}
)

func (v Text) Interface() interface{}    { return string(v) }
func (v Integer) Interface() interface{} { return int64(v) }
func (v Real) Interface() interface{}    { return float64(v) }
func (v Boolean) Interface() interface{} { return bool(v) }
func (v Decimal) Interface() interface{} { return v.Decimal }
func (v Date) Interface() interface{}    { return v.Time }
func (Absent) Interface() interface{}    { return nil }

func (Text) isValue()    {}
func (Integer) isValue() {}
func (Real) isValue()    {}
func (Boolean) isValue() {}
func (Decimal) isValue() {}
func (Date) isValue()    {}
func (Absent) isValue()  {}

const dateLayout = "20060102"

// DecodeValue interprets raw according to the descriptor's type. Only Numeric
// and Float fields can fail, with a *MalformedNumericError.
func DecodeValue(raw []byte, desc *FieldDescriptor, dec mahonia.Decoder) (Value, error) {
	switch desc.Type {
	case TypeCharacter:
		return Text(strings.TrimRight(decodeText(raw, dec), " \x00")), nil
	case TypeMemo:
		return Text(strings.TrimSpace(decodeText(raw, dec))), nil
	case TypeLogical:
		if len(raw) == 0 {
			return Boolean(false), nil
		}
		switch raw[0] {
		case 1, 'y', 'Y', 't', 'T':
			return Boolean(true), nil
		}
		return Boolean(false), nil
	case TypeDate:
		return decodeDate(raw), nil
	case TypeNumeric:
		text := strings.TrimSpace(decodeText(raw, dec))
		if text == "" {
			return Absent{}, nil
		}
		if desc.Decimals == 0 {
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return Absent{}, &MalformedNumericError{Field: desc.Name, Text: text, Err: err}
			}
			return Integer(n), nil
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			return Absent{}, &MalformedNumericError{Field: desc.Name, Text: text, Err: err}
		}
		return Decimal{d}, nil
	case TypeFloat:
		text := strings.TrimSpace(decodeText(raw, dec))
		if text == "" {
			return Absent{}, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Absent{}, &MalformedNumericError{Field: desc.Name, Text: text, Err: err}
		}
		return Real(f), nil
	}
	return Absent{}, nil
}

// decodeDate parses the ASCII YYYYMMDD form. Blank, zero and unparsable
// dates are Absent.
func decodeDate(raw []byte) Value {
	text := strings.TrimSpace(string(raw))
	if text == "" || strings.Trim(text, "0") == "" {
		return Absent{}
	}
	t, err := time.Parse(dateLayout, text)
	if err != nil {
		return Absent{}
	}
	return Date{t}
}

// Field is one field of a Row.
type Field struct {
	Name       string
	Raw        []byte // exactly Descriptor.Length bytes
	Type       FieldType
	Descriptor *FieldDescriptor

	decoder mahonia.Decoder
	decoded bool
	value   Value
	err     error
}

// String returns the raw bytes decoded as text, whatever the field type.
func (f *Field) String() string {
	return decodeText(f.Raw, f.decoder)
}

// Value decodes the typed value on first use and caches the result.
func (f *Field) Value() (Value, error) {
	if !f.decoded {
		f.value, f.err = DecodeValue(f.Raw, f.Descriptor, f.decoder)
		f.decoded = true
	}
	return f.value, f.err
}

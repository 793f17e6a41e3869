package godbf

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// Scan copies the row into the struct pointed to by v. Struct fields are
// matched to columns through the `dbf:"column"` tag, ignoring case; untagged
// fields and columns without a struct field are left alone. Blank values
// leave the struct field unchanged.
func (row *Row) Scan(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("Scan requires a non-nil pointer to a struct")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("Scan requires a pointer to a struct, not a %s", rv.Kind())
	}

	modelColumnIndex := columnIndex(rv.Type())
	for _, field := range row.Fields {
		fieldIndex, ok := modelColumnIndex[strings.ToLower(field.Name)]
		if !ok {
			continue
		}
		fieldValue := rv.Field(fieldIndex)
		if !fieldValue.CanSet() {
			continue
		}
		if err := setField(fieldValue, field); err != nil {
			return errors.Wrapf(err, "record %d column %s", row.Number, field.Name)
		}
	}
	return nil
}

// columnIndex maps lower-cased dbf tags to struct field indexes. Unexported
// fields are ignored even when tagged.
func columnIndex(rt reflect.Type) map[string]int {
	modelColumnIndex := make(map[string]int)
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).PkgPath != "" {
			continue
		}
		dbfColumn := rt.Field(i).Tag.Get("dbf")
		if dbfColumn == "" || dbfColumn == "-" {
			continue
		}
		modelColumnIndex[strings.ToLower(dbfColumn)] = i
	}
	return modelColumnIndex
}

func setField(fieldValue reflect.Value, field *Field) error {
	value, err := field.Value()

	// string targets take the text of any column, even one whose typed value
	// does not decode
	if fieldValue.Kind() == reflect.String {
		if v, ok := value.(Text); ok && err == nil {
			fieldValue.SetString(string(v))
		} else {
			fieldValue.SetString(strings.TrimSpace(field.String()))
		}
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := value.(Absent); ok {
		return nil
	}

	switch fieldValue.Type() {
	case timeType:
		if v, ok := value.(Date); ok {
			fieldValue.Set(reflect.ValueOf(v.Time))
			return nil
		}
		return mismatch(fieldValue, value)
	case decimalType:
		switch v := value.(type) {
		case Decimal:
			fieldValue.Set(reflect.ValueOf(v.Decimal))
		case Integer:
			fieldValue.Set(reflect.ValueOf(decimal.New(int64(v), 0)))
		case Real:
			fieldValue.Set(reflect.ValueOf(decimal.NewFromFloat(float64(v))))
		default:
			return mismatch(fieldValue, value)
		}
		return nil
	}

	switch fieldValue.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch v := value.(type) {
		case Integer:
			n = int64(v)
		case Decimal:
			n = v.IntPart()
		default:
			return mismatch(fieldValue, value)
		}
		if fieldValue.OverflowInt(n) {
			return overflow(fieldValue, value)
		}
		fieldValue.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, ok := value.(Integer)
		if !ok {
			return mismatch(fieldValue, value)
		}
		if v < 0 || fieldValue.OverflowUint(uint64(v)) {
			return overflow(fieldValue, value)
		}
		fieldValue.SetUint(uint64(v))
	case reflect.Float32, reflect.Float64:
		var f float64
		switch v := value.(type) {
		case Real:
			f = float64(v)
		case Integer:
			f = float64(v)
		case Decimal:
			f, _ = v.Float64()
		default:
			return mismatch(fieldValue, value)
		}
		if fieldValue.OverflowFloat(f) {
			return overflow(fieldValue, value)
		}
		fieldValue.SetFloat(f)
	case reflect.Bool:
		v, ok := value.(Boolean)
		if !ok {
			return mismatch(fieldValue, value)
		}
		fieldValue.SetBool(bool(v))
	default:
		return mismatch(fieldValue, value)
	}
	return nil
}

func mismatch(fieldValue reflect.Value, value Value) error {
	return fmt.Errorf("cannot store %T in %s", value, fieldValue.Type())
}

func overflow(fieldValue reflect.Value, value Value) error {
	return fmt.Errorf("value %v overflows %s", value.Interface(), fieldValue.Type())
}

// ReadRecord reads the next row into the struct pointed to by v. It returns
// io.EOF when there are no more rows.
func (dbf *Reader) ReadRecord(v interface{}) error {
	row, err := dbf.Next()
	if err != nil {
		return err
	}
	return row.Scan(v)
}

// ReadRecords appends every remaining row to the slice of structs pointed to by v.
func (dbf *Reader) ReadRecords(v interface{}) error {
	rt := reflect.TypeOf(v)
	if rt == nil || rt.Kind() != reflect.Ptr {
		return fmt.Errorf("ReadRecords requires a pointer to a slice, not a %v", rt)
	}
	if rt.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("ReadRecords requires a pointer to a slice, not a %s", rt.Elem().Kind())
	}
	if rt.Elem().Elem().Kind() != reflect.Struct {
		return fmt.Errorf("ReadRecords requires a pointer to a slice of struct, not a %s", rt.Elem().Elem().Kind())
	}

	rv := reflect.ValueOf(v).Elem()
	for {
		row, err := dbf.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		item := reflect.New(rt.Elem().Elem())
		if err := row.Scan(item.Interface()); err != nil {
			return err
		}
		rv.Set(reflect.Append(rv, item.Elem()))
	}
}

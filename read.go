package godbf

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Row is one decoded record.
type Row struct {
	Number  int // 1-based position among the rows read
	Deleted bool
	Fields  []*Field
}

// Field returns the value of the named column, ignoring case.
func (row *Row) Field(name string) (*Field, bool) {
	for _, f := range row.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return nil, false
}

// Next decodes the next record. It returns io.EOF once the data section ends
// at a terminator byte or at the end of the stream. After any other error the
// Reader is failed and Next keeps returning that error.
func (dbf *Reader) Next() (*Row, error) {
	switch dbf.state {
	case exhausted:
		return nil, io.EOF
	case failed:
		return nil, dbf.err
	}

	for {
		marker, err := dbf.r.ReadByte()
		if err == io.EOF {
			return nil, dbf.exhaust()
		}
		if err != nil {
			return nil, dbf.fail(err)
		}

		switch marker {
		case Terminator, EndOfFile:
			return nil, dbf.exhaust()
		case Present, Deleted:
			row, err := dbf.readRow(marker == Deleted)
			if err != nil {
				return nil, dbf.fail(err)
			}
			if row.Deleted && dbf.opts.skipDeleted {
				continue
			}
			dbf.recordsRead++
			row.Number = dbf.recordsRead
			return row, nil
		default:
			if !dbf.opts.resync {
				return nil, dbf.fail(&MisalignedRecordError{Record: dbf.recordsRead + 1, Marker: marker})
			}
			if err := dbf.skipRecord(marker); err != nil {
				return nil, dbf.fail(err)
			}
		}
	}
}

// ReadAll reads the remaining rows.
func (dbf *Reader) ReadAll() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := dbf.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

func (dbf *Reader) readRow(deleted bool) (*Row, error) {
	row := &Row{
		Deleted: deleted,
		Fields:  make([]*Field, len(dbf.header.Fields)),
	}
	for i, descriptor := range dbf.header.Fields {
		raw := make([]byte, descriptor.Length)
		if n, err := io.ReadFull(dbf.r, raw); err != nil {
			if !truncated(err) {
				return nil, err
			}
			return nil, &TruncatedRecordError{
				Record: dbf.recordsRead + 1,
				Field:  descriptor.Name,
				Want:   int(descriptor.Length),
				Got:    n,
			}
		}
		row.Fields[i] = &Field{
			Name:       descriptor.Name,
			Raw:        raw,
			Type:       descriptor.Type,
			Descriptor: descriptor,
			decoder:    dbf.opts.decoder,
		}
	}
	return row, nil
}

// skipRecord discards the rest of a record whose marker was not recognised,
// so every skip moves the stream a whole record forward.
func (dbf *Reader) skipRecord(marker byte) error {
	n := int(dbf.header.RecordLength) - 1
	if n < 0 {
		n = 0
	}
	dbf.opts.log.WithFields(logrus.Fields{
		"record": dbf.recordsRead + 1,
		"marker": marker,
		"skip":   n,
	}).Warn("unexpected record marker, skipping record")
	skipped, err := dbf.r.Discard(n)
	if err == io.EOF {
		return &TruncatedRecordError{Record: dbf.recordsRead + 1, Field: "", Want: n, Got: skipped}
	}
	return err
}

func (dbf *Reader) exhaust() error {
	dbf.state = exhausted
	if uint32(dbf.recordsRead) != dbf.header.NumRecords && !dbf.opts.skipDeleted {
		dbf.opts.log.WithFields(logrus.Fields{
			"declared": dbf.header.NumRecords,
			"read":     dbf.recordsRead,
		}).Warn("record count differs from header")
	}
	return io.EOF
}

func (dbf *Reader) fail(err error) error {
	dbf.state = failed
	dbf.err = err
	return err
}

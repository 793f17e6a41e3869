package godbf

import (
	"bufio"
	"io"
	"os"

	"github.com/axgle/mahonia"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultEncoding = "utf-8"

// Config controls how a Reader decodes a file. The zero value is usable.
type Config struct {
	Encoding         string             // text encoding for names and text values, default utf-8
	SkipDeleted      bool               // drop rows marked deleted instead of returning them
	Resync           bool               // skip a record with an unknown marker instead of failing
	StrictTerminator bool               // fail when the field table terminator is not 0x0D
	Logger           logrus.FieldLogger // default logrus.StandardLogger()
}

type options struct {
	encoding         string
	decoder          mahonia.Decoder
	skipDeleted      bool
	resync           bool
	strictTerminator bool
	log              logrus.FieldLogger
}

func (cfg *Config) resolve() (*options, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = DefaultEncoding
	}
	decoder := mahonia.NewDecoder(encoding)
	if decoder == nil {
		return nil, errors.Wrapf(ErrUnknownEncoding, "%q", encoding)
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &options{
		encoding:         encoding,
		decoder:          decoder,
		skipDeleted:      cfg.SkipDeleted,
		resync:           cfg.Resync,
		strictTerminator: cfg.StrictTerminator,
		log:              log,
	}, nil
}

type state int

const (
	positioned state = iota
	exhausted
	failed
)

// Reader is a forward-only decoder over one DBF stream. It is not safe for
// concurrent use.
type Reader struct {
	src    io.Reader
	r      *bufio.Reader
	opts   *options
	header *Header

	state       state
	err         error
	recordsRead int
}

// NewReader decodes the header from r and returns a Reader positioned at the
// first record. If r is an io.Closer, Close closes it.
func NewReader(r io.Reader, cfg *Config) (*Reader, error) {
	opts, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(r)
	header, err := readHeader(br, opts)
	if err != nil {
		return nil, err
	}
	return &Reader{
		src:    r,
		r:      br,
		opts:   opts,
		header: header,
	}, nil
}

// Open opens fileName read-only and decodes its header.
func Open(fileName string, cfg *Config) (*Reader, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	dbf, err := NewReader(f, cfg)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "open %s", fileName)
	}
	return dbf, nil
}

// Header returns the decoded header. It is shared and must not be modified.
func (dbf *Reader) Header() *Header {
	return dbf.header
}

// RecordsRead is the number of rows returned so far.
func (dbf *Reader) RecordsRead() int {
	return dbf.recordsRead
}

// Encoding is the name of the text encoding in use.
func (dbf *Reader) Encoding() string {
	return dbf.opts.encoding
}

// Close releases the underlying stream. It may be called after a decode error.
func (dbf *Reader) Close() error {
	if c, ok := dbf.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

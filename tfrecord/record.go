/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tfrecord

import (
	"bufio"
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/suparena/featureloader/errors"
)

// ErrCorruptRecord is returned when a length or payload checksum does not match.
var ErrCorruptRecord = stderrors.New("tfrecord: corrupt record")

// MaxRecordLength bounds the payload length a frame header may declare.
const MaxRecordLength = math.MaxInt32

const readChunk = 1 << 20

const maskDelta = 0xa282ead8

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func maskedCRC(b []byte) uint32 {
	crc := crc32.Checksum(b, castagnoli)
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Compression selects the stream codec wrapped around a record file.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "GZIP"
	CompressionZlib Compression = "ZLIB"
)

// ParseCompression accepts the names used by TFRecordDataset's compression_type.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case CompressionNone, CompressionGzip, CompressionZlib:
		return Compression(name), nil
	}
	return "", errors.NewValidationError("compression", fmt.Sprintf("unsupported compression %q", name))
}

// Reader reads framed records:
//
//	uint64 length | uint32 masked crc32c(length) | data | uint32 masked crc32c(data)
type Reader struct {
	r       io.Reader
	closers []io.Closer
	header  [12]byte
	footer  [4]byte
}

// NewReader wraps r, decompressing it first when c is not CompressionNone.
func NewReader(r io.Reader, c Compression) (*Reader, error) {
	rd := &Reader{}
	switch c {
	case CompressionNone:
		rd.r = bufio.NewReader(r)
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		rd.r = zr
		rd.closers = append(rd.closers, zr)
	case CompressionZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zlib stream: %w", err)
		}
		rd.r = zr
		rd.closers = append(rd.closers, zr)
	default:
		return nil, errors.NewValidationError("compression", fmt.Sprintf("unsupported compression %q", c))
	}
	return rd, nil
}

// Open opens a record file. A missing file is reported as a not-found error.
func Open(path string, c Compression) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("record file", path)
		}
		return nil, fmt.Errorf("open record file: %w", err)
	}
	rd, err := NewReader(f, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	rd.closers = append(rd.closers, f)
	return rd, nil
}

// Next returns the next record payload, or io.EOF once the stream ends cleanly.
func (rd *Reader) Next() ([]byte, error) {
	if _, err := io.ReadFull(rd.r, rd.header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read record header: %w", err)
	}
	if binary.LittleEndian.Uint32(rd.header[8:]) != maskedCRC(rd.header[:8]) {
		return nil, fmt.Errorf("length checksum: %w", ErrCorruptRecord)
	}
	n := binary.LittleEndian.Uint64(rd.header[:8])
	if n > MaxRecordLength {
		return nil, fmt.Errorf("record length %d exceeds %d: %w", n, MaxRecordLength, ErrCorruptRecord)
	}
	// the buffer grows with the bytes actually present, not the declared length
	var payload bytes.Buffer
	payload.Grow(int(min(n, readChunk)))
	if _, err := payload.ReadFrom(io.LimitReader(rd.r, int64(n))); err != nil {
		return nil, fmt.Errorf("read record payload: %w", err)
	}
	if uint64(payload.Len()) != n {
		return nil, fmt.Errorf("read record payload: %w", io.ErrUnexpectedEOF)
	}
	data := payload.Bytes()
	if _, err := io.ReadFull(rd.r, rd.footer[:]); err != nil {
		return nil, fmt.Errorf("read record footer: %w", unexpected(err))
	}
	if binary.LittleEndian.Uint32(rd.footer[:]) != maskedCRC(data) {
		return nil, fmt.Errorf("payload checksum: %w", ErrCorruptRecord)
	}
	return data, nil
}

// Close releases the decompressor and, for readers from Open, the file.
func (rd *Reader) Close() error {
	var first error
	for _, c := range rd.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	rd.closers = nil
	return first
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Writer frames records onto an underlying writer.
type Writer struct {
	w     io.Writer
	flush func() error
	close func() error
}

// NewWriter returns a Writer that compresses with c. Close must be called to flush.
func NewWriter(w io.Writer, c Compression) (*Writer, error) {
	switch c {
	case CompressionNone:
		bw := bufio.NewWriter(w)
		return &Writer{w: bw, flush: bw.Flush, close: bw.Flush}, nil
	case CompressionGzip:
		zw := gzip.NewWriter(w)
		return &Writer{w: zw, flush: zw.Flush, close: zw.Close}, nil
	case CompressionZlib:
		zw := zlib.NewWriter(w)
		return &Writer{w: zw, flush: zw.Flush, close: zw.Close}, nil
	}
	return nil, errors.NewValidationError("compression", fmt.Sprintf("unsupported compression %q", c))
}

// Write appends one record.
func (wr *Writer) Write(record []byte) error {
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(record)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))
	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], maskedCRC(record))

	for _, b := range [][]byte{header[:], record, footer[:]} {
		if _, err := wr.w.Write(b); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return nil
}

// Flush pushes buffered data to the underlying writer.
func (wr *Writer) Flush() error { return wr.flush() }

// Close flushes the writer. It does not close the underlying io.Writer.
func (wr *Writer) Close() error { return wr.close() }

// WriteFile writes records to path, replacing any existing file.
func WriteFile(path string, c Compression, records [][]byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create record file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := NewWriter(f, c)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Close()
}

// CountRecords reads a whole file and returns its record count, verifying checksums.
func CountRecords(path string, c Compression) (int64, error) {
	rd, err := Open(path, c)
	if err != nil {
		return 0, err
	}
	defer rd.Close()

	var n int64
	for {
		if _, err := rd.Next(); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, fmt.Errorf("%s: record %d: %w", path, n, err)
		}
		n++
	}
}

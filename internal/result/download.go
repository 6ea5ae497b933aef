// Package result turns encoded audio into downloadable handles.
package result

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/alnah/go-audioconv/internal/transcode"
)

// ErrEmptyResult indicates an encoded result without bytes.
var ErrEmptyResult = errors.New("empty result")

// Compile-time interface verification.
var (
	_ io.ReadSeeker = (*Download)(nil)
	_ io.WriterTo   = (*Download)(nil)
)

// Download is one in-memory file ready to be handed to a consumer.
// It owns a private copy of the bytes; two downloads never share a buffer.
// The cursor starts at byte 0. A Download is not safe for concurrent reads.
type Download struct {
	Name string
	MIME string

	data   []byte
	reader *bytes.Reader
}

// Materialize copies res into a fresh Download positioned at the start.
func Materialize(res transcode.Result) (*Download, error) {
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResult, res.Filename)
	}
	data := bytes.Clone(res.Data)
	return &Download{
		Name:   res.Filename,
		MIME:   res.MIME,
		data:   data,
		reader: bytes.NewReader(data),
	}, nil
}

// Size returns the total length in bytes, independent of the cursor.
func (d *Download) Size() int64 {
	return int64(len(d.data))
}

// Read reads from the current cursor.
func (d *Download) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

// Seek moves the cursor.
func (d *Download) Seek(offset int64, whence int) (int64, error) {
	return d.reader.Seek(offset, whence)
}

// Rewind resets the cursor to byte 0.
func (d *Download) Rewind() {
	d.reader.Reset(d.data)
}

// WriteTo writes the remaining bytes from the cursor to w.
func (d *Download) WriteTo(w io.Writer) (int64, error) {
	return d.reader.WriteTo(w)
}

// Bytes returns a copy of the full content regardless of the cursor.
func (d *Download) Bytes() []byte {
	return bytes.Clone(d.data)
}

// String returns a short description for logs.
func (d *Download) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", d.Name, d.MIME, d.Size())
}

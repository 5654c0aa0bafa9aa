package index

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/grailbio/featureio/feature"
	"github.com/pkg/errors"
)

// Decoder reads little-endian index fields. The first error sticks: later
// reads return zero values and Err reports the failure.
type Decoder struct {
	r   io.Reader
	err error
	buf [8]byte
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Err returns the first error encountered. Short reads are reported as
// io.ErrUnexpectedEOF.
func (d *Decoder) Err() error { return d.err }

// Fail records err if no error has been recorded yet.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) read(n int) []byte {
	if d.err != nil {
		return nil
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return nil
	}
	return d.buf[:n]
}

// Bytes reads exactly n bytes.
func (d *Decoder) Bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return nil
	}
	return b
}

func (d *Decoder) Int32() int32 {
	b := d.read(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (d *Decoder) Uint32() uint32 {
	return uint32(d.Int32())
}

func (d *Decoder) Int64() int64 {
	b := d.read(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (d *Decoder) Uint64() uint64 {
	return uint64(d.Int64())
}

// Count reads an int32 element count and checks that it lies in [0, max].
func (d *Decoder) Count(what string, max int) int {
	n := d.Int32()
	if d.err == nil && (n < 0 || int(n) > max) {
		d.err = errors.Errorf("bad %s count %d", what, n)
		return 0
	}
	return int(n)
}

// CString reads a NUL-terminated string of at most max bytes.
func (d *Decoder) CString(max int) string {
	var s []byte
	for d.err == nil {
		b := d.read(1)
		if b == nil {
			break
		}
		if b[0] == 0 {
			return string(s)
		}
		if len(s) == max {
			d.err = errors.Errorf("string longer than %d bytes", max)
			break
		}
		s = append(s, b[0])
	}
	return ""
}

// AtEOF reports whether the underlying reader has no more bytes. It
// consumes one byte if there is one.
func (d *Decoder) AtEOF() bool {
	if d.err != nil {
		return false
	}
	var b [1]byte
	n, err := io.ReadFull(d.r, b[:])
	if n == 0 && err == io.EOF {
		return true
	}
	if err != nil {
		d.err = err
	}
	return false
}

// Corrupt converts a decoding failure into an index error for path.
func Corrupt(err error, path string) error {
	return feature.Wrap(feature.ErrIndexCorrupt, err, "%s", path)
}

// Encoder writes little-endian index fields into a buffer.
type Encoder struct {
	bytes.Buffer
}

func (e *Encoder) Int32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.Write(b[:]) // nolint: errcheck
}

func (e *Encoder) Uint32(v uint32) { e.Int32(int32(v)) }

func (e *Encoder) Int64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.Write(b[:]) // nolint: errcheck
}

func (e *Encoder) Uint64(v uint64) { e.Int64(int64(v)) }

// CString writes s followed by a NUL byte.
func (e *Encoder) CString(s string) {
	e.WriteString(s) // nolint: errcheck
	e.WriteByte(0)   // nolint: errcheck
}

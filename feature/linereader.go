package feature

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/hts/bgzf"
	"github.com/pkg/errors"
)

// LineReader reads newline-terminated lines from a seekable source and
// reports where each line starts. Offsets are bgzf.Offset values; for plain
// sources Block is always zero and File is the byte offset.
type LineReader interface {
	// ReadLine returns the next line with its terminator ("\n" or "\r\n")
	// removed, the offset of its first byte, and the offset just past its
	// terminator. The returned slice is valid until the next call. At the end
	// of the source it returns io.EOF.
	ReadLine() (line []byte, begin, end bgzf.Offset, err error)
	// Seek positions the reader so that the next line starts at off.
	Seek(off bgzf.Offset) error
	// Close releases the decompression state, but not the underlying source.
	Close() error
}

// NewLineReader creates a LineReader over r. If compressed is true, r must
// hold BGZF data and offsets are virtual offsets.
func NewLineReader(r io.ReadSeeker, compressed bool) (LineReader, error) {
	if !compressed {
		return &plainLineReader{r: r, br: bufio.NewReaderSize(r, 64<<10)}, nil
	}
	bg, err := bgzf.NewReader(r, 1)
	if err != nil {
		return nil, blockError(err)
	}
	return &bgzfLineReader{bg: bg}, nil
}

// blockError classifies an error raised by the BGZF layer.
func blockError(err error) error {
	if err == io.ErrUnexpectedEOF {
		return Wrap(ErrSourceTruncated, err, "bgzf")
	}
	return Wrap(ErrRecordDecode, err, "bgzf")
}

type plainLineReader struct {
	r   io.ReadSeeker
	br  *bufio.Reader
	pos int64
	buf []byte
}

func (p *plainLineReader) ReadLine() ([]byte, bgzf.Offset, bgzf.Offset, error) {
	begin := p.pos
	p.buf = p.buf[:0]
	for {
		frag, err := p.br.ReadSlice('\n')
		p.buf = append(p.buf, frag...)
		p.pos += int64(len(frag))
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(p.buf) > 0 {
			break
		}
		if err != nil {
			return nil, bgzf.Offset{File: begin}, bgzf.Offset{File: p.pos}, err
		}
		break
	}
	return trimEOL(p.buf), bgzf.Offset{File: begin}, bgzf.Offset{File: p.pos}, nil
}

func (p *plainLineReader) Seek(off bgzf.Offset) error {
	if off.Block != 0 {
		return Errorf(ErrIndexCorrupt, "virtual offset %+v used on a plain source", off)
	}
	if _, err := p.r.Seek(off.File, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek to %d", off.File)
	}
	p.br.Reset(p.r)
	p.pos = off.File
	return nil
}

func (p *plainLineReader) Close() error { return nil }

// bgzfLineReader reads one byte at a time from the BGZF reader so that
// LastChunk reports the virtual offset of every line start exactly.
type bgzfLineReader struct {
	bg  *bgzf.Reader
	one [1]byte
	buf []byte
}

func (b *bgzfLineReader) ReadLine() ([]byte, bgzf.Offset, bgzf.Offset, error) {
	b.buf = b.buf[:0]
	var begin, end bgzf.Offset
	for {
		n, err := b.bg.Read(b.one[:])
		if n == 1 {
			chunk := b.bg.LastChunk()
			if len(b.buf) == 0 {
				begin = chunk.Begin
			}
			end = chunk.End
			b.buf = append(b.buf, b.one[0])
			if b.one[0] == '\n' {
				return trimEOL(b.buf), begin, end, nil
			}
		}
		if err == io.EOF {
			if len(b.buf) > 0 {
				return trimEOL(b.buf), begin, end, nil
			}
			return nil, end, end, io.EOF
		}
		if err != nil {
			return nil, begin, end, blockError(err)
		}
	}
}

func (b *bgzfLineReader) Seek(off bgzf.Offset) error {
	if err := b.bg.Seek(off); err != nil {
		return blockError(err)
	}
	return nil
}

func (b *bgzfLineReader) Close() error { return b.bg.Close() }

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// LineScanner adds one line of lookahead to a LineReader. Codecs use it to
// find the end of a header without consuming the first record.
type LineScanner struct {
	r      LineReader
	peeked bool
	line   []byte
	begin  bgzf.Offset
	end    bgzf.Offset
	next   bgzf.Offset
	last   [2]bgzf.Offset
	err    error
}

// NewLineScanner creates a scanner positioned at start, which must be the
// offset r is currently positioned at.
func NewLineScanner(r LineReader, start bgzf.Offset) *LineScanner {
	return &LineScanner{r: r, next: start}
}

func (s *LineScanner) fill() {
	if s.peeked || s.err != nil {
		return
	}
	s.line, s.begin, s.end, s.err = s.r.ReadLine()
	if s.err == nil {
		s.peeked = true
	}
}

// Peek returns the next line without consuming it. It returns io.EOF at the
// end of the source.
func (s *LineScanner) Peek() ([]byte, error) {
	s.fill()
	if s.err != nil {
		return nil, s.err
	}
	return s.line, nil
}

// Next consumes and returns the next line.
func (s *LineScanner) Next() ([]byte, error) {
	s.fill()
	if s.err != nil {
		return nil, s.err
	}
	s.peeked = false
	s.next = s.end
	s.last = [2]bgzf.Offset{s.begin, s.end}
	return s.line, nil
}

// Span returns the offsets of the first byte of the line last returned by
// Next and of the byte just past its terminator.
func (s *LineScanner) Span() (begin, end bgzf.Offset) {
	return s.last[0], s.last[1]
}

// Offset returns the offset at which the next unconsumed line starts.
func (s *LineScanner) Offset() bgzf.Offset {
	if s.peeked {
		return s.begin
	}
	return s.next
}

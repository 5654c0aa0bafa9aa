// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bgzf classifies sources as block-gzipped (BGZF) or plain, and
// includes a Writer for the BGZF format. A BGZF file consists of one or more
// complete gzip blocks concatenated together. Each gzip block holds at most
// 64KB of uncompressed data, and its compressed size is at most 64KB. A
// valid BGZF file ends with the 28 byte terminator shown below; the
// terminator is a valid gzip block containing an empty payload.
//
// Block-compressed VCF and BED files, and tabix indexes, are BGZF files. Any
// position in a BGZF file is addressed by a virtual offset: the file offset
// of the gzip block, and the offset within the block's uncompressed payload.
//
// For more information about the BGZF format, see the SAM/BAM spec here:
// https://samtools.github.io/hts-specs/SAMv1.pdf
//
// Example use:
//   var bgzfFile bytes.Buffer
//   w, err := NewWriter(&bgzfFile, gzip.DefaultCompression)
//   n, err := w.Write([]byte("Foo bar"))
//   err = w.Close()
package bgzf

import (
	"bytes"
	"fmt"
	"io"

	htsbgzf "github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultUncompressedBlockSize is the default bgzf
	// uncompressedBlockSize chosen by both sambamba and biogo.  See
	// the SAM/BAM specification for details.
	DefaultUncompressedBlockSize = 0x0ff00

	// MaxUncompressedBlockSize is the largest legal value for
	// uncompressedBlockSize.
	MaxUncompressedBlockSize = 0x10000

	// compressedBlockSize is the maximum size of the compressed data
	// for a Bgzf block.  See the SAM/BAM specification for details.
	compressedBlockSize = 0x10000
)

var (
	// bgzfExtra goes into the gzip's Extra subfield, with subfield
	// ids: 66, 67, and length 2.  See the SAM/BAM spec.
	bgzfExtra       = [...]byte{66, 67, 2, 0, 0, 0}
	bgzfExtraPrefix = [...]byte{66, 67, 2, 0}

	// Terminator is the Bgzf EOF terminator.  It belongs at the end
	// of a valid Bgzf file.  See the SAM/BAM spec.
	Terminator = []byte{
		0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00, 0x42, 0x43,
		0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
)

// Writer compresses data into .bgzf format.  Each gzip block has an
// uncompressed size of at most 64KB.  The .bgzf format adds an Extra header
// field to each of the gzip headers; the Extra field contains the size of
// the compressed block in bytes - 1.  The payload of the .bgzf file is the
// in-order concatenation of the uncompressed payloads of the gzip blocks.
type Writer struct {
	level            int
	uncompressedSize int
	w                io.Writer
	gz               *gzip.Writer
	original         bytes.Buffer
	compressed       bytes.Buffer
	coffset          int64 // starting file position of the current gzip block
}

// NewWriter returns a new .bgzf writer with the given compression
// level and the default block size.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	return NewWriterSize(w, level, DefaultUncompressedBlockSize)
}

// NewWriterSize returns a new .bgzf writer whose blocks hold at most
// uncompressedBlockSize bytes of payload. Small block sizes are useful to
// exercise readers across block boundaries.
func NewWriterSize(w io.Writer, level, uncompressedBlockSize int) (*Writer, error) {
	if uncompressedBlockSize <= 0 || uncompressedBlockSize > MaxUncompressedBlockSize {
		return nil, fmt.Errorf("uncompressedBlockSize %d out of range (0, %d]",
			uncompressedBlockSize, MaxUncompressedBlockSize)
	}
	gz, err := gzip.NewWriterLevel(&bytes.Buffer{}, level)
	if err != nil {
		return nil, err
	}
	return &Writer{
		level:            level,
		uncompressedSize: uncompressedBlockSize,
		w:                w,
		gz:               gz,
	}, nil
}

// Write writes buf to the .bgzf payload.  Returns the number of bytes
// consumed from buf and any error encountered.
func (w *Writer) Write(buf []byte) (int, error) {
	for i := 0; i < len(buf); {
		end := len(buf)
		limit := i + w.uncompressedSize - w.original.Len()
		if limit < end {
			end = limit
		}
		n, _ := w.original.Write(buf[i:end])
		i += n
		if err := w.tryCompress(false); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// Flush compresses any buffered payload into a block, so that the next byte
// written starts a new block.
func (w *Writer) Flush() error {
	return w.tryCompress(true)
}

// Close the current .bgzf block and also append the .bgzf terminator.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := w.w.Write(Terminator)
	return err
}

// Removes a block from w.original, compresses the block, and writes the
// compressed block to w.w.
func (w *Writer) tryCompress(compressRemainder bool) error {
	for w.original.Len() >= w.uncompressedSize || (compressRemainder && w.original.Len() > 0) {
		w.gz.Reset(&w.compressed)
		w.gz.Header.Extra = make([]byte, len(bgzfExtra))
		copy(w.gz.Header.Extra, bgzfExtra[:])
		w.gz.Header.OS = 0xff // Unknown OS value
		if _, err := w.gz.Write(w.original.Next(w.uncompressedSize)); err != nil {
			return err
		}
		if err := w.gz.Close(); err != nil {
			return err
		}

		// Replace bgzf BSIZE header with compressed length - 1.
		b := w.compressed.Bytes()
		offset := 12 // This is the offset of the Extra field in the gzip header.
		bsize := w.compressed.Len() - 1
		if bsize >= compressedBlockSize {
			return fmt.Errorf("bgzf compressed block is too big: %d > %d", bsize,
				compressedBlockSize)
		}
		if len(b) < offset+len(bgzfExtra) || !bytes.Equal(b[offset:offset+len(bgzfExtraPrefix)], bgzfExtraPrefix[:]) {
			return fmt.Errorf("could not find bgzf extra prefix")
		}
		b[offset+4] = byte(bsize)
		b[offset+5] = byte(bsize >> 8)

		sz := w.compressed.Len()
		if _, err := w.compressed.WriteTo(w.w); err != nil {
			return err
		}
		w.coffset += int64(sz)
	}
	return nil
}

// Offset returns the virtual offset of the next byte to be written.
func (w *Writer) Offset() htsbgzf.Offset {
	return htsbgzf.Offset{File: w.coffset, Block: uint16(w.original.Len())}
}

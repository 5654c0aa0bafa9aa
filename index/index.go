// Package index defines the positional index abstraction shared by the
// tribble (.idx) and tabix (.tbi) index families.
package index

import (
	"sort"

	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/hts/bgzf"
)

// Chunk is a half-open range [Begin, End) of virtual offsets in a data file.
type Chunk struct {
	Begin bgzf.Offset
	End   bgzf.Offset
}

// Index maps genomic intervals to chunks of a data file. Implementations are
// immutable once loaded and safe for concurrent use.
type Index interface {
	// SeqNames returns the reference sequence names, in index order.
	SeqNames() []string
	// Chunks returns the chunks that may hold records overlapping the 1-based
	// closed interval [start, end] on contig. An unknown contig yields no
	// chunks. The result is sorted and merged.
	Chunks(contig string, start, end int) ([]Chunk, error)
	// MaxOffset returns the largest data offset the index refers to.
	MaxOffset() bgzf.Offset
	// Validate checks that the index can describe a data file of the given
	// size.
	Validate(dataSize int64) error
}

// Less reports whether a sorts before b.
func Less(a, b bgzf.Offset) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Block < b.Block
}

// Max returns the larger of a and b.
func Max(a, b bgzf.Offset) bgzf.Offset {
	if Less(a, b) {
		return b
	}
	return a
}

// ToOffset converts a packed 64-bit virtual offset to a bgzf.Offset.
func ToOffset(voffset uint64) bgzf.Offset {
	return bgzf.Offset{
		File:  int64(voffset >> 16),
		Block: uint16(voffset),
	}
}

// FromOffset packs offset into a 64-bit virtual offset.
func FromOffset(offset bgzf.Offset) uint64 {
	return uint64(offset.File)<<16 | uint64(offset.Block)
}

// Merge sorts chunks by Begin and coalesces chunks that overlap or touch.
// Empty chunks are dropped. The argument is modified.
func Merge(chunks []Chunk) []Chunk {
	sort.Slice(chunks, func(i, j int) bool {
		return Less(chunks[i].Begin, chunks[j].Begin)
	})
	merged := chunks[:0]
	for _, c := range chunks {
		if !Less(c.Begin, c.End) {
			continue
		}
		if n := len(merged); n > 0 && !Less(merged[n-1].End, c.Begin) {
			merged[n-1].End = Max(merged[n-1].End, c.End)
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

// CheckDataSize verifies that a data file of dataSize bytes contains every
// offset up to max. For block-compressed data, max.File is the start of a
// block and must lie inside the file unless it points exactly at the end.
func CheckDataSize(max bgzf.Offset, dataSize int64) error {
	if max.File > dataSize || (max.File == dataSize && max.Block > 0) {
		return feature.Errorf(feature.ErrSourceTruncated,
			"index refers to offset %d:%d, data file has only %d bytes", max.File, max.Block, dataSize)
	}
	return nil
}

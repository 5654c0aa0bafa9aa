package tabix

import (
	"github.com/biogo/store/llrb"
	"github.com/grailbio/featureio/index"
	htsbgzf "github.com/grailbio/hts/bgzf"
	"github.com/pkg/errors"
)

// binEntry is a bin under construction, ordered by bin number.
type binEntry struct {
	bin    uint32
	chunks []index.Chunk
}

func (b *binEntry) Compare(c llrb.Comparable) int {
	return int(b.bin) - int(c.(*binEntry).bin)
}

type refBuilder struct {
	bins   llrb.Tree
	linear []htsbgzf.Offset
	set    []bool
	meta   Metadata
}

// Builder accumulates records, sorted by contig and start, into an Index.
type Builder struct {
	config Config
	names  []string
	seen   map[string]bool
	refs   []*refBuilder
	cur    *refBuilder
	start  int
}

// NewBuilder creates a builder for files of the given format.
func NewBuilder(config Config) *Builder {
	return &Builder{config: config, seen: map[string]bool{}}
}

// Add records a feature at the 1-based closed interval [start, end] of
// contig, whose line occupies the virtual offsets [begin, endOff).
func (b *Builder) Add(contig string, start, end int, begin, endOff htsbgzf.Offset) error {
	if start < 0 || end < start {
		return errors.Errorf("bad interval %s:%d-%d", contig, start, end)
	}
	if b.cur == nil || b.names[len(b.names)-1] != contig {
		if b.seen[contig] {
			return errors.Errorf("input is not sorted by contig: %s appears twice", contig)
		}
		b.seen[contig] = true
		b.names = append(b.names, contig)
		b.cur = &refBuilder{meta: Metadata{Begin: begin}}
		b.refs = append(b.refs, b.cur)
		b.start = 0
	}
	if start < b.start {
		return errors.Errorf("input is not sorted: %s:%d after %s:%d", contig, start, contig, b.start)
	}
	b.start = start
	r := b.cur
	// Records at position 0 (VCF telomeres) are binned with base 1.
	beg := start - 1
	if beg < 0 {
		beg = 0
	}
	if end <= beg {
		end = beg + 1
	}

	bin := reg2bin(beg, end)
	var e *binEntry
	if c := r.bins.Get(&binEntry{bin: bin}); c != nil {
		e = c.(*binEntry)
	} else {
		e = &binEntry{bin: bin}
		r.bins.Insert(e)
	}
	if n := len(e.chunks); n > 0 && e.chunks[n-1].End == begin {
		e.chunks[n-1].End = endOff
	} else {
		e.chunks = append(e.chunks, index.Chunk{Begin: begin, End: endOff})
	}

	for w := beg >> LinearShift; w <= (end-1)>>LinearShift; w++ {
		for len(r.linear) <= w {
			r.linear = append(r.linear, htsbgzf.Offset{})
			r.set = append(r.set, false)
		}
		if !r.set[w] {
			r.linear[w] = begin
			r.set[w] = true
		}
	}
	r.meta.End = endOff
	r.meta.Mapped++
	return nil
}

// Finish returns the completed index.
func (b *Builder) Finish() *Index {
	x := &Index{Config: b.config, Names: b.names, byName: map[string]int{}}
	for i, r := range b.refs {
		x.byName[b.names[i]] = i
		ref := Ref{binIndex: map[uint32]int{}}
		r.bins.Do(func(c llrb.Comparable) bool {
			e := c.(*binEntry)
			ref.binIndex[e.bin] = len(ref.Bins)
			ref.Bins = append(ref.Bins, Bin{Bin: e.bin, Chunks: e.chunks})
			return false
		})
		// Empty windows inherit the previous offset.
		var prev htsbgzf.Offset
		for w := range r.linear {
			if !r.set[w] {
				r.linear[w] = prev
			}
			prev = r.linear[w]
		}
		ref.Intervals = r.linear
		meta := r.meta
		ref.Meta = &meta
		x.Refs = append(x.Refs, ref)
	}
	var noCoor uint64
	x.NoCoor = &noCoor
	return x
}

package tribble

import (
	"io"

	"github.com/biogo/store/interval"
	"github.com/grailbio/base/log"
	"github.com/grailbio/featureio/index"
	"github.com/grailbio/hts/bgzf"
	"github.com/pkg/errors"
)

// IntervalTreeIndex stores, per sequence, one interval for each group of
// consecutive features. Each interval records the genomic span of its group
// and the byte range holding it.
type IntervalTreeIndex struct {
	Header
	seqTable
	seqs []treeSeq
}

type treeSeq struct {
	name      string
	intervals []treeInterval
	tree      interval.IntTree
}

// treeInterval is one node of the tree. start and end are 1-based and
// inclusive; the node covers bytes [pos, pos+size).
type treeInterval struct {
	start, end int32
	pos        int64
	size       int32
	id         uintptr
}

func (n treeInterval) Overlap(r interval.IntRange) bool {
	return int(n.start) < r.End && int(n.end) >= r.Start
}

func (n treeInterval) ID() uintptr { return n.id }

func (n treeInterval) Range() interval.IntRange {
	return interval.IntRange{Start: int(n.start), End: int(n.end) + 1}
}

// treeQuery is a 1-based closed query interval.
type treeQuery struct{ start, end int }

func (q treeQuery) Overlap(r interval.IntRange) bool {
	return r.Start <= q.end && r.End > q.start
}

func (s *treeSeq) build() error {
	s.tree = interval.IntTree{}
	for i := range s.intervals {
		s.intervals[i].id = uintptr(i)
		if err := s.tree.Insert(s.intervals[i], true); err != nil {
			return errors.Wrapf(err, "sequence %q: interval %d", s.name, i)
		}
	}
	s.tree.AdjustRanges()
	return nil
}

func readIntervalTree(d *index.Decoder, h Header) (*IntervalTreeIndex, error) {
	x := &IntervalTreeIndex{Header: h}
	n := d.Count("sequence", maxCount)
	for i := 0; i < n && d.Err() == nil; i++ {
		s := treeSeq{name: d.CString(maxString)}
		m := d.Count("interval", maxCount)
		s.intervals = make([]treeInterval, 0, capHint(m))
		for j := 0; j < m && d.Err() == nil; j++ {
			iv := treeInterval{start: d.Int32(), end: d.Int32(), pos: d.Int64(), size: d.Int32()}
			if d.Err() != nil {
				break
			}
			if iv.start < 0 || iv.end < iv.start || iv.pos < 0 || iv.size < 0 {
				return nil, errors.Errorf("sequence %q: bad interval %d [%d,%d] at %d+%d", s.name, j, iv.start, iv.end, iv.pos, iv.size)
			}
			s.intervals = append(s.intervals, iv)
		}
		if d.Err() != nil {
			break
		}
		if err := s.build(); err != nil {
			return nil, err
		}
		if _, err := x.add(s.name); err != nil {
			return nil, err
		}
		x.seqs = append(x.seqs, s)
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return x, nil
}

// Chunks implements index.Index.
func (x *IntervalTreeIndex) Chunks(contig string, start, end int) ([]index.Chunk, error) {
	i, ok := x.byName[contig]
	if !ok {
		return nil, nil
	}
	hits := x.seqs[i].tree.Get(treeQuery{start: start, end: end})
	chunks := make([]index.Chunk, 0, len(hits))
	for _, h := range hits {
		iv := h.(treeInterval)
		chunks = append(chunks, index.Chunk{
			Begin: bgzf.Offset{File: iv.pos},
			End:   bgzf.Offset{File: iv.pos + int64(iv.size)},
		})
	}
	if log.At(log.Debug) {
		log.Debug.Printf("tribble: %s:%d-%d -> %d intervals", contig, start, end, len(hits))
	}
	return index.Merge(chunks), nil
}

// MaxOffset implements index.Index.
func (x *IntervalTreeIndex) MaxOffset() bgzf.Offset {
	var max int64
	for _, s := range x.seqs {
		for _, iv := range s.intervals {
			if e := iv.pos + int64(iv.size); e > max {
				max = e
			}
		}
	}
	return bgzf.Offset{File: max}
}

// Validate implements index.Index.
func (x *IntervalTreeIndex) Validate(dataSize int64) error {
	return x.Header.validate(x, dataSize)
}

// Write serializes the index in .idx format.
func (x *IntervalTreeIndex) Write(w io.Writer) error {
	var e index.Encoder
	x.Header.Type = TypeIntervalTree
	x.Header.write(&e)
	e.Int32(int32(len(x.seqs)))
	for _, s := range x.seqs {
		e.CString(s.name)
		e.Int32(int32(len(s.intervals)))
		for _, iv := range s.intervals {
			e.Int32(iv.start)
			e.Int32(iv.end)
			e.Int64(iv.pos)
			e.Int32(iv.size)
		}
	}
	_, err := w.Write(e.Bytes())
	return err
}

// IntervalTreeBuilder accumulates features, sorted by contig and start, into
// an IntervalTreeIndex.
type IntervalTreeBuilder struct {
	perInterval int
	x           IntervalTreeIndex
	cur         *treeSeq
	start       int

	// The group being filled.
	count   int
	group   treeInterval
	lastEnd int64
}

// NewIntervalTreeBuilder creates a builder that puts featuresPerInterval
// features in each tree node. A value <= 0 selects
// DefaultFeaturesPerInterval.
func NewIntervalTreeBuilder(featuresPerInterval int) *IntervalTreeBuilder {
	if featuresPerInterval <= 0 {
		featuresPerInterval = DefaultFeaturesPerInterval
	}
	return &IntervalTreeBuilder{perInterval: featuresPerInterval}
}

// Add records a feature at [start, end] on contig whose line occupies bytes
// [begin, end) of the data file.
func (b *IntervalTreeBuilder) Add(contig string, start, end int, begin, endOff bgzf.Offset) error {
	if b.cur == nil || b.cur.name != contig {
		b.flush()
		if _, err := b.x.add(contig); err != nil {
			return errors.Wrap(err, "input is not sorted by contig")
		}
		b.x.seqs = append(b.x.seqs, treeSeq{name: contig})
		b.cur = &b.x.seqs[len(b.x.seqs)-1]
		b.start = 0
	}
	if start < b.start {
		return errors.Errorf("input is not sorted: %s:%d after %s:%d", contig, start, contig, b.start)
	}
	if b.count == b.perInterval {
		b.flush()
	}
	if b.count == 0 {
		b.group = treeInterval{start: int32(start), end: int32(end), pos: begin.File}
	}
	if int32(end) > b.group.end {
		b.group.end = int32(end)
	}
	b.count++
	b.start = start
	b.lastEnd = endOff.File
	return nil
}

func (b *IntervalTreeBuilder) flush() {
	if b.count == 0 {
		return
	}
	b.group.size = int32(b.lastEnd - b.group.pos)
	b.cur.intervals = append(b.cur.intervals, b.group)
	b.count = 0
}

// Finish completes the index. path and fileSize describe the indexed file.
func (b *IntervalTreeBuilder) Finish(path string, fileSize int64) (*IntervalTreeIndex, error) {
	b.flush()
	x := b.x
	for i := range x.seqs {
		if err := x.seqs[i].build(); err != nil {
			return nil, err
		}
	}
	x.Header = Header{Type: TypeIntervalTree, Version: Version, Path: path, FileSize: fileSize}
	return &x, nil
}

package tribble

import (
	"io"

	"github.com/grailbio/base/log"
	"github.com/grailbio/featureio/index"
	"github.com/grailbio/hts/bgzf"
	"github.com/pkg/errors"
)

// LinearIndex divides each sequence into bins of BinWidth bases. Bin i holds
// the features whose start lies in (i*BinWidth, (i+1)*BinWidth]; its data
// spans [positions[i], positions[i+1]).
type LinearIndex struct {
	Header
	seqTable
	seqs []linearSeq
}

type linearSeq struct {
	name         string
	binWidth     int32
	longest      int32
	largestBlock int32
	nFeatures    int32
	// positions has one entry per bin plus the end of the last bin.
	positions []int64
}

func readLinear(d *index.Decoder, h Header) (*LinearIndex, error) {
	x := &LinearIndex{Header: h}
	n := d.Count("sequence", maxCount)
	for i := 0; i < n && d.Err() == nil; i++ {
		var s linearSeq
		s.name = d.CString(maxString)
		s.binWidth = d.Int32()
		nBins := d.Count("bin", maxCount)
		s.longest = d.Int32()
		s.largestBlock = d.Int32()
		s.nFeatures = d.Int32()
		if d.Err() != nil {
			break
		}
		if s.binWidth <= 0 {
			return nil, errors.Errorf("sequence %q: bin width %d", s.name, s.binWidth)
		}
		if s.longest < 0 || s.nFeatures < 0 {
			return nil, errors.Errorf("sequence %q: negative feature statistics", s.name)
		}
		s.positions = make([]int64, 0, capHint(nBins+1))
		for j := 0; j <= nBins && d.Err() == nil; j++ {
			pos := d.Int64()
			if d.Err() != nil {
				break
			}
			if pos < 0 || (j > 0 && pos < s.positions[j-1]) {
				return nil, errors.Errorf("sequence %q: bin %d position %d out of order", s.name, j, pos)
			}
			s.positions = append(s.positions, pos)
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
func (x *LinearIndex) Chunks(contig string, start, end int) ([]index.Chunk, error) {
	i, ok := x.byName[contig]
	if !ok {
		return nil, nil
	}
	s := &x.seqs[i]
	nBins := len(s.positions) - 1
	if nBins <= 0 {
		return nil, nil
	}
	bw := int(s.binWidth)
	adjusted := start - int(s.longest)
	if adjusted < 0 {
		adjusted = 0
	}
	startBin := adjusted / bw
	if startBin >= nBins {
		return nil, nil
	}
	endBin := (end - 1) / bw
	if endBin >= nBins {
		endBin = nBins - 1
	}
	if endBin < startBin {
		endBin = startBin
	}
	c := index.Chunk{
		Begin: bgzf.Offset{File: s.positions[startBin]},
		End:   bgzf.Offset{File: s.positions[endBin+1]},
	}
	if log.At(log.Debug) {
		log.Debug.Printf("tribble: %s:%d-%d -> bins [%d,%d] bytes [%d,%d)", contig, start, end, startBin, endBin, c.Begin.File, c.End.File)
	}
	return index.Merge([]index.Chunk{c}), nil
}

// MaxOffset implements index.Index.
func (x *LinearIndex) MaxOffset() bgzf.Offset {
	var max int64
	for _, s := range x.seqs {
		if n := len(s.positions); n > 0 && s.positions[n-1] > max {
			max = s.positions[n-1]
		}
	}
	return bgzf.Offset{File: max}
}

// Validate implements index.Index.
func (x *LinearIndex) Validate(dataSize int64) error {
	return x.Header.validate(x, dataSize)
}

// Write serializes the index in .idx format.
func (x *LinearIndex) Write(w io.Writer) error {
	var e index.Encoder
	x.Header.Type = TypeLinear
	x.Header.write(&e)
	e.Int32(int32(len(x.seqs)))
	for _, s := range x.seqs {
		e.CString(s.name)
		e.Int32(s.binWidth)
		e.Int32(int32(len(s.positions) - 1))
		e.Int32(s.longest)
		e.Int32(s.largestBlock)
		e.Int32(s.nFeatures)
		for _, pos := range s.positions {
			e.Int64(pos)
		}
	}
	_, err := w.Write(e.Bytes())
	return err
}

// LinearBuilder accumulates features, sorted by contig and start, into a
// LinearIndex.
type LinearBuilder struct {
	binWidth int
	x        LinearIndex
	cur      *linearSeq
	start    int
	lastEnd  int64
}

// NewLinearBuilder creates a builder with the given bin width. A width <= 0
// selects DefaultBinWidth.
func NewLinearBuilder(binWidth int) *LinearBuilder {
	if binWidth <= 0 {
		binWidth = DefaultBinWidth
	}
	return &LinearBuilder{binWidth: binWidth}
}

// Add records a feature at [start, end] on contig whose line occupies bytes
// [begin, end) of the data file.
func (b *LinearBuilder) Add(contig string, start, end int, begin, endOff bgzf.Offset) error {
	if b.cur == nil || b.cur.name != contig {
		b.finishSeq()
		if _, err := b.x.add(contig); err != nil {
			return errors.Wrap(err, "input is not sorted by contig")
		}
		b.x.seqs = append(b.x.seqs, linearSeq{name: contig, binWidth: int32(b.binWidth)})
		b.cur = &b.x.seqs[len(b.x.seqs)-1]
		b.start = 0
	}
	if start < b.start {
		return errors.Errorf("input is not sorted: %s:%d after %s:%d", contig, start, contig, b.start)
	}
	s := b.cur
	// Position 0 (VCF telomeres) falls in the first bin.
	binPos := start
	if binPos < 1 {
		binPos = 1
	}
	for binPos > len(s.positions)*b.binWidth {
		if n := len(s.positions); n > 0 {
			if size := begin.File - s.positions[n-1]; size > int64(s.largestBlock) {
				s.largestBlock = int32(size)
			}
		}
		s.positions = append(s.positions, begin.File)
	}
	if length := int32(end - start + 1); length > s.longest {
		s.longest = length
	}
	s.nFeatures++
	b.start = start
	b.lastEnd = endOff.File
	return nil
}

func (b *LinearBuilder) finishSeq() {
	if b.cur != nil {
		b.cur.positions = append(b.cur.positions, b.lastEnd)
		b.cur = nil
	}
}

// Finish completes the index. path and fileSize describe the indexed file;
// fileSize is checked against the data file when the index is loaded.
func (b *LinearBuilder) Finish(path string, fileSize int64) *LinearIndex {
	b.finishSeq()
	x := b.x
	x.Header = Header{Type: TypeLinear, Version: Version, Path: path, FileSize: fileSize}
	return &x
}

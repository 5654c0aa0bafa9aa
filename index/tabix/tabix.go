// Package tabix reads and writes tabix (.tbi) indexes over block-compressed
// tab-delimited feature files.
//
// A .tbi file is BGZF-compressed. Its payload is little-endian:
//
//   magic "TBI\1"
//   int32 n_ref, format, col_seq, col_beg, col_end, meta, skip, l_nm
//   char[l_nm] NUL-terminated sequence names
//   per reference:
//     int32 n_bin, then n_bin {uint32 bin, int32 n_chunk, n_chunk {uint64 beg, end}}
//     int32 n_intv, then n_intv uint64 linear offsets
//   uint64 n_no_coor (optional)
//
// Bin 37450 is a pseudo-bin holding per-reference metadata.
package tabix

import (
	"bytes"
	"io"

	"github.com/grailbio/base/log"
	"github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/index"
	htsbgzf "github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

var magic = [4]byte{'T', 'B', 'I', 1}

const (
	// MetaBin is the pseudo-bin that holds per-reference metadata.
	MetaBin = 37450
	// MaxBin is the largest real bin number.
	MaxBin = 37449

	// LinearShift is log2 of the linear index window size (16kbp).
	LinearShift = 14

	// FormatGeneric, FormatSAM and FormatVCF are the tabix format codes.
	FormatGeneric = 0
	FormatSAM     = 1
	FormatVCF     = 2
	// FormatZeroBased is or-ed into the format for 0-based half-open
	// coordinates, as used by BED.
	FormatZeroBased = 0x10000

	maxCount = 1 << 28
)

// Config describes the indexed text format. Columns are 1-based; ColEnd 0
// means the end is derived from the record.
type Config struct {
	Format int32
	ColSeq int32
	ColBeg int32
	ColEnd int32
	// Meta is the comment character; lines starting with it are skipped.
	Meta int32
	// Skip is the number of leading lines to skip.
	Skip int32
}

// Presets for common formats.
var (
	VCF     = Config{Format: FormatVCF, ColSeq: 1, ColBeg: 2, ColEnd: 0, Meta: '#'}
	BED     = Config{Format: FormatGeneric | FormatZeroBased, ColSeq: 1, ColBeg: 2, ColEnd: 3, Meta: '#'}
	Generic = Config{Format: FormatGeneric, ColSeq: 1, ColBeg: 2, ColEnd: 3, Meta: '#'}
)

// Bin is one bin of a reference.
type Bin struct {
	Bin    uint32
	Chunks []index.Chunk
}

// Metadata is the content of the pseudo-bin.
type Metadata struct {
	Begin, End       htsbgzf.Offset
	Mapped, Unmapped uint64
}

// Ref holds the bins and linear index of one reference sequence.
type Ref struct {
	Bins      []Bin
	Intervals []htsbgzf.Offset
	Meta      *Metadata

	binIndex map[uint32]int
}

// Index is the content of a .tbi file.
type Index struct {
	Config
	Names []string
	Refs  []Ref
	// NoCoor is the number of records without coordinates, if recorded.
	NoCoor *uint64

	byName map[string]int
}

// Read decodes a BGZF-compressed .tbi index from r. The path is used in
// error messages. All format errors are reported as feature.ErrIndexCorrupt.
func Read(r io.Reader, path string) (*Index, error) {
	bg, err := htsbgzf.NewReader(r, 1)
	if err != nil {
		return nil, index.Corrupt(err, path)
	}
	defer bg.Close() // nolint: errcheck
	x, err := readPayload(index.NewDecoder(bg))
	if err != nil {
		return nil, index.Corrupt(err, path)
	}
	return x, nil
}

func readPayload(d *index.Decoder) (*Index, error) {
	var m [4]byte
	copy(m[:], d.Bytes(4))
	if d.Err() == nil && m != magic {
		return nil, errors.Errorf("bad magic %q", m[:])
	}
	x := &Index{}
	nRef := d.Count("reference", maxCount)
	x.Format = d.Int32()
	x.ColSeq = d.Int32()
	x.ColBeg = d.Int32()
	x.ColEnd = d.Int32()
	x.Meta = d.Int32()
	x.Skip = d.Int32()
	lNm := d.Count("name byte", maxCount)
	names := d.Bytes(lNm)
	if err := d.Err(); err != nil {
		return nil, err
	}
	if x.ColSeq < 1 || x.ColBeg < 1 || x.ColEnd < 0 || x.Skip < 0 {
		return nil, errors.Errorf("bad column configuration %+v", x.Config)
	}
	if len(names) > 0 {
		if names[len(names)-1] != 0 {
			return nil, errors.New("sequence names are not NUL-terminated")
		}
		for _, n := range bytes.Split(names[:len(names)-1], []byte{0}) {
			x.Names = append(x.Names, string(n))
		}
	}
	if len(x.Names) != nRef {
		return nil, errors.Errorf("%d references but %d names", nRef, len(x.Names))
	}
	x.byName = make(map[string]int, nRef)
	for i, n := range x.Names {
		if _, ok := x.byName[n]; ok {
			return nil, errors.Errorf("sequence %q appears twice", n)
		}
		x.byName[n] = i
	}

	x.Refs = make([]Ref, nRef)
	for i := range x.Refs {
		ref, err := readRef(d)
		if err != nil {
			return nil, errors.Wrapf(err, "reference %q", x.Names[i])
		}
		x.Refs[i] = ref
	}
	if d.Err() != nil {
		return nil, d.Err()
	}
	noCoor := d.Uint64()
	switch err := d.Err(); err {
	case nil:
		x.NoCoor = &noCoor
		if !d.AtEOF() {
			if d.Err() != nil {
				return nil, d.Err()
			}
			return nil, errors.New("trailing bytes after index")
		}
	case io.ErrUnexpectedEOF:
		// n_no_coor is optional.
	default:
		return nil, err
	}
	return x, nil
}

func readRef(d *index.Decoder) (Ref, error) {
	ref := Ref{binIndex: map[uint32]int{}}
	nBin := d.Count("bin", maxCount)
	for b := 0; b < nBin && d.Err() == nil; b++ {
		bin := Bin{Bin: d.Uint32()}
		nChunk := d.Count("chunk", maxCount)
		for c := 0; c < nChunk && d.Err() == nil; c++ {
			chunk := index.Chunk{Begin: index.ToOffset(d.Uint64()), End: index.ToOffset(d.Uint64())}
			// The second metadata chunk holds record counts, not offsets.
			if d.Err() == nil && !(bin.Bin == MetaBin && c == 1) && index.Less(chunk.End, chunk.Begin) {
				return ref, errors.Errorf("bin %d: chunk %d ends before it begins", bin.Bin, c)
			}
			bin.Chunks = append(bin.Chunks, chunk)
		}
		if d.Err() != nil {
			break
		}
		switch {
		case bin.Bin == MetaBin:
			if len(bin.Chunks) != 2 {
				return ref, errors.Errorf("metadata bin has %d chunks, should have 2", len(bin.Chunks))
			}
			ref.Meta = &Metadata{
				Begin:    bin.Chunks[0].Begin,
				End:      bin.Chunks[0].End,
				Mapped:   index.FromOffset(bin.Chunks[1].Begin),
				Unmapped: index.FromOffset(bin.Chunks[1].End),
			}
		case bin.Bin > MaxBin:
			return ref, errors.Errorf("bad bin number %d", bin.Bin)
		default:
			if _, ok := ref.binIndex[bin.Bin]; ok {
				return ref, errors.Errorf("bin %d appears twice", bin.Bin)
			}
			ref.binIndex[bin.Bin] = len(ref.Bins)
			ref.Bins = append(ref.Bins, bin)
		}
	}
	nIntv := d.Count("linear index entry", maxCount)
	for i := 0; i < nIntv && d.Err() == nil; i++ {
		off := index.ToOffset(d.Uint64())
		if d.Err() != nil {
			break
		}
		if n := len(ref.Intervals); n > 0 && index.Less(off, ref.Intervals[n-1]) {
			return ref, errors.Errorf("linear index entry %d decreases", i)
		}
		ref.Intervals = append(ref.Intervals, off)
	}
	return ref, d.Err()
}

// SeqNames implements index.Index.
func (x *Index) SeqNames() []string {
	return append([]string(nil), x.Names...)
}

// Chunks implements index.Index. start and end are 1-based and inclusive.
func (x *Index) Chunks(contig string, start, end int) ([]index.Chunk, error) {
	i, ok := x.byName[contig]
	if !ok {
		return nil, nil
	}
	ref := &x.Refs[i]
	beg := start - 1
	if beg < 0 {
		beg = 0
	}
	var minOff htsbgzf.Offset
	if n := len(ref.Intervals); n > 0 {
		w := beg >> LinearShift
		if w >= n {
			w = n - 1
		}
		minOff = ref.Intervals[w]
	}
	var chunks []index.Chunk
	for _, b := range reg2bins(beg, end) {
		j, ok := ref.binIndex[b]
		if !ok {
			continue
		}
		for _, c := range ref.Bins[j].Chunks {
			if index.Less(minOff, c.End) {
				chunks = append(chunks, c)
			}
		}
	}
	chunks = index.Merge(chunks)
	if log.At(log.Debug) {
		log.Debug.Printf("tabix: %s:%d-%d -> %d chunks (min offset %v)", contig, start, end, len(chunks), minOff)
	}
	return chunks, nil
}

// MaxOffset implements index.Index.
func (x *Index) MaxOffset() htsbgzf.Offset {
	var max htsbgzf.Offset
	for _, ref := range x.Refs {
		for _, b := range ref.Bins {
			for _, c := range b.Chunks {
				max = index.Max(max, c.End)
			}
		}
		for _, off := range ref.Intervals {
			max = index.Max(max, off)
		}
		if ref.Meta != nil {
			max = index.Max(max, ref.Meta.End)
		}
	}
	return max
}

// Validate implements index.Index.
func (x *Index) Validate(dataSize int64) error {
	return index.CheckDataSize(x.MaxOffset(), dataSize)
}

// Write serializes the index in BGZF-compressed .tbi format.
func (x *Index) Write(w io.Writer) error {
	var e index.Encoder
	e.Write(magic[:]) // nolint: errcheck
	e.Int32(int32(len(x.Names)))
	e.Int32(x.Format)
	e.Int32(x.ColSeq)
	e.Int32(x.ColBeg)
	e.Int32(x.ColEnd)
	e.Int32(x.Meta)
	e.Int32(x.Skip)
	var names bytes.Buffer
	for _, n := range x.Names {
		names.WriteString(n) // nolint: errcheck
		names.WriteByte(0)   // nolint: errcheck
	}
	e.Int32(int32(names.Len()))
	e.Write(names.Bytes()) // nolint: errcheck
	for _, ref := range x.Refs {
		nBin := len(ref.Bins)
		if ref.Meta != nil {
			nBin++
		}
		e.Int32(int32(nBin))
		for _, b := range ref.Bins {
			e.Uint32(b.Bin)
			e.Int32(int32(len(b.Chunks)))
			for _, c := range b.Chunks {
				e.Uint64(index.FromOffset(c.Begin))
				e.Uint64(index.FromOffset(c.End))
			}
		}
		if m := ref.Meta; m != nil {
			e.Uint32(MetaBin)
			e.Int32(2)
			e.Uint64(index.FromOffset(m.Begin))
			e.Uint64(index.FromOffset(m.End))
			e.Uint64(m.Mapped)
			e.Uint64(m.Unmapped)
		}
		e.Int32(int32(len(ref.Intervals)))
		for _, off := range ref.Intervals {
			e.Uint64(index.FromOffset(off))
		}
	}
	if x.NoCoor != nil {
		e.Uint64(*x.NoCoor)
	}
	bw, err := bgzf.NewWriter(w, gzip.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := bw.Write(e.Bytes()); err != nil {
		return err
	}
	return bw.Close()
}

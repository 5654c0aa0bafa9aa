// Package tribble reads and writes .idx positional indexes over plain text
// feature files. Two variants exist: a linear index with fixed-width bins
// and an interval-tree index over groups of consecutive features.
//
// File layout (all integers little-endian, strings NUL-terminated):
//
//   int32  magic "TIDX" (1480870228)
//   int32  type: 1 linear, 2 interval tree
//   int32  version (1..3)
//   string path of the indexed file
//   int64  size of the indexed file
//   int64  modification time of the indexed file
//   string md5 of the indexed file (may be empty)
//   int32  flags
//   [version >= 3] int32 n, then n key/value string pairs
//   [version < 3 and flags&SeqDictFlag] int32 n, then n {string, int32}
//   int32  number of sequences, then one payload per sequence
package tribble

import (
	"io"
	"sort"

	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/featureio/index"
	"github.com/pkg/errors"
)

const (
	// Magic is the first word of every .idx file.
	Magic = 1480870228
	// Version is the format version written by this package.
	Version = 3

	// TypeLinear identifies a linear index.
	TypeLinear = 1
	// TypeIntervalTree identifies an interval-tree index.
	TypeIntervalTree = 2

	// SeqDictFlag marks pre-version-3 files that carry a sequence dictionary.
	SeqDictFlag = 0x8000

	// DefaultBinWidth is the default bin width of a linear index.
	DefaultBinWidth = 8000
	// DefaultFeaturesPerInterval is the default number of features per
	// interval-tree node.
	DefaultFeaturesPerInterval = 600

	maxString = 1 << 20
	maxCount  = 1 << 28
)

// Header is the common prefix of a .idx file.
type Header struct {
	Type      int32
	Version   int32
	Path      string
	FileSize  int64
	Timestamp int64
	MD5       string
	Flags     int32
	// Properties holds free-form metadata. It is written in key order.
	Properties map[string]string
}

func readHeader(d *index.Decoder) Header {
	var h Header
	if magic := d.Int32(); d.Err() == nil && magic != Magic {
		d.Fail(errors.Errorf("bad magic %#x", uint32(magic)))
	}
	h.Type = d.Int32()
	h.Version = d.Int32()
	if d.Err() == nil {
		if h.Type != TypeLinear && h.Type != TypeIntervalTree {
			d.Fail(errors.Errorf("unknown index type %d", h.Type))
		}
		if h.Version < 1 || h.Version > Version {
			d.Fail(errors.Errorf("unsupported version %d", h.Version))
		}
	}
	h.Path = d.CString(maxString)
	h.FileSize = d.Int64()
	h.Timestamp = d.Int64()
	h.MD5 = d.CString(maxString)
	h.Flags = d.Int32()
	if d.Err() == nil && h.FileSize < 0 {
		d.Fail(errors.Errorf("negative indexed file size %d", h.FileSize))
	}
	if h.Version >= 3 {
		n := d.Count("property", maxCount)
		for i := 0; i < n && d.Err() == nil; i++ {
			if h.Properties == nil {
				h.Properties = map[string]string{}
			}
			k := d.CString(maxString)
			h.Properties[k] = d.CString(maxString)
		}
	} else if h.Flags&SeqDictFlag != 0 {
		n := d.Count("sequence dictionary", maxCount)
		for i := 0; i < n && d.Err() == nil; i++ {
			d.CString(maxString)
			d.Int32()
		}
	}
	return h
}

func (h *Header) write(e *index.Encoder) {
	e.Int32(Magic)
	e.Int32(h.Type)
	e.Int32(Version)
	e.CString(h.Path)
	e.Int64(h.FileSize)
	e.Int64(h.Timestamp)
	e.CString(h.MD5)
	e.Int32(h.Flags &^ SeqDictFlag)
	keys := make([]string, 0, len(h.Properties))
	for k := range h.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.Int32(int32(len(keys)))
	for _, k := range keys {
		e.CString(k)
		e.CString(h.Properties[k])
	}
}

// validate compares the recorded file size with the actual data size, then
// checks that every offset lies in the data.
func (h *Header) validate(ix index.Index, dataSize int64) error {
	if h.FileSize > 0 && h.FileSize != dataSize {
		if dataSize < h.FileSize {
			return feature.Errorf(feature.ErrSourceTruncated,
				"index %s: indexed file had %d bytes, data has %d", h.Path, h.FileSize, dataSize)
		}
		return feature.Errorf(feature.ErrIndexCorrupt,
			"index %s: indexed file had %d bytes, data has %d", h.Path, h.FileSize, dataSize)
	}
	return index.CheckDataSize(ix.MaxOffset(), dataSize)
}

// Read decodes a .idx index from r. The path is used in error messages.
// The result is a *LinearIndex or an *IntervalTreeIndex. All format errors
// are reported as feature.ErrIndexCorrupt.
func Read(r io.Reader, path string) (index.Index, error) {
	d := index.NewDecoder(r)
	h := readHeader(d)
	if err := d.Err(); err != nil {
		return nil, index.Corrupt(err, path)
	}
	var (
		ix  index.Index
		err error
	)
	switch h.Type {
	case TypeLinear:
		ix, err = readLinear(d, h)
	default:
		ix, err = readIntervalTree(d, h)
	}
	if err == nil && !d.AtEOF() {
		err = d.Err()
		if err == nil {
			err = errors.New("trailing bytes after last sequence")
		}
	}
	if err != nil {
		return nil, index.Corrupt(err, path)
	}
	return ix, nil
}

// seqTable maps names to positions in per-sequence slices.
type seqTable struct {
	names  []string
	byName map[string]int
}

func (t *seqTable) add(name string) (int, error) {
	if t.byName == nil {
		t.byName = map[string]int{}
	}
	if _, ok := t.byName[name]; ok {
		return 0, errors.Errorf("sequence %q appears twice", name)
	}
	t.byName[name] = len(t.names)
	t.names = append(t.names, name)
	return len(t.names) - 1, nil
}

func (t *seqTable) SeqNames() []string {
	return append([]string(nil), t.names...)
}

func capHint(n int) int {
	if n > 1024 {
		return 1024
	}
	return n
}

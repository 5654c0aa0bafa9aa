// Package bed decodes BED feature files for indexed reading.
package bed

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/feature"
)

// Feature is one BED line. BED coordinates are 0-based half-open on disk;
// Start and End report them 1-based and inclusive.
type Feature struct {
	Chrom string
	// Start0 and End are the on-disk chromStart and chromEnd.
	Start0, End0 int
	Name         string
	// Fields holds the columns after chromEnd, including Name.
	Fields []string

	line string
}

// Contig implements feature.Feature.
func (f *Feature) Contig() string { return f.Chrom }

// Start implements feature.Feature.
func (f *Feature) Start() int { return f.Start0 + 1 }

// End implements feature.Feature. A zero-length feature, such as an
// insertion point, covers the base after chromStart.
func (f *Feature) End() int {
	if f.End0 == f.Start0 {
		return f.Start0 + 1
	}
	return f.End0
}

// String returns the line as it appears in the file.
func (f *Feature) String() string { return f.line }

// Header holds the track, browser and comment lines preceding the first
// feature.
type Header struct {
	lines []string
}

// Version implements feature.Header. BED is unversioned.
func (h *Header) Version() string { return "" }

func (h *Header) String() string {
	if len(h.lines) == 0 {
		return ""
	}
	return strings.Join(h.lines, "\n") + "\n"
}

// Codec decodes BED files, plain or block-compressed.
type Codec struct{}

// Name implements feature.Codec.
func (Codec) Name() string { return "bed" }

// CanDecode implements feature.Codec.
func (Codec) CanDecode(location string) bool {
	p := bgzf.TrimBlockCompressedExtension(feature.StripQuery(location))
	return strings.HasSuffix(strings.ToLower(p), ".bed")
}

// DataPath implements feature.Codec.
func (Codec) DataPath(location string) string { return location }

func isMeta(line []byte) bool {
	return len(line) == 0 || line[0] == '#' ||
		bytes.HasPrefix(line, []byte("track")) || bytes.HasPrefix(line, []byte("browser"))
}

// DecodeHeader implements feature.Codec.
func (Codec) DecodeHeader(s *feature.LineScanner) (feature.Header, error) {
	h := &Header{}
	for {
		line, err := s.Peek()
		if err != nil || !isMeta(line) {
			// An empty file has an empty header; read errors surface from the
			// record scan.
			return h, nil
		}
		h.lines = append(h.lines, string(line))
		s.Next() // nolint: errcheck
	}
}

// getTokens splits curLine on runs of whitespace into tokens, returning the
// number of tokens found.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// maxColumns is the number of columns in BED12.
const maxColumns = 12

// Decode implements feature.Codec.
func (Codec) Decode(_ feature.Header, line []byte) (feature.Feature, error) {
	if isMeta(line) {
		return nil, nil
	}
	var tokens [maxColumns][]byte
	n := getTokens(tokens[:], line)
	if n < 3 {
		return nil, feature.Errorf(feature.ErrRecordDecode, "BED line has %d columns, want at least 3: %q", n, line)
	}
	start0, err := strconv.Atoi(string(tokens[1]))
	if err != nil || start0 < 0 {
		return nil, feature.Errorf(feature.ErrRecordDecode, "bad chromStart %q", tokens[1])
	}
	end0, err := strconv.Atoi(string(tokens[2]))
	if err != nil || end0 < start0 {
		return nil, feature.Errorf(feature.ErrRecordDecode, "bad chromEnd %q", tokens[2])
	}
	f := &Feature{
		Chrom:  string(tokens[0]),
		Start0: start0,
		End0:   end0,
		line:   string(line),
	}
	for _, t := range tokens[3:n] {
		f.Fields = append(f.Fields, string(t))
	}
	if len(f.Fields) > 0 {
		f.Name = f.Fields[0]
	}
	return f, nil
}

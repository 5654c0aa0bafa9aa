// Package vcf decodes VCF variant-call files for indexed reading. Only the
// fields needed to place a record on the genome are parsed eagerly; the
// original line is kept for everything else.
package vcf

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/feature"
)

const (
	fileFormatPrefix = "##fileformat="
	columnsPrefix    = "#CHROM"

	// LatestVersion is the newest version tag decoded natively. Files that
	// declare a newer VCFv4 minor version are read as this version.
	LatestVersion = "VCFv4.3"
)

var (
	supportedVersions = map[string]bool{
		"VCFv3.2": true,
		"VCFv3.3": true,
		"VCFv4.0": true,
		"VCFv4.1": true,
		"VCFv4.2": true,
		"VCFv4.3": true,
	}
	newerVersion = regexp.MustCompile(`^VCFv4\.([4-9]|[1-9][0-9]+)$`)

	fixedColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}
)

// Header is a decoded VCF header.
type Header struct {
	// version is the version the file is decoded as.
	version string
	// declared is the version tag found in the file.
	declared string
	meta     []string
	columns  string
	samples  []string
}

// Version implements feature.Header.
func (h *Header) Version() string { return h.version }

// DeclaredVersion returns the version tag written in the file. It differs
// from Version when a newer version is read optimistically.
func (h *Header) DeclaredVersion() string { return h.declared }

// Meta returns the "##" meta-information lines.
func (h *Header) Meta() []string { return h.meta }

// Samples returns the sample names from the column header line.
func (h *Header) Samples() []string { return h.samples }

// String implements feature.Header. It returns the header lines, each
// terminated by a newline.
func (h *Header) String() string {
	var b strings.Builder
	for _, m := range h.meta {
		b.WriteString(m)
		b.WriteByte('\n')
	}
	b.WriteString(h.columns)
	b.WriteByte('\n')
	return b.String()
}

// Variant is one VCF data line. Start is POS; End is the last reference
// base covered, from the INFO END key when present and otherwise
// POS+len(REF)-1.
type Variant struct {
	Chrom string
	Pos   int
	ID    string
	Ref   string
	Alt   []string
	// Info is the raw INFO column.
	Info string

	end  int
	line string
}

// Contig implements feature.Feature.
func (v *Variant) Contig() string { return v.Chrom }

// Start implements feature.Feature.
func (v *Variant) Start() int { return v.Pos }

// End implements feature.Feature.
func (v *Variant) End() int { return v.end }

// String returns the data line as it appears in the file.
func (v *Variant) String() string { return v.line }

// Codec decodes VCF files, plain or block-compressed.
type Codec struct{}

// Name implements feature.Codec.
func (Codec) Name() string { return "vcf" }

// CanDecode implements feature.Codec. It recognizes ".vcf" optionally
// followed by a block-compressed extension.
func (Codec) CanDecode(location string) bool {
	p := bgzf.TrimBlockCompressedExtension(feature.StripQuery(location))
	return strings.HasSuffix(strings.ToLower(p), ".vcf")
}

// DataPath implements feature.Codec.
func (Codec) DataPath(location string) string { return location }

// DecodeHeader implements feature.Codec.
func (Codec) DecodeHeader(s *feature.LineScanner) (feature.Header, error) {
	h := &Header{}
	line, err := s.Next()
	if err != nil {
		return nil, headerError(err, "reading file format line")
	}
	if !bytes.HasPrefix(line, []byte(fileFormatPrefix)) {
		return nil, feature.Errorf(feature.ErrRecordDecode, "first line %q is not a ##fileformat line", abbrev(line))
	}
	h.declared = strings.TrimSpace(string(line[len(fileFormatPrefix):]))
	switch {
	case supportedVersions[h.declared]:
		h.version = h.declared
	case newerVersion.MatchString(h.declared):
		log.Printf("vcf: reading %s file as %s", h.declared, LatestVersion)
		h.version = LatestVersion
	default:
		return nil, feature.Errorf(feature.ErrRecordDecode, "unsupported VCF version %q", h.declared)
	}
	h.meta = append(h.meta, string(line))
	for {
		line, err := s.Next()
		if err != nil {
			return nil, headerError(err, "reading header")
		}
		if bytes.HasPrefix(line, []byte("##")) {
			h.meta = append(h.meta, string(line))
			continue
		}
		if !bytes.HasPrefix(line, []byte(columnsPrefix)) {
			return nil, feature.Errorf(feature.ErrRecordDecode, "expected #CHROM line, found %q", abbrev(line))
		}
		h.columns = string(line)
		cols := strings.Split(h.columns, "\t")
		if len(cols) < len(fixedColumns) {
			return nil, feature.Errorf(feature.ErrRecordDecode, "column header has %d columns, want at least %d", len(cols), len(fixedColumns))
		}
		for i, want := range fixedColumns {
			if cols[i] != want {
				return nil, feature.Errorf(feature.ErrRecordDecode, "column %d is %q, want %q", i+1, cols[i], want)
			}
		}
		if len(cols) > len(fixedColumns) {
			if cols[len(fixedColumns)] != "FORMAT" {
				return nil, feature.Errorf(feature.ErrRecordDecode, "column 9 is %q, want FORMAT", cols[len(fixedColumns)])
			}
			h.samples = cols[len(fixedColumns)+1:]
		}
		return h, nil
	}
}

func headerError(err error, what string) error {
	if err == io.EOF {
		return feature.Errorf(feature.ErrRecordDecode, "%s: unexpected end of header", what)
	}
	return feature.Wrap(feature.ErrRecordDecode, err, "%s", what)
}

// Decode implements feature.Codec.
func (Codec) Decode(_ feature.Header, line []byte) (feature.Feature, error) {
	if len(line) == 0 || line[0] == '#' {
		return nil, nil
	}
	fields := bytes.SplitN(line, []byte{'\t'}, 9)
	if len(fields) < 8 {
		return nil, feature.Errorf(feature.ErrRecordDecode, "line has %d columns, want at least 8: %q", len(fields), abbrev(line))
	}
	pos, err := strconv.Atoi(string(fields[1]))
	if err != nil || pos < 0 {
		return nil, feature.Errorf(feature.ErrRecordDecode, "bad POS %q", fields[1])
	}
	if len(fields[0]) == 0 {
		return nil, feature.Errorf(feature.ErrRecordDecode, "empty CHROM")
	}
	if len(fields[3]) == 0 {
		return nil, feature.Errorf(feature.ErrRecordDecode, "empty REF at %s:%d", fields[0], pos)
	}
	v := &Variant{
		Chrom: string(fields[0]),
		Pos:   pos,
		ID:    string(fields[2]),
		Ref:   string(fields[3]),
		Info:  string(fields[7]),
		line:  string(line),
	}
	if alt := string(fields[4]); alt != "." {
		v.Alt = strings.Split(alt, ",")
	}
	v.end = pos + len(v.Ref) - 1
	if end, ok, err := infoEnd(v.Info); err != nil {
		return nil, feature.Errorf(feature.ErrRecordDecode, "%s:%d: %v", v.Chrom, pos, err)
	} else if ok {
		v.end = end
	}
	if v.end < v.Pos {
		v.end = v.Pos
	}
	return v, nil
}

// infoEnd extracts the END key from an INFO column.
func infoEnd(info string) (int, bool, error) {
	for _, kv := range strings.Split(info, ";") {
		if !strings.HasPrefix(kv, "END=") {
			continue
		}
		end, err := strconv.Atoi(kv[4:])
		if err != nil {
			return 0, false, err
		}
		return end, true, nil
	}
	return 0, false, nil
}

func abbrev(line []byte) string {
	const max = 64
	if len(line) > max {
		return string(line[:max]) + "..."
	}
	return string(line)
}

// NewRedirectCodec returns a codec that recognizes "<dir>/<name>.redirect",
// where <name> is a VCF file name, and reads the records from
// "<dir>/dataFiles/<name>".
func NewRedirectCodec() feature.Codec {
	return feature.RedirectCodec{
		Codec:    Codec{},
		Suffix:   ".redirect",
		Redirect: feature.SiblingDir("dataFiles", ".redirect"),
	}
}

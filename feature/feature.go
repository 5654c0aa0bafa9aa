package feature

import (
	"fmt"
	"path"
	"strings"
)

// Feature is one decoded record. Start and End are 1-based and inclusive.
type Feature interface {
	// Contig returns the name of the reference sequence, e.g. "chr1" or "20".
	Contig() string
	// Start returns the first position covered by the feature.
	Start() int
	// End returns the last position covered by the feature.
	End() int
}

// Header is the format-specific metadata decoded once per source. Headers
// are immutable after decode.
type Header interface {
	// Version returns the format version tag, e.g. "VCFv4.2", or "" if the
	// format is unversioned.
	Version() string
	// String returns the header in its textual form.
	String() string
}

// Codec recognizes and decodes one line-oriented record format. Codecs must
// be safe for concurrent use; all per-source state lives in the Header.
type Codec interface {
	// Name returns a short identifier for the format, e.g. "vcf".
	Name() string
	// CanDecode reports whether the codec recognizes the location. The
	// location may be a path or a URI.
	CanDecode(location string) bool
	// DataPath returns the location of the file that holds the records. For
	// most codecs this is the location itself.
	DataPath(location string) string
	// DecodeHeader consumes the header lines from s, leaving s positioned at
	// the first record line.
	DecodeHeader(s *LineScanner) (Header, error)
	// Decode decodes one line. It returns (nil, nil) for lines that carry no
	// record, such as comments.
	Decode(h Header, line []byte) (Feature, error)
}

// RedirectCodec is a Codec whose data lives in a different file than the one
// used to recognize the format. The recognition file is identified by Suffix;
// Redirect maps it to the data file, which is then decoded by the embedded
// Codec.
type RedirectCodec struct {
	Codec
	// Suffix is the extension of recognition files, e.g. ".redirect".
	Suffix string
	// Redirect maps a recognition location to its data location.
	Redirect func(location string) string
}

// CanDecode implements Codec. It accepts a location if it ends with Suffix
// and the embedded codec recognizes the location with Suffix removed.
func (c RedirectCodec) CanDecode(location string) bool {
	p := StripQuery(location)
	if !strings.HasSuffix(p, c.Suffix) {
		return false
	}
	return c.Codec.CanDecode(strings.TrimSuffix(p, c.Suffix))
}

// DataPath implements Codec.
func (c RedirectCodec) DataPath(location string) string {
	return c.Redirect(location)
}

// SiblingDir returns a Redirect function that maps "<dir>/<name><suffix>" to
// "<dir>/<subdir>/<name>". The query string and fragment of a URI are kept.
func SiblingDir(subdir, suffix string) func(string) string {
	return func(location string) string {
		p := StripQuery(location)
		rest := location[len(p):]
		dir, name := path.Split(p)
		return dir + path.Join(subdir, strings.TrimSuffix(name, suffix)) + rest
	}
}

// StripQuery returns location without its query string and fragment when it
// is a URI ("scheme://..."). Plain paths are returned unchanged, since '?'
// and '#' are legal in file names.
func StripQuery(location string) string {
	if !strings.Contains(location, "://") {
		return location
	}
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		return location[:i]
	}
	return location
}

// Interval is a query interval on one reference sequence. Start and End are
// 1-based and inclusive.
type Interval struct {
	Contig     string
	Start, End int
}

// Validate checks that the interval is well formed.
func (iv Interval) Validate() error {
	if iv.Start < 1 || iv.End < iv.Start {
		return Errorf(ErrInvalidInterval, "%v", iv)
	}
	return nil
}

// Overlaps reports whether f lies on the interval's contig and shares at
// least one position with it.
func (iv Interval) Overlaps(f Feature) bool {
	return f.Contig() == iv.Contig && f.Start() <= iv.End && f.End() >= iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.Contig, iv.Start, iv.End)
}

package bgzf

import (
	"io"
	"net/url"
	"strings"

	"github.com/grailbio/base/fileio"
	"github.com/grailbio/featureio/feature"
)

// blockCompressedExtensions are the suffixes of block-compressed files.
var blockCompressedExtensions = []string{".gz", ".gzip", ".bgz", ".bgzf"}

// HasBlockCompressedExtension reports whether location names a
// block-compressed file. For URIs ("scheme://...") only the path component
// is examined, so query parameters and fragments never affect the answer.
// The result depends on the name only, never on the file content.
func HasBlockCompressedExtension(location string) bool {
	if strings.Contains(location, "://") {
		if u, err := url.Parse(location); err == nil {
			return HasBlockCompressedExtensionURL(u)
		}
		location = feature.StripQuery(location)
	}
	return hasBlockCompressedSuffix(location)
}

// HasBlockCompressedExtensionURL is HasBlockCompressedExtension for a parsed
// URI.
func HasBlockCompressedExtensionURL(u *url.URL) bool {
	return hasBlockCompressedSuffix(u.Path)
}

// Named is implemented by *os.File, afero.File, and file.File.
type Named interface {
	Name() string
}

// HasBlockCompressedExtensionFile is HasBlockCompressedExtension for an open
// file.
func HasBlockCompressedExtensionFile(f Named) bool {
	return HasBlockCompressedExtension(f.Name())
}

func hasBlockCompressedSuffix(p string) bool {
	p = strings.ToLower(p)
	if fileio.DetermineType(p) == fileio.Gzip {
		return true
	}
	for _, ext := range blockCompressedExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// TrimBlockCompressedExtension removes one block-compressed suffix from
// name, matching case-insensitively, and returns the rest unchanged. Codecs
// use it to recognize "x.vcf.gz" as a VCF file.
func TrimBlockCompressedExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range blockCompressedExtensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// CheckTerminator verifies that the size bytes of r end with the BGZF EOF
// terminator. A missing terminator means the file was truncated. The read
// position of r is left unspecified.
func CheckTerminator(r io.ReadSeeker, size int64) error {
	if size < int64(len(Terminator)) {
		return feature.Errorf(feature.ErrSourceTruncated, "bgzf file too short (%d bytes)", size)
	}
	if _, err := r.Seek(size-int64(len(Terminator)), io.SeekStart); err != nil {
		return err
	}
	tail := make([]byte, len(Terminator))
	if _, err := io.ReadFull(r, tail); err != nil {
		return feature.Wrap(feature.ErrSourceTruncated, err, "reading bgzf terminator")
	}
	if string(tail) != string(Terminator) {
		return feature.Errorf(feature.ErrSourceTruncated, "bgzf terminator missing")
	}
	return nil
}

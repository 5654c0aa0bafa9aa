package source

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/grailbio/featureio/feature"
)

// Location identifies one data stream. It is immutable once parsed.
type Location struct {
	// Raw is the location as given by the caller.
	Raw string
	// Scheme is the lower-cased URI scheme, or "" for local paths.
	Scheme string
	// Host is the URI authority, e.g. "ftp.example.org:21" or an S3 bucket.
	Host string
	// Path is the decoded URI path, or the local path.
	Path string
	// URL is the parsed URI. It is nil for local paths.
	URL *url.URL
}

// Parse parses a path or URI. Strings without "://" are local paths;
// "file://" URIs are converted to local paths.
func Parse(raw string) (Location, error) {
	if raw == "" {
		return Location{}, feature.Errorf(feature.ErrUnresolvableSource, "empty location")
	}
	if !strings.Contains(raw, "://") {
		return Location{Raw: raw, Path: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, feature.Wrap(feature.ErrUnresolvableSource, err, "parse %q", raw)
	}
	loc := Location{
		Raw:    raw,
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Host,
		Path:   u.Path,
		URL:    u,
	}
	if loc.Scheme == "file" {
		loc.Scheme = ""
		loc.Path = filepath.FromSlash(u.Path)
		loc.URL = nil
	}
	return loc, nil
}

// IsLocal reports whether the location names a local file.
func (l Location) IsLocal() bool { return l.Scheme == "" }

func (l Location) String() string { return l.Raw }

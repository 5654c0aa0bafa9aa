package source

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FSTransport serves locations from an afero filesystem. Register it under a
// private scheme to read from an in-memory filesystem:
//
//   fs := afero.NewMemMapFs()
//   r := source.NewResolver()
//   r.Register("mem", source.NewFSTransport(fs))
//   ch, err := r.Open(ctx, "mem:///data/calls.vcf", nil)
type FSTransport struct {
	fs afero.Fs
}

// NewFSTransport creates a transport that reads location paths from fs.
func NewFSTransport(fs afero.Fs) *FSTransport {
	return &FSTransport{fs: fs}
}

// Open implements Transport.
func (t *FSTransport) Open(ctx context.Context, loc Location) (Channel, error) {
	f, err := t.fs.Open(loc.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notExist(loc, err)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close() // nolint: errcheck
		return nil, err
	}
	if info.IsDir() {
		f.Close() // nolint: errcheck
		return nil, errors.Errorf("%s is a directory", loc.Path)
	}
	return &readSeekChannel{ReadSeeker: f, size: info.Size(), close: f.Close}, nil
}

// Stat implements Transport.
func (t *FSTransport) Stat(ctx context.Context, loc Location) (int64, error) {
	info, err := t.fs.Stat(loc.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, notExist(loc, err)
		}
		return 0, err
	}
	return info.Size(), nil
}

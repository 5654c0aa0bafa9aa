package source

import (
	"context"

	"github.com/grailbio/base/file"
)

// localTransport reads local files through grailbio/base/file.
type localTransport struct{}

func (localTransport) Open(ctx context.Context, loc Location) (Channel, error) {
	f, err := file.Open(ctx, loc.Path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat(ctx)
	if err != nil {
		f.Close(ctx) // nolint: errcheck
		return nil, err
	}
	return &readSeekChannel{
		ReadSeeker: f.Reader(ctx),
		size:       info.Size(),
		close:      func() error { return f.Close(ctx) },
	}, nil
}

func (localTransport) Stat(ctx context.Context, loc Location) (int64, error) {
	info, err := file.Stat(ctx, loc.Path)
	if err != nil {
		if IsNotExist(err) {
			return 0, notExist(loc, err)
		}
		return 0, err
	}
	return info.Size(), nil
}

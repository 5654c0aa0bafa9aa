package source

import (
	"io"

	"github.com/pkg/errors"
)

// Channel is a seekable, randomly positionable byte channel.
type Channel interface {
	io.ReadSeeker
	io.Closer
	// Size returns the length of the channel's content in bytes.
	Size() int64
}

// Wrapper decorates a raw channel before any compression or parsing layer
// reads from it. A Wrapper owns the channel it is given: if it returns an
// error, it must close the channel.
type Wrapper func(Channel) (Channel, error)

// Chain returns a Wrapper that applies wrappers in order. Nil wrappers are
// skipped.
func Chain(wrappers ...Wrapper) Wrapper {
	return func(ch Channel) (Channel, error) {
		var err error
		for _, w := range wrappers {
			if w == nil {
				continue
			}
			if ch, err = w(ch); err != nil {
				return nil, err
			}
		}
		return ch, nil
	}
}

// SkipBytes returns a Wrapper that hides the first n bytes of a channel.
// Positions and sizes reported by the wrapped channel are relative to byte
// n of the underlying channel.
func SkipBytes(n int64) Wrapper {
	return func(ch Channel) (Channel, error) {
		if n < 0 || n > ch.Size() {
			ch.Close() // nolint: errcheck
			return nil, errors.Errorf("cannot skip %d bytes of a %d byte channel", n, ch.Size())
		}
		if _, err := ch.Seek(n, io.SeekStart); err != nil {
			ch.Close() // nolint: errcheck
			return nil, err
		}
		return &skipChannel{ch: ch, skip: n}, nil
	}
}

type skipChannel struct {
	ch   Channel
	skip int64
}

func (s *skipChannel) Read(p []byte) (int, error) { return s.ch.Read(p) }
func (s *skipChannel) Close() error               { return s.ch.Close() }
func (s *skipChannel) Size() int64                { return s.ch.Size() - s.skip }

func (s *skipChannel) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		offset += s.skip
	case io.SeekEnd:
		offset = s.ch.Size() + offset
		whence = io.SeekStart
	}
	if whence == io.SeekStart && offset < s.skip {
		return 0, errors.Errorf("negative position %d", offset-s.skip)
	}
	pos, err := s.ch.Seek(offset, whence)
	return pos - s.skip, err
}

// readSeekChannel adapts an io.ReadSeeker with a known size.
type readSeekChannel struct {
	io.ReadSeeker
	size  int64
	close func() error
}

func (c *readSeekChannel) Size() int64 { return c.size }

func (c *readSeekChannel) Close() error {
	if c.close == nil {
		return nil
	}
	err := c.close()
	c.close = nil
	return err
}

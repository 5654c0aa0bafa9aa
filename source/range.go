package source

import (
	"io"

	"github.com/pkg/errors"
)

// rangeChannel adapts a transport that can stream content from an arbitrary
// offset (HTTP Range, S3 GetObject Range, FTP REST) to a Channel. A request is
// issued lazily on the first Read after a Seek.
type rangeChannel struct {
	name   string
	size   int64
	pos    int64
	body   io.ReadCloser
	open   func(off int64) (io.ReadCloser, error)
	closer func() error
}

func (c *rangeChannel) Size() int64 { return c.size }

func (c *rangeChannel) Read(p []byte) (int, error) {
	if c.pos >= c.size {
		return 0, io.EOF
	}
	if c.body == nil {
		body, err := c.open(c.pos)
		if err != nil {
			return 0, errors.Wrapf(err, "%s: read at %d", c.name, c.pos)
		}
		c.body = body
	}
	if remaining := c.size - c.pos; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := c.body.Read(p)
	c.pos += int64(n)
	if err == io.EOF {
		c.body.Close() // nolint: errcheck
		c.body = nil
		if c.pos < c.size {
			return n, errors.Wrapf(io.ErrUnexpectedEOF, "%s: stream ended at %d of %d", c.name, c.pos, c.size)
		}
		err = nil
		if n == 0 {
			err = io.EOF
		}
	}
	return n, err
}

func (c *rangeChannel) Seek(offset int64, whence int) (int64, error) {
	pos := offset
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		pos += c.pos
	case io.SeekEnd:
		pos += c.size
	default:
		return c.pos, errors.Errorf("%s: bad whence %d", c.name, whence)
	}
	if pos < 0 {
		return c.pos, errors.Errorf("%s: negative position %d", c.name, pos)
	}
	if pos != c.pos && c.body != nil {
		c.body.Close() // nolint: errcheck
		c.body = nil
	}
	c.pos = pos
	return pos, nil
}

func (c *rangeChannel) Close() error {
	var err error
	if c.body != nil {
		err = c.body.Close()
		c.body = nil
	}
	if c.closer != nil {
		if e := c.closer(); err == nil {
			err = e
		}
		c.closer = nil
	}
	return err
}

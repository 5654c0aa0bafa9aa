package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HTTPOpts configures the http and https transport.
type HTTPOpts struct {
	// Client is used for all requests. If nil, http.DefaultClient is used.
	Client *http.Client
	// Header is added to every request, e.g. for authorization.
	Header http.Header
}

type httpTransport struct {
	opts HTTPOpts
}

// NewHTTPTransport creates a transport that reads http(s) URLs with ranged
// GET requests. The server must report the content length and honor Range.
func NewHTTPTransport(opts HTTPOpts) Transport {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	return &httpTransport{opts: opts}
}

func (t *httpTransport) request(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range t.opts.Header {
		req.Header[k] = v
	}
	return req.WithContext(ctx), nil
}

func (t *httpTransport) Stat(ctx context.Context, loc Location) (int64, error) {
	req, err := t.request(ctx, http.MethodHead, loc.Raw)
	if err != nil {
		return 0, err
	}
	resp, err := t.opts.Client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close() // nolint: errcheck
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return 0, notExist(loc, errors.New(resp.Status))
	case resp.StatusCode != http.StatusOK:
		return 0, errors.Errorf("HEAD %s: %s", loc.Raw, resp.Status)
	case resp.ContentLength < 0:
		return 0, errors.Errorf("HEAD %s: no content length", loc.Raw)
	}
	return resp.ContentLength, nil
}

func (t *httpTransport) Open(ctx context.Context, loc Location) (Channel, error) {
	size, err := t.Stat(ctx, loc)
	if err != nil {
		return nil, err
	}
	return &rangeChannel{
		name: loc.Raw,
		size: size,
		open: func(off int64) (io.ReadCloser, error) {
			req, err := t.request(ctx, http.MethodGet, loc.Raw)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", off))
			resp, err := t.opts.Client.Do(req)
			if err != nil {
				return nil, err
			}
			switch resp.StatusCode {
			case http.StatusPartialContent:
				if start, ok := contentRangeStart(resp.Header.Get("Content-Range")); ok && start != off {
					resp.Body.Close() // nolint: errcheck
					return nil, errors.Errorf("GET %s: asked for offset %d, got %d", loc.Raw, off, start)
				}
			case http.StatusOK:
				if off != 0 {
					resp.Body.Close() // nolint: errcheck
					return nil, errors.Errorf("GET %s: server ignored range request", loc.Raw)
				}
			default:
				resp.Body.Close() // nolint: errcheck
				return nil, errors.Errorf("GET %s: %s", loc.Raw, resp.Status)
			}
			return resp.Body, nil
		},
	}, nil
}

// contentRangeStart parses the first byte position of a Content-Range value
// of the form "bytes 100-199/1000".
func contentRangeStart(v string) (int64, bool) {
	v = strings.TrimPrefix(v, "bytes ")
	i := strings.IndexByte(v, '-')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(v[:i], 10, 64)
	return n, err == nil
}

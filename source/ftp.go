package source

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/textproto"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPOpts configures the ftp transport.
type FTPOpts struct {
	// User and Password are used when the URL carries no user info. Both
	// default to anonymous.
	User, Password string
	// Timeout bounds dialing. Zero means no timeout beyond the context.
	Timeout time.Duration
}

type ftpTransport struct {
	opts FTPOpts
}

// NewFTPTransport creates a transport for ftp:// URLs. Each channel holds
// its own control connection and resumes transfers with REST.
func NewFTPTransport(opts FTPOpts) Transport {
	if opts.User == "" {
		opts.User, opts.Password = "anonymous", "anonymous"
	}
	return &ftpTransport{opts: opts}
}

func (t *ftpTransport) dial(ctx context.Context, loc Location) (*ftp.ServerConn, error) {
	addr := loc.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}
	dialOpts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if t.opts.Timeout > 0 {
		dialOpts = append(dialOpts, ftp.DialWithTimeout(t.opts.Timeout))
	}
	conn, err := ftp.Dial(addr, dialOpts...)
	if err != nil {
		return nil, err
	}
	user, pass := t.opts.User, t.opts.Password
	if u := loc.URL; u != nil && u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit() // nolint: errcheck
		return nil, err
	}
	return conn, nil
}

func (t *ftpTransport) size(conn *ftp.ServerConn, loc Location) (int64, error) {
	size, err := conn.FileSize(loc.Path)
	if err != nil {
		var perr *textproto.Error
		if stderrors.As(err, &perr) && perr.Code == ftp.StatusFileUnavailable {
			return 0, notExist(loc, err)
		}
		return 0, err
	}
	return size, nil
}

func (t *ftpTransport) Stat(ctx context.Context, loc Location) (int64, error) {
	conn, err := t.dial(ctx, loc)
	if err != nil {
		return 0, err
	}
	defer conn.Quit() // nolint: errcheck
	return t.size(conn, loc)
}

func (t *ftpTransport) Open(ctx context.Context, loc Location) (Channel, error) {
	conn, err := t.dial(ctx, loc)
	if err != nil {
		return nil, err
	}
	size, err := t.size(conn, loc)
	if err != nil {
		conn.Quit() // nolint: errcheck
		return nil, err
	}
	return &rangeChannel{
		name: loc.Raw,
		size: size,
		open: func(off int64) (io.ReadCloser, error) {
			return conn.RetrFrom(loc.Path, uint64(off))
		},
		closer: conn.Quit,
	}, nil
}

package source

import (
	"context"
	stderrors "errors"
	"os"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/featureio/feature"
	pkgerrors "github.com/pkg/errors"
)

// Transport opens channels for one family of locations.
type Transport interface {
	// Open opens a channel positioned at offset zero. It must not read the
	// content.
	Open(ctx context.Context, loc Location) (Channel, error)
	// Stat returns the size of the content at loc. A missing object is
	// reported as an error of kind errors.NotExist.
	Stat(ctx context.Context, loc Location) (int64, error)
}

// Resolver maps URI schemes to transports. It is safe for concurrent use.
type Resolver struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

// Default is the resolver used when callers do not supply one. It knows
// local paths, http, https, ftp and s3.
var Default = NewResolver()

// NewResolver creates a resolver with the built-in transports: local paths
// (and file:// URIs), http, https, ftp, and s3.
func NewResolver() *Resolver {
	r := &Resolver{transports: map[string]Transport{}}
	r.Register("", localTransport{})
	h := NewHTTPTransport(HTTPOpts{})
	r.Register("http", h)
	r.Register("https", h)
	r.Register("ftp", NewFTPTransport(FTPOpts{}))
	r.Register("s3", NewS3Transport(nil))
	return r
}

// Register installs t for the given scheme, replacing any previous
// transport. Scheme "" is the local filesystem.
func (r *Resolver) Register(scheme string, t Transport) {
	r.mu.Lock()
	r.transports[strings.ToLower(scheme)] = t
	r.mu.Unlock()
}

func (r *Resolver) lookup(raw string) (Location, Transport, error) {
	loc, err := Parse(raw)
	if err != nil {
		return loc, nil, err
	}
	r.mu.RLock()
	t, ok := r.transports[loc.Scheme]
	r.mu.RUnlock()
	if !ok {
		return loc, nil, feature.Errorf(feature.ErrUnresolvableSource, "%s: no transport for scheme %q", raw, loc.Scheme)
	}
	return loc, t, nil
}

// Open resolves raw and opens a channel on it. If w is non-nil, the raw
// channel is passed through it before being returned.
func (r *Resolver) Open(ctx context.Context, raw string, w Wrapper) (Channel, error) {
	loc, t, err := r.lookup(raw)
	if err != nil {
		return nil, err
	}
	ch, err := t.Open(ctx, loc)
	if err != nil {
		return nil, feature.Wrap(feature.ErrUnresolvableSource, err, "open %s", raw)
	}
	if log.At(log.Debug) {
		log.Debug.Printf("source: opened %s (%d bytes)", raw, ch.Size())
	}
	if w != nil {
		if ch, err = w(ch); err != nil {
			return nil, feature.Wrap(feature.ErrUnresolvableSource, err, "wrap %s", raw)
		}
	}
	return ch, nil
}

// Size returns the size of the content at raw.
func (r *Resolver) Size(ctx context.Context, raw string) (int64, error) {
	loc, t, err := r.lookup(raw)
	if err != nil {
		return 0, err
	}
	size, err := t.Stat(ctx, loc)
	if err != nil {
		return 0, feature.Wrap(feature.ErrUnresolvableSource, err, "stat %s", raw)
	}
	return size, nil
}

// Exists reports whether raw names existing content. Errors other than
// "does not exist" (e.g. an unreachable host) are returned.
func (r *Resolver) Exists(ctx context.Context, raw string) (bool, error) {
	loc, t, err := r.lookup(raw)
	if err != nil {
		return false, err
	}
	if _, err := t.Stat(ctx, loc); err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, feature.Wrap(feature.ErrUnresolvableSource, err, "stat %s", raw)
	}
	return true, nil
}

// IsNotExist reports whether err says that an object does not exist.
func IsNotExist(err error) bool {
	return errors.Is(errors.NotExist, err) ||
		os.IsNotExist(pkgerrors.Cause(err)) ||
		stderrors.Is(err, os.ErrNotExist)
}

func notExist(loc Location, err error) error {
	return errors.E(errors.NotExist, loc.Raw, err)
}

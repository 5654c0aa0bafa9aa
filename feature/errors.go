package feature

import (
	"github.com/pkg/errors"
)

// Error classes. Errors returned by this module wrap one of these, so the
// class can be tested with errors.Is (or errors.Cause for direct wraps).
var (
	// ErrUnresolvableSource is reported when a location cannot be opened:
	// a missing file, an unreachable host, or an unknown scheme.
	ErrUnresolvableSource = errors.New("unresolvable source")
	// ErrUnsupportedFormat is reported when no codec claims a location.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrIndexCorrupt is reported when an index fails structural validation
	// or does not describe the data file it is paired with.
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrSourceTruncated is reported when a data file is shorter than its
	// index implies, or ends in the middle of a block.
	ErrSourceTruncated = errors.New("source truncated")
	// ErrRecordDecode is reported for malformed header or record syntax.
	ErrRecordDecode = errors.New("record decode error")
	// ErrNoIndex is reported by a query against a reader without an index.
	ErrNoIndex = errors.New("no index")
	// ErrIndexRequired is reported by Open when an index is required but
	// none exists.
	ErrIndexRequired = errors.New("index required but missing")
	// ErrClosed is reported by any operation on a closed reader or iterator.
	ErrClosed = errors.New("reader closed")
	// ErrInvalidInterval is reported for intervals with start < 1 or end < start.
	ErrInvalidInterval = errors.New("invalid interval")
)

// Wrap annotates err with the given error class and a formatted message.
// The underlying error text is kept in the message; the class becomes the
// cause. An err that already belongs to a class keeps it. Wrap returns nil
// if err is nil.
func Wrap(class, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if Class(err) != nil {
		return errors.Wrapf(err, format, args...)
	}
	return errors.Wrapf(class, format+": %v", append(args, err)...)
}

// Errorf returns an error of the given class with a formatted message.
func Errorf(class error, format string, args ...interface{}) error {
	return errors.Wrapf(class, format, args...)
}

// Class returns the error class of err, or nil if err does not belong to
// one of the classes defined in this package.
func Class(err error) error {
	for _, class := range []error{
		ErrUnresolvableSource, ErrUnsupportedFormat, ErrIndexCorrupt,
		ErrSourceTruncated, ErrRecordDecode, ErrNoIndex, ErrIndexRequired,
		ErrClosed, ErrInvalidInterval,
	} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

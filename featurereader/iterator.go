package featurereader

import (
	"io"
	"math"
	"sync"

	"github.com/grailbio/base/errors"
	gbgzf "github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/featureio/index"
	"github.com/grailbio/featureio/source"
	"github.com/grailbio/hts/bgzf"
)

// maxOffset ends the single chunk of a full scan.
var maxOffset = bgzf.Offset{File: math.MaxInt64, Block: math.MaxUint16}

// Iterator yields features one at a time. Typical use:
//
//   it := r.Query(ctx, "chr1", 100, 200)
//   for it.Scan() {
//     f := it.Record()
//   }
//   if err := it.Close(); err != nil { ... }
//
// An Iterator is not safe for concurrent use, but it may be closed while
// another goroutine closes its Reader.
type Iterator interface {
	// Scan advances to the next record. It returns false at the end of the
	// records or on error.
	Scan() bool
	// Record returns the record found by the last successful Scan.
	Record() feature.Feature
	// Err returns the error that stopped Scan, or nil at the normal end of
	// the records. After Close it returns feature.ErrClosed unless the scan
	// had already failed.
	Err() error
	// Close releases the iterator's channel. It returns Err() as of the
	// call, and is idempotent.
	Close() error
}

type errorIterator struct {
	err error
}

func (i *errorIterator) Scan() bool              { return false }
func (i *errorIterator) Record() feature.Feature { panic("shall not be called") }
func (i *errorIterator) Err() error              { return i.err }
func (i *errorIterator) Close() error            { return i.err }

// NewErrorIterator creates an Iterator that yields no record and returns err
// in Err and Close. A nil err makes an empty iterator.
func NewErrorIterator(err error) Iterator {
	return &errorIterator{err: err}
}

// iterator reads the lines of a list of sorted, disjoint chunks. With a
// query, it yields the records overlapping it; without one, it yields every
// record until the end of the data.
type iterator struct {
	r     *Reader
	query *feature.Interval

	mu      sync.Mutex
	ch      source.Channel
	lr      feature.LineReader
	chunks  []index.Chunk
	inChunk bool
	// pos is the offset just past the last line read.
	pos bgzf.Offset
	// covered is the offset of the first line not yet decoded. No chunk is
	// read before it, so overlapping chunks never yield a record twice.
	covered bgzf.Offset
	rec     feature.Feature
	err     error
	closed  bool
}

// Scan implements Iterator.
func (i *iterator) Scan() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed || i.err != nil {
		return false
	}
	i.rec = nil
	for {
		if !i.inChunk {
			if len(i.chunks) == 0 {
				i.err = io.EOF
				return false
			}
			c := i.chunks[0]
			start := index.Max(c.Begin, i.covered)
			if !index.Less(start, c.End) {
				i.chunks = i.chunks[1:]
				continue
			}
			if err := i.lr.Seek(start); err != nil {
				i.err = feature.Wrap(feature.ErrIndexCorrupt, err, "%s: seek to %v", i.r.dataPath, start)
				return false
			}
			i.pos = start
			i.inChunk = true
		}
		end := i.chunks[0].End
		line, begin, next, err := i.lr.ReadLine()
		if err == io.EOF {
			if i.query != nil && !i.reachedEnd(end) {
				i.err = feature.Errorf(feature.ErrSourceTruncated,
					"%s: data ends at %v, index expects data up to %v", i.r.dataPath, i.pos, end)
				return false
			}
			i.err = io.EOF
			return false
		}
		if err != nil {
			i.err = feature.Wrap(feature.ErrRecordDecode, err, "%s: read at %v", i.r.dataPath, i.pos)
			return false
		}
		if !index.Less(begin, end) {
			i.nextChunk()
			continue
		}
		i.pos, i.covered = next, next
		f, err := i.r.codec.Decode(i.r.header, line)
		if err != nil {
			i.err = feature.Wrap(feature.ErrRecordDecode, err, "%s: record at %v", i.r.dataPath, begin)
			return false
		}
		if f == nil {
			continue
		}
		q := i.query
		if q == nil {
			i.rec = f
			return true
		}
		if f.Contig() != q.Contig {
			continue
		}
		if f.Start() > q.End {
			// Records are sorted, so no later chunk holds an overlapping record.
			i.chunks = nil
			i.inChunk = false
			continue
		}
		if q.Overlaps(f) {
			i.rec = f
			return true
		}
	}
}

func (i *iterator) nextChunk() {
	i.chunks = i.chunks[1:]
	i.inChunk = false
}

// reachedEnd reports whether an end of data at i.pos satisfies a chunk
// ending at end. For block-compressed data, an end pointing at the start of
// the terminator block is reached by a reader that stopped at the end of
// the previous block.
func (i *iterator) reachedEnd(end bgzf.Offset) bool {
	if !index.Less(i.pos, end) {
		return true
	}
	if !i.r.compressed {
		return false
	}
	return end.Block == 0 && end.File >= i.r.dataSize-int64(len(gbgzf.Terminator))
}

// Record implements Iterator.
func (i *iterator) Record() feature.Feature {
	return i.rec
}

// Err implements Iterator.
func (i *iterator) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.errLocked()
}

func (i *iterator) errLocked() error {
	if i.err == io.EOF {
		if i.closed {
			return feature.Errorf(feature.ErrClosed, "%s: iterator closed", i.r.dataPath)
		}
		return nil
	}
	if i.err == nil && i.closed {
		return feature.Errorf(feature.ErrClosed, "%s: iterator closed", i.r.dataPath)
	}
	return i.err
}

// Close implements Iterator.
func (i *iterator) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	err := i.err
	i.mu.Unlock()
	if closeErr := i.close(true); err == nil || err == io.EOF {
		err = closeErr
	}
	return err
}

// close releases the channel. If release is set, the iterator is removed
// from its reader's live set. It returns the first error raised while
// closing.
func (i *iterator) close(release bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	var e errors.Once
	if i.lr != nil {
		e.Set(i.lr.Close())
		i.lr = nil
	}
	if i.ch != nil {
		e.Set(i.ch.Close())
		i.ch = nil
	}
	if release {
		i.r.release(i)
	}
	if err := e.Err(); err != nil {
		return feature.Wrap(feature.ErrUnresolvableSource, err, "close %s", i.r.dataPath)
	}
	return nil
}

// ReadAll drains it and closes it, returning every record.
func ReadAll(it Iterator) ([]feature.Feature, error) {
	var out []feature.Feature
	for it.Scan() {
		out = append(out, it.Record())
	}
	if err := it.Close(); err != nil {
		return out, err
	}
	return out, nil
}

package featurereader

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	gbgzf "github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/featureio/index"
	"github.com/grailbio/featureio/index/tabix"
	"github.com/grailbio/featureio/index/tribble"
	"github.com/grailbio/featureio/source"
	"github.com/grailbio/hts/bgzf"
)

const (
	// TabixSuffix is appended to a block-compressed data path to find its index.
	TabixSuffix = ".tbi"
	// TribbleSuffix is appended to a plain data path to find its index.
	TribbleSuffix = ".idx"
)

// Opts configures Open. The zero value reads through source.Default, picks
// the codec from the location, and loads the index, if any, on first query.
type Opts struct {
	// Index overrides the index location. The index family still follows the
	// compression class of the data file.
	Index string
	// Codec, if set, is used instead of a lookup in Codecs. It must
	// recognize the location.
	Codec feature.Codec
	// RequireIndex makes Open load and validate the index, and fail if it
	// is missing or invalid.
	RequireIndex bool
	// DataWrapper and IndexWrapper decorate every channel opened on the data
	// and index files respectively.
	DataWrapper  source.Wrapper
	IndexWrapper source.Wrapper
	// Resolver opens locations. If nil, source.Default is used.
	Resolver *source.Resolver
}

// Reader reads the features of one data file. A Reader is safe for
// concurrent use; each Iterator it creates reads through its own channel, so
// iterators may be consumed concurrently.
type Reader struct {
	path       string
	dataPath   string
	indexPath  string
	codec      feature.Codec
	resolver   *source.Resolver
	opts       Opts
	compressed bool
	dataSize   int64
	header     feature.Header
	// firstRecord is the offset of the first line after the header.
	firstRecord bgzf.Offset
	hasIndex    bool

	mu       sync.Mutex
	index    index.Index
	indexErr error
	closed   bool
	iters    map[*iterator]struct{}
	err      errors.Once
}

// indexLocation appends suffix to the path of location. For URIs with a
// query or fragment, the suffix goes at the end of the path component.
func indexLocation(location, suffix string) string {
	if strings.Contains(location, "://") {
		if u, err := url.Parse(location); err == nil && (u.RawQuery != "" || u.Fragment != "") {
			u.Path += suffix
			u.RawPath = ""
			return u.String()
		}
	}
	return location + suffix
}

// Open opens the feature file at location and decodes its header.
func Open(ctx context.Context, location string, opts Opts) (*Reader, error) {
	codec, err := selectCodec(location, opts.Codec)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		path:     location,
		dataPath: codec.DataPath(location),
		codec:    codec,
		resolver: opts.Resolver,
		opts:     opts,
		iters:    map[*iterator]struct{}{},
	}
	if r.resolver == nil {
		r.resolver = source.Default
	}
	r.compressed = gbgzf.HasBlockCompressedExtension(r.dataPath)
	r.indexPath = opts.Index
	if r.indexPath == "" {
		r.indexPath = IndexPath(r.dataPath)
	}
	if err := r.readHeader(ctx); err != nil {
		return nil, err
	}

	exists, err := r.resolver.Exists(ctx, r.indexPath)
	if err != nil {
		if opts.RequireIndex || opts.Index != "" {
			return nil, err
		}
		log.Printf("featurereader: %s: cannot check for index %s, reading without it: %v", r.dataPath, r.indexPath, err)
	}
	switch {
	case exists:
		r.hasIndex = true
	case opts.RequireIndex:
		return nil, feature.Errorf(feature.ErrIndexRequired, "%s: index %s does not exist", r.dataPath, r.indexPath)
	case opts.Index != "":
		return nil, feature.Errorf(feature.ErrUnresolvableSource, "%s: index %s does not exist", r.dataPath, r.indexPath)
	}
	if opts.RequireIndex {
		if r.index, err = r.loadIndex(ctx); err != nil {
			return nil, err
		}
	}
	log.Debug.Printf("featurereader: opened %s (codec %s, compressed %v, index %s present %v)",
		r.dataPath, codec.Name(), r.compressed, r.indexPath, r.hasIndex)
	return r, nil
}

// openData opens a decorated channel on the data file and a line reader
// over it.
func (r *Reader) openData(ctx context.Context) (source.Channel, feature.LineReader, error) {
	ch, err := r.resolver.Open(ctx, r.dataPath, r.opts.DataWrapper)
	if err != nil {
		return nil, nil, err
	}
	lr, err := feature.NewLineReader(ch, r.compressed)
	if err != nil {
		ch.Close() // nolint: errcheck
		return nil, nil, feature.Wrap(feature.ErrRecordDecode, err, "%s", r.dataPath)
	}
	return ch, lr, nil
}

func (r *Reader) readHeader(ctx context.Context) (err error) {
	ch, err := r.resolver.Open(ctx, r.dataPath, r.opts.DataWrapper)
	if err != nil {
		return err
	}
	defer func() {
		if e := ch.Close(); e != nil && err == nil {
			err = feature.Wrap(feature.ErrUnresolvableSource, e, "close %s", r.dataPath)
		}
	}()
	r.dataSize = ch.Size()
	if r.compressed {
		if err := gbgzf.CheckTerminator(ch, r.dataSize); err != nil {
			return feature.Wrap(feature.ErrSourceTruncated, err, "%s", r.dataPath)
		}
		if _, err := ch.Seek(0, io.SeekStart); err != nil {
			return feature.Wrap(feature.ErrUnresolvableSource, err, "%s", r.dataPath)
		}
	}
	lr, err := feature.NewLineReader(ch, r.compressed)
	if err != nil {
		return feature.Wrap(feature.ErrRecordDecode, err, "%s", r.dataPath)
	}
	defer lr.Close() // nolint: errcheck
	s := feature.NewLineScanner(lr, bgzf.Offset{})
	if r.header, err = r.codec.DecodeHeader(s); err != nil {
		return feature.Wrap(feature.ErrRecordDecode, err, "%s: header", r.dataPath)
	}
	r.firstRecord = s.Offset()
	return nil
}

// loadIndex reads and validates the index. It does not modify r.
func (r *Reader) loadIndex(ctx context.Context) (index.Index, error) {
	ch, err := r.resolver.Open(ctx, r.indexPath, r.opts.IndexWrapper)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ch.Close(); err != nil {
			log.Error.Printf("featurereader: close %s: %v", r.indexPath, err)
		}
	}()
	var ix index.Index
	if r.compressed {
		ix, err = tabix.Read(ch, r.indexPath)
	} else {
		ix, err = tribble.Read(ch, r.indexPath)
	}
	if err != nil {
		return nil, err
	}
	if err := ix.Validate(r.dataSize); err != nil {
		return nil, feature.Wrap(feature.ErrIndexCorrupt, err, "%s does not match %s", r.indexPath, r.dataPath)
	}
	log.Debug.Printf("featurereader: loaded index %s: %d sequences", r.indexPath, len(ix.SeqNames()))
	return ix, nil
}

// getIndex returns the index, loading it on first use. r.mu must be held.
func (r *Reader) getIndex(ctx context.Context) (index.Index, error) {
	if r.index != nil {
		return r.index, nil
	}
	if !r.hasIndex {
		return nil, feature.Errorf(feature.ErrNoIndex, "%s: no index at %s", r.dataPath, r.indexPath)
	}
	if r.indexErr != nil {
		return nil, r.indexErr
	}
	r.index, r.indexErr = r.loadIndex(ctx)
	return r.index, r.indexErr
}

// Path returns the location the reader was opened with.
func (r *Reader) Path() string { return r.path }

// DataPath returns the location of the records. It differs from Path for
// redirecting codecs.
func (r *Reader) DataPath() string { return r.dataPath }

// IndexPath returns the location of the index, whether or not it exists.
func (r *Reader) IndexPath() string { return r.indexPath }

// HasIndex reports whether an index exists for the data file. It does not
// load the index.
func (r *Reader) HasIndex() bool { return r.hasIndex }

// Codec returns the codec decoding the data file.
func (r *Reader) Codec() feature.Codec { return r.codec }

// Header returns the decoded header.
func (r *Reader) Header() (feature.Header, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, feature.Errorf(feature.ErrClosed, "%s", r.path)
	}
	return r.header, nil
}

// SeqNames returns the sequence names listed in the index, loading it if
// needed. Without an index it returns feature.ErrNoIndex.
func (r *Reader) SeqNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, feature.Errorf(feature.ErrClosed, "%s", r.path)
	}
	ix, err := r.getIndex(ctx)
	if err != nil {
		return nil, err
	}
	return ix.SeqNames(), nil
}

// Query returns an iterator over the records on contig that overlap the
// 1-based closed interval [start, end]. Records are yielded in file order.
// Errors, including a missing index, are reported by the iterator.
func (r *Reader) Query(ctx context.Context, contig string, start, end int) Iterator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return NewErrorIterator(feature.Errorf(feature.ErrClosed, "%s", r.path))
	}
	q := feature.Interval{Contig: contig, Start: start, End: end}
	if err := q.Validate(); err != nil {
		return NewErrorIterator(err)
	}
	ix, err := r.getIndex(ctx)
	if err != nil {
		return NewErrorIterator(err)
	}
	chunks, err := ix.Chunks(contig, start, end)
	if err != nil {
		return NewErrorIterator(feature.Wrap(feature.ErrIndexCorrupt, err, "%s: query %v", r.indexPath, q))
	}
	log.Debug.Printf("featurereader: %s: query %v reads %d chunks", r.dataPath, q, len(chunks))
	if len(chunks) == 0 {
		return NewErrorIterator(nil)
	}
	return r.newIterator(ctx, chunks, &q)
}

// Iterator returns an iterator over every record in the file. It does not
// use the index.
func (r *Reader) Iterator(ctx context.Context) Iterator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return NewErrorIterator(feature.Errorf(feature.ErrClosed, "%s", r.path))
	}
	return r.newIterator(ctx, []index.Chunk{{Begin: r.firstRecord, End: maxOffset}}, nil)
}

// newIterator creates and registers an iterator. r.mu must be held.
func (r *Reader) newIterator(ctx context.Context, chunks []index.Chunk, q *feature.Interval) Iterator {
	ch, lr, err := r.openData(ctx)
	if err != nil {
		return NewErrorIterator(err)
	}
	it := &iterator{
		r:       r,
		ch:      ch,
		lr:      lr,
		chunks:  chunks,
		query:   q,
		covered: r.firstRecord,
	}
	r.iters[it] = struct{}{}
	return it
}

func (r *Reader) release(it *iterator) {
	r.mu.Lock()
	delete(r.iters, it)
	r.mu.Unlock()
}

// Close closes the reader and every iterator still open on it. Close is
// idempotent; it returns the first error raised while closing iterators.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	iters := make([]*iterator, 0, len(r.iters))
	for it := range r.iters {
		iters = append(iters, it)
	}
	r.iters = nil
	r.mu.Unlock()

	for _, it := range iters {
		r.err.Set(it.close(false))
	}
	return r.err.Err()
}

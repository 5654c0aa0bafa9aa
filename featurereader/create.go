package featurereader

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	gbgzf "github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/featureio/index"
	"github.com/grailbio/featureio/index/tabix"
	"github.com/grailbio/featureio/index/tribble"
	"github.com/grailbio/featureio/source"
	"github.com/grailbio/hts/bgzf"
	"github.com/pkg/errors"
)

// IndexKind selects the index variant built by BuildIndex.
type IndexKind string

const (
	// KindAuto builds a tabix index for block-compressed data and a linear
	// tribble index otherwise.
	KindAuto IndexKind = ""
	// KindLinear builds a linear tribble (.idx) index.
	KindLinear IndexKind = "linear"
	// KindIntervalTree builds an interval-tree tribble (.idx) index.
	KindIntervalTree IndexKind = "tree"
	// KindTabix builds a tabix (.tbi) index.
	KindTabix IndexKind = "tabix"
)

// IndexOpts configures BuildIndex and CreateIndex.
type IndexOpts struct {
	Kind IndexKind
	// BinWidth is the bin width of a linear index. Zero selects
	// tribble.DefaultBinWidth.
	BinWidth int
	// FeaturesPerInterval is the node size of an interval-tree index. Zero
	// selects tribble.DefaultFeaturesPerInterval.
	FeaturesPerInterval int
	// Output is where CreateIndex writes the index. By default it is the
	// data path plus ".tbi" or ".idx".
	Output string
	// Codec and Resolver are as in Opts.
	Codec    feature.Codec
	Resolver *source.Resolver
}

// WritableIndex is an index that can be serialized.
type WritableIndex interface {
	index.Index
	Write(w io.Writer) error
}

type builder interface {
	Add(contig string, start, end int, begin, endOff bgzf.Offset) error
}

// BuildIndex scans the feature file at location and builds an index over
// it. The records must be sorted by contig and start.
func BuildIndex(ctx context.Context, location string, opts IndexOpts) (WritableIndex, error) {
	codec, err := selectCodec(location, opts.Codec)
	if err != nil {
		return nil, err
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = source.Default
	}
	dataPath := codec.DataPath(location)
	compressed := gbgzf.HasBlockCompressedExtension(dataPath)
	kind := opts.Kind
	if kind == KindAuto {
		kind = KindLinear
		if compressed {
			kind = KindTabix
		}
	}
	if (kind == KindTabix) != compressed {
		return nil, feature.Errorf(feature.ErrUnsupportedFormat,
			"%s: a %s index cannot describe a file with this compression", dataPath, kind)
	}

	ch, err := resolver.Open(ctx, dataPath, nil)
	if err != nil {
		return nil, err
	}
	defer ch.Close() // nolint: errcheck
	lr, err := feature.NewLineReader(ch, compressed)
	if err != nil {
		return nil, feature.Wrap(feature.ErrRecordDecode, err, "%s", dataPath)
	}
	defer lr.Close() // nolint: errcheck
	s := feature.NewLineScanner(lr, bgzf.Offset{})
	header, err := codec.DecodeHeader(s)
	if err != nil {
		return nil, feature.Wrap(feature.ErrRecordDecode, err, "%s: header", dataPath)
	}

	var (
		b        builder
		linear   *tribble.LinearBuilder
		tree     *tribble.IntervalTreeBuilder
		tabixBld *tabix.Builder
	)
	switch kind {
	case KindLinear:
		linear = tribble.NewLinearBuilder(opts.BinWidth)
		b = linear
	case KindIntervalTree:
		tree = tribble.NewIntervalTreeBuilder(opts.FeaturesPerInterval)
		b = tree
	case KindTabix:
		config := tabix.Generic
		switch codec.Name() {
		case "vcf":
			config = tabix.VCF
		case "bed":
			config = tabix.BED
		}
		tabixBld = tabix.NewBuilder(config)
		b = tabixBld
	default:
		return nil, errors.Errorf("unknown index kind %q", kind)
	}

	var n int
	for {
		line, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, feature.Wrap(feature.ErrRecordDecode, err, "%s", dataPath)
		}
		begin, end := s.Span()
		f, err := codec.Decode(header, line)
		if err != nil {
			return nil, feature.Wrap(feature.ErrRecordDecode, err, "%s: record at %v", dataPath, begin)
		}
		if f == nil {
			continue
		}
		if err := b.Add(f.Contig(), f.Start(), f.End(), begin, end); err != nil {
			return nil, feature.Wrap(feature.ErrRecordDecode, err, "%s: record at %v", dataPath, begin)
		}
		n++
	}
	log.Debug.Printf("featurereader: indexed %d records of %s as %s", n, dataPath, kind)
	switch kind {
	case KindLinear:
		return linear.Finish(dataPath, ch.Size()), nil
	case KindIntervalTree:
		ix, err := tree.Finish(dataPath, ch.Size())
		if err != nil {
			return nil, err
		}
		return ix, nil
	default:
		return tabixBld.Finish(), nil
	}
}

// IndexPath returns the default index location for a data location.
func IndexPath(dataPath string) string {
	if gbgzf.HasBlockCompressedExtension(dataPath) {
		return indexLocation(dataPath, TabixSuffix)
	}
	return indexLocation(dataPath, TribbleSuffix)
}

// CreateIndex builds an index over the feature file at location and writes
// it with grailbio/base/file to opts.Output, or next to the data file. It
// returns the path written.
func CreateIndex(ctx context.Context, location string, opts IndexOpts) (string, error) {
	ix, err := BuildIndex(ctx, location, opts)
	if err != nil {
		return "", err
	}
	out := opts.Output
	if out == "" {
		codec, err := selectCodec(location, opts.Codec)
		if err != nil {
			return "", err
		}
		out = IndexPath(codec.DataPath(location))
	}
	f, err := file.Create(ctx, out)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", out)
	}
	if err := ix.Write(f.Writer(ctx)); err != nil {
		f.Close(ctx) // nolint: errcheck
		return "", errors.Wrapf(err, "write %s", out)
	}
	if err := f.Close(ctx); err != nil {
		return "", errors.Wrapf(err, "close %s", out)
	}
	log.Printf("featurereader: wrote %s", out)
	return out, nil
}

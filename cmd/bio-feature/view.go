package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/featureio/encoding/bed"
	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/featureio/featurereader"
)

type viewOpts struct {
	index        string
	requireIndex bool
	header       bool
	headerOnly   bool
	output       string
	regions      string
	bed          string
}

// bedRegions returns the intervals listed in a BED file.
func bedRegions(ctx context.Context, path string) ([]feature.Interval, error) {
	r, err := featurereader.Open(ctx, path, featurereader.Opts{Codec: bed.Codec{}})
	if err != nil {
		return nil, err
	}
	recs, err := featurereader.ReadAll(r.Iterator(ctx))
	if e := r.Close(); e != nil && err == nil {
		err = e
	}
	var regions []feature.Interval
	for _, rec := range recs {
		regions = append(regions, feature.Interval{Contig: rec.Contig(), Start: rec.Start(), End: rec.End()})
	}
	return regions, err
}

// writeRecords prints the records of it, one per line, and closes it.
func writeRecords(w *bufio.Writer, it featurereader.Iterator) error {
	for it.Scan() {
		rec := it.Record()
		if s, ok := rec.(fmt.Stringer); ok {
			w.WriteString(s.String()) // nolint: errcheck
		} else {
			fmt.Fprintf(w, "%s\t%d\t%d", rec.Contig(), rec.Start(), rec.End())
		}
		if err := w.WriteByte('\n'); err != nil {
			it.Close() // nolint: errcheck
			return err
		}
	}
	return it.Close()
}

func view(stdout io.Writer, path string, opts viewOpts) (err error) {
	ctx := context.Background()
	regions, err := feature.ParseIntervals(opts.regions)
	if err != nil {
		return err
	}
	if opts.bed != "" {
		more, err := bedRegions(ctx, opts.bed)
		if err != nil {
			return err
		}
		regions = append(regions, more...)
	}
	out := stdout
	if opts.output != "" {
		var f file.File
		if f, err = file.Create(ctx, opts.output); err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, f, &err)
		out = f.Writer(ctx)
	}
	w := bufio.NewWriterSize(out, 1<<20)

	r, err := featurereader.Open(ctx, path, featurereader.Opts{Index: opts.index, RequireIndex: opts.requireIndex})
	if err != nil {
		return err
	}
	defer func() {
		if e := r.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if opts.header || opts.headerOnly {
		h, err := r.Header()
		if err != nil {
			return err
		}
		w.WriteString(h.String()) // nolint: errcheck
	}
	if !opts.headerOnly {
		if len(regions) == 0 {
			if err := writeRecords(w, r.Iterator(ctx)); err != nil {
				return err
			}
		}
		for _, region := range regions {
			if err := writeRecords(w, r.Query(ctx, region.Contig, region.Start, region.End)); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

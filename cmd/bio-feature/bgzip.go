package main

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/featurereader"
	"github.com/pkg/errors"
)

type bgzipOpts struct {
	output string
	level  int
	index  bool
}

// bgzip block-compresses the file at path. The output ends with the BGZF
// terminator block, so it can be indexed with tabix.
func bgzip(path string, opts bgzipOpts) (err error) {
	ctx := context.Background()
	out := opts.output
	if out == "" {
		out = path + ".gz"
	}
	if !bgzf.HasBlockCompressedExtension(out) {
		return errors.Errorf("%s: output must have a block-compressed extension such as .gz", out)
	}
	if err = compressFile(ctx, path, out, opts.level); err != nil {
		return err
	}
	log.Printf("bgzip: wrote %s", out)
	if opts.index {
		_, err = featurereader.CreateIndex(ctx, out, featurereader.IndexOpts{Kind: featurereader.KindTabix})
	}
	return err
}

func compressFile(ctx context.Context, in, out string, level int) (err error) {
	src, err := file.Open(ctx, in)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, src, &err)
	dst, err := file.Create(ctx, out)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)
	w, err := bgzf.NewWriter(dst.Writer(ctx), level)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, src.Reader(ctx)); err != nil {
		w.Close() // nolint: errcheck
		return errors.Wrapf(err, "compress %s", in)
	}
	return w.Close()
}

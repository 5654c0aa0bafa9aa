package main

import (
	"context"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"runtime"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/featureio/featurereader"
)

type checksumOpts struct {
	// useIndex reads each contig listed in the index with its own query,
	// concurrently. Otherwise the file is scanned once.
	useIndex    bool
	parallelism int
}

// contigChecksum summarizes the records of one contig.
type contigChecksum struct {
	Name string
	// NRecs is the number of records on the contig.
	NRecs int64
	// SumStart is the sum of record start positions.
	SumStart uint64
	// SumRecord is the sum of the seahash of each record line, so it does
	// not depend on the order records are read in.
	SumRecord uint64
}

func recordText(rec feature.Feature) string {
	if s, ok := rec.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%s\t%d\t%d", rec.Contig(), rec.Start(), rec.End())
}

func (c *contigChecksum) add(rec feature.Feature, h hash.Hash64) {
	c.NRecs++
	c.SumStart += uint64(rec.Start())
	h.Reset()
	io.WriteString(h, recordText(rec)) // nolint: errcheck
	c.SumRecord += h.Sum64()
}

// scanChecksum reads the whole file once.
func scanChecksum(ctx context.Context, r *featurereader.Reader) ([]contigChecksum, error) {
	var (
		csums  []contigChecksum
		byName = map[string]int{}
		h      = seahash.New()
		it     = r.Iterator(ctx)
	)
	for it.Scan() {
		rec := it.Record()
		i, ok := byName[rec.Contig()]
		if !ok {
			i = len(csums)
			byName[rec.Contig()] = i
			csums = append(csums, contigChecksum{Name: rec.Contig()})
		}
		csums[i].add(rec, h)
	}
	return csums, it.Close()
}

// indexChecksum queries every contig listed in the index.
func indexChecksum(ctx context.Context, r *featurereader.Reader, parallelism int) ([]contigChecksum, error) {
	names, err := r.SeqNames(ctx)
	if err != nil {
		return nil, err
	}
	csums := make([]contigChecksum, len(names))
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(names) {
		parallelism = len(names)
	}
	err = traverse.Each(parallelism, func(jobIdx int) error {
		h := seahash.New()
		for i := jobIdx; i < len(names); i += parallelism {
			csums[i].Name = names[i]
			it := r.Query(ctx, names[i], 1, feature.MaxPosition)
			for it.Scan() {
				csums[i].add(it.Record(), h)
			}
			if err := it.Close(); err != nil {
				return err
			}
		}
		return nil
	})
	return csums, err
}

func checksum(stdout io.Writer, path string, opts checksumOpts) (err error) {
	ctx := context.Background()
	r, err := featurereader.Open(ctx, path, featurereader.Opts{RequireIndex: opts.useIndex})
	if err != nil {
		return err
	}
	defer func() {
		if e := r.Close(); e != nil && err == nil {
			err = e
		}
	}()
	var csums []contigChecksum
	if opts.useIndex {
		csums, err = indexChecksum(ctx, r, opts.parallelism)
	} else {
		csums, err = scanChecksum(ctx, r)
	}
	if err != nil {
		return err
	}
	log.Debug.Printf("checksum: %s: %d contigs", path, len(csums))
	data, err := json.MarshalIndent(csums, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

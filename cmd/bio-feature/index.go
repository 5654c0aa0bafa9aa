package main

import (
	"context"
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/featureio/featurereader"
)

// index builds and writes an index for each path. Paths are split into
// parallelism contiguous groups, each indexed by one worker.
func index(paths []string, opts featurereader.IndexOpts, parallelism int) error {
	ctx := context.Background()
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(paths) {
		parallelism = len(paths)
	}
	return traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(paths)) / parallelism
		endIdx := ((jobIdx + 1) * len(paths)) / parallelism
		for _, path := range paths[startIdx:endIdx] {
			out, err := featurereader.CreateIndex(ctx, path, opts)
			if err != nil {
				return err
			}
			log.Debug.Printf("index: %s -> %s", path, out)
		}
		return nil
	})
}

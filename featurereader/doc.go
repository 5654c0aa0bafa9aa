// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package featurereader reads line-oriented genomic feature files (VCF, BED)
// with random access through a positional index.
//
// A data file may be plain text or block-compressed (BGZF). Its index is
// chosen by the compression class of the data file: plain files use a
// tribble index ("<data>.idx"), block-compressed files use a tabix index
// ("<data>.tbi"). Locations may be local paths or URIs handled by a
// source.Resolver.
//
// Example:
//
//   r, err := featurereader.Open(ctx, "calls.vcf.gz", featurereader.Opts{})
//   if err != nil { ... }
//   defer r.Close()
//   it := r.Query(ctx, "20", 1, 20000)
//   for it.Scan() {
//     v := it.Record().(*vcf.Variant)
//     ...
//   }
//   if err := it.Close(); err != nil { ... }
package featurereader

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
bio-feature reads, indexes, and checksums interval-indexed feature files
(VCF and BED, plain or block-gzipped). Files may be local paths or
http(s)://, ftp://, or s3:// URLs.

Sample usage:

  # Index a plain VCF with a linear tribble index (writes calls.vcf.idx).
  bio-feature index calls.vcf

  # Block-compress it and build a tabix index (writes calls.vcf.gz.tbi).
  bio-feature bgzip -o calls.vcf.gz calls.vcf
  bio-feature index calls.vcf.gz

  # Print the records overlapping two regions.
  bio-feature view -regions "20:14000-18000;20:1,230,000-1,240,000" calls.vcf.gz

  # Print per-contig record counts and content hashes.
  bio-feature checksum calls.vcf.gz
*/
package main

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package feature defines the types shared by the indexed feature readers:
// decoded records (Feature), per-source metadata (Header), the pluggable
// format Codec, query intervals, offset-aware line readers, and the error
// classes reported when a source or its index cannot be trusted.
//
// Coordinates are 1-based and inclusive on both ends, as in VCF. Codecs for
// 0-based formats such as BED convert on decode.
package feature

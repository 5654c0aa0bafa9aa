// Package source resolves locations (local paths and URIs) to seekable byte
// channels. Each transport (local filesystem, in-memory filesystem, HTTP(S),
// FTP, S3) implements Transport; a Resolver maps URI schemes to transports
// and applies an optional Wrapper to every channel it opens.
//
// Opening a channel reads no content. Remote transports issue one metadata
// request (HEAD, SIZE, HeadObject) to learn the size, then one ranged read
// per seek.
package source

// Package fetcher downloads named documents from a remote blob store and
// keeps a local copy of each on disk.
//
// # Staleness
//
// A cached copy younger than maxAge is served without touching the network.
// Otherwise the remote last-modified time is queried; the copy is kept (and
// its timestamp refreshed) unless the remote object is newer. A failed
// last-modified lookup counts as "never modified", so transient errors keep
// serving the cache instead of forcing a download. A failed download falls
// back to the cached copy when there is one.
//
// # Cache layout
//
// Each remote path maps to one file in the cache directory, with path
// separators replaced by underscores. The time the copy was last validated
// and a blake2b-256 checksum of its bytes are kept in a prefs.Store under
// "cache_time:<name>" and "cache_sum:<name>". A checksum mismatch means the
// file is ignored.
//
// # Concurrency
//
// Fetches run on a bounded pool (2..4 slots). Network calls are bounded by
// fixed timeouts (10s for metadata, 60s for bodies); a caller whose context
// ends stops waiting, but the fetch itself is not cancelled and still
// updates the cache.
package fetcher

package fetcher

import (
	"context"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/filex"
	"github.com/dmitrijs2005/santatracker/internal/logging"
	"github.com/dmitrijs2005/santatracker/internal/prefs"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMetadataTimeout = 10 * time.Second
	DefaultDownloadTimeout = 60 * time.Second

	minWorkers = 2
	maxWorkers = 4
)

type Fetcher struct {
	blobs  BlobStore
	prefs  prefs.Store
	dir    string
	logger logging.Logger
	now    func() time.Time
	pool   *semaphore.Weighted

	// inflight collapses concurrent fetches of one cache file, so a file and
	// its cache metadata always come from the same download.
	inflight singleflight.Group

	metadataTimeout time.Duration
	downloadTimeout time.Duration
}

type Option func(*Fetcher)

// WithClock overrides the wall clock used for cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithWorkers sets the pool size, clamped to 2..4.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		n = max(minWorkers, min(maxWorkers, n))
		f.pool = semaphore.NewWeighted(int64(n))
	}
}

func WithTimeouts(metadata, download time.Duration) Option {
	return func(f *Fetcher) {
		f.metadataTimeout = metadata
		f.downloadTimeout = download
	}
}

func New(blobs BlobStore, store prefs.Store, dir string, logger logging.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		blobs:           blobs,
		prefs:           store,
		dir:             dir,
		logger:          logger.With("component", "fetcher"),
		now:             time.Now,
		pool:            semaphore.NewWeighted(minWorkers),
		metadataTimeout: DefaultMetadataTimeout,
		downloadTimeout: DefaultDownloadTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type result struct {
	data []byte
	ok   bool
}

// Fetch returns the content for path, from cache or remote. ok=false means
// no content is available; errors are logged, never returned.
func (f *Fetcher) Fetch(ctx context.Context, path string, maxAge time.Duration) ([]byte, bool) {
	if err := f.pool.Acquire(ctx, 1); err != nil {
		f.logger.Warn(ctx, "fetch abandoned while queued", "path", path, "error", err)
		return nil, false
	}

	done := make(chan result, 1)
	go func() {
		defer f.pool.Release(1)
		v, _, _ := f.inflight.Do(CacheName(path), func() (any, error) {
			data, ok := f.fetch(context.WithoutCancel(ctx), path, maxAge)
			return result{data: data, ok: ok}, nil
		})
		done <- v.(result)
	}()

	select {
	case r := <-done:
		return r.data, r.ok
	case <-ctx.Done():
		f.logger.Warn(ctx, "stopped waiting for fetch", "path", path, "error", ctx.Err())
		return nil, false
	}
}

func (f *Fetcher) fetch(ctx context.Context, path string, maxAge time.Duration) ([]byte, bool) {
	name := CacheName(path)

	cached, lastCache, ok := f.readCache(ctx, name)
	if !ok {
		return f.download(ctx, path, name, nil)
	}

	now := f.now()
	if maxAge > 0 && now.Sub(lastCache) <= maxAge {
		f.logger.Debug(ctx, "serving fresh cache", "path", path, "age", now.Sub(lastCache))
		return cached, true
	}

	remote := f.lastModified(ctx, path)
	if !lastCache.Before(remote) {
		if err := f.prefs.Set(ctx, timeKey(name), formatMillis(now)); err != nil {
			f.logger.Warn(ctx, "failed to refresh cache time", "path", path, "error", err)
		}
		f.logger.Debug(ctx, "cache still current", "path", path, "remote_modified", remote)
		return cached, true
	}

	return f.download(ctx, path, name, cached)
}

// lastModified returns the Unix epoch when the lookup fails.
func (f *Fetcher) lastModified(ctx context.Context, path string) time.Time {
	ctx, cancel := context.WithTimeout(ctx, f.metadataTimeout)
	defer cancel()

	t, err := f.blobs.LastModified(ctx, path)
	if err != nil {
		f.logger.Warn(ctx, "last-modified lookup failed, keeping cache", "path", path, "error", err)
		return time.Unix(0, 0)
	}
	return t
}

func (f *Fetcher) download(ctx context.Context, path, name string, fallback []byte) ([]byte, bool) {
	dctx, cancel := context.WithTimeout(ctx, f.downloadTimeout)
	defer cancel()

	data, err := f.blobs.Download(dctx, path)
	if err != nil {
		if fallback != nil {
			f.logger.Warn(ctx, "download failed, serving cache", "path", path, "error", err)
			return fallback, true
		}
		f.logger.Warn(ctx, "download failed, no cache", "path", path, "error", err)
		return nil, false
	}

	if err := f.writeCache(ctx, name, data); err != nil {
		f.logger.Warn(ctx, "failed to write cache", "path", path, "error", err)
	}
	f.logger.Info(ctx, "downloaded", "path", path, "bytes", len(data))
	return data, true
}

func (f *Fetcher) readCache(ctx context.Context, name string) ([]byte, time.Time, bool) {
	stamp, ok, err := f.prefs.Get(ctx, timeKey(name))
	if err != nil || !ok {
		return nil, time.Time{}, false
	}
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return nil, time.Time{}, false
	}

	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn(ctx, "failed to read cache file", "name", name, "error", err)
		}
		return nil, time.Time{}, false
	}

	sum, ok, err := f.prefs.Get(ctx, sumKey(name))
	if err != nil || !ok || sum != checksum(data) {
		f.logger.Warn(ctx, "cache checksum mismatch, ignoring copy", "name", name)
		return nil, time.Time{}, false
	}

	return data, time.UnixMilli(ms), true
}

func (f *Fetcher) writeCache(ctx context.Context, name string, data []byte) error {
	if err := filex.WriteFileAtomic(filepath.Join(f.dir, name), data, 0o640); err != nil {
		return err
	}

	if err := f.prefs.Set(ctx, sumKey(name), checksum(data)); err != nil {
		return err
	}
	return f.prefs.Set(ctx, timeKey(name), formatMillis(f.now()))
}

// CacheName maps a remote path to its cache file name.
func CacheName(path string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimPrefix(path, "/"))
}

func timeKey(name string) string { return "cache_time:" + name }
func sumKey(name string) string  { return "cache_sum:" + name }

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/logging"
	"github.com/dmitrijs2005/santatracker/internal/prefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobs struct {
	mu           sync.Mutex
	data         []byte
	modified     time.Time
	headErr      error
	downloadErr  error
	heads        int
	downloads    int
	block        chan struct{}
	inFlight     atomic.Int32
	peakInFlight atomic.Int32
}

func (f *fakeBlobs) LastModified(ctx context.Context, path string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads++
	return f.modified, f.headErr
}

func (f *fakeBlobs) Download(ctx context.Context, path string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peakInFlight.Load()
		if n <= peak || f.peakInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return append([]byte(nil), f.data...), nil
}

func (f *fakeBlobs) counts() (heads, downloads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heads, f.downloads
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	blobs *fakeBlobs
	store *prefs.FileStore
	clock *testClock
	dir   string
	f     *Fetcher
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	dir := t.TempDir()
	store, err := prefs.OpenFileStore(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err)

	e := &env{
		blobs: &fakeBlobs{data: []byte(`{"status":"OK"}`)},
		store: store,
		clock: &testClock{now: time.Date(2025, 12, 24, 8, 0, 0, 0, time.UTC)},
		dir:   filepath.Join(dir, "cache"),
	}
	opts = append([]Option{WithClock(e.clock.Now)}, opts...)
	e.f = New(e.blobs, store, e.dir, logging.NewNop(), opts...)
	return e
}

const routePath = "route/en/santa.json"

func TestFetch_NoCacheDownloadsAndStores(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"status":"OK"}`, string(data))

	onDisk, err := os.ReadFile(filepath.Join(e.dir, "route_en_santa.json"))
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	stamp, ok, err := e.store.Get(ctx, "cache_time:route_en_santa.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, formatMillis(e.clock.Now()), stamp)

	heads, downloads := e.blobs.counts()
	assert.Equal(t, 0, heads)
	assert.Equal(t, 1, downloads)
}

func TestFetch_NoCacheDownloadFails(t *testing.T) {
	e := newEnv(t)
	e.blobs.downloadErr = errors.New("network down")

	data, ok := e.f.Fetch(context.Background(), routePath, time.Minute)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestFetch_FreshCacheSkipsNetwork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)

	e.clock.Advance(30 * time.Second)
	e.blobs.data = []byte("changed")

	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"status":"OK"}`, string(data))

	heads, downloads := e.blobs.counts()
	assert.Equal(t, 0, heads)
	assert.Equal(t, 1, downloads)
}

func TestFetch_StaleCacheRemoteNotNewer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.blobs.modified = e.clock.Now().Add(-time.Hour)
	_, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)

	e.clock.Advance(10 * time.Minute)
	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"status":"OK"}`, string(data))

	heads, downloads := e.blobs.counts()
	assert.Equal(t, 1, heads)
	assert.Equal(t, 1, downloads)

	stamp, _, _ := e.store.Get(ctx, "cache_time:route_en_santa.json")
	assert.Equal(t, formatMillis(e.clock.Now()), stamp, "timestamp refreshed")
}

func TestFetch_StaleCacheRemoteNewer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)

	e.clock.Advance(10 * time.Minute)
	e.blobs.modified = e.clock.Now().Add(-time.Minute)
	e.blobs.data = []byte(`{"status":"NEW"}`)

	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"status":"NEW"}`, string(data))

	heads, downloads := e.blobs.counts()
	assert.Equal(t, 1, heads)
	assert.Equal(t, 2, downloads)
}

func TestFetch_ZeroMaxAgeAlwaysRevalidates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, ok := e.f.Fetch(ctx, routePath, 0)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		_, ok := e.f.Fetch(ctx, routePath, 0)
		require.True(t, ok)
	}

	heads, downloads := e.blobs.counts()
	assert.Equal(t, 3, heads)
	assert.Equal(t, 1, downloads)
}

func TestFetch_LastModifiedFailureKeepsCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)

	e.clock.Advance(time.Hour)
	e.blobs.headErr = errors.New("timeout")
	e.blobs.data = []byte("never fetched")

	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"status":"OK"}`, string(data))

	_, downloads := e.blobs.counts()
	assert.Equal(t, 1, downloads)
}

func TestFetch_DownloadFailureServesCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)

	e.clock.Advance(time.Hour)
	e.blobs.modified = e.clock.Now()
	e.blobs.downloadErr = errors.New("503")

	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"status":"OK"}`, string(data))
}

func TestFetch_CorruptCacheIsIgnored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, ok := e.f.Fetch(ctx, routePath, time.Hour)
	require.True(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "route_en_santa.json"), []byte("garbage"), 0o640))

	data, ok := e.f.Fetch(ctx, routePath, time.Hour)
	require.True(t, ok)
	assert.Equal(t, `{"status":"OK"}`, string(data))

	_, downloads := e.blobs.counts()
	assert.Equal(t, 2, downloads)
}

func TestFetch_CallerStopsWaiting(t *testing.T) {
	e := newEnv(t)
	e.blobs.block = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	assert.False(t, ok)
	assert.Nil(t, data)

	close(e.blobs.block)

	// the detached fetch still completes and fills the cache
	require.Eventually(t, func() bool {
		_, ok, _ := e.store.Get(context.Background(), "cache_time:route_en_santa.json")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFetch_PoolBoundsConcurrency(t *testing.T) {
	e := newEnv(t, WithWorkers(2))
	e.blobs.block = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.f.Fetch(context.Background(), filepath.Join("route", string(rune('a'+i)), "santa.json"), time.Minute)
		}(i)
	}

	require.Eventually(t, func() bool { return e.blobs.inFlight.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	close(e.blobs.block)
	wg.Wait()

	assert.Equal(t, int32(2), e.blobs.peakInFlight.Load())
}

func TestWithWorkers_Clamped(t *testing.T) {
	e := newEnv(t, WithWorkers(10))
	require.True(t, e.f.pool.TryAcquire(4))
	assert.False(t, e.f.pool.TryAcquire(1))
}

func TestCacheName(t *testing.T) {
	assert.Equal(t, "route_en_santa.json", CacheName("route/en/santa.json"))
	assert.Equal(t, "route_en_santa.json", CacheName("/route/en/santa.json"))
	assert.Equal(t, "a_b", CacheName(`a\b`))
}

func TestFetch_ConcurrentSamePathSharesOneDownload(t *testing.T) {
	e := newEnv(t, WithWorkers(4))
	e.blobs.block = make(chan struct{})
	ctx := context.Background()

	results := make(chan []byte, 2)
	for i := 0; i < 2; i++ {
		go func() {
			data, ok := e.f.Fetch(ctx, routePath, time.Minute)
			if !ok {
				data = nil
			}
			results <- data
		}()
	}

	require.Eventually(t, func() bool { return e.blobs.inFlight.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	// give the second caller time to join the pending download
	time.Sleep(50 * time.Millisecond)
	close(e.blobs.block)

	for i := 0; i < 2; i++ {
		assert.Equal(t, `{"status":"OK"}`, string(<-results))
	}

	_, downloads := e.blobs.counts()
	assert.Equal(t, 1, downloads)
	assert.Equal(t, int32(1), e.blobs.peakInFlight.Load())

	// the cache written by the shared download is intact and served as fresh
	data, ok := e.f.Fetch(ctx, routePath, time.Minute)
	require.True(t, ok)
	assert.Equal(t, `{"status":"OK"}`, string(data))
	_, downloads = e.blobs.counts()
	assert.Equal(t, 1, downloads)
}

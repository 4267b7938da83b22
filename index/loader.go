package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/internal/cache"
	"github.com/hupe1980/quarry/internal/codec"
	"github.com/hupe1980/quarry/internal/manifest"
	"github.com/hupe1980/quarry/resource"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the decoded segment cache budget in bytes.
const DefaultCacheSize = 64 << 20

// Loader reads and decodes segments. Decoded postings are cached by
// segment file, concurrent loads of the same file are coalesced, and
// blob reads are throttled by the resource controller.
type Loader struct {
	store  blobstore.BlobStore
	rc     *resource.Controller
	cache  *cache.LRU[*codec.Segment]
	group  singleflight.Group
	logger *slog.Logger
}

// NewLoader creates a loader with a cache of cacheBytes. rc may be nil.
func NewLoader(store blobstore.BlobStore, cacheBytes int64, rc *resource.Controller, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Loader{
		store:  store,
		rc:     rc,
		cache:  cache.NewLRU(cacheBytes, decodedSize, rc),
		logger: logger,
	}
	l.cache.OnEvict(func(key string, _ *codec.Segment) {
		l.logger.Debug("Segment evicted", "file", key)
	})
	return l
}

// Load returns the segment described by info with its deletions applied.
func (l *Loader) Load(ctx context.Context, info manifest.SegmentInfo) (*Segment, error) {
	data, err := l.postings(ctx, info.File)
	if err != nil {
		return nil, err
	}
	if data.DocCount != info.DocCount {
		return nil, fmt.Errorf("%w: %s holds %d docs, manifest says %d", codec.ErrCorrupt, info.File, data.DocCount, info.DocCount)
	}

	var deleted *roaring.Bitmap
	if info.DelFile != "" {
		raw, err := l.read(ctx, info.DelFile)
		if err != nil {
			return nil, err
		}
		deleted, err = codec.DecodeDeletes(raw, info.DocCount)
		if err != nil {
			return nil, fmt.Errorf("index: %s: %w", info.DelFile, err)
		}
	}
	return newSegment(info, data, deleted), nil
}

func (l *Loader) postings(ctx context.Context, file string) (*codec.Segment, error) {
	if data, ok := l.cache.Get(file); ok {
		return data, nil
	}

	v, err, _ := l.group.Do(file, func() (any, error) {
		raw, err := l.read(ctx, file)
		if err != nil {
			return nil, err
		}
		data, err := codec.DecodeSegment(raw)
		if err != nil {
			return nil, fmt.Errorf("index: %s: %w", file, err)
		}
		if !l.cache.Set(file, data) {
			l.logger.Debug("Segment not cached", "file", file, "bytes", decodedSize(data))
		}
		l.logger.Debug("Segment loaded", "file", file, "docs", data.DocCount, "blobBytes", len(raw))
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*codec.Segment), nil
}

// read fetches a whole blob through the IO limiter.
func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	b, err := l.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", name, err)
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	buf.Grow(int(b.Size()))
	if _, err := io.Copy(&buf, resource.NewRateLimitedReader(ctx, rc, l.rc)); err != nil {
		return nil, fmt.Errorf("index: read %s: %w", name, err)
	}
	if int64(buf.Len()) != b.Size() {
		return nil, fmt.Errorf("index: read %s: got %d of %d bytes", name, buf.Len(), b.Size())
	}
	return buf.Bytes(), nil
}

// Evict drops the cached postings of file.
func (l *Loader) Evict(file string) {
	l.cache.Remove(file)
}

// CacheStats returns the hit and miss counts of the decoded segment cache.
func (l *Loader) CacheStats() (hits, misses int64) {
	return l.cache.Stats()
}

// Close empties the cache and releases its memory reservation.
func (l *Loader) Close() error {
	return l.cache.Close()
}

// decodedSize estimates the heap footprint of a decoded segment.
func decodedSize(s *codec.Segment) int64 {
	var n int64
	for name, f := range s.Fields {
		n += int64(len(name)) + 4*int64(len(f.Lengths))
		for term, p := range f.Terms {
			n += int64(len(term)) + int64(p.Docs.GetSizeInBytes()) + 4*int64(len(p.Freqs))
		}
	}
	return n
}

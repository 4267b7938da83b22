package blobstore

import (
	"context"

	"github.com/hupe1980/quarry/internal/cache"
	"github.com/hupe1980/quarry/resource"
)

// CachingStore wraps a BlobStore and serves repeated reads of the same blob
// from memory. Blobs are fetched whole on first Open. Cached bytes are
// charged to the resource controller's memory limit; IO throttling is left
// to the reader, which sees cached and fetched blobs alike.
//
// Blobs named in uncached are mutable pointers that other processes may
// rewrite, so every Open of them goes to the inner store.
type CachingStore struct {
	inner    BlobStore
	cache    *cache.LRU[[]byte]
	uncached map[string]bool
}

// NewCachingStore caches up to capacity bytes of inner's blobs, except those
// named in uncached. rc may be nil.
func NewCachingStore(inner BlobStore, capacity int64, rc *resource.Controller, uncached ...string) *CachingStore {
	s := &CachingStore{
		inner:    inner,
		cache:    cache.NewLRU(capacity, func(b []byte) int64 { return int64(len(b)) }, rc),
		uncached: make(map[string]bool, len(uncached)),
	}
	for _, name := range uncached {
		s.uncached[name] = true
	}
	return s
}

// Open returns the cached contents of name, fetching them on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if s.uncached[name] {
		return s.inner.Open(ctx, name)
	}
	if data, ok := s.cache.Get(name); ok {
		return &bytesBlob{data: data}, nil
	}

	data, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, data)
	return &bytesBlob{data: data}, nil
}

// Create passes through; the cached copy is dropped once the write is published.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingBlob{WritableBlob: w, onClose: func() { s.cache.Remove(name) }}, nil
}

// Put writes through and invalidates the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob and its cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

// List passes through.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

// Close drops every cached blob.
func (s *CachingStore) Close() error {
	return s.cache.Close()
}

type invalidatingBlob struct {
	WritableBlob
	onClose func()
}

func (b *invalidatingBlob) Close() error {
	err := b.WritableBlob.Close()
	b.onClose()
	return err
}

package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/internal/manifest"
	"github.com/hupe1980/quarry/model"
	"github.com/hupe1980/quarry/search"
)

// openAttempts bounds retries when a commit lands while a reader opens.
const openAttempts = 3

// Reader is a point-in-time view of one commit point.
type Reader struct {
	manifest  *manifest.Manifest
	segments  []*Segment
	loader    *Loader
	ownLoader bool
}

// OpenReader opens the newest commit point in store. An index without
// commit points yields a reader with no segments.
func OpenReader(ctx context.Context, store blobstore.BlobStore, opts ...Option) (*Reader, error) {
	o := applyOptions(opts)
	loader, own := o.loader, false
	if loader == nil {
		loader, own = NewLoader(store, o.cacheBytes, o.rc, o.logger), true
	}
	ms := manifest.NewStore(store)

	var lastErr error
	for attempt := 0; attempt < openAttempts; attempt++ {
		m, err := ms.Load(ctx)
		switch {
		case errors.Is(err, manifest.ErrNotFound):
			m = manifest.New()
		case err != nil:
			lastErr = err
			if errors.Is(err, blobstore.ErrNotFound) {
				continue
			}
			return nil, closeOnError(loader, own, fmt.Errorf("index: load commit point: %w", err))
		}

		r, err := newReader(ctx, loader, m)
		if err == nil {
			r.ownLoader = own
			return r, nil
		}
		lastErr = err
		// A concurrent commit may have removed blobs of the commit point we read.
		if !errors.Is(err, blobstore.ErrNotFound) {
			break
		}
		o.logger.Debug("Commit point changed while opening, retrying", "generation", m.ID)
	}
	return nil, closeOnError(loader, own, lastErr)
}

func closeOnError(l *Loader, own bool, err error) error {
	if own {
		_ = l.Close()
	}
	return err
}

func newReader(ctx context.Context, loader *Loader, m *manifest.Manifest) (*Reader, error) {
	r := &Reader{
		manifest: m,
		segments: make([]*Segment, 0, len(m.Segments)),
		loader:   loader,
	}
	for _, si := range m.Segments {
		seg, err := loader.Load(ctx, si)
		if err != nil {
			return nil, err
		}
		r.segments = append(r.segments, seg)
	}
	return r, nil
}

// Generation returns the id of the commit point, 0 for an empty index.
func (r *Reader) Generation() uint64 { return r.manifest.ID }

// Segments returns the segments, oldest first.
func (r *Reader) Segments() []*Segment { return r.segments }

// SegmentReaders returns the segments as search.SegmentReader values.
func (r *Reader) SegmentReaders() []search.SegmentReader {
	out := make([]search.SegmentReader, len(r.segments))
	for i, s := range r.segments {
		out[i] = s
	}
	return out
}

// NumDocs returns the number of live documents.
func (r *Reader) NumDocs() int64 {
	var n int64
	for _, s := range r.segments {
		n += int64(s.NumDocs())
	}
	return n
}

// NewestSegment returns the most recently created segment, or nil if
// the commit point holds no segments.
func (r *Reader) NewestSegment() *model.SegmentInfo {
	return newestSegment(r.manifest)
}

// Close releases the reader's own segment cache, if it has one.
func (r *Reader) Close() error {
	if r.ownLoader {
		return r.loader.Close()
	}
	return nil
}

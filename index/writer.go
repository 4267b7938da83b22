package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/internal/codec"
	"github.com/hupe1980/quarry/internal/manifest"
	"github.com/hupe1980/quarry/model"
	"github.com/hupe1980/quarry/resource"
)

const segmentExt = ".qsg"

func segmentName(id model.SegmentID) string {
	return fmt.Sprintf("seg-%06d", id)
}

func delFileName(segment string, generation uint64) string {
	return fmt.Sprintf("%s-%d.del", segment, generation)
}

type termKey struct{ field, term string }

// Writer adds and deletes documents and publishes commit points.
// All methods are safe for concurrent use; commits are serialized.
type Writer struct {
	mu        sync.Mutex
	store     blobstore.BlobStore
	manifests *manifest.Store
	loader    *Loader
	ownLoader bool
	opts      options

	current *manifest.Manifest
	buffer  *segmentBuilder
	deletes []termKey
	closed  bool
}

// Open opens the index in store, creating an empty one if no commit
// point exists. Commit points older than the current one, left behind by
// an interrupted commit, are removed together with the blobs only they
// reference. Nothing else is written until the first Commit.
func Open(ctx context.Context, store blobstore.BlobStore, opts ...Option) (*Writer, error) {
	o := applyOptions(opts)
	ms := manifest.NewStore(store)

	m, err := ms.Load(ctx)
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		m = manifest.New()
	case err != nil:
		return nil, fmt.Errorf("index: load commit point: %w", err)
	}

	loader, own := o.loader, false
	if loader == nil {
		loader, own = NewLoader(store, o.cacheBytes, o.rc, o.logger), true
	}

	w := &Writer{
		store:     store,
		manifests: ms,
		loader:    loader,
		ownLoader: own,
		opts:      o,
		current:   m,
		buffer:    newSegmentBuilder(),
	}
	w.removeStaleCommits(ctx)

	o.logger.Info("Index opened", "generation", m.ID, "segments", len(m.Segments))
	return w, nil
}

// removeStaleCommits garbage collects commit points older than the current
// one. Newer ids are left alone: they may belong to a commit in flight.
func (w *Writer) removeStaleCommits(ctx context.Context) {
	ids, err := w.manifests.ListVersions(ctx)
	if err != nil {
		w.opts.logger.Warn("Failed to list commit points", "error", err)
		return
	}
	for _, id := range ids {
		if id >= w.current.ID {
			break
		}
		prev, err := w.manifests.LoadVersion(ctx, id)
		if err != nil {
			w.opts.logger.Warn("Dropping unreadable commit point", "generation", id, "error", err)
			prev = &manifest.Manifest{ID: id}
		}
		w.opts.logger.Debug("Removing stale commit point", "generation", id)
		w.collectGarbage(ctx, prev, w.current)
	}
}

// AddDocument buffers doc. It becomes searchable after the next Commit.
func (w *Writer) AddDocument(doc Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.buffer.add(doc)
}

// DeleteTerm deletes every document whose field contains term. Buffered
// documents are deleted immediately; committed ones on the next Commit.
// Documents added later are not affected. The term is lowercased.
func (w *Writer) DeleteTerm(field, term string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if field == "" {
		return ErrEmptyField
	}
	term = strings.ToLower(term)
	w.buffer.deleteTerm(field, term)
	if len(w.current.Segments) > 0 {
		w.deletes = append(w.deletes, termKey{field, term})
	}
	return nil
}

// Pending returns the number of buffered documents and pending deletes.
func (w *Writer) Pending() (docs int, deletes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int(w.buffer.docCount), len(w.deletes)
}

// Generation returns the id of the newest commit point, 0 if none.
func (w *Writer) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.ID
}

// Commit flushes buffered documents into a new segment, applies pending
// deletes and publishes a new commit point. A commit without changes is
// a no-op once the index has been committed at least once.
func (w *Writer) Commit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.buffer.empty() && len(w.deletes) == 0 && w.current.ID > 0 {
		return nil
	}

	start := time.Now()
	next := w.current.Clone()
	generation := w.current.ID + 1
	var written []string

	fail := func(err error) error {
		for _, name := range written {
			_ = w.store.Delete(ctx, name)
		}
		return err
	}

	if len(w.deletes) > 0 {
		segs, files, err := w.applyDeletes(ctx, next.Segments, generation)
		written = append(written, files...)
		if err != nil {
			return fail(err)
		}
		next.Segments = segs
	}

	var flushed *manifest.SegmentInfo
	if !w.buffer.empty() && w.buffer.live() > 0 {
		if err := checkDocSpace(next.Segments, w.buffer.docCount); err != nil {
			return fail(err)
		}
		info, files, err := w.flush(ctx, next, generation)
		written = append(written, files...)
		if err != nil {
			return fail(err)
		}
		next.Segments = append(next.Segments, info)
		flushed = &info
	}

	if err := w.manifests.Save(ctx, next); err != nil {
		return fail(fmt.Errorf("index: publish commit point: %w", err))
	}

	prev := w.current
	w.current = next
	w.buffer = newSegmentBuilder()
	w.deletes = nil

	w.collectGarbage(ctx, prev, next)

	attrs := []any{
		"generation", next.ID,
		"segments", len(next.Segments),
		"duration", time.Since(start),
	}
	if flushed != nil {
		attrs = append(attrs, "newSegment", flushed.Name, "docs", flushed.DocCount, "bytes", flushed.Size)
	}
	w.opts.logger.Info("Commit completed", attrs...)
	return nil
}

// applyDeletes returns the segment list with pending deletes applied and
// the deletion blobs it wrote. Fully deleted segments are dropped.
func (w *Writer) applyDeletes(ctx context.Context, segs []manifest.SegmentInfo, generation uint64) ([]manifest.SegmentInfo, []string, error) {
	var (
		out     = make([]manifest.SegmentInfo, 0, len(segs))
		written []string
	)
	for _, si := range segs {
		seg, err := w.loader.Load(ctx, si)
		if err != nil {
			return nil, written, err
		}

		deleted := roaring.New()
		if d := seg.Deleted(); d != nil {
			deleted = d.Clone()
		}
		before := deleted.GetCardinality()
		for _, t := range w.deletes {
			if bm, _ := seg.Postings(t.field, t.term); bm != nil {
				deleted.Or(bm)
			}
		}
		count := deleted.GetCardinality()
		if count == before {
			out = append(out, si)
			continue
		}

		si.DelCount = int32(count)
		if si.DelCount >= si.DocCount {
			w.opts.logger.Info("Segment fully deleted", "segment", si.Name)
			continue
		}

		name := delFileName(si.Name, generation)
		if err := w.putDeletes(ctx, name, deleted, si.DocCount); err != nil {
			return nil, written, err
		}
		written = append(written, name)
		si.DelFile = name
		out = append(out, si)
	}
	return out, written, nil
}

// flush encodes the buffer as a new segment and writes its blobs.
func (w *Writer) flush(ctx context.Context, next *manifest.Manifest, generation uint64) (manifest.SegmentInfo, []string, error) {
	id := next.NextSegmentID
	next.NextSegmentID++
	name := segmentName(id)

	data, err := codec.EncodeSegment(w.buffer.build(), w.opts.compression)
	if err != nil {
		return manifest.SegmentInfo{}, nil, fmt.Errorf("index: encode %s: %w", name, err)
	}

	info := manifest.SegmentInfo{
		SegmentInfo: model.SegmentInfo{
			ID:        id,
			Name:      name,
			DocCount:  w.buffer.docCount,
			DelCount:  int32(w.buffer.deleted.GetCardinality()),
			Size:      int64(len(data)),
			Codec:     w.opts.compression.String(),
			CreatedAt: time.Now().UTC(),
		},
		File: name + segmentExt,
	}

	var written []string
	if err := w.writeBlob(ctx, info.File, data); err != nil {
		return info, written, err
	}
	written = append(written, info.File)

	if info.DelCount > 0 {
		info.DelFile = delFileName(name, generation)
		if err := w.putDeletes(ctx, info.DelFile, w.buffer.deleted, info.DocCount); err != nil {
			return info, written, err
		}
		written = append(written, info.DelFile)
	}
	return info, written, nil
}

func (w *Writer) putDeletes(ctx context.Context, name string, deleted *roaring.Bitmap, docCount int32) error {
	data, err := codec.EncodeDeletes(deleted, docCount)
	if err != nil {
		return fmt.Errorf("index: encode %s: %w", name, err)
	}
	if err := w.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("index: write %s: %w", name, err)
	}
	return nil
}

// writeBlob streams data into a new blob through the IO limiter.
func (w *Writer) writeBlob(ctx context.Context, name string, data []byte) error {
	blob, err := w.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("index: create %s: %w", name, err)
	}
	if _, err := resource.NewRateLimitedWriter(ctx, blob, w.opts.rc).Write(data); err != nil {
		_ = blob.Close()
		_ = w.store.Delete(ctx, name)
		return fmt.Errorf("index: write %s: %w", name, err)
	}
	if err := blob.Sync(); err != nil {
		_ = blob.Close()
		return fmt.Errorf("index: sync %s: %w", name, err)
	}
	if err := blob.Close(); err != nil {
		return fmt.Errorf("index: close %s: %w", name, err)
	}
	return nil
}

// checkDocSpace fails if adding a segment of pending documents to segs would
// push global DocIDs past the last valid one.
func checkDocSpace(segs []manifest.SegmentInfo, pending int32) error {
	total := int64(pending)
	for _, s := range segs {
		total += int64(s.DocCount)
	}
	if total >= int64(model.NoMoreDocs) {
		return fmt.Errorf("%w: commit would hold %d documents", ErrTooManyDocs, total)
	}
	return nil
}

// collectGarbage removes blobs referenced by prev but not by next, and
// the previous commit point. Failures are logged and left for later.
func (w *Writer) collectGarbage(ctx context.Context, prev, next *manifest.Manifest) {
	live := next.Files()
	for _, name := range prev.Files() {
		if slices.Contains(live, name) {
			continue
		}
		w.loader.Evict(name)
		if err := w.store.Delete(ctx, name); err != nil {
			w.opts.logger.Warn("Failed to delete obsolete blob", "blob", name, "error", err)
		}
	}
	if prev.ID > 0 {
		if err := w.manifests.DeleteVersion(ctx, prev.ID); err != nil {
			w.opts.logger.Warn("Failed to delete obsolete commit point", "generation", prev.ID, "error", err)
		}
	}
}

// NewestSegment returns the most recently created committed segment, or
// nil if the index holds no segments.
func (w *Writer) NewestSegment() *model.SegmentInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return newestSegment(w.current)
}

func newestSegment(m *manifest.Manifest) *model.SegmentInfo {
	var newest *model.SegmentInfo
	for i := range m.Segments {
		s := m.Segments[i].SegmentInfo
		if newest == nil || s.ID > newest.ID {
			newest = &s
		}
	}
	return newest
}

// Segments returns the committed segments, oldest first.
func (w *Writer) Segments() []model.SegmentInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.SegmentInfo, len(w.current.Segments))
	for i, s := range w.current.Segments {
		out[i] = s.SegmentInfo
	}
	return out
}

// Reader opens a reader on the newest commit point, sharing the writer's
// segment cache.
func (w *Writer) Reader(ctx context.Context) (*Reader, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	m := w.current.Clone()
	w.mu.Unlock()

	return newReader(ctx, w.loader, m)
}

// Close releases the writer. Uncommitted changes are discarded.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if docs := w.buffer.docCount; docs > 0 || len(w.deletes) > 0 {
		w.opts.logger.Warn("Discarding uncommitted changes", "docs", docs, "deletes", len(w.deletes))
	}
	w.buffer = newSegmentBuilder()
	w.deletes = nil
	if w.ownLoader {
		return w.loader.Close()
	}
	return nil
}

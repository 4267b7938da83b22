package index

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/internal/codec"
	"github.com/hupe1980/quarry/internal/manifest"
	"github.com/hupe1980/quarry/model"
	"github.com/hupe1980/quarry/search"
	"github.com/hupe1980/quarry/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = "body"

func addDocs(t *testing.T, w *Writer, texts ...string) {
	t.Helper()
	for _, text := range texts {
		require.NoError(t, w.AddDocument(Document{body: text}))
	}
}

func openWriter(t *testing.T, store blobstore.BlobStore, opts ...Option) *Writer {
	t.Helper()
	w, err := Open(context.Background(), store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func docsOf(td model.TopDocs) []model.DocID {
	out := make([]model.DocID, len(td.ScoreDocs))
	for i, sd := range td.ScoreDocs {
		out[i] = sd.Doc
	}
	return out
}

func newSearcher(t *testing.T, r *Reader, opts ...search.Option) *search.Searcher {
	t.Helper()
	s, err := search.NewSearcher(r.SegmentReaders(), opts...)
	require.NoError(t, err)
	return s
}

func blobNames(t *testing.T, store blobstore.BlobStore) []string {
	t.Helper()
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	return names
}

func TestFreshIndexHasNoNewestSegment(t *testing.T) {
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)

	assert.Nil(t, w.NewestSegment())
	assert.Empty(t, w.Segments())
	assert.Zero(t, w.Generation())

	r, err := OpenReader(context.Background(), store)
	require.NoError(t, err)
	defer r.Close()
	assert.Nil(t, r.NewestSegment())
	assert.Empty(t, r.Segments())
	assert.Zero(t, r.NumDocs())
}

func TestEmptyCommitPublishesGeneration(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)

	require.NoError(t, w.Commit(ctx))
	assert.Equal(t, uint64(1), w.Generation())
	assert.Nil(t, w.NewestSegment())

	require.NoError(t, w.Commit(ctx))
	assert.Equal(t, uint64(1), w.Generation(), "commit without changes is a no-op")
	assert.Equal(t, []string{"CURRENT", "commit-000001.json"}, blobNames(t, store))
}

func TestCommitCreatesSegments(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)

	addDocs(t, w, "a b", "b c", "a a")
	docs, _ := w.Pending()
	assert.Equal(t, 3, docs)
	require.NoError(t, w.Commit(ctx))

	newest := w.NewestSegment()
	require.NotNil(t, newest)
	assert.Equal(t, "seg-000001", newest.Name)
	assert.Equal(t, int32(3), newest.DocCount)
	assert.Equal(t, "lz4", newest.Codec)
	assert.Positive(t, newest.Size)
	assert.Equal(t, []string{"CURRENT", "commit-000001.json", "seg-000001.qsg"}, blobNames(t, store))

	addDocs(t, w, "c", "a")
	require.NoError(t, w.Commit(ctx))
	assert.Equal(t, "seg-000002", w.NewestSegment().Name)
	assert.Len(t, w.Segments(), 2)
	assert.Equal(t, []string{"CURRENT", "commit-000002.json", "seg-000001.qsg", "seg-000002.qsg"}, blobNames(t, store))

	r, err := OpenReader(ctx, store)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.Segments(), 2)
	assert.Equal(t, uint64(2), r.Generation())
	assert.Equal(t, int64(5), r.NumDocs())
	assert.Equal(t, "seg-000002", r.NewestSegment().Name)

	seg := r.Segments()[0]
	bm, freqs := seg.Postings(body, "a")
	require.NotNil(t, bm)
	assert.Equal(t, []uint32{0, 2}, bm.ToArray())
	assert.Equal(t, []uint32{1, 2}, freqs)
	assert.Equal(t, 2, seg.FieldLength(body, 1))
	dc, sl := seg.FieldStats(body)
	assert.Equal(t, int64(3), dc)
	assert.Equal(t, int64(6), sl)
	assert.Nil(t, seg.Deleted())
}

func TestUncommittedDocsAreInvisible(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)

	addDocs(t, w, "a")
	require.NoError(t, w.Commit(ctx))
	addDocs(t, w, "a", "a")

	r, err := w.Reader(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.NumDocs())
}

func TestSearchOverCommittedSegments(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)

	addDocs(t, w, "a b", "b c", "a a")
	require.NoError(t, w.Commit(ctx))
	addDocs(t, w, "c", "a")
	require.NoError(t, w.Commit(ctx))

	r, err := w.Reader(ctx)
	require.NoError(t, err)
	s := newSearcher(t, r)

	td, err := s.Search(ctx, search.NewTermQuery(body, "a"), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), td.TotalHits)
	assert.Equal(t, []model.DocID{2, 4, 0}, docsOf(td))
}

func TestDeleteTermOnCommittedSegments(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)

	addDocs(t, w, "a b", "b c", "a a")
	require.NoError(t, w.Commit(ctx))

	require.NoError(t, w.DeleteTerm(body, "B"))
	_, deletes := w.Pending()
	assert.Equal(t, 1, deletes)
	require.NoError(t, w.Commit(ctx))

	segs := w.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, int32(2), segs[0].DelCount)
	assert.Equal(t, int32(1), segs[0].LiveDocs())

	r, err := w.Reader(ctx)
	require.NoError(t, err)
	require.Len(t, r.Segments(), 1)
	assert.Equal(t, []uint32{0, 1}, r.Segments()[0].Deleted().ToArray())
	assert.Equal(t, "seg-000001-2.del", r.Segments()[0].Files().DelFile)

	td, err := newSearcher(t, r).Search(ctx, search.NewTermQuery(body, "a"), 10)
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{2}, docsOf(td))
	assert.Equal(t, int64(1), td.TotalHits)

	// Deleting the last live document drops the segment and its blobs.
	require.NoError(t, w.DeleteTerm(body, "a"))
	require.NoError(t, w.Commit(ctx))
	assert.Nil(t, w.NewestSegment())
	assert.Equal(t, []string{"CURRENT", "commit-000003.json"}, blobNames(t, store))
}

func TestDeleteTermOnBufferedDocs(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)

	addDocs(t, w, "a b", "c")
	require.NoError(t, w.DeleteTerm(body, "a"))
	addDocs(t, w, "a x")
	_, deletes := w.Pending()
	assert.Zero(t, deletes)
	require.NoError(t, w.Commit(ctx))

	newest := w.NewestSegment()
	require.NotNil(t, newest)
	assert.Equal(t, int32(3), newest.DocCount)
	assert.Equal(t, int32(1), newest.DelCount)

	r, err := w.Reader(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.NumDocs())

	td, err := newSearcher(t, r).Search(ctx, search.NewTermQuery(body, "a"), 10)
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{2}, docsOf(td))
}

func TestFullyDeletedBufferWritesNoSegment(t *testing.T) {
	ctx := context.Background()
	w := openWriter(t, blobstore.NewMemoryStore())

	addDocs(t, w, "a", "a b")
	require.NoError(t, w.DeleteTerm(body, "a"))
	require.NoError(t, w.Commit(ctx))
	assert.Nil(t, w.NewestSegment())
	assert.Equal(t, uint64(1), w.Generation())
}

func TestReopenContinuesSegmentIDs(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w, err := Open(ctx, store)
	require.NoError(t, err)
	addDocs(t, w, "a")
	require.NoError(t, w.Commit(ctx))
	require.NoError(t, w.Close())

	w = openWriter(t, store, WithCompression(codec.CompressionZSTD))
	assert.Equal(t, uint64(1), w.Generation())
	addDocs(t, w, "b")
	require.NoError(t, w.Commit(ctx))

	newest := w.NewestSegment()
	require.NotNil(t, newest)
	assert.Equal(t, model.SegmentID(2), newest.ID)
	assert.Equal(t, "zstd", newest.Codec)
}

func TestOpenRemovesStaleCommitPoints(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w, err := Open(ctx, store)
	require.NoError(t, err)
	addDocs(t, w, "a")
	require.NoError(t, w.Commit(ctx))
	addDocs(t, w, "b")
	require.NoError(t, w.Commit(ctx))
	require.NoError(t, w.Close())

	// A commit point whose garbage collection never ran, plus the blob only it references.
	stale := manifest.New()
	stale.ID = 1
	stale.Segments = []manifest.SegmentInfo{{File: "seg-000099.qsg"}}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, manifest.FileName(1), data))
	require.NoError(t, store.Put(ctx, "seg-000099.qsg", []byte("orphan")))
	// A commit point newer than CURRENT may belong to a writer in flight.
	require.NoError(t, store.Put(ctx, manifest.FileName(7), []byte("{}")))

	w = openWriter(t, store)
	assert.Equal(t, uint64(2), w.Generation())

	names := blobNames(t, store)
	assert.NotContains(t, names, manifest.FileName(1))
	assert.NotContains(t, names, "seg-000099.qsg")
	assert.Contains(t, names, manifest.FileName(2))
	assert.Contains(t, names, manifest.FileName(7))
	assert.Contains(t, names, "seg-000001.qsg")
	assert.Contains(t, names, "seg-000002.qsg")

	r, err := w.Reader(ctx)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(2), r.NumDocs())
}

func TestCommitRejectsDocIDOverflow(t *testing.T) {
	segs := []manifest.SegmentInfo{
		{SegmentInfo: model.SegmentInfo{ID: 1, DocCount: int32(model.NoMoreDocs / 2)}},
		{SegmentInfo: model.SegmentInfo{ID: 2, DocCount: int32(model.NoMoreDocs / 2)}},
	}
	require.NoError(t, checkDocSpace(segs, 0))
	assert.ErrorIs(t, checkDocSpace(segs, 1), ErrTooManyDocs)
	assert.NoError(t, checkDocSpace(segs[:1], 3))
}

func TestClosedWriter(t *testing.T) {
	w, err := Open(context.Background(), blobstore.NewMemoryStore())
	require.NoError(t, err)
	addDocs(t, w, "a")
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.AddDocument(Document{body: "b"}), ErrClosed)
	assert.ErrorIs(t, w.DeleteTerm(body, "a"), ErrClosed)
	assert.ErrorIs(t, w.Commit(context.Background()), ErrClosed)
	_, err = w.Reader(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEmptyFieldName(t *testing.T) {
	w := openWriter(t, blobstore.NewMemoryStore())
	assert.ErrorIs(t, w.AddDocument(Document{"": "a"}), ErrEmptyField)
	assert.ErrorIs(t, w.DeleteTerm("", "a"), ErrEmptyField)
}

func TestMultipleFields(t *testing.T) {
	ctx := context.Background()
	w := openWriter(t, blobstore.NewMemoryStore())

	require.NoError(t, w.AddDocument(Document{"title": "Quarry", body: "a b c"}))
	require.NoError(t, w.AddDocument(Document{body: "a"}))
	require.NoError(t, w.AddDocument(Document{"title": "stone quarry"}))
	require.NoError(t, w.Commit(ctx))

	r, err := w.Reader(ctx)
	require.NoError(t, err)
	seg := r.Segments()[0]

	bm, _ := seg.Postings("title", "quarry")
	require.NotNil(t, bm)
	assert.Equal(t, []uint32{0, 2}, bm.ToArray())
	assert.Equal(t, 0, seg.FieldLength("title", 1))
	assert.Equal(t, 0, seg.FieldLength(body, 2))
	assert.Equal(t, 0, seg.FieldLength("missing", 0))

	dc, sl := seg.FieldStats("title")
	assert.Equal(t, int64(2), dc)
	assert.Equal(t, int64(3), sl)
}

func TestCorruptSegment(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w := openWriter(t, store)
	addDocs(t, w, "a")
	require.NoError(t, w.Commit(ctx))

	require.NoError(t, store.Put(ctx, "seg-000001.qsg", []byte("QSEG garbage that fails its checksum")))

	_, err := OpenReader(ctx, store)
	assert.ErrorIs(t, err, codec.ErrCorrupt)
}

func TestReaderSharesSegmentCache(t *testing.T) {
	ctx := context.Background()
	w := openWriter(t, blobstore.NewMemoryStore())
	addDocs(t, w, "a")
	require.NoError(t, w.Commit(ctx))

	for i := 0; i < 2; i++ {
		_, err := w.Reader(ctx)
		require.NoError(t, err)
	}
	hits, misses := w.loader.CacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

// flakyStore fails every Put of one blob while armed.
type flakyStore struct {
	blobstore.BlobStore
	name  string
	armed atomic.Bool
}

func (s *flakyStore) Put(ctx context.Context, name string, data []byte) error {
	if s.armed.Load() && name == s.name {
		return errors.New("injected failure")
	}
	return s.BlobStore.Put(ctx, name, data)
}

func TestFailedCommitLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{BlobStore: blobstore.NewMemoryStore(), name: "CURRENT"}
	store.armed.Store(true)
	w := openWriter(t, store)

	addDocs(t, w, "a", "b")
	require.Error(t, w.Commit(ctx))
	assert.Empty(t, blobNames(t, store))
	assert.Zero(t, w.Generation())
	docs, _ := w.Pending()
	assert.Equal(t, 2, docs)

	store.armed.Store(false)
	require.NoError(t, w.Commit(ctx))
	require.NotNil(t, w.NewestSegment())
	assert.Equal(t, "seg-000001", w.NewestSegment().Name)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "quick", "fox"}, Tokenize("  The\tQUICK\nfox "))
	assert.Empty(t, Tokenize("   "))
}

func TestRandomCorpusMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(99)
	bodies := rng.Corpus(300, 8, 40)

	w := openWriter(t, blobstore.NewMemoryStore(), WithCompression(codec.CompressionZSTD))
	for i, text := range bodies {
		addDocs(t, w, text)
		if i%75 == 74 {
			require.NoError(t, w.Commit(ctx))
		}
	}
	require.NoError(t, w.DeleteTerm(body, testutil.Word(7)))
	require.NoError(t, w.Commit(ctx))

	r, err := w.Reader(ctx)
	require.NoError(t, err)
	s := newSearcher(t, r, search.WithProtocolChecks(true))

	for _, word := range []int{0, 1, 3, 12, 25} {
		term := testutil.Word(word)
		want := []model.DocID{}
		for i, text := range bodies {
			tokens := strings.Fields(text)
			if slices.Contains(tokens, term) && !slices.Contains(tokens, testutil.Word(7)) {
				want = append(want, model.DocID(i))
			}
		}

		td, err := s.Search(ctx, search.NewTermQuery(body, term), len(bodies))
		require.NoError(t, err)
		got := docsOf(td)
		slices.Sort(got)
		assert.Equal(t, want, got, "term %s", term)
		assert.Equal(t, int64(len(want)), td.TotalHits)
	}
}

package quarry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/quarry"
	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/model"
	"github.com/hupe1980/quarry/resource"
	"github.com/hupe1980/quarry/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T, store blobstore.BlobStore, opts ...quarry.Option) *quarry.DB {
	t.Helper()
	db, err := quarry.Open(context.Background(), store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addBodies(t *testing.T, db *quarry.DB, bodies ...string) {
	t.Helper()
	for _, b := range bodies {
		require.NoError(t, db.Add(context.Background(), quarry.Document{quarry.DefaultField: b}))
	}
}

func docIDs(td model.TopDocs) []model.DocID {
	out := make([]model.DocID, len(td.ScoreDocs))
	for i, sd := range td.ScoreDocs {
		out[i] = sd.Doc
	}
	return out
}

func TestOpenEmpty(t *testing.T) {
	db := openDB(t, blobstore.NewMemoryStore())

	assert.Nil(t, db.NewestSegment())
	assert.Equal(t, uint64(0), db.Generation())
	assert.Equal(t, int64(0), db.NumDocs())

	td, err := db.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, td.ScoreDocs)
}

func TestOpenNilStore(t *testing.T) {
	_, err := quarry.Open(context.Background(), nil)
	require.Error(t, err)
}

func TestAddCommitSearch(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore())

	addBodies(t, db, "a b", "b c", "a a")

	td, err := db.Search(ctx, "a", 10)
	require.NoError(t, err)
	assert.Empty(t, td.ScoreDocs, "uncommitted documents must not be visible")

	require.NoError(t, db.Commit(ctx))
	addBodies(t, db, "c", "a")
	require.NoError(t, db.Commit(ctx))

	td, err = db.Search(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), td.TotalHits)
	assert.Equal(t, []model.DocID{2, 4, 0}, docIDs(td))

	newest := db.NewestSegment()
	require.NotNil(t, newest)
	assert.Equal(t, model.SegmentID(2), newest.ID)
	assert.Equal(t, int32(2), newest.DocCount)
	assert.Len(t, db.Segments(), 2)
	assert.Equal(t, int64(5), db.NumDocs())
	assert.Equal(t, uint64(2), db.Generation())
}

func TestSearchTopK(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore())

	addBodies(t, db, "a b", "b c", "a a", "c", "a")
	require.NoError(t, db.Commit(ctx))

	td, err := db.Search(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), td.TotalHits)
	require.Len(t, td.ScoreDocs, 1)
	assert.Equal(t, model.DocID(2), td.ScoreDocs[0].Doc)
}

func TestSearchBooleanSyntax(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore())

	addBodies(t, db, "apple banana", "apple cherry", "banana cherry")
	require.NoError(t, db.Commit(ctx))

	td, err := db.Search(ctx, "+apple -cherry", 10)
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{0}, docIDs(td))

	td, err = db.Search(ctx, "+Cherry", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.DocID{1, 2}, docIDs(td))
}

func TestSearchInvalidK(t *testing.T) {
	db := openDB(t, blobstore.NewMemoryStore())

	for _, k := range []int{0, -1} {
		_, err := db.Search(context.Background(), "a", k)
		assert.ErrorIs(t, err, quarry.ErrInvalidK)
	}
}

func TestSearchQueryNil(t *testing.T) {
	db := openDB(t, blobstore.NewMemoryStore())

	_, err := db.SearchQuery(context.Background(), nil, 10)
	assert.ErrorIs(t, err, quarry.ErrInvalidArgument)
}

func TestSearchWithField(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore(), quarry.WithDefaultField("title"))

	require.NoError(t, db.Add(ctx, quarry.Document{"title": "go", "body": "rust"}))
	require.NoError(t, db.Add(ctx, quarry.Document{"title": "rust", "body": "go"}))
	require.NoError(t, db.Commit(ctx))

	td, err := db.Search(ctx, "go", 10)
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{0}, docIDs(td))

	td, err = db.Search(ctx, "go", 10, quarry.WithField("body"))
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{1}, docIDs(td))
}

func TestSearchParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore(),
		quarry.WithResourceConfig(resource.Config{MaxSearchWorkers: 4}),
	)

	for i := 0; i < 4; i++ {
		addBodies(t, db, "x y", "x", "y z", "x x z")
		require.NoError(t, db.Commit(ctx))
	}

	seq, err := db.Search(ctx, "x z", 5)
	require.NoError(t, err)
	par, err := db.Search(ctx, "x z", 5, quarry.WithParallel())
	require.NoError(t, err)

	assert.Equal(t, seq.TotalHits, par.TotalHits)
	assert.Equal(t, docIDs(seq), docIDs(par))
}

func TestSearchPositiveScoresOnly(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore())

	addBodies(t, db, "a", "b", "a b")
	require.NoError(t, db.Commit(ctx))

	td, err := db.SearchQuery(ctx, search.MatchAllQuery{}, 10, quarry.WithPositiveScoresOnly())
	require.NoError(t, err)
	assert.Len(t, td.ScoreDocs, 3)

	for _, par := range []bool{false, true} {
		opts := []quarry.SearchOption{quarry.WithPositiveScoresOnly()}
		if par {
			opts = append(opts, quarry.WithParallel())
		}
		td, err := db.SearchQuery(ctx, &search.BoostQuery{Query: search.NewTermQuery(quarry.DefaultField, "a"), Boost: -1}, 10, opts...)
		require.NoError(t, err)
		assert.Empty(t, td.ScoreDocs)
	}
}

func TestSearchCanceledContext(t *testing.T) {
	db := openDB(t, blobstore.NewMemoryStore())
	addBodies(t, db, "a")
	require.NoError(t, db.Commit(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Search(ctx, "a", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchTimeout(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore())
	addBodies(t, db, "a", "a b")
	require.NoError(t, db.Commit(ctx))

	td, err := db.Search(ctx, "a", 10, quarry.WithTimeout(time.Hour))
	require.NoError(t, err)
	assert.Len(t, td.ScoreDocs, 2)

	td, err = db.Search(ctx, "a", 10, quarry.WithTimeout(time.Nanosecond), quarry.WithParallel())
	if err != nil {
		assert.ErrorIs(t, err, quarry.ErrTimeout)
		assert.Empty(t, td.ScoreDocs)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore())

	addBodies(t, db, "red apple", "green apple", "red cherry")
	require.NoError(t, db.Commit(ctx))

	require.NoError(t, db.Delete(ctx, quarry.DefaultField, "RED"))

	td, err := db.Search(ctx, "red", 10)
	require.NoError(t, err)
	assert.Len(t, td.ScoreDocs, 2, "delete is visible only after commit")

	require.NoError(t, db.Commit(ctx))

	td, err = db.Search(ctx, "apple red cherry", 10)
	require.NoError(t, err)
	assert.Equal(t, []model.DocID{1}, docIDs(td))
	assert.Equal(t, int64(1), db.NumDocs())

	assert.ErrorIs(t, db.Delete(ctx, "", "red"), quarry.ErrInvalidArgument)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	store, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	db, err := quarry.Open(ctx, store, quarry.WithCompression(quarry.CompressionZSTD))
	require.NoError(t, err)
	addBodies(t, db, "persist me", "and me")
	require.NoError(t, db.Commit(ctx))
	addBodies(t, db, "lost")
	require.NoError(t, db.Close())

	db = openDB(t, store)
	assert.Equal(t, uint64(1), db.Generation())
	assert.Equal(t, int64(2), db.NumDocs())

	newest := db.NewestSegment()
	require.NotNil(t, newest)
	assert.Equal(t, "zstd", newest.Codec)

	td, err := db.Search(ctx, "me lost", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.DocID{0, 1}, docIDs(td))
}

func TestBlobCache(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore(), quarry.WithBlobCache(1<<20))

	addBodies(t, db, "cached")
	require.NoError(t, db.Commit(ctx))

	td, err := db.Search(ctx, "cached", 10)
	require.NoError(t, err)
	assert.Len(t, td.ScoreDocs, 1)
}

func TestClosedDB(t *testing.T) {
	ctx := context.Background()
	db, err := quarry.Open(ctx, blobstore.NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	assert.ErrorIs(t, db.Add(ctx, quarry.Document{"body": "x"}), quarry.ErrClosed)
	assert.ErrorIs(t, db.Delete(ctx, "body", "x"), quarry.ErrClosed)
	assert.ErrorIs(t, db.Commit(ctx), quarry.ErrClosed)
	_, err = db.Search(ctx, "x", 10)
	assert.ErrorIs(t, err, quarry.ErrClosed)
}

func TestMetricsCollector(t *testing.T) {
	ctx := context.Background()
	metrics := &quarry.BasicMetricsCollector{}
	db := openDB(t, blobstore.NewMemoryStore(), quarry.WithMetricsCollector(metrics))

	addBodies(t, db, "a", "b")
	require.NoError(t, db.Delete(ctx, "body", "a"))
	require.NoError(t, db.Commit(ctx))
	_, err := db.Search(ctx, "b", 10)
	require.NoError(t, err)
	_, err = db.Search(ctx, "b", 0)
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.AddCount)
	assert.Equal(t, int64(1), stats.DeleteCount)
	assert.Equal(t, int64(1), stats.CommitCount)
	assert.Equal(t, int64(2), stats.CommitDocs)
	assert.Equal(t, int64(2), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchErrors)
}

func TestConcurrentSearchAndCommit(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, blobstore.NewMemoryStore())
	addBodies(t, db, "seed")
	require.NoError(t, db.Commit(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				td, err := db.Search(ctx, "seed", 10)
				assert.NoError(t, err)
				assert.Len(t, td.ScoreDocs, 1)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		addBodies(t, db, "other")
		require.NoError(t, db.Commit(ctx))
	}
	wg.Wait()

	assert.Equal(t, int64(6), db.NumDocs())
}

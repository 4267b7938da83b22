package quarry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/index"
	"github.com/hupe1980/quarry/internal/manifest"
	"github.com/hupe1980/quarry/model"
	"github.com/hupe1980/quarry/resource"
	"github.com/hupe1980/quarry/search"
)

// Document maps field names to text.
type Document = index.Document

// DB is an embedded full-text index. All methods are safe for concurrent use.
// Searches run against the newest commit point and never see uncommitted
// changes.
type DB struct {
	mu       sync.RWMutex
	writer   *index.Writer
	loader   *index.Loader
	reader   *index.Reader
	searcher *search.Searcher
	closed   bool

	blobCache    *blobstore.CachingStore
	rc           *resource.Controller
	searcherOpts []search.Option

	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// Open opens the index in store, creating an empty one if store holds no
// commit point.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*DB, error) {
	if store == nil {
		return nil, errors.New("quarry: store is nil")
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	db := &DB{
		opts:    opts,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}
	if opts.resourceConfig != nil {
		db.rc = resource.NewController(*opts.resourceConfig)
	}
	if opts.blobCacheBytes > 0 {
		db.blobCache = blobstore.NewCachingStore(store, opts.blobCacheBytes, db.rc, manifest.CurrentFileName)
		store = db.blobCache
	}

	slogger := opts.logger.Logger
	db.loader = index.NewLoader(store, opts.cacheBytes, db.rc, slogger)
	db.searcherOpts = []search.Option{
		search.WithLogger(slogger),
		search.WithResourceController(db.rc),
		search.WithProtocolChecks(opts.protocolChecks),
	}

	w, err := index.Open(ctx, store,
		index.WithLogger(slogger),
		index.WithCompression(opts.compression),
		index.WithResourceController(db.rc),
		index.WithLoader(db.loader),
	)
	if err != nil {
		_ = db.release()
		return nil, translateError(err)
	}
	db.writer = w

	if err := db.refresh(ctx); err != nil {
		_ = w.Close()
		_ = db.release()
		return nil, err
	}
	return db, nil
}

// Add buffers doc. It becomes searchable after the next Commit.
func (db *DB) Add(ctx context.Context, doc Document) error {
	err := translateError(db.writer.AddDocument(doc))
	db.metrics.RecordAdd(err)
	db.logger.LogAdd(ctx, len(doc), err)
	return err
}

// Delete removes every document whose field contains term. The deletion
// becomes visible after the next Commit and does not affect documents
// added after this call.
func (db *DB) Delete(ctx context.Context, field, term string) error {
	err := translateError(db.writer.DeleteTerm(field, term))
	db.metrics.RecordDelete(err)
	db.logger.LogDelete(ctx, field, term, err)
	return err
}

// Commit makes buffered documents and deletions durable and searchable.
func (db *DB) Commit(ctx context.Context) (err error) {
	start := time.Now()
	docs, deletes := db.writer.Pending()
	defer func() {
		db.metrics.RecordCommit(docs, time.Since(start), err)
		db.logger.LogCommit(ctx, db.writer.Generation(), docs, deletes, err)
	}()

	if err := db.writer.Commit(ctx); err != nil {
		return translateError(err)
	}
	return db.refresh(ctx)
}

// refresh points searches at the writer's newest commit point.
func (db *DB) refresh(ctx context.Context) error {
	r, err := db.writer.Reader(ctx)
	if err != nil {
		return translateError(err)
	}
	s, err := search.NewSearcher(r.SegmentReaders(), db.searcherOpts...)
	if err != nil {
		_ = r.Close()
		return translateError(err)
	}

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		_ = r.Close()
		return ErrClosed
	}
	old := db.reader
	db.reader, db.searcher = r, s
	db.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search returns the k best documents for text, matched against the
// default field. See the package documentation for the query syntax.
func (db *DB) Search(ctx context.Context, text string, k int, optFns ...SearchOption) (model.TopDocs, error) {
	field := db.opts.defaultField
	if o := applySearchOptions(optFns); o.field != "" {
		field = o.field
	}
	return db.SearchQuery(ctx, search.ParseQuery(field, text), k, optFns...)
}

// SearchQuery returns the k best documents for q.
func (db *DB) SearchQuery(ctx context.Context, q search.Query, k int, optFns ...SearchOption) (td model.TopDocs, err error) {
	start := time.Now()
	defer func() {
		db.metrics.RecordSearch(k, time.Since(start), err)
		query := ""
		if q != nil {
			query = q.String()
		}
		db.logger.LogSearch(ctx, query, k, len(td.ScoreDocs), err)
	}()

	if k <= 0 {
		return model.TopDocs{}, ErrInvalidK
	}
	if q == nil {
		return model.TopDocs{}, ErrInvalidArgument
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return model.TopDocs{}, ErrClosed
	}

	o := applySearchOptions(optFns)
	if o.parallel {
		return db.searchParallel(ctx, q, k, o)
	}

	top := search.NewTopScoreCollector(k)
	var c search.Collector = top
	if o.positiveOnly {
		c = search.NewPositiveScoresOnlyCollector(c)
	}
	if o.timeout > 0 {
		c = search.NewTimeLimitingCollector(c, o.timeout)
	}

	err = db.searcher.SearchWith(ctx, q, c)
	if err != nil && !errors.Is(err, search.ErrTimeExceeded) {
		return model.TopDocs{}, translateError(err)
	}
	return top.TopDocs(), translateError(err)
}

func (db *DB) searchParallel(ctx context.Context, q search.Query, k int, o searchOptions) (model.TopDocs, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	var sopts []search.SearchOption
	if o.positiveOnly {
		sopts = append(sopts, search.WithPositiveScoresOnly())
	}
	td, err := db.searcher.SearchParallel(ctx, q, k, sopts...)
	if err != nil {
		return model.TopDocs{}, translateError(err)
	}
	return td, nil
}

// NewestSegment returns the most recently created committed segment, or
// nil if the index holds no segments.
func (db *DB) NewestSegment() *model.SegmentInfo {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.reader == nil {
		return nil
	}
	return db.reader.NewestSegment()
}

// Segments returns the committed segments, oldest first.
func (db *DB) Segments() []model.SegmentInfo {
	return db.writer.Segments()
}

// NumDocs returns the number of live committed documents.
func (db *DB) NumDocs() int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.reader == nil {
		return 0
	}
	return db.reader.NumDocs()
}

// Generation returns the id of the newest commit point, 0 if none.
func (db *DB) Generation() uint64 {
	return db.writer.Generation()
}

// CacheStats reports hits and misses of the decoded segment cache.
func (db *DB) CacheStats() (hits, misses int64) {
	return db.loader.CacheStats()
}

// Close releases resources held by the DB. Uncommitted changes are discarded.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	var firstErr error
	if err := db.writer.Close(); err != nil {
		firstErr = err
	}
	if db.reader != nil {
		if err := db.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		db.reader = nil
	}
	if err := db.release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (db *DB) release() error {
	var firstErr error
	if db.loader != nil {
		if err := db.loader.Close(); err != nil {
			firstErr = err
		}
	}
	if db.blobCache != nil {
		if err := db.blobCache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func applySearchOptions(optFns []SearchOption) searchOptions {
	var o searchOptions
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

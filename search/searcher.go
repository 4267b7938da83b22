package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/quarry/model"
	"github.com/hupe1980/quarry/resource"
	"golang.org/x/sync/errgroup"
)

const defaultCheckInterval = 1024

// Searcher runs queries over a fixed set of segments.
type Searcher struct {
	segments []SegmentReader
	docBases []model.DocID
	maxDoc   model.DocID
	stats    *CollectionStats

	rc         *resource.Controller
	logger     *slog.Logger
	checked    bool
	checkEvery int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResourceController bounds the concurrency of SearchParallel.
func WithResourceController(rc *resource.Controller) Option {
	return func(s *Searcher) {
		s.rc = rc
	}
}

// WithProtocolChecks wraps every scorer in a CheckedScorer.
func WithProtocolChecks(enabled bool) Option {
	return func(s *Searcher) {
		s.checked = enabled
	}
}

// WithCheckInterval sets how many documents are collected between context checks.
func WithCheckInterval(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.checkEvery = n
		}
	}
}

// NewSearcher creates a searcher over segs. Documents of segs[i] are
// numbered after all documents of segs[:i]. It fails with
// ErrInvalidArgument if the segments together hold more documents than
// DocID can address.
func NewSearcher(segs []SegmentReader, opts ...Option) (*Searcher, error) {
	s := &Searcher{
		segments:   segs,
		docBases:   make([]model.DocID, len(segs)),
		stats:      NewCollectionStats(segs),
		logger:     slog.Default(),
		checkEvery: defaultCheckInterval,
	}
	var total int64
	for i, seg := range segs {
		s.docBases[i] = model.DocID(total)
		total += int64(seg.MaxDoc())
		if total >= int64(model.NoMoreDocs) {
			return nil, fmt.Errorf("%w: segments hold more than %d documents", ErrInvalidArgument, int64(model.NoMoreDocs)-1)
		}
	}
	s.maxDoc = model.DocID(total)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxDoc returns one greater than the largest global document ID.
func (s *Searcher) MaxDoc() model.DocID { return s.maxDoc }

// Stats returns the collection statistics used for scoring.
func (s *Searcher) Stats() *CollectionStats { return s.stats }

// SearchOptions tune a single search.
type SearchOptions struct {
	// PositiveScoresOnly drops hits whose score is not a finite positive number.
	PositiveScoresOnly bool
}

// SearchOption configures a single search.
type SearchOption func(*SearchOptions)

// WithPositiveScoresOnly keeps only hits with a finite score > 0.
func WithPositiveScoresOnly() SearchOption {
	return func(o *SearchOptions) {
		o.PositiveScoresOnly = true
	}
}

// Search returns the n best hits of q.
func (s *Searcher) Search(ctx context.Context, q Query, n int, opts ...SearchOption) (model.TopDocs, error) {
	if n < 0 {
		return model.TopDocs{}, fmt.Errorf("%w: n must be >= 0, got %d", ErrInvalidArgument, n)
	}
	o := applySearchOptions(opts)

	top := NewTopScoreCollector(n)
	var c Collector = top
	if o.PositiveScoresOnly {
		c = NewPositiveScoresOnlyCollector(top)
	}
	if err := s.SearchWith(ctx, q, c); err != nil {
		return top.TopDocs(), err
	}
	return top.TopDocs(), nil
}

// SearchWith drives q over every segment into c.
//
// c receives SetSegment (when it implements SegmentCollector) and SetScorer
// once per segment, followed by one Collect per match. The context is
// checked between segments and periodically within a segment.
func (s *Searcher) SearchWith(ctx context.Context, q Query, c Collector) error {
	for i, seg := range s.segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.searchSegment(ctx, q, i, seg, c); err != nil {
			return err
		}
	}
	return nil
}

// SearchParallel searches segments concurrently, each into a private
// TopScoreCollector, and merges the results. Concurrency is bounded by the
// resource controller.
func (s *Searcher) SearchParallel(ctx context.Context, q Query, n int, opts ...SearchOption) (model.TopDocs, error) {
	if n < 0 {
		return model.TopDocs{}, fmt.Errorf("%w: n must be >= 0, got %d", ErrInvalidArgument, n)
	}
	o := applySearchOptions(opts)

	shards := make([]model.TopDocs, len(s.segments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range s.segments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.rc.ReleaseWorker()

			top := NewTopScoreCollector(n)
			var c Collector = top
			if o.PositiveScoresOnly {
				c = NewPositiveScoresOnlyCollector(top)
			}
			if err := s.searchSegment(gctx, q, i, seg, c); err != nil {
				return err
			}
			shards[i] = top.TopDocs()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.TopDocs{}, err
	}
	return MergeTopDocs(n, shards...), nil
}

func (s *Searcher) searchSegment(ctx context.Context, q Query, i int, seg SegmentReader, c Collector) error {
	info := seg.Info()
	if sc, ok := c.(SegmentCollector); ok {
		if err := sc.SetSegment(info, s.docBases[i]); err != nil {
			return err
		}
	}

	scorer, err := q.Scorer(seg, s.stats)
	if err != nil {
		return fmt.Errorf("segment %s: %w", info.Name, err)
	}
	if scorer == nil {
		return nil
	}
	scorer = NewLiveDocsScorer(scorer, seg.Deleted())
	if s.checked {
		scorer = NewCheckedScorer(scorer)
	}
	if err := c.SetScorer(scorer); err != nil {
		return err
	}

	var collected int
	for doc := scorer.Next(); doc != model.NoMoreDocs; doc = scorer.Next() {
		if err := c.Collect(doc); err != nil {
			return err
		}
		collected++
		if collected%s.checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	s.logger.Debug("Segment searched", "segment", info.Name, "query", q.String(), "collected", collected)
	return nil
}

func applySearchOptions(opts []SearchOption) SearchOptions {
	var o SearchOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

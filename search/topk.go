package search

import (
	"slices"

	"github.com/hupe1980/quarry/internal/hitqueue"
	"github.com/hupe1980/quarry/model"
)

// CollectorState is the lifecycle state of a TopScoreCollector.
type CollectorState int

const (
	// StateEmpty means no hit has been retained yet.
	StateEmpty CollectorState = iota
	// StateFilling means fewer than N hits are retained.
	StateFilling
	// StateFull means N hits are retained; new hits must beat the worst of them.
	StateFull
	// StateFinalized means TopDocs was called; further collection is rejected.
	StateFinalized
)

func (s CollectorState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFilling:
		return "filling"
	case StateFull:
		return "full"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// TopScoreCollector retains the N best-scoring hits of a stream in O(N) memory.
//
// Hits rank by descending score, ties by ascending DocID. Once N hits are
// held, a new hit replaces the worst one only if it ranks strictly better.
// Every Collect counts toward TotalHits, retained or not.
type TopScoreCollector struct {
	binding
	queue     *hitqueue.Queue
	docBase   model.DocID
	totalHits int64
	finalized bool
	result    model.TopDocs
}

// NewTopScoreCollector creates a collector for the n best hits.
// n = 0 retains nothing but still counts matches; a negative n is treated as 0.
func NewTopScoreCollector(n int) *TopScoreCollector {
	return &TopScoreCollector{queue: hitqueue.New(n)}
}

// SetScorer implements Collector.
func (c *TopScoreCollector) SetScorer(s Scorer) error {
	if c.finalized {
		return ErrFinalized
	}
	return c.bind(s)
}

// SetSegment implements SegmentCollector.
func (c *TopScoreCollector) SetSegment(_ model.SegmentInfo, docBase model.DocID) error {
	if c.finalized {
		return ErrFinalized
	}
	c.docBase = docBase
	return nil
}

// Collect implements Collector.
func (c *TopScoreCollector) Collect(doc model.DocID) error {
	if c.finalized {
		return ErrFinalized
	}
	if c.scorer == nil {
		return ErrNoScorer
	}
	score := c.scorer.Score()
	c.totalHits++
	c.queue.Offer(model.ScoreDoc{Doc: c.docBase + doc, Score: score})
	return nil
}

// TopDocs finalizes the collector and returns its hits, best first.
// Later calls return an identical result.
func (c *TopScoreCollector) TopDocs() model.TopDocs {
	if !c.finalized {
		c.result = model.TopDocs{TotalHits: c.totalHits, ScoreDocs: c.queue.Drain()}
		c.finalized = true
	}
	return model.TopDocs{TotalHits: c.result.TotalHits, ScoreDocs: slices.Clone(c.result.ScoreDocs)}
}

// Finalized reports whether TopDocs has been called.
func (c *TopScoreCollector) Finalized() bool { return c.finalized }

// State returns the lifecycle state.
func (c *TopScoreCollector) State() CollectorState {
	switch {
	case c.finalized:
		return StateFinalized
	case c.queue.Len() == 0:
		return StateEmpty
	case c.queue.Full():
		return StateFull
	default:
		return StateFilling
	}
}

// TotalHits returns the number of collected documents so far.
func (c *TopScoreCollector) TotalHits() int64 { return c.totalHits }

// Len returns the number of retained hits.
func (c *TopScoreCollector) Len() int { return c.queue.Len() }

// MinCompetitiveScore returns the score a hit must beat once the collector is full.
func (c *TopScoreCollector) MinCompetitiveScore() (float32, bool) {
	if c.finalized || !c.queue.Full() {
		return 0, false
	}
	top, ok := c.queue.Top()
	return top.Score, ok
}

package search

import (
	"math"

	"github.com/hupe1980/quarry/model"
)

// ScorePredicate decides whether a hit with the given score is forwarded.
type ScorePredicate func(score float32) bool

// PositiveScore accepts finite scores strictly greater than zero.
func PositiveScore(score float32) bool {
	return score > 0 && !math.IsInf(float64(score), 1)
}

// FilterCollector wraps another collector and forwards only the hits whose
// score passes a predicate. Rejected hits never reach the inner collector.
// Document order and scores are passed through untouched.
type FilterCollector struct {
	binding
	inner    Collector
	pred     ScorePredicate
	rejected int64
}

// NewFilterCollector creates a decorator over inner.
func NewFilterCollector(inner Collector, pred ScorePredicate) *FilterCollector {
	return &FilterCollector{inner: inner, pred: pred}
}

// NewPositiveScoresOnlyCollector creates a decorator that drops hits with a
// score that is not a finite number greater than zero.
func NewPositiveScoresOnlyCollector(inner Collector) *FilterCollector {
	return NewFilterCollector(inner, PositiveScore)
}

// SetScorer binds the decorator and the inner collector to the same scorer.
func (f *FilterCollector) SetScorer(s Scorer) error {
	if err := f.check(s); err != nil {
		return err
	}
	if err := f.inner.SetScorer(s); err != nil {
		return err
	}
	f.scorer = s
	return nil
}

// SetSegment forwards to the inner collector when it is segment aware.
func (f *FilterCollector) SetSegment(info model.SegmentInfo, docBase model.DocID) error {
	if sc, ok := f.inner.(SegmentCollector); ok {
		return sc.SetSegment(info, docBase)
	}
	return nil
}

// Collect reads the score once and forwards doc if it passes.
func (f *FilterCollector) Collect(doc model.DocID) error {
	if f.scorer == nil {
		return ErrNoScorer
	}
	if finalized(f.inner) {
		return ErrFinalized
	}
	if !f.pred(f.scorer.Score()) {
		f.rejected++
		return nil
	}
	return f.inner.Collect(doc)
}

// Finalized reports whether the inner collector has been finalized.
func (f *FilterCollector) Finalized() bool { return finalized(f.inner) }

// Rejected returns the number of absorbed hits.
func (f *FilterCollector) Rejected() int64 { return f.rejected }

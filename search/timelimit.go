package search

import (
	"fmt"
	"time"

	"github.com/hupe1980/quarry/model"
)

// TimeLimitingCollector wraps a collector and fails the first Collect that
// happens after its budget has elapsed. Hits collected before that remain
// in the inner collector.
type TimeLimitingCollector struct {
	inner    Collector
	budget   time.Duration
	now      func() time.Time
	deadline time.Time
}

// NewTimeLimitingCollector creates a decorator allowing budget of collection time,
// measured from the first SetScorer call.
func NewTimeLimitingCollector(inner Collector, budget time.Duration) *TimeLimitingCollector {
	return &TimeLimitingCollector{inner: inner, budget: budget, now: time.Now}
}

// WithClock replaces the time source.
func (t *TimeLimitingCollector) WithClock(now func() time.Time) *TimeLimitingCollector {
	t.now = now
	return t
}

func (t *TimeLimitingCollector) SetScorer(s Scorer) error {
	if t.deadline.IsZero() {
		t.deadline = t.now().Add(t.budget)
	}
	return t.inner.SetScorer(s)
}

func (t *TimeLimitingCollector) SetSegment(info model.SegmentInfo, docBase model.DocID) error {
	if sc, ok := t.inner.(SegmentCollector); ok {
		return sc.SetSegment(info, docBase)
	}
	return nil
}

func (t *TimeLimitingCollector) Collect(doc model.DocID) error {
	if now := t.now(); !t.deadline.IsZero() && now.After(t.deadline) {
		return fmt.Errorf("%w: %v over budget of %v at %s", ErrTimeExceeded, now.Sub(t.deadline), t.budget, doc)
	}
	return t.inner.Collect(doc)
}

// Finalized reports whether the inner collector has been finalized.
func (t *TimeLimitingCollector) Finalized() bool { return finalized(t.inner) }

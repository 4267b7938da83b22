package search

import (
	"errors"

	"github.com/hupe1980/quarry/model"
)

// Collector receives every matching document of the scorer it is bound to.
type Collector interface {
	// SetScorer binds the collector to s. It must be called before the first
	// Collect of a stream and again whenever the stream changes. Rebinding
	// while the previous scorer is mid-stream returns ErrRebindMidStream.
	SetScorer(s Scorer) error
	// Collect is called once the bound scorer is positioned on doc and doc
	// matched. The collector may call Score on the bound scorer during the
	// call, never after it returns.
	Collect(doc model.DocID) error
}

// SegmentCollector is implemented by collectors that need to know which
// segment the next stream belongs to. docBase is added to segment-local
// document IDs to make them index-global.
type SegmentCollector interface {
	Collector
	SetSegment(info model.SegmentInfo, docBase model.DocID) error
}

// FinalizingCollector is implemented by collectors that stop accepting hits
// once their result has been read. Decorators consult it so that a finalized
// collector is reported even for hits they would have absorbed.
type FinalizingCollector interface {
	Collector
	Finalized() bool
}

func finalized(c Collector) bool {
	fc, ok := c.(FinalizingCollector)
	return ok && fc.Finalized()
}

// binding tracks the scorer a collector is bound to.
type binding struct {
	scorer Scorer
}

// check validates that s may replace the current binding.
func (b *binding) check(s Scorer) error {
	if b.scorer == nil || b.scorer == s {
		return nil
	}
	if d := b.scorer.DocID(); d != model.BeforeFirst && d != model.NoMoreDocs {
		return ErrRebindMidStream
	}
	return nil
}

func (b *binding) bind(s Scorer) error {
	if err := b.check(s); err != nil {
		return err
	}
	b.scorer = s
	return nil
}

// TotalHitCountCollector only counts matches.
type TotalHitCountCollector struct {
	binding
	total int64
}

// NewTotalHitCountCollector creates a counting collector.
func NewTotalHitCountCollector() *TotalHitCountCollector {
	return &TotalHitCountCollector{}
}

func (c *TotalHitCountCollector) SetScorer(s Scorer) error { return c.bind(s) }

func (c *TotalHitCountCollector) Collect(model.DocID) error {
	if c.scorer == nil {
		return ErrNoScorer
	}
	c.total++
	return nil
}

// TotalHits returns the number of collected documents.
func (c *TotalHitCountCollector) TotalHits() int64 { return c.total }

// MultiCollector forwards every call to several collectors.
type MultiCollector struct {
	collectors []Collector
}

// NewMultiCollector creates a collector fanning out to collectors.
func NewMultiCollector(collectors ...Collector) *MultiCollector {
	return &MultiCollector{collectors: collectors}
}

func (m *MultiCollector) SetScorer(s Scorer) error {
	var errs []error
	for _, c := range m.collectors {
		if err := c.SetScorer(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiCollector) SetSegment(info model.SegmentInfo, docBase model.DocID) error {
	var errs []error
	for _, c := range m.collectors {
		if sc, ok := c.(SegmentCollector); ok {
			if err := sc.SetSegment(info, docBase); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiCollector) Collect(doc model.DocID) error {
	var errs []error
	for _, c := range m.collectors {
		if err := c.Collect(doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

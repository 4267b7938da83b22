package search

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/model"
)

// Scorer is a DocIterator with a score for the current document.
//
// Score is valid only while DocID is a real document. Calling it before the
// first advance or after exhaustion panics with a *ProtocolError, except
// where an implementation documents otherwise.
type Scorer interface {
	DocIterator
	Score() float32
}

// ConstantScorer gives every document of an iterator the same score.
type ConstantScorer struct {
	DocIterator
	score float32
}

// NewConstantScorer creates a scorer that scores every match of it as score.
func NewConstantScorer(it DocIterator, score float32) *ConstantScorer {
	return &ConstantScorer{DocIterator: it, score: score}
}

func (s *ConstantScorer) Score() float32 {
	checkScore(s.DocID())
	return s.score
}

// ArrayScorer scores the dense documents 0..len(scores)-1 from a table.
//
// Once exhausted, Score reports NaN instead of panicking: a table scorer has no
// meaningful score past its end, and collectors must tolerate NaN.
type ArrayScorer struct {
	scores []float32
	idx    int
}

// NewArrayScorer creates a scorer over scores.
func NewArrayScorer(scores []float32) *ArrayScorer {
	return &ArrayScorer{scores: scores, idx: -1}
}

func (s *ArrayScorer) DocID() model.DocID {
	switch {
	case s.idx < 0:
		return model.BeforeFirst
	case s.idx >= len(s.scores):
		return model.NoMoreDocs
	}
	return model.DocID(s.idx)
}

func (s *ArrayScorer) Next() model.DocID {
	if s.idx < len(s.scores) {
		s.idx++
	}
	return s.DocID()
}

func (s *ArrayScorer) Advance(target model.DocID) model.DocID {
	checkAdvance(s.DocID(), target)
	if int64(target) >= int64(len(s.scores)) {
		s.idx = len(s.scores)
	} else if s.idx < len(s.scores) {
		s.idx = int(target)
	}
	return s.DocID()
}

func (s *ArrayScorer) Cost() int64 { return int64(len(s.scores)) }

func (s *ArrayScorer) Score() float32 {
	if s.idx >= len(s.scores) {
		return float32(math.NaN())
	}
	checkScore(s.DocID())
	return s.scores[s.idx]
}

// BoostScorer multiplies the score of another scorer.
type BoostScorer struct {
	Scorer
	boost float32
}

// NewBoostScorer creates a scorer whose scores are in's scores times boost.
func NewBoostScorer(in Scorer, boost float32) *BoostScorer {
	return &BoostScorer{Scorer: in, boost: boost}
}

func (s *BoostScorer) Score() float32 {
	return s.Scorer.Score() * s.boost
}

// ConjunctionScorer matches documents present in every child and sums their scores.
type ConjunctionScorer struct {
	*ConjunctionIterator
	children []Scorer
}

// NewConjunctionScorer creates an AND scorer. children must not be empty.
func NewConjunctionScorer(children ...Scorer) *ConjunctionScorer {
	its := make([]DocIterator, len(children))
	for i, c := range children {
		its[i] = c
	}
	return &ConjunctionScorer{
		ConjunctionIterator: NewConjunctionIterator(its...),
		children:            children,
	}
}

func (s *ConjunctionScorer) Score() float32 {
	checkScore(s.DocID())
	var sum float32
	for _, c := range s.children {
		sum += c.Score()
	}
	return sum
}

// DisjunctionScorer matches documents present in any child and sums the
// scores of the children positioned on the current document.
type DisjunctionScorer struct {
	*DisjunctionIterator
	children []Scorer
}

// NewDisjunctionScorer creates an OR scorer.
func NewDisjunctionScorer(children ...Scorer) *DisjunctionScorer {
	its := make([]DocIterator, len(children))
	for i, c := range children {
		its[i] = c
	}
	return &DisjunctionScorer{
		DisjunctionIterator: NewDisjunctionIterator(its...),
		children:            children,
	}
}

func (s *DisjunctionScorer) Score() float32 {
	doc := s.DocID()
	checkScore(doc)
	var sum float32
	for _, c := range s.children {
		if c.DocID() == doc {
			sum += c.Score()
		}
	}
	return sum
}

// ReqExclScorer matches documents of a required scorer absent from an excluded iterator.
type ReqExclScorer struct {
	*ExclusionIterator
	req Scorer
}

// NewReqExclScorer creates a scorer over req minus excl, scored by req.
func NewReqExclScorer(req Scorer, excl DocIterator) *ReqExclScorer {
	return &ReqExclScorer{ExclusionIterator: NewExclusionIterator(req, excl), req: req}
}

func (s *ReqExclScorer) Score() float32 {
	checkScore(s.DocID())
	return s.req.Score()
}

// ReqOptScorer matches the documents of a required scorer and adds the score
// of an optional scorer when it also matches.
type ReqOptScorer struct {
	Scorer
	opt Scorer
}

// NewReqOptScorer creates a scorer driven by req with optional contributions from opt.
func NewReqOptScorer(req, opt Scorer) *ReqOptScorer {
	return &ReqOptScorer{Scorer: req, opt: opt}
}

func (s *ReqOptScorer) Score() float32 {
	doc := s.DocID()
	score := s.Scorer.Score()
	o := s.opt.DocID()
	if o < doc {
		o = s.opt.Advance(doc)
	}
	if o == doc {
		score += s.opt.Score()
	}
	return score
}

// LiveDocsScorer hides deleted documents of a segment from another scorer.
type LiveDocsScorer struct {
	Scorer
	deleted *roaring.Bitmap
}

// NewLiveDocsScorer wraps s so that documents in deleted are skipped.
// It returns s unchanged when there are no deletions.
func NewLiveDocsScorer(s Scorer, deleted *roaring.Bitmap) Scorer {
	if deleted == nil || deleted.IsEmpty() {
		return s
	}
	return &LiveDocsScorer{Scorer: s, deleted: deleted}
}

func (s *LiveDocsScorer) Next() model.DocID {
	return s.skipDeleted(s.Scorer.Next())
}

func (s *LiveDocsScorer) Advance(target model.DocID) model.DocID {
	return s.skipDeleted(s.Scorer.Advance(target))
}

func (s *LiveDocsScorer) skipDeleted(d model.DocID) model.DocID {
	for d != model.NoMoreDocs && s.deleted.Contains(uint32(d)) {
		d = s.Scorer.Next()
	}
	return d
}

// CheckedScorer verifies the iterator contract of the scorer it wraps and
// panics with a *ProtocolError on the first violation.
type CheckedScorer struct {
	Scorer
	last model.DocID
}

// NewCheckedScorer wraps s with contract checks.
func NewCheckedScorer(s Scorer) *CheckedScorer {
	return &CheckedScorer{Scorer: s, last: model.BeforeFirst}
}

func (s *CheckedScorer) Next() model.DocID {
	return s.observe("next", s.Scorer.Next())
}

func (s *CheckedScorer) Advance(target model.DocID) model.DocID {
	checkAdvance(s.Scorer.DocID(), target)
	d := s.observe("advance", s.Scorer.Advance(target))
	if d < target {
		panic(&ProtocolError{Op: "advance", Doc: d, Target: target, Msg: "iterator returned a document below target"})
	}
	return d
}

func (s *CheckedScorer) Score() float32 {
	if s.last == model.BeforeFirst {
		checkScore(model.BeforeFirst)
	}
	return s.Scorer.Score()
}

func (s *CheckedScorer) observe(op string, d model.DocID) model.DocID {
	switch {
	case s.last == model.NoMoreDocs && d != model.NoMoreDocs:
		panic(&ProtocolError{Op: op, Doc: d, Msg: "iterator resumed after exhaustion"})
	case s.last != model.NoMoreDocs && d <= s.last:
		panic(&ProtocolError{Op: op, Doc: d, Msg: "iterator did not move forward"})
	}
	s.last = d
	return d
}

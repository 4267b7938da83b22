package search

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/model"
)

// SegmentReader is the view of one immutable segment that queries consume.
type SegmentReader interface {
	Info() model.SegmentInfo
	// MaxDoc is one greater than the largest document ID in the segment.
	MaxDoc() model.DocID
	// Postings returns the documents containing term in field and their term
	// frequencies, or a nil bitmap if the term does not occur.
	Postings(field, term string) (*roaring.Bitmap, []uint32)
	// FieldLength returns the number of tokens of field in doc.
	FieldLength(field string, doc model.DocID) int
	// FieldStats returns the number of documents with field and the sum of their lengths.
	FieldStats(field string) (docCount, sumLength int64)
	// Deleted returns the deleted documents, or nil if there are none.
	Deleted() *roaring.Bitmap
}

// Query produces a Scorer for a segment.
type Query interface {
	// Scorer returns a scorer over the matches in seg, or nil if nothing can match.
	Scorer(seg SegmentReader, stats *CollectionStats) (Scorer, error)
	String() string
}

// TermQuery matches documents containing a term, scored with BM25.
type TermQuery struct {
	Field string
	Term  string
	BM25  *BM25
}

// NewTermQuery creates a term query with default BM25 parameters.
func NewTermQuery(field, term string) *TermQuery {
	return &TermQuery{Field: field, Term: term}
}

func (q *TermQuery) Scorer(seg SegmentReader, stats *CollectionStats) (Scorer, error) {
	bm, freqs := seg.Postings(q.Field, q.Term)
	if bm == nil || bm.IsEmpty() {
		return nil, nil
	}
	params := DefaultBM25
	if q.BM25 != nil {
		params = *q.BM25
	}
	docCount, sumLength := stats.FieldStats(q.Field)
	avg := 1.0
	if docCount > 0 {
		avg = float64(sumLength) / float64(docCount)
	}
	field := q.Field
	return NewTermScorer(NewPostingsIterator(bm, freqs), TermScorerConfig{
		Params:    params,
		DocFreq:   stats.DocFreq(q.Field, q.Term),
		DocCount:  docCount,
		AvgLength: avg,
		Length:    func(doc model.DocID) int { return seg.FieldLength(field, doc) },
	}), nil
}

func (q *TermQuery) String() string { return q.Field + ":" + q.Term }

// MatchAllQuery matches every document with a constant score of 1.
type MatchAllQuery struct{}

func (MatchAllQuery) Scorer(seg SegmentReader, _ *CollectionStats) (Scorer, error) {
	if seg.MaxDoc() <= 0 {
		return nil, nil
	}
	return NewConstantScorer(NewAllDocsIterator(seg.MaxDoc()), 1), nil
}

func (MatchAllQuery) String() string { return "*:*" }

// BoostQuery multiplies the scores of another query.
type BoostQuery struct {
	Query Query
	Boost float32
}

func (q *BoostQuery) Scorer(seg SegmentReader, stats *CollectionStats) (Scorer, error) {
	s, err := q.Query.Scorer(seg, stats)
	if err != nil || s == nil {
		return nil, err
	}
	return NewBoostScorer(s, q.Boost), nil
}

func (q *BoostQuery) String() string { return fmt.Sprintf("(%s)^%g", q.Query, q.Boost) }

// BooleanQuery combines required, optional and prohibited clauses.
//
// With required clauses, only documents matching all of them match, and
// optional clauses add to the score. Without required clauses, a document
// must match at least one optional clause. Prohibited clauses remove matches.
type BooleanQuery struct {
	Must    []Query
	Should  []Query
	MustNot []Query
}

func (q *BooleanQuery) Scorer(seg SegmentReader, stats *CollectionStats) (Scorer, error) {
	var must []Scorer
	for _, c := range q.Must {
		s, err := c.Scorer(seg, stats)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, nil
		}
		must = append(must, s)
	}
	should, err := scorers(q.Should, seg, stats)
	if err != nil {
		return nil, err
	}
	mustNot, err := scorers(q.MustNot, seg, stats)
	if err != nil {
		return nil, err
	}

	var req Scorer
	switch {
	case len(must) > 0:
		req = conjunction(must)
		if len(should) > 0 {
			req = NewReqOptScorer(req, disjunction(should))
		}
	case len(should) > 0:
		req = disjunction(should)
	default:
		return nil, nil
	}

	if len(mustNot) > 0 {
		excl := make([]DocIterator, len(mustNot))
		for i, s := range mustNot {
			excl[i] = s
		}
		var it DocIterator = excl[0]
		if len(excl) > 1 {
			it = NewDisjunctionIterator(excl...)
		}
		req = NewReqExclScorer(req, it)
	}
	return req, nil
}

func (q *BooleanQuery) String() string {
	var parts []string
	for _, c := range q.Must {
		parts = append(parts, "+"+c.String())
	}
	for _, c := range q.Should {
		parts = append(parts, c.String())
	}
	for _, c := range q.MustNot {
		parts = append(parts, "-"+c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func scorers(qs []Query, seg SegmentReader, stats *CollectionStats) ([]Scorer, error) {
	var out []Scorer
	for _, q := range qs {
		s, err := q.Scorer(seg, stats)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func conjunction(ss []Scorer) Scorer {
	if len(ss) == 1 {
		return ss[0]
	}
	return NewConjunctionScorer(ss...)
}

func disjunction(ss []Scorer) Scorer {
	if len(ss) == 1 {
		return ss[0]
	}
	return NewDisjunctionScorer(ss...)
}

// ParseQuery turns whitespace separated terms into a BooleanQuery on field.
// A leading '+' makes a term required and a leading '-' prohibits it; other
// terms are optional. Terms are lowercased.
func ParseQuery(field, text string) Query {
	bq := &BooleanQuery{}
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		switch {
		case strings.HasPrefix(tok, "+") && len(tok) > 1:
			bq.Must = append(bq.Must, NewTermQuery(field, tok[1:]))
		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			bq.MustNot = append(bq.MustNot, NewTermQuery(field, tok[1:]))
		default:
			bq.Should = append(bq.Should, NewTermQuery(field, tok))
		}
	}
	if len(bq.Must) == 0 && len(bq.MustNot) == 0 && len(bq.Should) == 1 {
		return bq.Should[0]
	}
	return bq
}

package search

import (
	"math"

	"github.com/hupe1980/quarry/model"
)

// BM25 holds the parameters of the BM25 ranking function.
type BM25 struct {
	K1 float64
	B  float64
}

// DefaultBM25 uses the standard parameters k1=1.2, b=0.75.
var DefaultBM25 = BM25{K1: 1.2, B: 0.75}

// IDF computes log(1 + (N - n + 0.5) / (n + 0.5)).
func (p BM25) IDF(docFreq, docCount int64) float64 {
	n := float64(docFreq)
	N := float64(docCount)
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}

// TermScorer scores a posting list with BM25.
type TermScorer struct {
	*PostingsIterator
	params    BM25
	weight    float64 // idf * boost
	avgLength float64
	length    func(doc model.DocID) int
}

// TermScorerConfig carries the collection statistics a TermScorer needs.
type TermScorerConfig struct {
	Params    BM25
	DocFreq   int64
	DocCount  int64
	AvgLength float64
	Boost     float32
	// Length returns the field length (in tokens) of a document.
	Length func(doc model.DocID) int
}

// NewTermScorer creates a BM25 scorer over postings.
func NewTermScorer(postings *PostingsIterator, cfg TermScorerConfig) *TermScorer {
	boost := cfg.Boost
	if boost == 0 {
		boost = 1
	}
	avg := cfg.AvgLength
	if avg <= 0 {
		avg = 1
	}
	return &TermScorer{
		PostingsIterator: postings,
		params:           cfg.Params,
		weight:           cfg.Params.IDF(cfg.DocFreq, cfg.DocCount) * float64(boost),
		avgLength:        avg,
		length:           cfg.Length,
	}
}

func (s *TermScorer) Score() float32 {
	doc := s.DocID()
	checkScore(doc)
	tf := float64(s.Freq())
	dl := s.avgLength
	if s.length != nil {
		dl = float64(s.length(doc))
	}
	k1, b := s.params.K1, s.params.B
	num := tf * (k1 + 1)
	denom := tf + k1*(1-b+b*(dl/s.avgLength))
	return float32(s.weight * (num / denom))
}

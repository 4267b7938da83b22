package model

import (
	"fmt"
	"math"
	"time"
)

// DocID is a dense document identifier, ascending within one iteration stream.
type DocID int32

const (
	// BeforeFirst is the position of an iterator before its first advance.
	BeforeFirst DocID = -1
	// NoMoreDocs is the position of an exhausted iterator. It is never a real document.
	NoMoreDocs DocID = math.MaxInt32
)

// Valid reports whether d denotes a real document (neither sentinel).
func (d DocID) Valid() bool {
	return d >= 0 && d != NoMoreDocs
}

// String returns a string representation of the DocID.
func (d DocID) String() string {
	switch d {
	case BeforeFirst:
		return "Doc(before-first)"
	case NoMoreDocs:
		return "Doc(exhausted)"
	default:
		return fmt.Sprintf("Doc(%d)", int32(d))
	}
}

// SegmentID is the unique identifier for a segment within an index.
type SegmentID uint64

// ScoreDoc is a scored hit.
type ScoreDoc struct {
	Doc   DocID
	Score float32
}

// String returns a string representation of the ScoreDoc.
func (s ScoreDoc) String() string {
	return fmt.Sprintf("%s=%g", s.Doc, s.Score)
}

// Better reports whether a ranks strictly better than b.
//
// Higher scores rank better. Equal scores fall back to the lower DocID.
// NaN ranks below every number (including -Inf); two NaNs compare equal
// on score, so the DocID rule decides.
func Better(a, b ScoreDoc) bool {
	aNaN, bNaN := a.Score != a.Score, b.Score != b.Score
	switch {
	case aNaN && !bNaN:
		return false
	case !aNaN && bNaN:
		return true
	case !aNaN && a.Score != b.Score:
		return a.Score > b.Score
	}
	return a.Doc < b.Doc
}

// Worse reports whether a ranks strictly worse than b.
func Worse(a, b ScoreDoc) bool {
	return Better(b, a)
}

// TopDocs is the finalized result of a top-K collection.
type TopDocs struct {
	// TotalHits counts every document that matched, including those not retained.
	TotalHits int64
	// ScoreDocs holds the retained hits, best first.
	ScoreDocs []ScoreDoc
}

// MaxScore returns the best score, or NaN if there are no hits.
func (td TopDocs) MaxScore() float32 {
	if len(td.ScoreDocs) == 0 {
		return float32(math.NaN())
	}
	return td.ScoreDocs[0].Score
}

// SegmentInfo describes a single committed segment.
type SegmentInfo struct {
	ID        SegmentID `json:"id"`
	Name      string    `json:"name"`
	DocCount  int32     `json:"doc_count"`
	DelCount  int32     `json:"del_count"`
	Size      int64     `json:"size"`
	Codec     string    `json:"codec"`
	CreatedAt time.Time `json:"created_at"`
}

// LiveDocs returns the number of documents that are not deleted.
func (s SegmentInfo) LiveDocs() int32 {
	return s.DocCount - s.DelCount
}

// String returns a string representation of the SegmentInfo.
func (s SegmentInfo) String() string {
	return fmt.Sprintf("Seg(%d:%s docs=%d)", s.ID, s.Name, s.DocCount)
}

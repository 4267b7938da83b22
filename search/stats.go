package search

import "sync"

// CollectionStats aggregates term and field statistics over a set of segments.
// Statistics are computed on first use and cached; it is safe for concurrent use.
type CollectionStats struct {
	segments []SegmentReader

	mu       sync.Mutex
	docFreqs map[termKey]int64
	fields   map[string]fieldStats
}

type termKey struct{ field, term string }

type fieldStats struct{ docCount, sumLength int64 }

// NewCollectionStats creates statistics over segs.
func NewCollectionStats(segs []SegmentReader) *CollectionStats {
	return &CollectionStats{
		segments: segs,
		docFreqs: make(map[termKey]int64),
		fields:   make(map[string]fieldStats),
	}
}

// DocFreq returns the number of documents containing term in field, across all segments.
// Deleted documents are still counted until their segment is rewritten.
func (s *CollectionStats) DocFreq(field, term string) int64 {
	k := termKey{field, term}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.docFreqs[k]; ok {
		return n
	}
	var n int64
	for _, seg := range s.segments {
		if bm, _ := seg.Postings(field, term); bm != nil {
			n += int64(bm.GetCardinality())
		}
	}
	s.docFreqs[k] = n
	return n
}

// FieldStats returns the number of documents with field and the sum of their lengths.
func (s *CollectionStats) FieldStats(field string) (docCount, sumLength int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fs, ok := s.fields[field]; ok {
		return fs.docCount, fs.sumLength
	}
	var fs fieldStats
	for _, seg := range s.segments {
		dc, sl := seg.FieldStats(field)
		fs.docCount += dc
		fs.sumLength += sl
	}
	s.fields[field] = fs
	return fs.docCount, fs.sumLength
}

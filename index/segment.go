package index

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/internal/codec"
	"github.com/hupe1980/quarry/internal/manifest"
	"github.com/hupe1980/quarry/model"
	"github.com/hupe1980/quarry/search"
)

// Segment is a decoded, immutable segment plus its deletions at one
// commit point.
type Segment struct {
	info    manifest.SegmentInfo
	data    *codec.Segment
	deleted *roaring.Bitmap
	stats   map[string]fieldStats
}

type fieldStats struct {
	docCount  int64
	sumLength int64
}

var _ search.SegmentReader = (*Segment)(nil)

func newSegment(info manifest.SegmentInfo, data *codec.Segment, deleted *roaring.Bitmap) *Segment {
	if deleted != nil && deleted.IsEmpty() {
		deleted = nil
	}
	s := &Segment{
		info:    info,
		data:    data,
		deleted: deleted,
		stats:   make(map[string]fieldStats, len(data.Fields)),
	}
	for name, f := range data.Fields {
		var fs fieldStats
		for _, l := range f.Lengths {
			if l > 0 {
				fs.docCount++
				fs.sumLength += int64(l)
			}
		}
		s.stats[name] = fs
	}
	return s
}

func (s *Segment) Info() model.SegmentInfo { return s.info.SegmentInfo }

// Files returns the blob names backing the segment.
func (s *Segment) Files() manifest.SegmentInfo { return s.info }

func (s *Segment) MaxDoc() model.DocID { return model.DocID(s.data.DocCount) }

// NumDocs returns the number of live documents.
func (s *Segment) NumDocs() int32 {
	if s.deleted == nil {
		return s.data.DocCount
	}
	return s.data.DocCount - int32(s.deleted.GetCardinality())
}

func (s *Segment) Postings(field, term string) (*roaring.Bitmap, []uint32) {
	f, ok := s.data.Fields[field]
	if !ok {
		return nil, nil
	}
	p, ok := f.Terms[term]
	if !ok {
		return nil, nil
	}
	return p.Docs, p.Freqs
}

func (s *Segment) FieldLength(field string, doc model.DocID) int {
	f, ok := s.data.Fields[field]
	if !ok || doc < 0 || int(doc) >= len(f.Lengths) {
		return 0
	}
	return int(f.Lengths[doc])
}

func (s *Segment) FieldStats(field string) (docCount, sumLength int64) {
	fs := s.stats[field]
	return fs.docCount, fs.sumLength
}

func (s *Segment) Deleted() *roaring.Bitmap { return s.deleted }

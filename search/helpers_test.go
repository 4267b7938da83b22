package search

import (
	"errors"
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/model"
	"github.com/stretchr/testify/require"
)

// requireProtocolPanic asserts that fn panics with a *ProtocolError.
func requireProtocolPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, ErrProtocol))
		var pe *ProtocolError
		require.True(t, errors.As(err, &pe))
	}()
	fn()
}

// drain collects every document of it.
func drain(it DocIterator) []model.DocID {
	var out []model.DocID
	for d := it.Next(); d != model.NoMoreDocs; d = it.Next() {
		out = append(out, d)
	}
	return out
}

const testField = "body"

// memSegment is an in-memory SegmentReader over whitespace tokenized text.
type memSegment struct {
	info     model.SegmentInfo
	postings map[string]*roaring.Bitmap
	freqs    map[string][]uint32
	lengths  []int
	deleted  *roaring.Bitmap
}

func newMemSegment(name string, docs ...string) *memSegment {
	s := &memSegment{
		info:     model.SegmentInfo{Name: name, DocCount: int32(len(docs))},
		postings: make(map[string]*roaring.Bitmap),
		freqs:    make(map[string][]uint32),
		lengths:  make([]int, len(docs)),
	}
	for i, text := range docs {
		tokens := strings.Fields(text)
		s.lengths[i] = len(tokens)
		tf := make(map[string]uint32)
		var order []string
		for _, tok := range tokens {
			if tf[tok] == 0 {
				order = append(order, tok)
			}
			tf[tok]++
		}
		for _, tok := range order {
			bm, ok := s.postings[tok]
			if !ok {
				bm = roaring.New()
				s.postings[tok] = bm
			}
			bm.Add(uint32(i))
			s.freqs[tok] = append(s.freqs[tok], tf[tok])
		}
	}
	return s
}

func (s *memSegment) delete(docs ...uint32) *memSegment {
	if s.deleted == nil {
		s.deleted = roaring.New()
	}
	s.deleted.AddMany(docs)
	s.info.DelCount = int32(s.deleted.GetCardinality())
	return s
}

func (s *memSegment) Info() model.SegmentInfo { return s.info }

func (s *memSegment) MaxDoc() model.DocID { return model.DocID(len(s.lengths)) }

func (s *memSegment) Postings(field, term string) (*roaring.Bitmap, []uint32) {
	if field != testField {
		return nil, nil
	}
	bm, ok := s.postings[term]
	if !ok {
		return nil, nil
	}
	return bm, s.freqs[term]
}

func (s *memSegment) FieldLength(field string, doc model.DocID) int {
	if field != testField {
		return 0
	}
	return s.lengths[doc]
}

func (s *memSegment) FieldStats(field string) (int64, int64) {
	if field != testField {
		return 0, 0
	}
	var dc, sl int64
	for _, l := range s.lengths {
		if l > 0 {
			dc++
			sl += int64(l)
		}
	}
	return dc, sl
}

func (s *memSegment) Deleted() *roaring.Bitmap { return s.deleted }

func newSearcher(t *testing.T, segs []SegmentReader, opts ...Option) *Searcher {
	t.Helper()
	s, err := NewSearcher(segs, opts...)
	require.NoError(t, err)
	return s
}

// sizedSegment reports a MaxDoc larger than the documents it holds.
type sizedSegment struct {
	*memSegment
	maxDoc model.DocID
}

func (s *sizedSegment) MaxDoc() model.DocID { return s.maxDoc }

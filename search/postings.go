package search

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/model"
)

// PostingsIterator iterates the documents of a posting list stored as a
// roaring bitmap, with optional per-document term frequencies.
//
// freqs, when non-nil, is aligned with the ascending order of the bitmap.
type PostingsIterator struct {
	bm    *roaring.Bitmap
	it    roaring.IntPeekable
	freqs []uint32
	ord   int
	doc   model.DocID
}

// NewPostingsIterator creates an iterator over bm.
func NewPostingsIterator(bm *roaring.Bitmap, freqs []uint32) *PostingsIterator {
	return &PostingsIterator{
		bm:    bm,
		it:    bm.Iterator(),
		freqs: freqs,
		ord:   -1,
		doc:   model.BeforeFirst,
	}
}

func (p *PostingsIterator) DocID() model.DocID { return p.doc }

func (p *PostingsIterator) Next() model.DocID {
	if p.doc == model.NoMoreDocs {
		return p.doc
	}
	if !p.it.HasNext() {
		p.doc = model.NoMoreDocs
		return p.doc
	}
	p.doc = model.DocID(p.it.Next())
	p.ord++
	return p.doc
}

func (p *PostingsIterator) Advance(target model.DocID) model.DocID {
	checkAdvance(p.doc, target)
	if p.doc == model.NoMoreDocs {
		return p.doc
	}
	if target == model.NoMoreDocs {
		p.doc = model.NoMoreDocs
		return p.doc
	}
	p.it.AdvanceIfNeeded(uint32(target))
	if !p.it.HasNext() {
		p.doc = model.NoMoreDocs
		return p.doc
	}
	p.doc = model.DocID(p.it.Next())
	// Rank counts members <= doc, so the ordinal is one less.
	p.ord = int(p.bm.Rank(uint32(p.doc))) - 1
	return p.doc
}

func (p *PostingsIterator) Cost() int64 { return int64(p.bm.GetCardinality()) }

// Freq returns the term frequency of the current document (1 if frequencies are not stored).
func (p *PostingsIterator) Freq() int {
	if p.freqs == nil || p.ord < 0 || p.ord >= len(p.freqs) {
		return 1
	}
	return int(p.freqs[p.ord])
}

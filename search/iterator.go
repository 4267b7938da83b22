package search

import (
	"sort"

	"github.com/hupe1980/quarry/model"
)

// DocIterator is a forward-only, skip-capable stream of ascending document IDs.
//
// A fresh iterator is positioned at model.BeforeFirst. Once model.NoMoreDocs
// is returned, every later Next or Advance returns model.NoMoreDocs again.
type DocIterator interface {
	// DocID returns the document at the cursor.
	DocID() model.DocID
	// Next moves to the smallest document strictly greater than DocID.
	Next() model.DocID
	// Advance moves to the smallest document >= target.
	// target must be greater than DocID; violating this panics with a *ProtocolError.
	Advance(target model.DocID) model.DocID
	// Cost is an upper bound on the number of documents the iterator can match.
	Cost() int64
}

// EmptyIterator matches no documents.
type EmptyIterator struct {
	doc model.DocID
}

// NewEmptyIterator creates an iterator that matches nothing.
func NewEmptyIterator() *EmptyIterator {
	return &EmptyIterator{doc: model.BeforeFirst}
}

func (it *EmptyIterator) DocID() model.DocID { return it.doc }

func (it *EmptyIterator) Next() model.DocID {
	it.doc = model.NoMoreDocs
	return it.doc
}

func (it *EmptyIterator) Advance(target model.DocID) model.DocID {
	checkAdvance(it.doc, target)
	it.doc = model.NoMoreDocs
	return it.doc
}

func (it *EmptyIterator) Cost() int64 { return 0 }

// SliceIterator iterates a sorted slice of document IDs.
type SliceIterator struct {
	docs []model.DocID
	idx  int
	doc  model.DocID
}

// NewSliceIterator creates an iterator over docs, which must be strictly ascending.
func NewSliceIterator(docs []model.DocID) *SliceIterator {
	return &SliceIterator{docs: docs, idx: -1, doc: model.BeforeFirst}
}

func (it *SliceIterator) DocID() model.DocID { return it.doc }

func (it *SliceIterator) Next() model.DocID {
	if it.doc == model.NoMoreDocs {
		return it.doc
	}
	it.idx++
	return it.settle()
}

func (it *SliceIterator) Advance(target model.DocID) model.DocID {
	checkAdvance(it.doc, target)
	if it.doc == model.NoMoreDocs {
		return it.doc
	}
	rest := it.docs[it.idx+1:]
	it.idx += 1 + sort.Search(len(rest), func(i int) bool { return rest[i] >= target })
	return it.settle()
}

func (it *SliceIterator) Cost() int64 { return int64(len(it.docs)) }

func (it *SliceIterator) settle() model.DocID {
	if it.idx >= len(it.docs) {
		it.idx = len(it.docs)
		it.doc = model.NoMoreDocs
	} else {
		it.doc = it.docs[it.idx]
	}
	return it.doc
}

// AllDocsIterator matches every document in [0, maxDoc).
type AllDocsIterator struct {
	maxDoc model.DocID
	doc    model.DocID
}

// NewAllDocsIterator creates an iterator over [0, maxDoc).
func NewAllDocsIterator(maxDoc model.DocID) *AllDocsIterator {
	return &AllDocsIterator{maxDoc: maxDoc, doc: model.BeforeFirst}
}

func (it *AllDocsIterator) DocID() model.DocID { return it.doc }

func (it *AllDocsIterator) Next() model.DocID {
	if it.doc == model.NoMoreDocs {
		return it.doc
	}
	return it.move(it.doc + 1)
}

func (it *AllDocsIterator) Advance(target model.DocID) model.DocID {
	checkAdvance(it.doc, target)
	if it.doc == model.NoMoreDocs {
		return it.doc
	}
	return it.move(target)
}

func (it *AllDocsIterator) Cost() int64 { return int64(it.maxDoc) }

func (it *AllDocsIterator) move(d model.DocID) model.DocID {
	if d >= it.maxDoc {
		d = model.NoMoreDocs
	}
	it.doc = d
	return d
}

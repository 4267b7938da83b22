package search

import "github.com/hupe1980/quarry/model"

// ExclusionIterator matches documents of req that are absent from excl (AND NOT).
type ExclusionIterator struct {
	req  DocIterator
	excl DocIterator
	doc  model.DocID
}

// NewExclusionIterator creates an iterator over req minus excl.
func NewExclusionIterator(req, excl DocIterator) *ExclusionIterator {
	return &ExclusionIterator{req: req, excl: excl, doc: model.BeforeFirst}
}

func (e *ExclusionIterator) DocID() model.DocID { return e.doc }

func (e *ExclusionIterator) Next() model.DocID {
	if e.doc == model.NoMoreDocs {
		return e.doc
	}
	return e.skipExcluded(e.req.Next())
}

func (e *ExclusionIterator) Advance(target model.DocID) model.DocID {
	checkAdvance(e.doc, target)
	if e.doc == model.NoMoreDocs {
		return e.doc
	}
	return e.skipExcluded(e.req.Advance(target))
}

func (e *ExclusionIterator) Cost() int64 { return e.req.Cost() }

func (e *ExclusionIterator) skipExcluded(d model.DocID) model.DocID {
	for d != model.NoMoreDocs {
		x := e.excl.DocID()
		if x < d {
			x = e.excl.Advance(d)
		}
		if x != d {
			break
		}
		d = e.req.Next()
	}
	e.doc = d
	return d
}

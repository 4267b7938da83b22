package search

import (
	"sort"

	"github.com/hupe1980/quarry/model"
)

// ConjunctionIterator matches documents present in every child (AND).
// The cheapest child leads; the others are advanced to its candidates.
type ConjunctionIterator struct {
	lead   DocIterator
	others []DocIterator
	doc    model.DocID
}

// NewConjunctionIterator creates an AND iterator. children must not be empty.
func NewConjunctionIterator(children ...DocIterator) *ConjunctionIterator {
	sorted := make([]DocIterator, len(children))
	copy(sorted, children)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cost() < sorted[j].Cost()
	})
	return &ConjunctionIterator{
		lead:   sorted[0],
		others: sorted[1:],
		doc:    model.BeforeFirst,
	}
}

func (c *ConjunctionIterator) DocID() model.DocID { return c.doc }

func (c *ConjunctionIterator) Next() model.DocID {
	if c.doc == model.NoMoreDocs {
		return c.doc
	}
	return c.align(c.lead.Next())
}

func (c *ConjunctionIterator) Advance(target model.DocID) model.DocID {
	checkAdvance(c.doc, target)
	if c.doc == model.NoMoreDocs {
		return c.doc
	}
	return c.align(c.lead.Advance(target))
}

func (c *ConjunctionIterator) Cost() int64 { return c.lead.Cost() }

// align advances all children until they agree on target or one is exhausted.
func (c *ConjunctionIterator) align(target model.DocID) model.DocID {
outer:
	for target != model.NoMoreDocs {
		for _, other := range c.others {
			d := other.DocID()
			if d < target {
				d = other.Advance(target)
			}
			if d > target {
				target = c.lead.Advance(d)
				continue outer
			}
		}
		c.doc = target
		return target
	}
	c.doc = model.NoMoreDocs
	return c.doc
}

package search

import "github.com/hupe1980/quarry/model"

// DisjunctionIterator matches documents present in any child (OR).
// Children are kept in a binary min-heap keyed by their current DocID.
type DisjunctionIterator struct {
	heap []DocIterator
	doc  model.DocID
	cost int64
}

// NewDisjunctionIterator creates an OR iterator over children.
func NewDisjunctionIterator(children ...DocIterator) *DisjunctionIterator {
	d := &DisjunctionIterator{
		heap: make([]DocIterator, len(children)),
		doc:  model.BeforeFirst,
	}
	copy(d.heap, children)
	for _, c := range children {
		d.cost += c.Cost()
	}
	for i := len(d.heap)/2 - 1; i >= 0; i-- {
		d.down(i)
	}
	return d
}

func (d *DisjunctionIterator) DocID() model.DocID { return d.doc }

func (d *DisjunctionIterator) Next() model.DocID {
	if d.doc == model.NoMoreDocs {
		return d.doc
	}
	if len(d.heap) == 0 {
		d.doc = model.NoMoreDocs
		return d.doc
	}
	cur := d.doc
	for d.heap[0].DocID() == cur {
		d.heap[0].Next()
		d.down(0)
	}
	d.doc = d.heap[0].DocID()
	return d.doc
}

func (d *DisjunctionIterator) Advance(target model.DocID) model.DocID {
	checkAdvance(d.doc, target)
	if d.doc == model.NoMoreDocs {
		return d.doc
	}
	if len(d.heap) == 0 {
		d.doc = model.NoMoreDocs
		return d.doc
	}
	for d.heap[0].DocID() < target {
		d.heap[0].Advance(target)
		d.down(0)
	}
	d.doc = d.heap[0].DocID()
	return d.doc
}

func (d *DisjunctionIterator) Cost() int64 { return d.cost }

// down restores the heap property below i.
func (d *DisjunctionIterator) down(i int) {
	n := len(d.heap)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		child := left
		if right := left + 1; right < n && d.heap[right].DocID() < d.heap[left].DocID() {
			child = right
		}
		if d.heap[child].DocID() >= d.heap[i].DocID() {
			return
		}
		d.heap[i], d.heap[child] = d.heap[child], d.heap[i]
		i = child
	}
}

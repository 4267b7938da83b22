package hitqueue

import "github.com/hupe1980/quarry/model"

// heapArity is the branching factor. A 4-ary heap has shallower sift paths
// than a binary heap and keeps siblings on the same cache line.
const heapArity = 4

// Queue is a bounded heap of model.ScoreDoc ordered worst-first.
// It is not safe for concurrent use.
type Queue struct {
	hits     []model.ScoreDoc
	capacity int
}

// New creates a queue that retains at most capacity hits.
// A negative capacity is treated as zero.
func New(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	// Large capacities grow on demand.
	prealloc := capacity
	if prealloc > 1024 {
		prealloc = 1024
	}
	return &Queue{
		hits:     make([]model.ScoreDoc, 0, prealloc),
		capacity: capacity,
	}
}

// Len returns the number of retained hits.
func (q *Queue) Len() int { return len(q.hits) }

// Cap returns the maximum number of retained hits.
func (q *Queue) Cap() int { return q.capacity }

// Full reports whether the queue holds Cap hits.
func (q *Queue) Full() bool { return len(q.hits) >= q.capacity }

// Top returns the worst retained hit and true, or the zero value and false if empty.
func (q *Queue) Top() (model.ScoreDoc, bool) {
	if len(q.hits) == 0 {
		return model.ScoreDoc{}, false
	}
	return q.hits[0], true
}

// Offer inserts h if it belongs to the best Cap hits seen so far.
//
// While the queue is filling, h is always inserted. Once full, h replaces the
// root only if it ranks strictly better; an equal-ranking hit is rejected so
// the existing entry is kept. Offer reports whether h was retained.
func (q *Queue) Offer(h model.ScoreDoc) bool {
	if q.capacity == 0 {
		return false
	}
	if len(q.hits) < q.capacity {
		q.push(h)
		return true
	}
	if !model.Better(h, q.hits[0]) {
		return false
	}
	q.hits[0] = h
	q.down(0, len(q.hits))
	return true
}

// Pop removes and returns the worst retained hit.
// Panics if the queue is empty; callers should check Len first.
func (q *Queue) Pop() model.ScoreDoc {
	n := len(q.hits) - 1
	q.hits[0], q.hits[n] = q.hits[n], q.hits[0]
	q.down(0, n)
	h := q.hits[n]
	q.hits = q.hits[:n]
	return h
}

// Drain empties the queue and returns its hits best first.
func (q *Queue) Drain() []model.ScoreDoc {
	out := make([]model.ScoreDoc, len(q.hits))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = q.Pop()
	}
	return out
}

func (q *Queue) push(h model.ScoreDoc) {
	q.hits = append(q.hits, h)
	q.up(len(q.hits) - 1)
}

// up moves the element at j toward the root with a single final write.
func (q *Queue) up(j int) {
	item := q.hits[j]
	for j > 0 {
		i := (j - 1) / heapArity
		if !model.Worse(item, q.hits[i]) {
			break
		}
		q.hits[j] = q.hits[i]
		j = i
	}
	q.hits[j] = item
}

// down moves the element at i0 toward the leaves, considering only the first n elements.
func (q *Queue) down(i0, n int) {
	i := i0
	item := q.hits[i]
	for {
		first := heapArity*i + 1
		if first >= n {
			break
		}
		worst := first
		last := first + heapArity
		if last > n {
			last = n
		}
		for c := first + 1; c < last; c++ {
			if model.Worse(q.hits[c], q.hits[worst]) {
				worst = c
			}
		}
		if !model.Worse(q.hits[worst], item) {
			break
		}
		q.hits[i] = q.hits[worst]
		i = worst
	}
	q.hits[i] = item
}

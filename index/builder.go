package index

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/internal/codec"
)

// segmentBuilder accumulates documents as an in-memory inverted index.
type segmentBuilder struct {
	docCount int32
	fields   map[string]*fieldBuilder
	deleted  *roaring.Bitmap
	bytes    int64
}

type fieldBuilder struct {
	lengths []uint32
	terms   map[string]*codec.Postings
}

func newSegmentBuilder() *segmentBuilder {
	return &segmentBuilder{
		fields:  make(map[string]*fieldBuilder),
		deleted: roaring.New(),
	}
}

// add indexes doc as the next document.
func (b *segmentBuilder) add(doc Document) error {
	if b.docCount == math.MaxInt32-1 {
		return ErrTooManyDocs
	}
	for name := range doc {
		if name == "" {
			return ErrEmptyField
		}
	}

	id := uint32(b.docCount)
	for name, text := range doc {
		f, ok := b.fields[name]
		if !ok {
			f = &fieldBuilder{
				lengths: make([]uint32, b.docCount),
				terms:   make(map[string]*codec.Postings),
			}
			b.fields[name] = f
		}

		tokens := Tokenize(text)
		tf := make(map[string]uint32, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, n := range tf {
			p, ok := f.terms[term]
			if !ok {
				p = &codec.Postings{Docs: roaring.New()}
				f.terms[term] = p
			}
			p.Docs.Add(id)
			p.Freqs = append(p.Freqs, n)
		}
		f.lengths = append(f.lengths, uint32(len(tokens)))
		b.bytes += int64(len(name) + len(text))
	}

	b.docCount++
	for _, f := range b.fields {
		for int32(len(f.lengths)) < b.docCount {
			f.lengths = append(f.lengths, 0)
		}
	}
	return nil
}

// deleteTerm marks every buffered document containing term in field as
// deleted and returns how many were newly deleted.
func (b *segmentBuilder) deleteTerm(field, term string) int {
	f, ok := b.fields[field]
	if !ok {
		return 0
	}
	p, ok := f.terms[term]
	if !ok {
		return 0
	}
	before := b.deleted.GetCardinality()
	b.deleted.Or(p.Docs)
	return int(b.deleted.GetCardinality() - before)
}

// live returns the number of buffered documents that are not deleted.
func (b *segmentBuilder) live() int32 {
	return b.docCount - int32(b.deleted.GetCardinality())
}

func (b *segmentBuilder) empty() bool {
	return b.docCount == 0
}

// build returns the buffered documents as a codec segment.
func (b *segmentBuilder) build() *codec.Segment {
	s := &codec.Segment{
		DocCount: b.docCount,
		Fields:   make(map[string]*codec.Field, len(b.fields)),
	}
	for name, f := range b.fields {
		s.Fields[name] = &codec.Field{Lengths: f.lengths, Terms: f.terms}
	}
	return s
}

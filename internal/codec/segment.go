package codec

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/internal/hash"
)

const (
	segmentMagic   = "QSEG"
	segmentVersion = 1
	headerSize     = 8
	footerSize     = 4
)

// Segment is the decoded content of one immutable segment.
type Segment struct {
	DocCount int32
	Fields   map[string]*Field
}

// Field holds the inverted index of one field.
type Field struct {
	// Lengths is the token count of the field per document.
	Lengths []uint32
	Terms   map[string]*Postings
}

// Postings lists the documents containing a term and the term
// frequency of each, in document order.
type Postings struct {
	Docs  *roaring.Bitmap
	Freqs []uint32
}

// EncodeSegment serializes s with compression c.
func EncodeSegment(s *Segment, c Compression) ([]byte, error) {
	if s.DocCount < 0 {
		return nil, fmt.Errorf("codec: negative doc count %d", s.DocCount)
	}

	var body []byte
	body = binary.AppendUvarint(body, uint64(s.DocCount))
	body = binary.AppendUvarint(body, uint64(len(s.Fields)))

	for _, name := range sortedKeys(s.Fields) {
		f := s.Fields[name]
		if len(f.Lengths) != int(s.DocCount) {
			return nil, fmt.Errorf("codec: field %q has %d lengths for %d docs", name, len(f.Lengths), s.DocCount)
		}
		body = appendString(body, name)
		for _, l := range f.Lengths {
			body = binary.AppendUvarint(body, uint64(l))
		}
		body = binary.AppendUvarint(body, uint64(len(f.Terms)))

		for _, term := range sortedKeys(f.Terms) {
			p := f.Terms[term]
			if uint64(len(p.Freqs)) != p.Docs.GetCardinality() {
				return nil, fmt.Errorf("codec: term %s:%s has %d freqs for %d docs", name, term, len(p.Freqs), p.Docs.GetCardinality())
			}
			p.Docs.RunOptimize()
			bm, err := p.Docs.ToBytes()
			if err != nil {
				return nil, fmt.Errorf("codec: term %s:%s: %w", name, term, err)
			}
			body = appendString(body, term)
			body = binary.AppendUvarint(body, uint64(len(bm)))
			body = append(body, bm...)
			for _, tf := range p.Freqs {
				body = binary.AppendUvarint(body, uint64(tf))
			}
		}
	}

	out := make([]byte, 0, headerSize+blockHeaderSize+len(body)+footerSize)
	out = append(out, segmentMagic...)
	out = append(out, segmentVersion, byte(c), 0, 0)
	out, err := appendBlock(out, body, c)
	if err != nil {
		return nil, err
	}
	return binary.LittleEndian.AppendUint32(out, hash.CRC32C(out)), nil
}

// DecodeSegment parses a blob written by EncodeSegment.
func DecodeSegment(data []byte) (*Segment, error) {
	block, c, err := checkFrame(data, segmentMagic, segmentVersion)
	if err != nil {
		return nil, err
	}
	body, err := readBlock(block, Compression(c))
	if err != nil {
		return nil, err
	}

	r := reader{buf: body}
	docCount := r.uvarint()
	if docCount > uint64(1<<31-1) {
		return nil, fmt.Errorf("%w: doc count %d out of range", ErrCorrupt, docCount)
	}
	s := &Segment{
		DocCount: int32(docCount),
		Fields:   make(map[string]*Field),
	}

	numFields := r.uvarint()
	for i := uint64(0); i < numFields && r.err == nil; i++ {
		name := r.string()
		f := &Field{
			Lengths: make([]uint32, 0, min(docCount, uint64(len(body)))),
			Terms:   make(map[string]*Postings),
		}
		for d := uint64(0); d < docCount && r.err == nil; d++ {
			f.Lengths = append(f.Lengths, uint32(r.uvarint()))
		}

		numTerms := r.uvarint()
		for j := uint64(0); j < numTerms && r.err == nil; j++ {
			term := r.string()
			bmBytes := r.bytes(r.uvarint())
			if r.err != nil {
				break
			}
			bm := roaring.New()
			if err := bm.UnmarshalBinary(bmBytes); err != nil {
				return nil, fmt.Errorf("%w: term %s:%s bitmap: %v", ErrCorrupt, name, term, err)
			}
			if !bm.IsEmpty() && uint64(bm.Maximum()) >= docCount {
				return nil, fmt.Errorf("%w: term %s:%s references doc %d of %d", ErrCorrupt, name, term, bm.Maximum(), docCount)
			}
			card := bm.GetCardinality()
			freqs := make([]uint32, 0, min(card, uint64(len(body))))
			for k := uint64(0); k < card && r.err == nil; k++ {
				freqs = append(freqs, uint32(r.uvarint()))
			}
			f.Terms[term] = &Postings{Docs: bm, Freqs: freqs}
		}
		s.Fields[name] = f
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(body)-r.off)
	}
	return s, nil
}

// checkFrame validates magic, version and checksum and returns the
// payload between header and footer along with the header flag byte.
func checkFrame(data []byte, magic string, version byte) ([]byte, byte, error) {
	if len(data) < headerSize+footerSize {
		return nil, 0, fmt.Errorf("%w: %d bytes is too short", ErrCorrupt, len(data))
	}
	if string(data[:4]) != magic {
		return nil, 0, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[:4])
	}
	n := len(data) - footerSize
	if want, got := binary.LittleEndian.Uint32(data[n:]), hash.CRC32C(data[:n]); want != got {
		return nil, 0, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	if data[4] > version {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}
	return data[headerSize:n], data[5], nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// reader decodes uvarint framed data. The first error sticks.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.err = fmt.Errorf("%w: bad varint at offset %d", ErrCorrupt, r.off)
		return 0
	}
	r.off += n
	return v
}

func (r *reader) bytes(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)-r.off) {
		r.err = fmt.Errorf("%w: %d bytes requested at offset %d of %d", ErrCorrupt, n, r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b
}

func (r *reader) string() string {
	return string(r.bytes(r.uvarint()))
}

package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/quarry/internal/hash"
)

const (
	deletesMagic   = "QDEL"
	deletesVersion = 1
)

// EncodeDeletes serializes the deletion bitmap of a segment with docCount documents.
func EncodeDeletes(deleted *roaring.Bitmap, docCount int32) ([]byte, error) {
	if deleted == nil {
		deleted = roaring.New()
	}
	if !deleted.IsEmpty() && int64(deleted.Maximum()) >= int64(docCount) {
		return nil, fmt.Errorf("codec: deleted doc %d of %d", deleted.Maximum(), docCount)
	}
	deleted.RunOptimize()
	bm, err := deleted.ToBytes()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerSize+4+len(bm)+footerSize)
	out = append(out, deletesMagic...)
	out = append(out, deletesVersion, 0, 0, 0)
	out = binary.LittleEndian.AppendUint32(out, uint32(docCount))
	out = append(out, bm...)
	return binary.LittleEndian.AppendUint32(out, hash.CRC32C(out)), nil
}

// DecodeDeletes parses a blob written by EncodeDeletes and checks it
// against the segment's document count.
func DecodeDeletes(data []byte, docCount int32) (*roaring.Bitmap, error) {
	payload, _, err := checkFrame(data, deletesMagic, deletesVersion)
	if err != nil {
		return nil, err
	}
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: deletes truncated", ErrCorrupt)
	}
	if n := int32(binary.LittleEndian.Uint32(payload)); n != docCount {
		return nil, fmt.Errorf("%w: deletes written for %d docs, segment has %d", ErrCorrupt, n, docCount)
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(payload[4:]); err != nil {
		return nil, fmt.Errorf("%w: deletes bitmap: %v", ErrCorrupt, err)
	}
	if !bm.IsEmpty() && int64(bm.Maximum()) >= int64(docCount) {
		return nil, fmt.Errorf("%w: deleted doc %d of %d", ErrCorrupt, bm.Maximum(), docCount)
	}
	return bm, nil
}

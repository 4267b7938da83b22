// Package codec encodes segments and deletion bitmaps into the blobs
// stored by the index.
//
// # Segment layout
//
//	magic "QSEG" | version u8 | compression u8 | reserved u16 | block | crc32c u32
//
// The block carries an 8 byte header (uncompressed size, compressed size;
// a compressed size of 0 means stored raw) followed by the body:
//
//	uvarint docCount | uvarint fieldCount
//	per field (sorted): name | docCount uvarint lengths | uvarint termCount
//	per term (sorted):  term | uvarint bitmapLen | roaring bitmap | cardinality uvarint freqs
//
// Strings are uvarint length prefixed. The checksum covers every byte
// before it.
package codec

// Package hash provides the CRC32-Castagnoli checksum used for segment
// footers and S3 upload integrity.
//
//	sum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk)
//	sum := h.Sum32()
package hash

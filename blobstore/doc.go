// Package blobstore stores the immutable blobs of an index: segment files,
// deletion bitmaps, commit points and the CURRENT pointer.
//
// Implementations must be safe for concurrent use. Put must be atomic: a
// reader sees either the previous or the new content of a name, never a mix.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and ephemeral indexes
//   - LocalStore: a directory on the local file system, read through mmap
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.DDBCommitStore: s3.Store with DynamoDB guarded CURRENT updates
//
// CachingStore wraps any of them and keeps recently read blobs in memory.
package blobstore

// Package minio provides a blobstore.BlobStore for MinIO and other
// S3-compatible servers, built on minio-go.
//
//	store, err := minio.New(ctx, "localhost:9000", "quarry",
//	    minio.WithCredentials("minioadmin", "minioadmin"),
//	    minio.WithPrefix("indexes/products/"),
//	    minio.WithCreateBucket(),
//	)
//
// Writes stream through PutObject with unknown size, which minio-go
// turns into a multipart upload. Reads use ranged GETs.
package minio

// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/products/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	db, err := quarry.Open(ctx, store, quarry.WithBlobCache(256<<20))
//
// Segments are written with multipart uploads and read with ranged GETs.
// S3 offers no compare-and-swap on plain objects, so concurrent writers
// should wrap the store in a DDBCommitStore, which keeps the CURRENT
// pointer in DynamoDB behind a conditional write.
package s3

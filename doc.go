// Package quarry provides an embedded full-text search index for Go.
//
// Documents are buffered in memory and become searchable when Commit
// publishes them as an immutable segment. Segments live in a BlobStore,
// so the same index runs on a local directory, in memory, on S3 or on
// any S3-compatible service.
//
// # Quick Start
//
//	ctx := context.Background()
//	store, _ := blobstore.NewLocalStore("./data")
//	db, _ := quarry.Open(ctx, store)
//	defer db.Close()
//
//	_ = db.Add(ctx, quarry.Document{"body": "the quick brown fox"})
//	_ = db.Commit(ctx)
//
//	hits, _ := db.Search(ctx, "quick +fox -dog", 10)
//	for _, sd := range hits.ScoreDocs {
//	    fmt.Println(sd.Doc, sd.Score)
//	}
//
// Cloud mode:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("index/"))
//	db, _ := quarry.Open(ctx, store, quarry.WithBlobCache(256<<20))
//
// # Query Syntax
//
// Search splits the query text on whitespace. A term prefixed with '+'
// must match, a term prefixed with '-' must not match, and the remaining
// terms are optional and add to the score. Terms are lowercased.
//
// # Durability Model
//
// Commits are append-only: each one writes new segment and deletion
// blobs, then atomically moves the CURRENT pointer to a new commit
// point. Uncommitted changes are lost on Close.
//
//	db.Add(ctx, doc)    // buffered in memory
//	db.Commit(ctx)      // durable and searchable after this
package quarry

// Package manifest persists commit points.
//
// A commit point is a JSON document named commit-NNNNNN.json that lists
// the live segments of the index and their deletion files. The CURRENT
// blob holds the name of the newest commit point; writing it is the
// atomic step that publishes a commit. Stores that cannot overwrite
// atomically (S3 with concurrent writers) guard CURRENT externally, see
// blobstore/s3.DDBCommitStore.
package manifest

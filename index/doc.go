// Package index maintains a segmented inverted index in a blob store.
//
// A Writer buffers added documents in memory and turns them into a new
// immutable segment on Commit. Deletes by term are applied to buffered
// documents immediately and to committed segments on the next Commit,
// which writes fresh deletion bitmaps. Every Commit publishes a new
// commit point (see internal/manifest).
//
// A Reader opens the newest commit point and exposes its segments as
// search.SegmentReader values, oldest first, so that document IDs
// rebased by the searcher grow with insertion order.
package index

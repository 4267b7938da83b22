// Package model defines core types used throughout quarry.
//
// # Identity Types
//
//   - DocID: Segment-local (or rebased, index-global) document identifier (int32)
//   - SegmentID: Unique identifier for an immutable segment (uint64)
//
// # Sentinels
//
//   - BeforeFirst: cursor position of an iterator that has not been advanced yet
//   - NoMoreDocs: cursor position of an exhausted iterator
//
// # Result Types
//
//   - ScoreDoc: a scored hit (document, score)
//   - TopDocs: the finalized, rank-ordered hit list plus the total match count
package model

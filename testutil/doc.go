// Package testutil provides testing utilities for quarry.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source for score streams, document sets
// and text corpora, plus an exact top-k reference ranking.
//
// # Random Inputs
//
//	rng := testutil.NewRNG(seed)
//	scores := rng.Scores(300, 20)      // coarse scores with many ties
//	docs := rng.SortedDocs(500, 100)   // distinct ascending DocIDs
//	bodies := rng.Corpus(100, 8, 50)   // Zipf-distributed words
//
// # Ground Truth
//
//	want := testutil.ExactTopK(scores, 10)
package testutil

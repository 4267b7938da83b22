// Package search implements the document-iteration, scoring and top-K
// collection protocol that every query type is built on.
//
// # Protocol
//
// A DocIterator is a forward-only stream of ascending document IDs with
// skip support (Advance). A Scorer is a DocIterator whose Score is valid
// only while the cursor sits on a real document. A Collector is bound to
// one Scorer at a time (SetScorer) and receives one Collect call per
// matching document:
//
//	scorer, _ := q.Scorer(seg, stats)
//	_ = c.SetScorer(scorer)
//	for doc := scorer.Next(); doc != model.NoMoreDocs; doc = scorer.Next() {
//	    _ = c.Collect(doc)
//	}
//
// TopScoreCollector keeps the N best hits in a bounded worst-first heap and
// finalizes them with TopDocs. FilterCollector decorates any collector and
// forwards only hits whose score passes a predicate.
//
// # Misuse
//
// Moving an iterator backward or reading a score outside its validity
// window is a programming error and panics with a *ProtocolError.
// Collector misuse (rebinding mid-stream, collecting after finalize) is
// reported as an error from the offending call and leaves accepted state
// untouched.
//
// # Concurrency
//
// Iterators, scorers and collectors are not safe for concurrent use.
// Searcher.SearchParallel gives every segment a private collector and
// merges the per-segment results with MergeTopDocs afterwards.
package search

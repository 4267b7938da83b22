// Package hitqueue provides the bounded, worst-first heap behind top-K collection.
//
// The heap root is always the current worst retained hit, so the admission
// test for a new hit is a single comparison against the root. Ordering is
// model.Better: descending score, then ascending DocID.
package hitqueue

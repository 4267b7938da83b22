package search

import (
	"errors"
	"fmt"

	"github.com/hupe1980/quarry/model"
)

var (
	// ErrProtocol is wrapped by every *ProtocolError.
	ErrProtocol = errors.New("search protocol violation")

	// ErrFinalized is returned when a collector is used after TopDocs was called.
	ErrFinalized = errors.New("collector already finalized")

	// ErrRebindMidStream is returned when SetScorer is called while the previously
	// bound scorer has not been exhausted.
	ErrRebindMidStream = errors.New("collector rebound before previous scorer was exhausted")

	// ErrNoScorer is returned when Collect is called before SetScorer.
	ErrNoScorer = errors.New("no scorer bound to collector")

	// ErrTimeExceeded is returned by TimeLimitingCollector once its budget is spent.
	ErrTimeExceeded = errors.New("search time budget exceeded")

	// ErrInvalidArgument is returned for invalid search arguments (e.g. negative n).
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProtocolError describes a misuse of the iterator protocol.
// It is raised with panic, since it indicates a broken driver rather than a
// runtime condition.
type ProtocolError struct {
	Op     string
	Doc    model.DocID
	Target model.DocID
	Msg    string
}

func (e *ProtocolError) Error() string {
	if e.Op == "advance" {
		return fmt.Sprintf("%s: %s at %s to %s: %s", ErrProtocol, e.Op, e.Doc, e.Target, e.Msg)
	}
	return fmt.Sprintf("%s: %s at %s: %s", ErrProtocol, e.Op, e.Doc, e.Msg)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// checkAdvance panics unless target lies strictly beyond cur.
// Advancing an exhausted iterator is allowed and stays exhausted.
func checkAdvance(cur, target model.DocID) {
	if cur != model.NoMoreDocs && target <= cur {
		panic(&ProtocolError{Op: "advance", Doc: cur, Target: target, Msg: "target must be greater than current doc"})
	}
}

// checkScore panics unless doc is a real document.
func checkScore(doc model.DocID) {
	if !doc.Valid() {
		panic(&ProtocolError{Op: "score", Doc: doc, Msg: "score is only valid on a real document"})
	}
}

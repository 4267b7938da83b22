package index

import "errors"

var (
	// ErrClosed is returned by operations on a closed Writer or Reader.
	ErrClosed = errors.New("index: closed")
	// ErrEmptyField is returned when a document field name is empty.
	ErrEmptyField = errors.New("index: empty field name")
	// ErrTooManyDocs is returned when a segment, or all segments of a commit
	// point together, would exceed the DocID range.
	ErrTooManyDocs = errors.New("index: too many documents")
)

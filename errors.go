package quarry

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/quarry/blobstore"
	"github.com/hupe1980/quarry/index"
	"github.com/hupe1980/quarry/internal/codec"
	"github.com/hupe1980/quarry/internal/manifest"
	"github.com/hupe1980/quarry/search"
)

var (
	// ErrClosed is returned by operations on a closed DB.
	ErrClosed = errors.New("database closed")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidArgument is returned for malformed documents and queries.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a blob the index refers to is missing.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when a stored segment or commit point fails validation.
	ErrCorrupt = errors.New("corrupt index data")

	// ErrConflict is returned when another writer published a commit point first.
	ErrConflict = errors.New("commit conflict")

	// ErrTimeout is returned when a search exceeds its time budget.
	ErrTimeout = errors.New("search timed out")
)

// ErrIncompatibleVersion indicates a commit point written by an
// unsupported format version.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrIncompatibleVersion struct {
	cause error
}

func (e *ErrIncompatibleVersion) Error() string {
	return fmt.Sprintf("incompatible index version: %v", e.cause)
}

func (e *ErrIncompatibleVersion) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, index.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, search.ErrTimeExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, search.ErrInvalidArgument), errors.Is(err, index.ErrEmptyField), errors.Is(err, index.ErrTooManyDocs):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, manifest.ErrIncompatibleVersion), errors.Is(err, codec.ErrUnsupportedVersion):
		return &ErrIncompatibleVersion{cause: err}
	case errors.Is(err, codec.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	case errors.Is(err, blobstore.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

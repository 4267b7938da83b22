package manifest

import (
	"errors"
	"fmt"

	"github.com/hupe1980/quarry/blobstore"
)

var (
	// ErrIncompatibleVersion is returned when the commit point was written by a newer format.
	ErrIncompatibleVersion = errors.New("manifest: incompatible version")

	// ErrConflict is returned when the next commit point already exists.
	// It wraps blobstore.ErrConflict.
	ErrConflict = fmt.Errorf("manifest: commit point already exists: %w", blobstore.ErrConflict)

	// ErrNotFound is returned when no commit point has been published.
	ErrNotFound = errors.New("manifest: not found")
)

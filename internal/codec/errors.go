package codec

import "errors"

var (
	// ErrCorrupt is returned when a blob fails validation.
	ErrCorrupt = errors.New("codec: corrupt data")
	// ErrUnsupportedVersion is returned for blobs written by a newer format version.
	ErrUnsupportedVersion = errors.New("codec: unsupported format version")
)

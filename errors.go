package gciso

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrMalformedHeader is returned when a fixed-offset system record field is out of range.
	ErrMalformedHeader = errors.New("gciso: malformed disc header")

	// ErrMalformedFST is returned when the FST entry count implies a string table past
	// the end of the blob, or a directory's next-index is not strictly after its own index.
	ErrMalformedFST = errors.New("gciso: malformed file system table")

	// ErrOutOfRange is returned when a byte stream access falls outside [0, size).
	ErrOutOfRange = errors.New("gciso: byte stream access out of range")

	// ErrNotFound is returned when a filename or directory is unknown to the FST.
	ErrNotFound = errors.New("gciso: not found")

	// ErrNoSpace is returned when a new file cannot be placed in the data region.
	ErrNoSpace = errors.New("gciso: no space for file")

	// ErrDuplicateName is returned when adding a file whose name already exists under the same parent.
	ErrDuplicateName = errors.New("gciso: duplicate name")

	// ErrNotLoaded is returned when serialization is requested on a DOL whose section
	// contents were never attached.
	ErrNotLoaded = errors.New("gciso: DOL section contents not loaded")

	// ErrBadPatch is returned when a patch archive is malformed.
	ErrBadPatch = errors.New("gciso: malformed patch archive")

	// ErrSysCodeMismatch is returned when a patch archive targets a different platform.
	ErrSysCodeMismatch = errors.New("gciso: patch targets a different platform")

	// ErrIndexOverflow is returned when an FST operation would exceed 32-bit entry indices.
	ErrIndexOverflow = errors.New("gciso: FST entry index would overflow uint32")
)

// Package ospfserr defines the closed set of error kinds the core
// reports to its caller, mirroring errno-like categories without
// committing to any particular host's numbering.
package ospfserr

import "errors"

var (
	// ErrNoSpace indicates the bitmap (or the inode table) is exhausted.
	ErrNoSpace = errors.New("ospfs: no space left")

	// ErrNameTooLong indicates a name or symlink target exceeds its limit.
	ErrNameTooLong = errors.New("ospfs: name too long")

	// ErrExist indicates a directory already has a non-empty entry by that name.
	ErrExist = errors.New("ospfs: entry already exists")

	// ErrNotFound indicates a lookup or unlink found no matching entry.
	ErrNotFound = errors.New("ospfs: no such entry")

	// ErrIO indicates an invariant breach was detected: a missing indirect
	// block, a block-index sentinel appearing where one is not expected, or
	// arithmetic overflow. The image may be corrupt; no rollback is attempted.
	ErrIO = errors.New("ospfs: invariant violation")

	// ErrFault indicates the host adapter failed to transfer bytes to or
	// from the caller's buffer.
	ErrFault = errors.New("ospfs: buffer transfer fault")

	// ErrNoMem indicates the host adapter failed to materialize a handle
	// for a newly created inode.
	ErrNoMem = errors.New("ospfs: host could not allocate a handle")

	// ErrPerm indicates an operation the target inode's type does not
	// allow: resizing a directory or symlink through the generic truncate
	// entry point, reading or writing a symlink, following a non-symlink,
	// or hard-linking anything but a regular file.
	ErrPerm = errors.New("ospfs: operation not permitted")
)

package govm

import "errors"

// Sentinel errors returned by this package. Use errors.Is to test for them;
// wrapped I/O errors carry additional context via fmt.Errorf("%w", ...).
var (
	// ErrInvalidArgument is returned for a nil handle, a malformed segment
	// name, or a negative size where a non-negative one is required.
	ErrInvalidArgument = errors.New("govm: invalid argument")

	// ErrAlreadyMapped is returned by Map when the requested name is
	// already mapped in this Library.
	ErrAlreadyMapped = errors.New("govm: segment already mapped")

	// ErrNotMapped is returned when an operation targets a segment name
	// that is not currently mapped in this Library.
	ErrNotMapped = errors.New("govm: segment not mapped")

	// ErrSegmentBusy is returned by Begin when one of the requested
	// segments is already owned by another open transaction.
	ErrSegmentBusy = errors.New("govm: segment already in an open transaction")

	// ErrTxClosed is returned by any Tx method called after Commit or
	// Rollback has already ended the transaction.
	ErrTxClosed = errors.New("govm: transaction already committed or rolled back")
)

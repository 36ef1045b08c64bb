// Package errs defines the sentinel error kinds bao's core surfaces, so
// callers can distinguish them with errors.Is regardless of which layer
// (hasher, encoder, decoder, slice) raised them.
package errs

import "errors"

var (
	// HashMismatch marks a node whose computed hash did not match the
	// hash it was expected to carry. Fatal for the operation.
	HashMismatch = errors.New("bao: hash mismatch")
	// Truncated marks a source that ended before a required node was
	// fully read.
	Truncated = errors.New("bao: truncated encoding")
	// Overflow marks an offset, length, or encoded-size computation that
	// would exceed the 64-bit range the format allows.
	Overflow = errors.New("bao: size overflow")
	// InvalidRange marks slice parameters outside [0, total_len].
	InvalidRange = errors.New("bao: invalid range")
)

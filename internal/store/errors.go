package store

import "errors"

// Error taxonomy for cache store operations. Absent and stale entries are
// not errors; they are the (false, nil) result of Get.
var (
	// ErrInvalidArgument indicates a malformed client identifier, key, or
	// age threshold. Raised at the call boundary, never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorrupted indicates an entry exists without its creation
	// timestamp. The namespace's backing storage is compromised and must
	// be deleted before retrying; no auto-repair is attempted.
	ErrCorrupted = errors.New("cache entry corrupted")

	// ErrInvariant indicates more than one entry was found for a key
	// that must be unique. Fatal: the uniqueness invariant was already
	// broken upstream.
	ErrInvariant = errors.New("cache uniqueness invariant violated")
)

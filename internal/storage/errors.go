package storage

import "errors"

var (
	// ErrNotFound is returned when no curve record exists for a token id.
	// Corrupted entries are reported as ErrNotFound once they are discarded.
	ErrNotFound = errors.New("curve not found")

	// ErrAlreadyExists is returned by Create when a record for the token id exists.
	ErrAlreadyExists = errors.New("curve already exists")

	// ErrStorageCorrupt is returned by Decode for payloads that cannot be parsed
	// or fail record validation.
	ErrStorageCorrupt = errors.New("corrupt curve record")

	// ErrStorageUnavailable wraps durable store I/O failures.
	ErrStorageUnavailable = errors.New("curve storage unavailable")
)

// Package apperr defines the error kinds surfaced by the ingestion and search pipeline.
package apperr

import "errors"

// Sentinel errors for the failure kinds reported to callers. Wrap with
// fmt.Errorf("context: %w", Err...) and test with errors.Is.
var (
	// ErrMissingInput means the client supplied an incomplete request (e.g. no image URL).
	ErrMissingInput = errors.New("missing input")
	// ErrInvalidQueryType means the query type is neither "image" nor "text".
	ErrInvalidQueryType = errors.New("invalid query type")
	// ErrProvider means the external model call failed (network, timeout, model error).
	ErrProvider = errors.New("provider error")
	// ErrUnexpectedResponseFormat means the external model returned a shape the
	// adapter could not parse. Never coerced into a vector.
	ErrUnexpectedResponseFormat = errors.New("unexpected response format")
	// ErrDimension means an embedding has the wrong length or non-finite components.
	// Always fatal; vectors are never padded or truncated.
	ErrDimension = errors.New("dimension error")
	// ErrDuplicateKey means an insert lost a uniqueness race. Expected during
	// concurrent ingestion; resolved by re-reading the winner, not surfaced.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStorage means the backing store failed for any reason other than the
	// expected duplicate race.
	ErrStorage = errors.New("storage error")
)

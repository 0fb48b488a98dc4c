package keypivot

import (
	"errors"
	"fmt"
)

var (
	// ErrNilStore is returned by Open when no store is supplied.
	ErrNilStore = errors.New("store must not be nil")

	// ErrClosed is returned by operations on a closed scanner.
	ErrClosed = errors.New("scanner closed")
)

// NullIdentityError indicates an insert/update/delete whose identity values
// contain a NULL. Identity values are encoded positionally into the key and
// cannot be absent.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type NullIdentityError struct {
	Column string
	cause  error
}

func (e *NullIdentityError) Error() string {
	return fmt.Sprintf("identity column %q is null: identity values cannot be null", e.Column)
}

func (e *NullIdentityError) Unwrap() error { return e.cause }

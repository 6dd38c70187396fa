package storage

import "errors"

// ErrStoreUnavailable wraps failures to reach the underlying store.
var ErrStoreUnavailable = errors.New("entry store unavailable")

// NotFoundError is returned when an entry doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "entry not found"
	}

	return "entry not found: " + e.ID
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

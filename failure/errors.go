package failure

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is returned when a record misses a required field
var ErrInvalidRecord = errors.New("invalid failure record")

// StorageError wraps any error returned by a backend
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failure store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

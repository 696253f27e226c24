package mapper

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a read at a specific id finds nothing.
var ErrNotFound = errors.New("record not found")

// StoreError carries a rejection reported by the store itself.
type StoreError struct {
	Path    string
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error at %s: %s", e.Path, e.Message)
}

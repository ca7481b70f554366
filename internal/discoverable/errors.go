package discoverable

import (
	"errors"
	"fmt"
)

// ErrNilChecker is reported when a factory returns neither a checker nor an error
var ErrNilChecker = errors.New("factory returned nil checker")

// LoadError reports a discoverable that could not be constructed.
// A single LoadError fails the whole registry load.
type LoadError struct {
	Name string // Discoverable type name
	Err  error  // Underlying cause
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load discoverable %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *LoadError) Unwrap() error {
	return e.Err
}

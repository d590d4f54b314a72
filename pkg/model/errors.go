package model

import "fmt"

// MalformedInputError is returned by loading when an entity invariant is
// violated (spec.md §7): unparseable file or a broken entity reference.
type MalformedInputError struct {
	message string
}

func (e *MalformedInputError) Error() string {
	return "malformed input: " + e.message
}

func newMalformedInput(format string, args ...any) error {
	return &MalformedInputError{message: fmt.Sprintf(format, args...)}
}

package revision

import (
	"errors"
	"fmt"
)

var (
	// ErrRevisionNotFound reports that a requested revision has no candidate object.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrRevisionExists reports an attempt to publish over an existing revision.
	ErrRevisionExists = errors.New("revision already exists")
)

// NotFoundError identifies the revision and storage key that failed validation.
type NotFoundError struct {
	Revision string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("revision %q not found", e.Revision)
	}
	return fmt.Sprintf("revision %q not found at %s", e.Revision, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrRevisionNotFound
}

package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNoRecords = errors.New("no records found")
	ErrInvalidID = errors.New("invalid id")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

// UpstreamError marks a failure in a remote dependency such as the object store.
type UpstreamError struct {
	Op  string
	Err error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %s", e.Op, e.Err.Error())
}

func (e UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(op string, err error) error {
	return UpstreamError{
		Op:  op,
		Err: err,
	}
}

// IsNotFound reports whether err means the requested record does not exist.
// A malformed id can never resolve, so it counts as not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID)
}

package quiz

import (
	"errors"
	"fmt"
)

var ErrEmptyAnswer = errors.New("answer cannot be empty")

// UpstreamError wraps a failed call to the generative model or the vector index.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(service string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: service, Err: err}
}

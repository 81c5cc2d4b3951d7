package service

import (
	"errors"
	"fmt"
)

var ErrUpstream = errors.New("upstream error")

// UpstreamError is returned when the completion provider answered with a
// non-2xx status that cannot be recovered, or the schema-fallback retry could
// not be sent. Detail carries the provider bodies for diagnosis.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", ErrUpstream, e.Detail)
	}
	return fmt.Sprintf("%s (status %d): %s", ErrUpstream, e.Status, e.Detail)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

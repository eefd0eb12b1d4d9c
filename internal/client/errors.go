package client

import (
	"errors"
	"fmt"
)

var ErrTransport = errors.New("transport failure")

// TransportFailure is returned for any non-2xx response or a request that
// never got one. Status is 0 when the request failed before a response.
type TransportFailure struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *TransportFailure) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func (e *TransportFailure) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportFailure) Unwrap() error {
	return e.Err
}

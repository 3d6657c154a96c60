package http

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError reports a request that produced no response: connection
// failures, cancellation and timeouts. Non-2xx responses are not errors.
type TransportError struct {
	Method  string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: request timed out: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(req *Request, err error) *TransportError {
	return &TransportError{
		Method:  req.Method,
		URL:     req.URL,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

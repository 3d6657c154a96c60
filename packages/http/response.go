package http

import (
	"time"
)

// Response is either an executed response or an expected response parsed
// from a block. For expected responses a zero StatusCode and an empty
// StatusText mean "not asserted".
type Response struct {
	Message
	StatusCode int
	StatusText string
	Proto      string
	Duration   time.Duration
}

func NewResponse() *Response {
	return &Response{Message: newMessage()}
}

package http

// Request is an outgoing HTTP request built from a block.
type Request struct {
	Message
	Method string
	URL    string
}

func NewRequest(method, url string) *Request {
	return &Request{
		Message: newMessage(),
		Method:  method,
		URL:     url,
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Header.Set(key, value)
	return r
}

func (r *Request) String() string {
	return r.Method + " " + r.URL
}

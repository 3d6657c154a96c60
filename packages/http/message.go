package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/abdul-hamid-achik/hitrun/packages/mime"
)

// ErrBodyConsumed is returned when a body stream was already read or
// released without its contents being cached.
var ErrBodyConsumed = errors.New("body stream already consumed")

// Message holds the parts shared by requests and responses: a header
// multimap, the raw body and the decoded body. A Message is not safe for
// concurrent use.
type Message struct {
	Header http.Header

	// FallbackContentType is used for decoding when the message carries no
	// Content-Type header of its own.
	FallbackContentType string

	raw      []byte
	hasRaw   bool
	stream   io.ReadCloser
	consumed bool

	decoded    any
	decodeErr  error
	hasDecoded bool
}

func newMessage() Message {
	return Message{Header: make(http.Header)}
}

// SetBody sets the raw body as written in source.
func (m *Message) SetBody(body string) {
	m.raw = []byte(body)
	m.hasRaw = true
	m.resetDecoded()
}

// SetStream attaches a single-consume body stream.
func (m *Message) SetStream(rc io.ReadCloser) {
	m.stream = rc
	m.consumed = false
	m.raw = nil
	m.hasRaw = false
	m.resetDecoded()
}

func (m *Message) resetDecoded() {
	m.decoded = nil
	m.decodeErr = nil
	m.hasDecoded = false
}

// HasBody reports whether the message carries a body, cached or streamed.
func (m *Message) HasBody() bool {
	return m.hasRaw || m.stream != nil
}

// ContentType returns the Content-Type header, or the fallback if unset.
func (m *Message) ContentType() string {
	if ct := m.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return m.FallbackContentType
}

// RawBody returns the body bytes, reading the stream on first use.
func (m *Message) RawBody() ([]byte, error) {
	if m.hasRaw {
		return m.raw, nil
	}
	if m.stream == nil {
		if m.consumed {
			return nil, ErrBodyConsumed
		}
		return nil, nil
	}

	stream := m.stream
	m.stream = nil
	m.consumed = true
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	m.raw = data
	m.hasRaw = true
	return m.raw, nil
}

// BodyString returns the raw body as text.
func (m *Message) BodyString() string {
	data, err := m.RawBody()
	if err != nil {
		return ""
	}
	return string(data)
}

// Body returns the decoded body. Decoding runs once; later calls return the
// memoized value or error.
func (m *Message) Body() (any, error) {
	if m.hasDecoded {
		return m.decoded, m.decodeErr
	}
	if !m.HasBody() && !m.consumed {
		return nil, nil
	}

	raw, err := m.RawBody()
	if err != nil {
		return nil, err
	}

	m.decoded, m.decodeErr = mime.DecodeContent(m.ContentType(), raw)
	m.hasDecoded = true
	return m.decoded, m.decodeErr
}

// Stream hands out the unread body stream. The caller owns it; afterwards the
// body can no longer be extracted.
func (m *Message) Stream() (io.ReadCloser, error) {
	if m.stream == nil {
		return nil, ErrBodyConsumed
	}
	stream := m.stream
	m.stream = nil
	m.consumed = true
	return stream, nil
}

// Release drains and closes an unread body stream so the underlying
// connection can be reused. It is a no-op when the body was already read.
func (m *Message) Release() error {
	if m.stream == nil {
		return nil
	}
	stream := m.stream
	m.stream = nil
	m.consumed = true

	_, copyErr := io.Copy(io.Discard, stream)
	closeErr := stream.Close()
	if copyErr != nil {
		return fmt.Errorf("draining body: %w", copyErr)
	}
	return closeErr
}

// Released reports whether the body stream was consumed without caching.
func (m *Message) Released() bool {
	return m.consumed && !m.hasRaw
}

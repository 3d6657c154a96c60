package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"
)

// Connection pool limits of the default transport.
const (
	DefaultMaxRedirects        = 10
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
)

// Client sends requests over a pooled transport. It has no client-wide
// timeout; deadlines come from the caller's context.
type Client struct {
	hc      *http.Client
	headers http.Header
}

type clientConfig struct {
	followRedirects bool
	maxRedirects    int
	insecure        bool
	proxy           *neturl.URL
	headers         http.Header
	hc              *http.Client
}

type ClientOption func(*clientConfig)

func NewClient(opts ...ClientOption) *Client {
	cfg := clientConfig{
		followRedirects: true,
		maxRedirects:    DefaultMaxRedirects,
		headers:         make(http.Header),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	hc := cfg.hc
	if hc == nil {
		hc = &http.Client{
			Transport:     cfg.transport(),
			CheckRedirect: cfg.checkRedirect,
		}
	}
	return &Client{hc: hc, headers: cfg.headers}
}

func (cfg *clientConfig) transport() *http.Transport {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}
	if cfg.insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.proxy != nil {
		t.Proxy = http.ProxyURL(cfg.proxy)
	}
	return t
}

// checkRedirect stops at the last response instead of failing, so the
// redirect status itself can be asserted.
func (cfg *clientConfig) checkRedirect(req *http.Request, via []*http.Request) error {
	if !cfg.followRedirects || len(via) >= cfg.maxRedirects {
		return http.ErrUseLastResponse
	}
	return nil
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(cfg *clientConfig) { cfg.followRedirects = follow }
}

// WithMaxRedirects caps followed redirects; values below 1 keep the default.
func WithMaxRedirects(max int) ClientOption {
	return func(cfg *clientConfig) {
		if max > 0 {
			cfg.maxRedirects = max
		}
	}
}

// WithDefaultHeaders adds headers to every request. Request headers of the
// same name replace them.
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(cfg *clientConfig) {
		for k, v := range headers {
			cfg.headers.Set(k, v)
		}
	}
}

func WithValidateSSL(validate bool) ClientOption {
	return func(cfg *clientConfig) { cfg.insecure = !validate }
}

// WithProxy routes requests through proxy. Use ParseProxy to validate the
// URL first.
func WithProxy(proxy *neturl.URL) ClientOption {
	return func(cfg *clientConfig) { cfg.proxy = proxy }
}

// WithHTTPClient replaces the underlying client; transport options are ignored.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(cfg *clientConfig) { cfg.hc = hc }
}

// ParseProxy parses a proxy URL; it must be absolute.
func ParseProxy(raw string) (*neturl.URL, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: scheme and host are required", raw)
	}
	return u, nil
}

// Do sends the request. The returned response owns a live body stream that
// must be read or released; it stays bound to ctx until then.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := ValidateURL(req.URL); err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}

	var body io.Reader
	if req.HasBody() {
		raw, err := req.RawBody()
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}

	for k, vs := range c.headers {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	if host := req.Header.Get("Host"); host != "" {
		httpReq.Host = host
	}

	start := time.Now()
	httpResp, err := c.hc.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, newTransportError(req, err)
	}

	resp := NewResponse()
	resp.StatusCode = httpResp.StatusCode
	resp.StatusText = statusText(httpResp)
	resp.Proto = httpResp.Proto
	resp.Duration = duration
	resp.Header = httpResp.Header.Clone()
	resp.SetStream(&transportBody{ReadCloser: httpResp.Body, req: req})

	return resp, nil
}

// CloseIdleConnections closes pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.hc.CloseIdleConnections()
}

func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// transportBody turns read failures into transport errors so a timeout
// during body transfer is reported like one during the round trip.
type transportBody struct {
	io.ReadCloser
	req *Request
}

func (b *transportBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		return n, newTransportError(b.req, err)
	}
	return n, err
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	switch {
	case err != nil:
		return fmt.Errorf("invalid URL: %w", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("unsupported URL scheme %q (want http or https)", u.Scheme)
	case u.Host == "":
		return fmt.Errorf("URL %q has no host", rawURL)
	}
	return nil
}

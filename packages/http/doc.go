// Package http provides the HTTP message model and transport for hitrun.
//
// It wraps the standard library's http package with:
//   - Request and Response types that share a Message with a raw body and a
//     lazily decoded body (decoded at most once, strategy chosen by content type)
//   - Single-consume response body streams that must be released after use
//   - A Client with configurable timeouts, redirects, TLS and proxy
//   - Typed transport errors
package http

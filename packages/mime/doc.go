// Package mime maps content types to body decoding strategies.
//
// Every HTTP message body in hitrun is decoded through one of five
// strategies:
//   - Binary: opaque bytes
//   - Text: a UTF-8 string
//   - JSON: a decoded JSON value
//   - Blob: bytes tagged with their media type (images, archives, ...)
//   - Form: url-encoded or multipart fields as a map
package mime

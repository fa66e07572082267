// Package store persists transaction records and the booking event stream in
// Redis, the system's single external store. Records carry a fixed idle
// expiry from last write; the event stream is length-bounded and trimmed by
// the server.
package store

import "errors"

// ErrNotFound is returned when no record exists for a request id. The record
// may never have existed or may have expired; the two cases are
// indistinguishable by design. Handlers should translate this into an HTTP
// 404 response.
var ErrNotFound = errors.New("transaction not found")

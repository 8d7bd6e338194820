// Package types holds the wire envelopes shared by every API response.
package types

// SuccessEnvelope wraps a 2xx payload under a data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body: a stable machine-readable code, a
// human-readable message, and optional per-field details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an error key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

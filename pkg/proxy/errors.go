package proxy

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures on the forwarding path.
type ErrorKind string

const (
	// KindUnreachable means the upstream could not be reached at all
	// (connection refused, DNS, TLS).
	KindUnreachable ErrorKind = "upstream_unreachable"

	// KindProtocol means the upstream answered but its body could not be
	// read to completion.
	KindProtocol ErrorKind = "upstream_protocol_error"

	// KindLogWrite marks a failed append to the log store. It is logged
	// and counted, never surfaced to the client.
	KindLogWrite ErrorKind = "log_write_failure"
)

// UpstreamError is returned when talking to the upstream fails.
type UpstreamError struct {
	Kind   ErrorKind
	Target string
	Err    error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Target, e.Err)
}

// Unwrap returns the underlying cause error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUnreachable reports whether err is an UpstreamError of kind KindUnreachable.
func IsUnreachable(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == KindUnreachable
}

// DeliveryError is returned by Streamer.Deliver. Committed reports whether
// any part of the response (status line included) had already been sent to
// the client when the failure happened.
type DeliveryError struct {
	Committed bool
	Err       error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	state := "before response start"
	if e.Committed {
		state = "after response start"
	}
	return fmt.Sprintf("delivery failed %s: %v", state, e.Err)
}

// Unwrap returns the underlying cause error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// RequestError is a client-side problem with the inbound request.
type RequestError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ErrorBody is the JSON body sent for failures that happen before the
// response has started.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// HandleError maps err onto the status code and body sent to the client.
// Upstream failures become 502, inbound request problems keep their own
// status, and anything else is a 500.
func HandleError(err error) (int, ErrorBody) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status, ErrorBody{Error: "invalid request", Detail: reqErr.Message}
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		summary := "upstream request failed"
		if upErr.Kind == KindProtocol {
			summary = "upstream response failed"
		}
		return http.StatusBadGateway, ErrorBody{Error: summary, Detail: upErr.Error()}
	}

	return http.StatusInternalServerError, ErrorBody{Error: "proxy error", Detail: err.Error()}
}

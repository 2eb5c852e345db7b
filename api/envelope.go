// Package api holds the wire contract shared with the marketplace auth
// backend: the response envelope, the request and payload shapes, and the
// helpers that turn HTTP responses into typed results.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Response is the envelope every backend endpoint wraps its payload in.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Error is a backend rejection: a non-2xx status or a success:false envelope.
// The message is whatever the backend supplied, surfaced verbatim to callers.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Decode consumes an HTTP response, unwraps the envelope and unmarshals the
// data payload into out (which may be nil for endpoints whose body is
// ignored). A non-2xx status or success:false envelope is returned as *Error.
func Decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("[api.Decode] reading response body: %w", err)
	}

	var envelope Response
	// The envelope is best-effort on error statuses: proxies and load
	// balancers answer with non-JSON bodies.
	if len(body) > 0 {
		_ = json.Unmarshal(body, &envelope)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (len(body) > 0 && !envelope.Success) {
		message := envelope.Message
		if message == "" {
			message = envelope.Error
		}
		return &Error{Status: resp.StatusCode, Message: message}
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("[api.Decode] unmarshalling payload: %w", err)
	}
	return nil
}

// ErrorStatus returns the HTTP status carried by err when a backend
// rejection is anywhere in its chain, or zero when there is none.
func ErrorStatus(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

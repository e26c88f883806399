package services

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// CatalogError represents a structured error response from the Spotify API.
//
// StatusCode is the HTTP status of the failed request. Code carries the
// provider's error code when the response body included one.
type CatalogError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *CatalogError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("spotify API error: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

// UserMessage maps the status code to a message suitable for end-user display.
func (e *CatalogError) UserMessage() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "Spotify authentication failed. Please sign in again."
	case http.StatusForbidden:
		return "Your Spotify account does not grant access to this operation."
	case http.StatusTooManyRequests:
		return "Rate limited by Spotify. Please wait a moment and try again."
	default:
		return fmt.Sprintf("Spotify API error: %s", e.Message)
	}
}

// Temporary reports whether the error class is worth retrying: rate
// limiting and server-side failures, never other client errors.
func (e *CatalogError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// errorEnvelope matches the provider's structured error body.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// newCatalogError normalizes a non-2xx response into a [*CatalogError],
// preferring the provider's structured error body and falling back to the
// HTTP status text.
func newCatalogError(statusCode int, body []byte) *CatalogError {
	catErr := &CatalogError{
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			catErr.Message = envelope.Error.Message
		}
		catErr.Code = envelope.Error.Code
	}

	return catErr
}

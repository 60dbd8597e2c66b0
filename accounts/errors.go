package accounts

import (
	"errors"
	"fmt"
	"slices"
)

// EmailUnverifiedDetail is the field error the accounts API returns when an
// unverified user tries to log in.
const EmailUnverifiedDetail = "Please verify your email address before logging in."

// APIError is a non-2xx answer from the accounts API.
type APIError struct {
	Status  int
	Message string
	// Details maps a field name to its validation messages.
	Details map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("accounts api: status %d", e.Status)
	}
	return fmt.Sprintf("accounts api: status %d: %s", e.Status, e.Message)
}

// IsEmailUnverified reports whether err is the API's unverified-email
// rejection.
func IsEmailUnverified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return slices.Contains(apiErr.Details["email"], EmailUnverifiedDetail)
}

// MessageOf returns the API's human-readable message, or fallback when err
// carries none.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type errorBody struct {
	Message string `json:"message"`
	Error   *struct {
		Message string              `json:"message"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
}

func (b errorBody) toAPIError(status int) *APIError {
	e := &APIError{Status: status, Message: b.Message}
	if b.Error != nil {
		if e.Message == "" {
			e.Message = b.Error.Message
		}
		e.Details = b.Error.Details
	}
	return e
}

package nationbuilder

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes returned by the API in [RemoteError.Code].
const (
	CodeNotFound         = "not_found"
	CodeNoMatches        = "no_matches"
	CodeMultipleMatches  = "multiple_matches"
	CodeValidationFailed = "validation_failed"
	CodeUnauthorized     = "unauthorized"
	CodeServerError      = "server_error"
)

// RemoteError is returned when the API answers with a non-2xx status code.
// It wraps [ErrStatus].
type RemoteError struct {
	StatusCode       int      `json:"-"`
	Code             string   `json:"code"`
	Message          string   `json:"message"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d", http.StatusText(e.StatusCode), e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.ValidationErrors) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.ValidationErrors, "; "))
	}

	return b.String()
}

// Unwrap allows errors.Is(err, ErrStatus).
func (e *RemoteError) Unwrap() error {
	return ErrStatus
}

// Validation returns the validation errors joined as a single error, or nil.
func (e *RemoteError) Validation() error {
	errs := make([]error, 0, len(e.ValidationErrors))
	for _, v := range e.ValidationErrors {
		errs = append(errs, errors.New(v))
	}

	return errors.Join(errs...)
}

// HasCode reports whether err is a [RemoteError] with the given code.
func HasCode(err error, code string) bool {
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		return false
	}

	return rerr.Code == code
}

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		return false
	}

	return rerr.StatusCode == http.StatusNotFound || rerr.Code == CodeNotFound
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		return false
	}

	return rerr.StatusCode == http.StatusUnauthorized || rerr.StatusCode == http.StatusForbidden
}

// Page is a single page of results returned by an index endpoint.
type Page[T any] struct {
	Results []T `json:"results"`
	// Next is the pagination cursor of the following page, empty on the last page.
	Next string `json:"next"`
	// Prev is the pagination cursor of the previous page.
	Prev string `json:"prev"`
}

// HasNext reports whether another page can be fetched.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != ""
}

// LimitParams holds the page size of index endpoints.
type LimitParams struct {
	// Limit is the number of results per page. Default 10, max 100.
	Limit int `url:"limit,omitempty"`
}

// RegisterResponse is returned by [Client.RegisterPerson].
type RegisterResponse struct {
	Status string `json:"status"`
}

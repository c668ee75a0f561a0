package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a non-2xx response from the release API. The API
// returns structured JSON error bodies with a message, an optional
// documentation URL, and optional field-level validation errors.
type APIError struct {
	Message          string
	DocumentationURL string
	Errors           []ValidationError
	StatusCode       int
}

// ValidationError describes a specific validation failure on a resource
// field. Returned on 422 responses.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (e *APIError) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "release api: HTTP %d: %s", e.StatusCode, e.Message)

	for _, ve := range e.Errors {
		if ve.Message != "" {
			fmt.Fprintf(b, "; %s.%s: %s", ve.Resource, ve.Field, ve.Message)
		} else {
			fmt.Fprintf(b, "; %s.%s: %s", ve.Resource, ve.Field, ve.Code)
		}
	}

	return b.String()
}

// IsNotFound reports whether err is a 404 Not Found API response.
func IsNotFound(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 Conflict API response.
func IsConflict(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsUnprocessable reports whether err is a 422 Unprocessable Entity API
// response.
func IsUnprocessable(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity
}

// IsTagConflict reports whether err means the release tag already
// exists. The API signals this as a 422 whose validation errors carry
// the code "already_exists".
func IsTagConflict(err error) bool {
	apiErr := &APIError{}
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		return false
	}

	for _, ve := range apiErr.Errors {
		if ve.Code == "already_exists" {
			return true
		}
	}

	return false
}

// parseAPIError builds an [*APIError] from a non-2xx response body.
// Unparseable bodies still produce an error carrying the status code.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var parsed struct {
		Message          string            `json:"message"`
		DocumentationURL string            `json:"documentation_url"`
		Errors           []ValidationError `json:"errors"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))

		return apiErr
	}

	apiErr.Message = parsed.Message
	apiErr.DocumentationURL = parsed.DocumentationURL
	apiErr.Errors = parsed.Errors

	return apiErr
}

package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is an HTTP-level failure from the authority. The status code and
// the server's own message are preserved so callers can distinguish
// validation failures (4xx) from server trouble (5xx).
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authority returned %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("authority returned %s", e.Status)
}

// IsServerError reports whether the failure was on the authority's side.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// newAPIError drains the response body looking for the common
// {"error": "..."} / {"message": "..."} shapes; anything else is kept as a
// short raw snippet.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			apiErr.Message = payload.Error
			return apiErr
		case payload.Message != "":
			apiErr.Message = payload.Message
			return apiErr
		}
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a provider error, either from a non-2xx response or from
// an error event on the stream.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("anthropic: %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("anthropic: %s: %s", e.Kind, e.Message)
}

type errorEnvelope struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseAPIError decodes the provider's error JSON, falling back to the
// raw body when it is not the documented shape.
func parseAPIError(statusCode int, body []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Type != "" {
		return &APIError{
			StatusCode: statusCode,
			Kind:       env.Error.Type,
			Message:    env.Error.Message,
		}
	}
	return &APIError{
		StatusCode: statusCode,
		Kind:       "api_error",
		Message:    strings.TrimSpace(string(body)),
	}
}

// IsOverloaded reports whether err is a capacity or rate-limit
// condition worth retrying on a fallback model. Status codes and error
// types are checked first; the message-text match is a best-effort
// heuristic, since provider error taxonomies are not a stable contract.
func IsOverloaded(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 429, 529:
		return true
	}
	switch apiErr.Kind {
	case "overloaded_error", "rate_limit_error":
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "overloaded") || strings.Contains(msg, "rate limit")
}

package transport

import (
	"fmt"
	"net/http"

	interrors "github.com/dialdesk/go-console/internal/errors"
)

// Kind classifies a failed request for the caller's error-handling policy:
// validation errors are shown inline, server errors as transient failures,
// unauthorized is handled globally before the caller ever sees it.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindValidation
	KindUnauthorized
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// APIError is the classified failure of one request. Message is the
// human-readable text from the response body when the backend supplied one.
type APIError struct {
	StatusCode int
	Kind       Kind
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
}

// Unwrap maps the kind onto the module's sentinel errors so callers can use
// errors.Is without reaching into the struct.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case KindNetwork:
		return interrors.ErrNetwork
	case KindUnauthorized:
		return interrors.ErrUnauthorized
	case KindServer:
		return interrors.ErrServer
	}
	return nil
}

// errorBody is the backend's error envelope. Both field names occur across
// endpoints.
type errorBody struct {
	Message  string `json:"message"`
	ErrorMsg string `json:"error"`
}

func (b errorBody) text(statusCode int) string {
	if b.Message != "" {
		return b.Message
	}
	if b.ErrorMsg != "" {
		return b.ErrorMsg
	}
	return http.StatusText(statusCode)
}

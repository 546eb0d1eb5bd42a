package qualtrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrEmptyExport means the export completed but holds no responses.
	ErrEmptyExport = errors.New("export contains no responses")
	// ErrExportTimeout is matched by every *ExportTimeoutError.
	ErrExportTimeout = errors.New("export did not complete")
	// ErrMalformedResponse marks an API answer that could not be decoded.
	ErrMalformedResponse = errors.New("malformed api response")
)

// APIError is a non 2xx answer from the Qualtrics API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: qualtrics returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

type ExportTimeoutError struct {
	SurveyID string
	Attempts int
	Percent  float64
}

func (e *ExportTimeoutError) Error() string {
	return fmt.Sprintf("export of survey %s not ready after %d attempts (%.0f%% complete)", e.SurveyID, e.Attempts, e.Percent)
}

func (e *ExportTimeoutError) Is(target error) bool {
	return target == ErrExportTimeout
}

// DecodeError is returned when a downloaded export archive cannot be turned into responses.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding export: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decoding export: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRetryable tells whether a failed call may succeed when repeated.
// Transport failures, throttling, server errors and garbled bodies are retryable;
// other client errors (bad token, unknown export) and cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

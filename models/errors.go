package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeUpstreamHTTP      = "UPSTREAM_HTTP"
	ErrCodeEmptyResponse     = "EMPTY_RESPONSE"
	ErrCodeNoPriceFound      = "NO_PRICE_FOUND"
	ErrCodePriceNotFound     = "PRICE_NOT_FOUND"
	ErrCodeScrapeFailed      = "SCRAPE_FAILED"

	// Boundary codes produced by the HTTP layer.
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Status  int   // upstream HTTP status, set only for UPSTREAM_HTTP
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError. A non-nil cause is wrapped with
// eris so the stack of the failure site is kept for debug responses.
func NewScrapeError(code, message string, err error) *ScrapeError {
	if err != nil {
		err = eris.Wrap(err, message)
	}
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// NewUpstreamError reports a non-success HTTP status from the marketplace
// or the proxy in front of it.
func NewUpstreamError(status int, message string) *ScrapeError {
	return &ScrapeError{
		Code:    ErrCodeUpstreamHTTP,
		Message: message,
		Status:  status,
		Err:     eris.Errorf("upstream responded with status %d", status),
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message, Status: e.Status}
}

// AsScrapeError returns err as a *ScrapeError, wrapping foreign errors as
// INTERNAL_ERROR. Context deadlines that escaped a component are reported as
// TIMEOUT.
func AsScrapeError(err error) *ScrapeError {
	if err == nil {
		return nil
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewScrapeError(ErrCodeTimeout, "operation timed out", err)
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}

// CodeOf returns the error code carried by err, or "" when err is nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return AsScrapeError(err).Code
}

// UpstreamStatus returns the upstream HTTP status carried by err, or 0.
func UpstreamStatus(err error) int {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// StackOf renders the eris stack trace of err for debug responses.
func StackOf(err error) string {
	if err == nil {
		return ""
	}
	return eris.ToString(err, true)
}

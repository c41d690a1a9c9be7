package models

import (
	"errors"
	"fmt"
)

// Error codes used in logs and internal error handling.
const (
	// ErrCodeTransientFetch marks network/timeout/rate-limit failures that
	// are retried with backoff before the page is declared failed.
	ErrCodeTransientFetch = "TRANSIENT_FETCH"

	// ErrCodeStructuralParse marks a page whose markup no longer matches
	// the expected listing structure (possible site-layout change).
	ErrCodeStructuralParse = "STRUCTURAL_PARSE"

	// ErrCodeSubsidiaryExhausted marks a subsidiary that could not be
	// walked to the end of its listing.
	ErrCodeSubsidiaryExhausted = "SUBSIDIARY_EXHAUSTED"

	// ErrCodePersistence marks a batch flush failure. Fatal to the run
	// after retries, but never destructive to already-flushed data.
	ErrCodePersistence = "PERSISTENCE_FAILED"

	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeFetchTimeout  = "FETCH_TIMEOUT"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
)

// CrawlError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CrawlError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(code, message string, err error) *CrawlError {
	return &CrawlError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err is (or wraps) a CrawlError with the given code.
func HasCode(err error, code string) bool {
	var ce *CrawlError
	return errors.As(err, &ce) && ce.Code == code
}

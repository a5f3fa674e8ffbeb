package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBusy is returned when a pipeline run is already active. It is surfaced
// immediately to the caller and never retried internally.
var ErrBusy = errors.New("pipeline run already active")

// FetchError is a network, timeout, or HTTP-status failure. StatusCode is
// zero for transport-level failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying: transport errors,
// timeouts, throttling, and server-side errors.
func (e *FetchError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ParseError is a page or row shape mismatch. Not retryable; scoped to the
// page or row it names.
type ParseError struct {
	URL    string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Detail)
}

// NormalizationError is a record-scoped schema coercion failure tagged with
// the offending field.
type NormalizationError struct {
	URL   string
	Field string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: field %q: %v", e.URL, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// LoadError is a storage-layer failure scoped to one record.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FatalRunError marks an unrecoverable mid-run condition, such as the
// persistent store being unreachable. It aborts the run; the gate is still
// released and partial progress preserved.
type FatalRunError struct {
	Err error
}

func (e *FatalRunError) Error() string {
	return fmt.Sprintf("fatal run error: %v", e.Err)
}

func (e *FatalRunError) Unwrap() error { return e.Err }

// IsFatal reports whether err is (or wraps) a FatalRunError.
func IsFatal(err error) bool {
	var fatal *FatalRunError
	return errors.As(err, &fatal)
}

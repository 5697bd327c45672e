package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates a non-200 response that is never retried.
type ErrHTTPStatus struct {
	Status int
	Err    error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Errorf("http status %d: %w", e.Status, e.Err).Error()
}

func (e ErrHTTPStatus) Unwrap() error {
	return e.Err
}

// ErrThrottled indicates the retry ceiling was exhausted on 429 responses.
type ErrThrottled struct {
	Attempts int
	Err      error
}

func (e ErrThrottled) Error() string {
	return fmt.Errorf("throttled after %d attempts: %w", e.Attempts, e.Err).Error()
}

func (e ErrThrottled) Unwrap() error {
	return e.Err
}

// ErrParse indicates a fetched document could not be parsed.
type ErrParse struct {
	What string
	Err  error
}

func (e ErrParse) Error() string {
	return fmt.Errorf("parse %s: %w", e.What, e.Err).Error()
}

func (e ErrParse) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var throttled ErrThrottled
	if errors.As(err, &throttled) {
		return "throttled"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		switch status.Status {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		default:
			return "http_status"
		}
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var parse ErrParse
	if errors.As(err, &parse) {
		return "parse"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "other"
}

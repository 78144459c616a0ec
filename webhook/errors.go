package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/marcelsud/webhook-relay/failure"
)

// ErrorKind classifies why a forward did not succeed
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindConnectionReset   ErrorKind = "connection_reset"
	KindConnectionRefused ErrorKind = "connection_refused"
	KindTooManyRedirects  ErrorKind = "too_many_redirects"
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindNetwork           ErrorKind = "network"
	KindDownstreamStatus  ErrorKind = "downstream_status"
	KindNotConfigured     ErrorKind = "not_configured"
	KindVerification      ErrorKind = "verification"
)

// ErrTooManyRedirects is returned by the redirect policy once the limit is hit
var ErrTooManyRedirects = errors.New("too many redirects")

// NetworkError is a forward that never produced a downstream response
type NetworkError struct {
	Kind   ErrorKind
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DownstreamError is a forward answered with a non-2xx status
type DownstreamError struct {
	URL     string
	Status  int
	Body    []byte
	Headers http.Header
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream %s returned status %d", e.URL, e.Status)
}

// Kind returns the classification of any error produced by Client.Send
func Kind(err error) ErrorKind {
	var downstreamErr *DownstreamError
	var networkErr *NetworkError
	switch {
	case errors.As(err, &downstreamErr):
		return KindDownstreamStatus
	case errors.As(err, &networkErr):
		return networkErr.Kind
	default:
		return KindNetwork
	}
}

// ErrorDetails turns a forwarding error into the diagnostics stored with a failure record
func ErrorDetails(err error) failure.Details {
	var downstreamErr *DownstreamError
	if errors.As(err, &downstreamErr) {
		return failure.Details{
			"kind":     string(KindDownstreamStatus),
			"message":  err.Error(),
			"status":   downstreamErr.Status,
			"response": string(downstreamErr.Body),
			"headers":  map[string][]string(downstreamErr.Headers),
		}
	}

	details := failure.Details{
		"kind":    string(Kind(err)),
		"message": err.Error(),
	}
	var networkErr *NetworkError
	if errors.As(err, &networkErr) && networkErr.Err != nil {
		details["cause"] = networkErr.Err.Error()
	}
	return details
}

// classify wraps a transport error from http.Client.Do
func classify(method, url string, err error) *NetworkError {
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, ErrTooManyRedirects):
		kind = KindTooManyRedirects
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = KindConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		kind = KindConnectionReset
	}
	return &NetworkError{Kind: kind, Method: method, URL: url, Err: err}
}

package client

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrorKind classifies an upstream failure by how the caller should react,
// not by its transport detail.
type ErrorKind int

const (
	// KindInternal covers anything without a more specific bucket.
	KindInternal ErrorKind = iota
	// KindUnauthorized covers both missing and insufficient credentials:
	// the server's 401 and 403 answers demand the same reaction, a fresh
	// login.
	KindUnauthorized
	// KindNotFound means the addressed resource does not exist upstream.
	KindNotFound
	// KindUnprocessable means the server rejected the payload as invalid.
	KindUnprocessable
	// KindRateLimited means the server is throttling; retry later.
	KindRateLimited
	// KindConnectivity covers network-level failures: no route, refused,
	// timeout.
	KindConnectivity
	// KindUserInput means the configured blog address itself is not a
	// usable URL.
	KindUserInput
	// KindTLS means the TLS handshake failed, typically a bad certificate.
	KindTLS
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindUnprocessable:
		return "unprocessable"
	case KindRateLimited:
		return "rate_limited"
	case KindConnectivity:
		return "connectivity"
	case KindUserInput:
		return "user_input"
	case KindTLS:
		return "tls"
	default:
		return "internal"
	}
}

// APIError is the error type returned by every Client operation that
// failed upstream.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure is plausibly transient.
func (e *APIError) Retryable() bool {
	return e.Kind == KindConnectivity || e.Kind == KindRateLimited ||
		(e.Kind == KindInternal && e.StatusCode >= 500)
}

// KindOf extracts the classification of an error, KindInternal when it is
// not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

func statusError(code int, msg string) *APIError {
	e := &APIError{Kind: KindInternal, StatusCode: code, Message: msg}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case code == http.StatusNotFound:
		e.Kind = KindNotFound
	case code == http.StatusUnprocessableEntity:
		e.Kind = KindUnprocessable
	case code == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	}
	return e
}

// wrapTransportError buckets errors raised before any HTTP status was
// received.
func wrapTransportError(err error) *APIError {
	var (
		tlsRecord tls.RecordHeaderError
		tlsCert   *tls.CertificateVerificationError
		hostErr   x509.HostnameError
		authErr   x509.UnknownAuthorityError
		urlErr    *url.Error
		netErr    net.Error
	)
	switch {
	case errors.As(err, &tlsRecord), errors.As(err, &tlsCert),
		errors.As(err, &hostErr), errors.As(err, &authErr):
		return &APIError{Kind: KindTLS, Message: err.Error()}
	case errors.As(err, &urlErr) && urlErr.Op == "parse":
		return &APIError{Kind: KindUserInput, Message: err.Error()}
	case errors.As(err, &netErr):
		return &APIError{Kind: KindConnectivity, Message: err.Error()}
	default:
		return &APIError{Kind: KindConnectivity, Message: err.Error()}
	}
}

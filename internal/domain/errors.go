package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the canonical error taxonomy surfaced to clients (§7).
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuthentication
	KindPermission
	KindValidation
	KindRateLimit
	KindTimeout
	KindUpstream
	KindTokenRefresh
)

// HTTPStatus returns the status code associated with a kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindAuthentication, KindTokenRefresh:
		return 401
	case KindPermission:
		return 403
	case KindValidation:
		return 400
	case KindRateLimit:
		return 429
	case KindTimeout:
		return 504
	case KindUpstream:
		return 502
	default:
		return 500
	}
}

var (
	ErrAuthentication = errors.New("authentication error")
	ErrPermission     = errors.New("permission error")
	ErrValidation     = errors.New("validation error")
	ErrRateLimit      = errors.New("rate limit error")
	ErrTimeout        = errors.New("timeout error")
	ErrUpstream       = errors.New("upstream error")
	ErrTokenRefresh   = errors.New("token refresh error")
	ErrInternal       = errors.New("internal error")

	ErrFirstByteTimeout  = errors.New("first byte timeout")
	ErrStreamIdleTimeout = errors.New("stream idle timeout")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

var sentinelForKind = map[ErrorKind]error{
	KindAuthentication: ErrAuthentication,
	KindPermission:     ErrPermission,
	KindValidation:     ErrValidation,
	KindRateLimit:      ErrRateLimit,
	KindTimeout:        ErrTimeout,
	KindUpstream:       ErrUpstream,
	KindTokenRefresh:   ErrTokenRefresh,
	KindInternal:       ErrInternal,
}

// ProxyError is the single error type propagated through CM/UC/ESP/TP. Kind
// determines the HTTP status and client-visible shape; Retryable is consulted
// by UC's retry policy.
type ProxyError struct {
	Kind      ErrorKind
	Err       error
	Retryable bool
	Message   string
}

func (e *ProxyError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

func (e *ProxyError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelForKind[e.Kind]
}

func NewProxyError(kind ErrorKind, err error, retryable bool) *ProxyError {
	if err == nil {
		err = sentinelForKind[kind]
	}
	return &ProxyError{Kind: kind, Err: err, Retryable: retryable}
}

func NewProxyErrorf(kind ErrorKind, retryable bool, format string, args ...any) *ProxyError {
	return &ProxyError{Kind: kind, Err: sentinelForKind[kind], Retryable: retryable, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from any error, defaulting to KindInternal.
func KindOf(err error) ErrorKind {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err should be retried by UC's retry policy.
func IsRetryable(err error) bool {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes a failure from an exchange interaction.
// The taxonomy is fixed: transports, decoders and adapters all classify
// into one of these kinds so that multi-exchange callers can branch on the
// kind rather than on venue-specific payloads.
type ErrorKind int

// Error kind constants. KindExchangeError is the generic base kind and catch-all.
const (
	// KindExchangeError is the generic exchange failure and the catch-all
	// for anything the taxonomy does not name more precisely.
	KindExchangeError ErrorKind = iota
	// KindAuthenticationError indicates missing or rejected credentials.
	KindAuthenticationError
	// KindInvalidAddress indicates a malformed deposit or withdrawal address.
	KindInvalidAddress
	// KindNotSupported indicates a capability the adapter does not implement.
	KindNotSupported
	// KindBadSymbol indicates a symbol absent from the loaded market table.
	KindBadSymbol
	// KindExchangeNotAvailable indicates maintenance, DDoS mitigation pages,
	// network-level failure, or an otherwise unmapped 4xx/5xx status.
	KindExchangeNotAvailable
	// KindDDoSProtection indicates the venue's anti-DDoS layer answered
	// instead of the API.
	KindDDoSProtection
	// KindRateLimitExceeded indicates the venue rejected the call for
	// exceeding its request budget.
	KindRateLimitExceeded
	// KindRequestTimeout indicates the request exceeded its deadline.
	KindRequestTimeout
	// KindNetworkError indicates a DNS, connection or TLS level failure.
	KindNetworkError
	// KindBadRequest indicates invalid request parameters.
	KindBadRequest
	// KindInvalidOrder indicates an order that violates the venue's rules.
	KindInvalidOrder
	// KindInsufficientFunds indicates the account lacks the required balance.
	KindInsufficientFunds
	// KindOrderNotFound indicates the referenced order does not exist.
	KindOrderNotFound
	// KindArgumentsRequired indicates a call missing a mandatory argument.
	KindArgumentsRequired
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	return [...]string{
		"ExchangeError",
		"AuthenticationError",
		"InvalidAddress",
		"NotSupported",
		"BadSymbol",
		"ExchangeNotAvailable",
		"DDoSProtection",
		"RateLimitExceeded",
		"RequestTimeout",
		"NetworkError",
		"BadRequest",
		"InvalidOrder",
		"InsufficientFunds",
		"OrderNotFound",
		"ArgumentsRequired",
	}[k]
}

// Error is a structured failure from an exchange interaction.
// The rendered message always begins with the exchange id so that callers
// aggregating across adapters can tell the sources apart.
type Error struct {
	// Kind categorizes the error for programmatic handling.
	Kind ErrorKind `json:"kind"`
	// Exchange identifies the adapter that produced this error.
	Exchange string `json:"exchange"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// HTTPStatus is the HTTP status code, when the error came from a response.
	HTTPStatus int `json:"http_status,omitempty"`
	// Method is the HTTP method of the failing request, when known.
	Method string `json:"method,omitempty"`
	// URL is the failing request URL, when known.
	URL string `json:"url,omitempty"`
	// Cause is the underlying error, when one exists.
	Cause error `json:"-"`
}

// Error implements the error interface. The exchange id leads the message.
func (e *Error) Error() string {
	parts := []string{e.Exchange, e.Kind.String()}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error of the given kind for the given exchange.
func NewError(kind ErrorKind, exchange, message string) *Error {
	return &Error{
		Kind:     kind,
		Exchange: exchange,
		Message:  message,
	}
}

// NewErrorf creates an Error with a formatted message.
func NewErrorf(kind ErrorKind, exchange, format string, args ...any) *Error {
	return NewError(kind, exchange, fmt.Sprintf(format, args...))
}

// NotSupported returns a KindNotSupported error for an unimplemented capability.
func NotSupported(exchange, capability string) *Error {
	return NewError(KindNotSupported, exchange, capability+" not supported yet")
}

// KindOf extracts the ErrorKind from err. Errors outside the taxonomy report
// KindExchangeError, the generic base kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExchangeError
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable reports whether the error kind is typically transient:
// exchange unavailability, DDoS mitigation, rate limiting, timeouts and
// network failures. Authentication and order errors are terminal.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindExchangeNotAvailable, KindDDoSProtection, KindRateLimitExceeded,
		KindRequestTimeout, KindNetworkError:
		return true
	}
	return false
}

// HTTPExceptions is the fixed HTTP status to error kind table consulted by
// the default response classifier. Adapters may override single entries via
// their Describe config but never mutate this table.
var HTTPExceptions = map[int]ErrorKind{
	400: KindExchangeNotAvailable,
	401: KindAuthenticationError,
	403: KindExchangeNotAvailable,
	404: KindExchangeNotAvailable,
	405: KindExchangeNotAvailable,
	408: KindRequestTimeout,
	409: KindExchangeNotAvailable,
	410: KindExchangeNotAvailable,
	418: KindDDoSProtection,
	422: KindExchangeError,
	429: KindRateLimitExceeded,
	500: KindExchangeNotAvailable,
	501: KindExchangeNotAvailable,
	502: KindExchangeNotAvailable,
	503: KindExchangeNotAvailable,
	504: KindRequestTimeout,
	511: KindAuthenticationError,
	520: KindExchangeNotAvailable,
	521: KindExchangeNotAvailable,
	522: KindExchangeNotAvailable,
	525: KindExchangeNotAvailable,
	526: KindExchangeNotAvailable,
	530: KindExchangeNotAvailable,
}

// ExceptionMap classifies venue error payloads into kinds. Exact entries
// match a whole error code or message; Broad entries match by substring
// search over the response body (broadly-matched exceptions). Both tables
// are read-only after construction.
type ExceptionMap struct {
	Exact map[string]ErrorKind
	Broad map[string]ErrorKind
}

// MatchExact returns the kind mapped to s, if any.
func (m ExceptionMap) MatchExact(s string) (ErrorKind, bool) {
	kind, ok := m.Exact[s]
	return kind, ok
}

// MatchBroad returns the kind of the first Broad key contained in s, if any.
// Iteration order over the table is not specified; tables whose keys overlap
// should not rely on which one wins.
func (m ExceptionMap) MatchBroad(s string) (ErrorKind, bool) {
	for key, kind := range m.Broad {
		if strings.Contains(s, key) {
			return kind, true
		}
	}
	return 0, false
}

package errors

import (
	"fmt"
	"strings"
)

// Common sentinel errors for use across go-ews.
// Use these with errors.Is() for type-safe error checking.
var (
	// ErrDoesNotExist indicates a get() that matched no items
	ErrDoesNotExist = New("item does not exist")

	// ErrMultipleResults indicates a get() that matched more than one item
	ErrMultipleResults = New("multiple items returned")

	// ErrNoOrdering indicates a reverse() on a query that has no order_by()
	ErrNoOrdering = New("reverse requires an ordering")

	// ErrAborted marks batch items whose chunk was never dispatched because
	// an earlier chunk failed fatally
	ErrAborted = New("operation aborted")
)

// InvalidLookupError indicates a malformed field__operator specifier.
type InvalidLookupError struct {
	Spec   string // the specifier as given, e.g. "start__between"
	Reason string
}

func (e *InvalidLookupError) Error() string {
	return fmt.Sprintf("invalid lookup %q: %s", e.Spec, e.Reason)
}

// UnknownFieldError indicates a field path that the schema does not know.
type UnknownFieldError struct {
	Path []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", strings.Join(e.Path, "__"))
}

// UnsupportedLookupError indicates an operator that is not valid for the
// field's declared type, e.g. a substring match on a boolean.
type UnsupportedLookupError struct {
	Field    string
	Operator string
}

func (e *UnsupportedLookupError) Error() string {
	return fmt.Sprintf("lookup %q is not supported on field %q", e.Operator, e.Field)
}

// TypeCoercionError indicates an operand that cannot be converted to the
// field's declared type.
type TypeCoercionError struct {
	Field string
	Value any
	Want  string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %v (%T) to %s for field %q", e.Value, e.Value, e.Want, e.Field)
}

// ConfigurationError indicates an invalid chain of query builder calls, e.g.
// Only() after Values() or Reverse() without ordering.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "query configuration error: " + e.Reason
}

// Well-known remote fault kinds. The set mirrors the response codes the
// backend actually sends; anything else is classified by the Retryable flag
// the dispatcher sets.
const (
	KindServerBusy      = "ErrorServerBusy"
	KindTimeout         = "ErrorTimeoutExpired"
	KindConnection      = "ErrorConnectionFailed"
	KindInternalError   = "ErrorInternalServerError"
	KindInvalidRequest  = "ErrorInvalidRequest"
	KindSchemaViolation = "ErrorSchemaValidation"
	KindAccessDenied    = "ErrorAccessDenied"
	KindItemNotFound    = "ErrorItemNotFound"
	KindQuotaExceeded   = "ErrorQuotaExceeded"
)

// RemoteError is a failure reported by the dispatch service, either for a
// whole request or for a single item within a bulk response.
type RemoteError struct {
	Kind      string
	Message   string
	Retryable bool
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "remote error: " + e.Kind
	}
	return fmt.Sprintf("remote error %s: %s", e.Kind, e.Message)
}

// NewRemote creates a RemoteError with retryability derived from the kind.
func NewRemote(kind, message string) *RemoteError {
	return &RemoteError{Kind: kind, Message: message, Retryable: kindRetryable(kind)}
}

func kindRetryable(kind string) bool {
	switch kind {
	case KindServerBusy, KindTimeout, KindConnection, KindInternalError:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is (or wraps) a RemoteError that the
// backend may accept on a later attempt. Compile-time errors and
// schema/validation faults are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var remote *RemoteError
	if As(err, &remote) {
		return remote.Retryable
	}
	return false
}

// IsThrottled reports whether err is a server-busy throttling fault.
func IsThrottled(err error) bool {
	var remote *RemoteError
	return As(err, &remote) && remote.Kind == KindServerBusy
}

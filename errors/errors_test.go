package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesChain(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
	assert.Nil(t, Wrap(nil, "context"))
}

func TestAsFindsTypedError(t *testing.T) {
	original := &UnknownFieldError{Path: []string{"organizer", "email"}}
	wrapped := Wrap(original, "compiling restriction")

	var target *UnknownFieldError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, []string{"organizer", "email"}, target.Path)
}

func TestStackTrace(t *testing.T) {
	detailed := fmt.Sprintf("%+v", New("with stack"))
	assert.Contains(t, detailed, "errors_test.go")
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&InvalidLookupError{Spec: "start__between", Reason: "unrecognized operator \"between\""},
			`invalid lookup "start__between": unrecognized operator "between"`},
		{&UnknownFieldError{Path: []string{"subjekt"}}, `unknown field "subjekt"`},
		{&UnsupportedLookupError{Field: "is_read", Operator: "icontains"},
			`lookup "icontains" is not supported on field "is_read"`},
		{&ConfigurationError{Reason: "reverse() requires order_by()"},
			"query configuration error: reverse() requires order_by()"},
		{&RemoteError{Kind: KindServerBusy, Message: "back off"},
			"remote error ErrorServerBusy: back off"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestNewRemoteClassification(t *testing.T) {
	tests := []struct {
		kind      string
		retryable bool
	}{
		{KindServerBusy, true},
		{KindTimeout, true},
		{KindConnection, true},
		{KindInternalError, true},
		{KindInvalidRequest, false},
		{KindSchemaViolation, false},
		{KindAccessDenied, false},
		{KindItemNotFound, false},
	}
	for _, tt := range tests {
		err := NewRemote(tt.kind, "")
		assert.Equal(t, tt.retryable, err.Retryable, tt.kind)
		assert.Equal(t, tt.retryable, IsRetryable(err), tt.kind)
	}
}

func TestIsRetryableThroughWrapping(t *testing.T) {
	err := Wrap(NewRemote(KindServerBusy, "throttled"), "page 3")
	assert.True(t, IsRetryable(err))
	assert.True(t, IsThrottled(err))

	assert.False(t, IsRetryable(New("plain")))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsThrottled(NewRemote(KindTimeout, "")))
}

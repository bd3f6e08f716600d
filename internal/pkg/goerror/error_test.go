package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "Server", err: NewServer(errors.New("boom")), want: http.StatusInternalServerError},
		{name: "TooMany", err: NewBusiness("slow down", CodeTooManyRequest), want: http.StatusTooManyRequests},
		{name: "Unauthorized", err: NewBusiness("wrong code", CodeUnauthorized), want: http.StatusUnauthorized},
		{name: "Gone", err: NewBusiness("expired", CodeGone), want: http.StatusGone},
		{name: "InvalidFormat", err: NewInvalidFormat(), want: http.StatusBadRequest},
		{name: "InvalidInput", err: NewInvalidInput(nil, "phone", "invalid"), want: http.StatusUnprocessableEntity},
		{name: "UnknownCode", err: NewBusiness("?", Code(99)), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge, ok := As(fmt.Errorf("wrapped: %w", tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.want, ge.StatusCode())
		})
	}
}

func TestNewInvalidInput(t *testing.T) {
	ge, ok := As(NewInvalidInput(nil, "phone", "must be E.164", "code", "required"))
	require.True(t, ok)
	assert.Equal(t, map[string]string{"phone": "must be E.164", "code": "required"}, ge.Fields())

	ge, _ = As(NewInvalidInput(nil, "dangling"))
	assert.Equal(t, CodeInvalidFormat, ge.Code())

	cause := errors.New("cause")
	assert.ErrorIs(t, NewInvalidInput(cause), cause)
}

func TestError_Message(t *testing.T) {
	cause := errors.New("redis down")
	err := NewServer(cause)

	assert.Equal(t, "redis down", err.Error())
	assert.ErrorIs(t, err, cause)

	ge, _ := As(err)
	assert.Equal(t, "Internal server error", ge.Msg())
	assert.Equal(t, TypeServer, ge.Type())
	assert.Contains(t, ge.String(), "ERROR_CODE_INTERNAL")

	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}

package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_errorEvents(t *testing.T) {
	tcases := []struct {
		name    string
		event   *ServerEvent
		expCode int
		expMsg  string
	}{
		{
			name:    "internal error",
			event:   ErrInternalError(),
			expCode: http.StatusInternalServerError,
			expMsg:  "internal server error",
		},
		{
			name:    "invalid message",
			event:   ErrInvalidMessage(),
			expCode: http.StatusBadRequest,
			expMsg:  "invalid message format",
		},
		{
			name:    "service unavailable",
			event:   ErrServiceUnavailable(),
			expCode: http.StatusServiceUnavailable,
			expMsg:  "service unavailable",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, EventError, tc.event.Event, "expected event name to be %s", EventError)
			assert.False(t, tc.event.Timestamp.IsZero(), "expected timestamp to be set")

			data, ok := tc.event.Data.(ErrorData)
			assert.True(t, ok, "expected error event data to be ErrorData")
			assert.Equal(t, tc.expCode, data.Code, "expected code to be %d", tc.expCode)
			assert.Equal(t, tc.expMsg, data.Message, "expected message to be %q", tc.expMsg)
		})
	}
}

func Test_Now(t *testing.T) {
	now := Now()
	assert.Equal(t, now, now.Round(0).UTC(), "expected timestamp in UTC")
	assert.Zero(t, now.Nanosecond()%1e6, "expected millisecond precision")
}

package mcpclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldFallbackToSSE_MatchesKnownTriggers(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"missing session id", errors.New(`request failed: Missing sessionId parameter`), true},
		{"404", errors.New("unexpected status code: HTTP 404"), true},
		{"405", errors.New("405 Method Not Allowed"), true},
		{"unrelated error", errors.New("connection refused"), false},
		{"nil error", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, shouldFallbackToSSE(tc.err, false))
		})
	}
}

func TestShouldFallbackToSSE_NeverRetriesTwice(t *testing.T) {
	err := errors.New("Missing sessionId parameter")
	assert.False(t, shouldFallbackToSSE(err, true), "must not fall back a second time")
}

func TestClassifyHTTPError_ClientIDMismatch(t *testing.T) {
	err := classifyHTTPError(errors.New("registration invalid: Client ID mismatch for this session"))
	require := assert.New(t)
	require.Error(err)
	var mismatch *oauthClientIDMismatchError
	require.ErrorAs(err, &mismatch)
}

func TestClassifyHTTPError_Unauthorized(t *testing.T) {
	err := classifyHTTPError(errors.New("server responded 401 Unauthorized"))
	assert.Error(t, err)
}

func TestClassifyHTTPError_OtherErrorsPassThroughAsNil(t *testing.T) {
	assert.Nil(t, classifyHTTPError(errors.New("connection reset by peer")))
}

func TestNewHTTPClient_DefaultsUnconnected(t *testing.T) {
	c := NewHTTPClient("pkg1", "http://localhost:9999/mcp", nil)
	assert.Equal(t, StateUnconnected, c.State())
	assert.False(t, c.HasPendingRequests())
	assert.False(t, c.RequiresAuth())
}

func TestHTTPClientOptions_ForceSSEAndTimeout(t *testing.T) {
	c := NewHTTPClient("pkg1", "http://localhost:9999/mcp", nil, WithForceSSE(), WithConnectTimeout(5*time.Second))
	assert.True(t, c.forceSSE)
	assert.Equal(t, 5*time.Second, c.connectTimeout)
}

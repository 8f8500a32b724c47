// Package testutil provides common helpers for handler and integration
// tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suci/internal/platform/middleware"
)

// NewJSONRequest creates an HTTP request with a JSON body.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUser stamps the request context the way the auth middleware would for
// an authenticated actor.
func WithUser(req *http.Request, userID string, isAdmin bool) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyIsAdmin, isAdmin)
	return req.WithContext(ctx)
}

// Execute runs the handler against the request and returns the recorder.
func Execute(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ReadBody returns the recorded response body.
func ReadBody(t *testing.T, rr *httptest.ResponseRecorder) []byte {
	t.Helper()
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err, "failed to read response body")
	return body
}

// DecodeJSON unmarshals the response body into v.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ReadBody(t, rr), v), "failed to unmarshal response")
}

// AssertStatus asserts the response status code.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status: body=%s", rr.Body.String())
}

// AssertMessage asserts the JSON error envelope carries the given message.
func AssertMessage(t *testing.T, rr *httptest.ResponseRecorder, expected string) {
	t.Helper()
	var envelope map[string]any
	DecodeJSON(t, rr, &envelope)
	assert.Equal(t, expected, envelope["message"], "unexpected message")
}

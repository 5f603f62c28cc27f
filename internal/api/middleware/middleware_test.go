package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/cloo-solutions/vdoc/internal/api"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsValidIncoming(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123_abc.def")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-123_abc.def", seen)
}

func TestRequestID_ReplacesUnsafeIncoming(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	for _, bad := range []string{"id with spaces", "id\nforged-log-line", strings.Repeat("a", 200)} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", bad)
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, bad, seen)
		assert.NotEmpty(t, seen)
	}
}

func TestAccessLog_IncludesErrorCode(t *testing.T) {
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})

	h := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.HandleError(w, domain.ErrGeneratorQuota)
	})))

	req := httptest.NewRequest(http.MethodPost, "/rag", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"path":"/rag"`)
	assert.Contains(t, line, `"status":429`)
	assert.Contains(t, line, `"request_id":"abc"`)
	assert.Contains(t, line, `"error_code":"GENERATOR_QUOTA"`)
}

func TestMaxBodyBytes(t *testing.T) {
	called := false
	h := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rag", strings.NewReader(`{"query":"too long"}`)))

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"request body too large","code":"VALIDATION_ERROR"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rag", strings.NewReader(`{}`)))
	require.True(t, called)
}

func TestSentryMiddleware_WithoutClient(t *testing.T) {
	h := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.HandleError(w, domain.ErrGeneratorTimeout)
	}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rag", nil))
	})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestHTTPStatusToSpanStatus(t *testing.T) {
	tests := map[int]sentry.SpanStatus{
		200: sentry.SpanStatusOK,
		400: sentry.SpanStatusInvalidArgument,
		413: sentry.SpanStatusInvalidArgument,
		429: sentry.SpanStatusResourceExhausted,
		499: sentry.SpanStatusCanceled,
		500: sentry.SpanStatusInternalError,
		502: sentry.SpanStatusUnavailable,
		503: sentry.SpanStatusUnavailable,
		504: sentry.SpanStatusDeadlineExceeded,
	}
	for status, want := range tests {
		assert.Equal(t, want, httpStatusToSpanStatus(status), "status %d", status)
	}
}

func TestRecoverer_WritesErrorEnvelope(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	h := RequestID(Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rag", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, domain.ErrCodeInternal, w.Header().Get(api.ErrorCodeHeader))
	assert.JSONEq(t, `{"error":"internal error","code":"INTERNAL_ERROR"}`, w.Body.String())
	assert.Contains(t, buf.String(), "nil map write")
}

func TestRecoverer_PassesThrough(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoverer_RepanicsAbortHandler(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rag", nil))
	})
}

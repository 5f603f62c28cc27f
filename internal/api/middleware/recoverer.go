package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/cloo-solutions/vdoc/internal/api"
	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/telemetry"
)

// Recoverer turns a handler panic into a 500 INTERNAL_ERROR envelope and
// reports it to Sentry.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err := fmt.Errorf("panic: %v", rec)
			log.Printf("panic serving %s %s (request_id=%s): %v\n%s", r.Method, r.URL.Path, GetRequestID(r.Context()), rec, debug.Stack())
			telemetry.CaptureError(r.Context(), err)

			api.ErrorWithCode(w, http.StatusInternalServerError, domain.ErrCodeInternal, domain.ErrInternal.Message)
		}()

		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
	"github.com/utafrali/bookcatalog/pkg/httputil"
)

// Recovery turns a panic into a 500 response and logs the stack.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				pub := apperrors.Internal(fmt.Errorf("panic: %v", rec))
				httputil.WriteJSON(w, pub.Status, httputil.Response{
					Error: &httputil.ErrorResponse{Code: pub.Code, Message: pub.Message},
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

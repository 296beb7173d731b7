package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

//nolint:contextcheck // the request context is the only one available here
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:errorlint // sentinel must be compared directly
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			slog.ErrorContext(r.Context(), "panic on the server", "because", fmt.Sprint(rvr), "stack", internalFrames(3))
			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// internalFrames returns file:line entries of the calling goroutine that belong
// to this module's internal packages.
func internalFrames(skip int) []string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for {
		f, more := frames.Next()
		if _, rel, ok := strings.Cut(f.File, "/internal/"); ok {
			out = append(out, fmt.Sprintf("internal/%s:%d", rel, f.Line))
		}
		if !more {
			break
		}
	}
	return out
}

package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/atomic"

	"github.com/souqify/auth-service/internal/pkg/router"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// newHealthHandler answers 200 only when the app is ready and every check
// pings within timeout.
func newHealthHandler(ready *atomic.Bool, timeout time.Duration, checks map[string]pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			router.WriteJSON(w, healthResponse{Status: "starting"}, http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for name, c := range checks {
			if err := c.Ping(ctx); err != nil {
				slog.WarnContext(ctx, "health check failed", "check", name, "error", err)
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}

		router.WriteJSON(w, resp, code)
	})
}

func (a *App) healthHandler() http.Handler {
	return newHealthHandler(a.ready, 2*time.Second, map[string]pinger{
		"redis":    a.store,
		"database": a.dbConn,
	})
}

package router

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/shandysiswandi/preschool/internal/pkg/config"
)

func middlewareMaintenance(cfg config.Config) Middleware {
	blocked := func(string) bool { return false }
	if cfg != nil {
		// re-read per request; a hot reload applies to the next call
		blocked = func(route string) bool {
			return lo.Contains(cfg.GetArray("app.maintenance.endpoints"), route)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if blocked(matchedRoutePath(r)) {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

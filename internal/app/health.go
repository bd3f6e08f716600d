package app

import (
	"context"
	"time"

	"github.com/shandysiswandi/preschool/internal/pkg/router"
)

const defaultHealthTimeout = 500 * time.Millisecond

type healthResponse struct {
	Status   string `json:"status"`
	OTPStore string `json:"otp_store"`
	Backend  string `json:"backend"`
	// Ready is the result of pinging the shared store for this request; when
	// false, requests are served from memory.
	Ready bool `json:"ready"`
}

func (healthResponse) Message() string { return "ok" }

func (a *App) health(r *router.Request) (any, error) {
	resp := healthResponse{
		Status:   "up",
		OTPStore: a.otpCache.Mode().String(),
		Backend:  "memory",
		Ready:    true,
	}

	if a.primary != nil {
		resp.Backend = a.primary.Name()
		if p, ok := a.primary.(interface{ Ping(ctx context.Context) error }); ok {
			timeout := a.config.GetMillisecond("otp.store.health_timeout_ms")
			if timeout <= 0 {
				timeout = defaultHealthTimeout
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			resp.Ready = p.Ping(ctx) == nil
		}
	}

	return resp, nil
}

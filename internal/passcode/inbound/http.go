package inbound

import (
	"context"

	"github.com/shandysiswandi/preschool/internal/passcode/usecase"
	"github.com/shandysiswandi/preschool/internal/pkg/router"
)

type uc interface {
	RequestCode(ctx context.Context, in usecase.RequestCodeInput) (*usecase.RequestCodeOutput, error)
	VerifyCode(ctx context.Context, in usecase.VerifyCodeInput) (*usecase.VerifyCodeOutput, error)
	Session(ctx context.Context) (*usecase.SessionOutput, error)
}

// RegisterHTTPEndpoint mounts the passcode routes. limit guards the two public
// endpoints against brute force from a single client.
func RegisterHTTPEndpoint(r *router.Router, uc uc, limit router.Middleware) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/passcode/request", end.RequestCode, router.Public(), router.With(limit))
	r.POST("/api/v1/passcode/verify", end.VerifyCode, router.Public(), router.With(limit))
	r.GET("/api/v1/passcode/session", end.Session)
}

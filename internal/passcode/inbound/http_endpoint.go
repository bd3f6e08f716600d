package inbound

import (
	"github.com/shandysiswandi/preschool/internal/passcode/usecase"
	"github.com/shandysiswandi/preschool/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for phone passcode sign in.
type HTTPEndpoint struct {
	uc uc
}

// RequestCode sends a new passcode to a phone.
// @Summary Request passcode
// @Description Issues a one-time passcode and sends it by SMS. Requests for the same phone are throttled.
// @Tags Passcode
// @Accept json
// @Produce json
// @Param request body RequestCodeRequest true "Phone in E.164 format"
// @Success 200 {object} router.successResponse{data=RequestCodeResponse} "Passcode issued"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Resend cooldown active"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/passcode/request [post]
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{
		Phone: req.Phone,
		IP:    r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return RequestCodeResponse{RequestID: resp.RequestID, ExpiresAt: resp.ExpiresAt}, nil
}

// VerifyCode exchanges a passcode for a session token.
// @Summary Verify passcode
// @Tags Passcode
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "Phone and passcode"
// @Success 200 {object} router.successResponse{data=VerifyCodeResponse} "Session token"
// @Failure 401 {object} router.errorResponse "Invalid passcode"
// @Failure 404 {object} router.errorResponse "No pending passcode"
// @Failure 410 {object} router.errorResponse "Passcode expired"
// @Failure 429 {object} router.errorResponse "Too many failed attempts"
// @Router /api/v1/passcode/verify [post]
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		Phone: req.Phone,
		Code:  req.Code,
	})
	if err != nil {
		return nil, err
	}

	return VerifyCodeResponse{
		AccessToken: resp.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   resp.ExpiresAt,
	}, nil
}

// Session returns the phone bound to the bearer token.
// @Summary Current session
// @Tags Passcode
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=SessionResponse}
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Router /api/v1/passcode/session [get]
func (h *HTTPEndpoint) Session(r *router.Request) (any, error) {
	resp, err := h.uc.Session(r.Context())
	if err != nil {
		return nil, err
	}

	return SessionResponse{Phone: resp.Phone, ExpiresAt: resp.ExpiresAt}, nil
}

package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/preschool/internal/pkg/goerror"
)

type VerifyCodeInput struct {
	Phone string `validate:"required,e164"`
	Code  string `validate:"required,passcode"`
}

type VerifyCodeOutput struct {
	AccessToken string
	ExpiresAt   time.Time
}

// VerifyCode checks a passcode and, when it matches, consumes it and issues a
// session token. Every guess counts toward otp.max_attempts.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	in.Phone = strings.TrimSpace(in.Phone)
	in.Code = strings.TrimSpace(in.Code)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	rec, err := s.store.Get(ctx, in.Phone)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get passcode", "phone", in.Phone, "error", err)
		return nil, goerror.NewServer(err)
	}
	if rec == nil {
		slog.WarnContext(ctx, "no pending passcode", "phone", in.Phone)
		return nil, goerror.NewBusiness("No pending passcode for this phone", goerror.CodeNotFound)
	}

	now := s.clock.Now()

	// the in-process store never expires entries on its own
	if rec.Expired(now) {
		s.discard(ctx, in.Phone)
		return nil, goerror.NewBusiness("Passcode has expired, request a new one", goerror.CodeGone)
	}

	// Guesses are counted before the code is compared so parallel requests
	// cannot all slip in under the cap. The total outlives the record and is
	// only cleared when a new code is issued.
	attempt := s.countAttempt(ctx, in.Phone, rec.Expiry().Sub(now))
	if attempt > int64(s.maxAttempts()) {
		s.discard(ctx, in.Phone)
		slog.WarnContext(ctx, "passcode attempts exhausted", "phone", in.Phone, "attempt", attempt)
		return nil, goerror.NewBusiness("Too many failed attempts, request a new passcode", goerror.CodeTooManyRequest)
	}

	if !s.hmac.Verify(rec.Code, in.Code) {
		slog.WarnContext(ctx, "wrong passcode", "phone", in.Phone, "attempt", attempt)
		return nil, goerror.NewBusiness("Invalid passcode", goerror.CodeUnauthorized)
	}

	if err := s.store.Delete(ctx, in.Phone); err != nil {
		slog.ErrorContext(ctx, "failed to consume passcode", "phone", in.Phone, "error", err)
		return nil, goerror.NewServer(err)
	}

	token, expiresAt, err := s.jwt.Generate(in.Phone)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session token", "phone", in.Phone, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &VerifyCodeOutput{AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (s *Usecase) discard(ctx context.Context, phone string) {
	if err := s.store.Delete(ctx, phone); err != nil {
		slog.WarnContext(ctx, "failed to discard passcode", "phone", phone, "error", err)
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/preschool/internal/pkg/goerror"
	"github.com/shandysiswandi/preschool/internal/pkg/otpcache"
)

type RequestCodeInput struct {
	Phone string `validate:"required,e164"`
	IP    string `validate:"-"`
}

type RequestCodeOutput struct {
	RequestID string
	ExpiresAt time.Time
}

// RequestCode issues a new passcode for a phone, replacing any pending one,
// and hands it to the SMS gateway through the broker.
func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) (*RequestCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()

	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	acquired, err := s.acquireCooldown(ctx, in.Phone)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	code, err := s.generator.GenerateCode(now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate passcode", "phone", in.Phone, "error", err)
		s.releaseCooldown(ctx, in.Phone, acquired)
		return nil, goerror.NewServer(err)
	}

	hashed, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash passcode", "phone", in.Phone, "error", err)
		s.releaseCooldown(ctx, in.Phone, acquired)
		return nil, goerror.NewServer(err)
	}

	requestID := strconv.FormatInt(s.uid.Generate(), 10)
	expiresAt := now.Add(s.ttl())

	rec := otpcache.NewRecord(string(hashed), expiresAt)
	rec.Meta = map[string]any{"request_id": requestID}
	if in.IP != "" {
		rec.Meta["ip"] = in.IP
	}

	if err := s.store.Set(ctx, in.Phone, rec); err != nil {
		slog.ErrorContext(ctx, "failed to store passcode", "phone", in.Phone, "error", err)
		s.releaseCooldown(ctx, in.Phone, acquired)
		return nil, goerror.NewServer(err)
	}
	// a fresh code gets a fresh attempt budget
	s.resetAttempts(ctx, in.Phone)

	if err := s.repoMessaging.PublishPasscodeIssued(ctx, PasscodeIssuedEvent{
		RequestID: requestID,
		Phone:     in.Phone,
		Code:      code,
		ExpiresAt: expiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish passcode issued", "phone", in.Phone, "request_id", requestID, "error", err)
	}

	return &RequestCodeOutput{RequestID: requestID, ExpiresAt: expiresAt}, nil
}

// acquireCooldown fails open: a limiter outage never blocks sign in.
func (s *Usecase) acquireCooldown(ctx context.Context, phone string) (bool, error) {
	if s.cooldown == nil {
		return false, nil
	}

	window := s.cfg.GetSecond("otp.resend_cooldown_seconds")
	if window <= 0 {
		return false, nil
	}

	ok, retryAfter, err := s.cooldown.Acquire(ctx, phone, window)
	if err != nil {
		slog.WarnContext(ctx, "passcode cooldown unavailable, skipping", "phone", phone, "error", err)
		return false, nil
	}
	if !ok {
		wait := int64(math.Ceil(retryAfter.Seconds()))
		slog.WarnContext(ctx, "passcode requested during cooldown", "phone", phone, "retry_after", wait)
		return false, goerror.NewBusiness(fmt.Sprintf("Please wait %d seconds before requesting a new passcode", wait), goerror.CodeTooManyRequest)
	}

	return true, nil
}

func (s *Usecase) releaseCooldown(ctx context.Context, phone string, acquired bool) {
	if !acquired {
		return
	}
	if err := s.cooldown.Release(ctx, phone); err != nil {
		slog.WarnContext(ctx, "failed to release passcode cooldown", "phone", phone, "error", err)
	}
}

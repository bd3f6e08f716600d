package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/preschool/internal/pkg/clock"
	"github.com/shandysiswandi/preschool/internal/pkg/config"
	"github.com/shandysiswandi/preschool/internal/pkg/cooldown"
	"github.com/shandysiswandi/preschool/internal/pkg/hash"
	"github.com/shandysiswandi/preschool/internal/pkg/instrument"
	"github.com/shandysiswandi/preschool/internal/pkg/jwt"
	"github.com/shandysiswandi/preschool/internal/pkg/otp"
	"github.com/shandysiswandi/preschool/internal/pkg/otpcache"
	"github.com/shandysiswandi/preschool/internal/pkg/uid"
	"github.com/shandysiswandi/preschool/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTTL         = 5 * time.Minute
	defaultMaxAttempts = 5
)

type PasscodeIssuedEvent struct {
	RequestID string
	Phone     string
	Code      string
	ExpiresAt time.Time
}

type repoMessaging interface {
	PublishPasscodeIssued(ctx context.Context, msg PasscodeIssuedEvent) error
}

type store interface {
	Set(ctx context.Context, phone string, rec otpcache.Record) error
	Get(ctx context.Context, phone string) (*otpcache.Record, error)
	Delete(ctx context.Context, phone string) error
}

type Usecase struct {
	store         store
	repoMessaging repoMessaging
	cooldown      cooldown.Limiter
	attempts      cooldown.Counter
	localAttempts cooldown.Counter
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	uid           uid.NumberID
	generator     otp.Generator
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
}

type Dependency struct {
	Store         store
	RepoMessaging repoMessaging
	Cooldown      cooldown.Limiter // optional, nil disables resend throttling
	Attempts      cooldown.Counter // optional, nil counts guesses per process
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	UID           uid.NumberID
	Generator     otp.Generator
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		store:         dep.Store,
		repoMessaging: dep.RepoMessaging,
		cooldown:      dep.Cooldown,
		attempts:      dep.Attempts,
		localAttempts: cooldown.NewMemoryCounter(),
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		uid:           dep.UID,
		generator:     dep.Generator,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("passcode.usecase").Start(ctx, name)
}

func (s *Usecase) ttl() time.Duration {
	if d := s.cfg.GetSecond("otp.ttl_seconds"); d > 0 {
		return d
	}
	return defaultTTL
}

func (s *Usecase) maxAttempts() int {
	if n := s.cfg.GetInt("otp.max_attempts"); n > 0 {
		return n
	}
	return defaultMaxAttempts
}

// countAttempt records one guess against phone and returns the running total.
// The shared counter is preferred; when it fails the in-process one counts.
func (s *Usecase) countAttempt(ctx context.Context, phone string, window time.Duration) int64 {
	if s.attempts != nil {
		n, err := s.attempts.Incr(ctx, phone, window)
		if err == nil {
			return n
		}
		slog.WarnContext(ctx, "shared attempt counter failed, counting locally", "phone", phone, "error", err)
	}

	n, _ := s.localAttempts.Incr(ctx, phone, window)
	return n
}

func (s *Usecase) resetAttempts(ctx context.Context, phone string) {
	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, phone); err != nil {
			slog.WarnContext(ctx, "failed to reset attempt counter", "phone", phone, "error", err)
		}
	}
	_ = s.localAttempts.Reset(ctx, phone)
}

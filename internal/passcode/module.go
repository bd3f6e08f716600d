package passcode

import (
	"github.com/shandysiswandi/preschool/internal/passcode/inbound"
	"github.com/shandysiswandi/preschool/internal/passcode/outbound/mq"
	"github.com/shandysiswandi/preschool/internal/passcode/usecase"
	"github.com/shandysiswandi/preschool/internal/pkg/clock"
	"github.com/shandysiswandi/preschool/internal/pkg/config"
	"github.com/shandysiswandi/preschool/internal/pkg/cooldown"
	"github.com/shandysiswandi/preschool/internal/pkg/hash"
	"github.com/shandysiswandi/preschool/internal/pkg/instrument"
	"github.com/shandysiswandi/preschool/internal/pkg/jwt"
	"github.com/shandysiswandi/preschool/internal/pkg/messaging"
	"github.com/shandysiswandi/preschool/internal/pkg/otp"
	"github.com/shandysiswandi/preschool/internal/pkg/otpcache"
	"github.com/shandysiswandi/preschool/internal/pkg/router"
	"github.com/shandysiswandi/preschool/internal/pkg/uid"
	"github.com/shandysiswandi/preschool/internal/pkg/validator"
)

type Dependency struct {
	Cache      *otpcache.Cache            `validate:"required"`
	Cooldown   cooldown.Limiter           `validate:"-"`
	Attempts   cooldown.Counter           `validate:"-"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Generator  otp.Generator              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		Store:         dep.Cache,
		RepoMessaging: repoMsg,
		Cooldown:      dep.Cooldown,
		Attempts:      dep.Attempts,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		UID:           dep.UID,
		Generator:     dep.Generator,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
	})

	limit := router.RateLimit(
		dep.Config.GetFloat64("modules.passcode.rate_limit.per_second"),
		dep.Config.GetInt("modules.passcode.rate_limit.burst"),
	)
	inbound.RegisterHTTPEndpoint(dep.Router, uc, limit)

	return nil
}

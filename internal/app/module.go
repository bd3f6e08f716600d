package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/preschool/internal/passcode"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.passcode.enabled") {
		slog.Warn("module passcode disabled")
		return
	}

	if err := passcode.New(passcode.Dependency{
		Cache:      a.otpCache,
		Cooldown:   a.cooldown,
		Attempts:   a.attempts,
		Router:     a.router,
		Messaging:  a.messaging,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		HMAC:       a.hmac,
		Clock:      a.clock,
		Generator:  a.totp,
		Validator:  a.validator,
		JWT:        a.jwt,
	}); err != nil {
		slog.Error("failed to init module passcode", "error", err)
		os.Exit(1)
	}
}

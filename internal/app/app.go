package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/preschool/internal/pkg/clock"
	"github.com/shandysiswandi/preschool/internal/pkg/config"
	"github.com/shandysiswandi/preschool/internal/pkg/cooldown"
	"github.com/shandysiswandi/preschool/internal/pkg/goroutine"
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

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	totp      otp.Generator
	jwt       jwt.JWT

	// resources
	redisConn *redis.Client
	dbConn    *pgxpool.Pool
	otpCache  *otpcache.Cache
	primary   otpcache.Backend
	cooldown  cooldown.Limiter
	attempts  cooldown.Counter
	messaging messaging.Publisher

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initRedis()
	app.initOTPCache()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}

package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
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
	"google.golang.org/api/option"
)

const (
	storeDriverRedis    = "redis"
	storeDriverPostgres = "postgres"
)

func (a *App) initConfig() {
	local := os.Getenv("LOCAL") == "true"
	if local {
		// PRESCHOOL_* overrides for local runs; a missing file is fine.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to load .env", "error", err)
		}
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if local {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins

	a.config.OnChange(func() {
		instrument.SetLogLevel(a.config.GetString("instrument.log_level"))
	})
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow

	a.totp = otp.NewTOTP(
		a.config.GetString("otp.issuer"),
		uint(a.config.GetUint64("otp.period_seconds")),
		otp.DigitsFromInt(a.config.GetInt("otp.digits")),
	)
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

// initRedis builds the shared client used by the resend cooldown and the
// redis otp store. An unreachable server is not fatal.
func (a *App) initRedis() {
	url := strings.TrimSpace(a.config.GetString("redis.url"))
	if url == "" {
		slog.Warn("redis not configured, passcode resend cooldown disabled")
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	if pass := a.config.GetString("redis.password"); pass != "" {
		opt.Password = pass
	}
	if d := a.config.GetMillisecond("redis.dial_timeout_ms"); d > 0 {
		opt.DialTimeout = d
	}
	if d := a.config.GetMillisecond("redis.read_timeout_ms"); d > 0 {
		opt.ReadTimeout = d
	}
	if d := a.config.GetMillisecond("redis.write_timeout_ms"); d > 0 {
		opt.WriteTimeout = d
	}

	a.redisConn = redis.NewClient(opt)
	a.cooldown = cooldown.NewRedis(a.redisConn, "otp:cooldown:")
	a.attempts = cooldown.NewRedisCounter(a.redisConn, "otp:attempts:")
}

func (a *App) initOTPCache() {
	mode := otpcache.ModeLocalOnly
	if a.config.GetBool("otp.store.distributed") {
		mode = otpcache.ModeDistributed

		switch driver := strings.TrimSpace(a.config.GetString("otp.store.driver")); driver {
		case "", storeDriverRedis:
			a.primary = a.initOTPRedis()
		case storeDriverPostgres:
			a.primary = a.initOTPPostgres()
		default:
			slog.Error("unknown otp store driver", "driver", driver)
			os.Exit(1)
		}
	}

	a.otpCache = otpcache.New(otpcache.Config{
		Mode:       mode,
		Primary:    a.primary,
		Clock:      a.clock,
		Instrument: a.ins,
	})
}

func (a *App) retryPolicy() otpcache.RetryPolicy {
	return otpcache.RetryPolicy{
		MaxAttempts: a.config.GetUint64("otp.retry.max_attempts"),
		BaseDelay:   a.config.GetMillisecond("otp.retry.base_delay_ms"),
		MaxDelay:    a.config.GetMillisecond("otp.retry.max_delay_ms"),
		MaxElapsed:  a.config.GetMinute("otp.retry.max_elapsed_minutes"),
	}
}

func (a *App) initOTPRedis() otpcache.Backend {
	if a.redisConn == nil {
		slog.Error("otp store driver redis requires redis.url")
		os.Exit(1)
	}

	store := otpcache.NewRedisFromClient(a.redisConn, a.retryPolicy())

	// the connection is confirmed in the background; until then calls fall
	// back to memory when redis errors
	a.goroutine.Go(a.ctx, func(ctx context.Context) error {
		_ = store.Connect(ctx)
		return nil
	})

	return store
}

func (a *App) initOTPPostgres() otpcache.Backend {
	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}
	a.dbConn = pool

	store := otpcache.NewPostgres(pool)

	a.goroutine.Go(a.ctx, func(ctx context.Context) error {
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := store.EnsureSchema(schemaCtx); err != nil {
			slog.WarnContext(ctx, "otp postgres unreachable, serving from local fallback", "error", err)
		}
		return nil
	})

	a.goroutine.Every(a.ctx, "otp purge", a.config.GetSecond("otp.store.purge_interval_seconds"), func(ctx context.Context) error {
		n, err := store.Purge(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.DebugContext(ctx, "purged expired otp records", "count", n)
		}
		return nil
	})

	return store
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr: a.config.GetString("messaging.nsq.producer_addr"),
			ProducerConfig: func() *nsq.Config {
				cfg := nsq.NewConfig()
				if n := a.config.GetInt("messaging.nsq.max_in_flight"); n > 0 {
					cfg.MaxInFlight = n
				}
				if d := a.config.GetSecond("messaging.nsq.dial_timeout_seconds"); d > 0 {
					cfg.DialTimeout = d
				}
				if d := a.config.GetSecond("messaging.nsq.write_timeout_seconds"); d > 0 {
					cfg.WriteTimeout = d
				}
				return cfg
			}(),
		},
		Kafka: messaging.KafkaConfig{
			Brokers:      a.config.GetArray("messaging.kafka.brokers"),
			BatchTimeout: a.config.GetMillisecond("messaging.kafka.batch_timeout_ms"),
			RequiredAcks: kafka.RequiredAcks(a.config.GetInt("messaging.kafka.required_acks")),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID: a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: func() []option.ClientOption {
				var opts []option.ClientOption
				if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); v != "" {
					opts = append(opts, option.WithEndpoint(v))
				}
				if a.config.GetBool("messaging.pubsub.without_auth") {
					opts = append(opts, option.WithoutAuthentication())
				}
				if v := strings.TrimSpace(a.config.GetString("messaging.pubsub.credentials_file")); v != "" {
					opts = append(opts, option.WithCredentialsFile(v))
				}
				return opts
			}(),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})
	a.router.GET("/health", a.health, router.Public())

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "OTPCache",
			fn: func(context.Context) error {
				return a.otpCache.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.redisConn == nil {
					return nil
				}
				return a.redisConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				if a.dbConn != nil {
					a.dbConn.Close()
				}

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}

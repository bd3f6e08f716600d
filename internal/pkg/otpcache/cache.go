package otpcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/preschool/internal/pkg/clock"
	"github.com/shandysiswandi/preschool/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Mode selects which backends a Cache uses. It is fixed at construction.
type Mode int

const (
	// ModeLocalOnly keeps every record in the in-process map.
	ModeLocalOnly Mode = iota
	// ModeDistributed writes to a shared store first and falls back to the
	// in-process map when the shared store fails.
	ModeDistributed
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	switch m {
	case ModeDistributed:
		return "distributed"
	case ModeLocalOnly:
		return "local-only"
	default:
		return "unknown"
	}
}

// Config holds the dependencies of a Cache.
type Config struct {
	// Mode selects distributed or local-only operation.
	Mode Mode
	// Primary is the shared store used in ModeDistributed. Ignored otherwise.
	Primary Backend
	// Clock provides "now" for TTL computation. Defaults to the system clock.
	Clock clock.Clocker
	// Instrument provides tracing and metrics. Defaults to noop.
	Instrument instrument.Instrumentation
}

// Cache stores OTP records across an ordered chain of backends.
type Cache struct {
	mode    Mode
	primary Backend
	local   *Local
	chain   []Backend
	clock   clock.Clocker
	tracer  trace.Tracer
	closed  *atomic.Bool

	opCounter       metric.Int64Counter
	fallbackCounter metric.Int64Counter
}

// New builds a Cache. The in-process map is always created so the cache can
// fall back to it at any point.
func New(cfg Config) *Cache {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Instrument == nil {
		cfg.Instrument = instrument.NewNoop()
	}

	c := &Cache{
		mode:   ModeLocalOnly,
		local:  NewLocal(),
		clock:  cfg.Clock,
		tracer: cfg.Instrument.Tracer("otpcache"),
		closed: atomic.NewBool(false),
	}

	if cfg.Mode == ModeDistributed && cfg.Primary != nil {
		c.mode = ModeDistributed
		c.primary = cfg.Primary
		c.chain = []Backend{cfg.Primary, c.local}
	} else {
		c.chain = []Backend{c.local}
	}

	meter := cfg.Instrument.Meter("otpcache")

	var err error
	c.opCounter, err = meter.Int64Counter("otpcache.operations", metric.WithDescription("OTP cache operations by backend and outcome"))
	if err != nil {
		slog.Error("failed to create otpcache operation counter", "error", err)
	}
	c.fallbackCounter, err = meter.Int64Counter("otpcache.fallbacks", metric.WithDescription("OTP cache operations that fell back to the next backend"))
	if err != nil {
		slog.Error("failed to create otpcache fallback counter", "error", err)
	}

	slog.Info("otp cache initialized", "mode", c.mode.String(), "backends", lo.Map(c.chain, func(b Backend, _ int) string {
		return b.Name()
	}))

	return c
}

// Mode returns the mode decided at construction.
func (c *Cache) Mode() Mode {
	return c.mode
}

// Set stores rec under phone, overwriting any previous record.
//
// Shared-store failures are absorbed by writing to the in-process map. Only
// invalid input and serialization failures are returned.
func (c *Cache) Set(ctx context.Context, phone string, rec Record) (err error) {
	ctx, span := c.startSpan(ctx, "Set")
	defer func() { c.endSpan(span, err) }()

	if phone == "" {
		return ErrEmptyPhone
	}
	if rec.ExpiresAt == 0 {
		return ErrMissingExpiry
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return errors.Join(ErrSerialize, err)
	}

	entry := Entry{
		Record:     rec,
		Encoded:    encoded,
		TTLSeconds: TTLSeconds(rec.ExpiresAt, c.clock.Now()),
	}
	span.SetAttributes(attribute.Int64("otp.ttl_seconds", entry.TTLSeconds))

	for i, b := range c.chain {
		err = b.Set(ctx, phone, entry)
		if err == nil {
			c.countOp(ctx, "set", b, "ok")
			return nil
		}

		if c.last(i) {
			c.countOp(ctx, "set", b, "error")
			return fmt.Errorf("otpcache: set on %s: %w", b.Name(), err)
		}

		c.fallback(ctx, "set", b, phone, err)
	}

	return nil
}

// Get returns the record stored under phone, or nil when there is none.
//
// A miss reported by the shared store is final. Only a shared-store failure
// makes Get consult the in-process map.
func (c *Cache) Get(ctx context.Context, phone string) (rec *Record, err error) {
	ctx, span := c.startSpan(ctx, "Get")
	defer func() { c.endSpan(span, err) }()

	if phone == "" {
		return nil, ErrEmptyPhone
	}

	for i, b := range c.chain {
		rec, err = b.Get(ctx, phone)
		switch {
		case err == nil:
			c.countOp(ctx, "get", b, "hit")
			return rec, nil

		case errors.Is(err, ErrNotFound):
			c.countOp(ctx, "get", b, "miss")
			return nil, nil

		case errors.Is(err, ErrDeserialize):
			c.countOp(ctx, "get", b, "error")
			return nil, err
		}

		if c.last(i) {
			c.countOp(ctx, "get", b, "error")
			return nil, fmt.Errorf("otpcache: get on %s: %w", b.Name(), err)
		}

		c.fallback(ctx, "get", b, phone, err)
	}

	return nil, nil
}

// Delete removes the record stored under phone. Deleting a missing record is
// not an error.
func (c *Cache) Delete(ctx context.Context, phone string) (err error) {
	ctx, span := c.startSpan(ctx, "Delete")
	defer func() { c.endSpan(span, err) }()

	if phone == "" {
		return ErrEmptyPhone
	}

	for i, b := range c.chain {
		err = b.Delete(ctx, phone)
		if err == nil || errors.Is(err, ErrNotFound) {
			c.countOp(ctx, "delete", b, "ok")
			return nil
		}

		if c.last(i) {
			c.countOp(ctx, "delete", b, "error")
			return fmt.Errorf("otpcache: delete on %s: %w", b.Name(), err)
		}

		c.fallback(ctx, "delete", b, phone, err)
	}

	return nil
}

// Close releases the shared store connection. The in-process map is kept.
// Calling Close more than once is safe.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.primary == nil {
		return nil
	}

	return c.primary.Close()
}

func (c *Cache) last(i int) bool {
	return i == len(c.chain)-1
}

func (c *Cache) fallback(ctx context.Context, op string, b Backend, phone string, err error) {
	slog.WarnContext(ctx, "otp cache backend failed, falling back",
		"op", op,
		"backend", b.Name(),
		"phone", phone,
		"error", err,
	)

	c.countOp(ctx, op, b, "error")
	if c.fallbackCounter != nil {
		c.fallbackCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("backend", b.Name()),
		))
	}
}

func (c *Cache) countOp(ctx context.Context, op string, b Backend, outcome string) {
	if c.opCounter == nil {
		return
	}

	c.opCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("backend", b.Name()),
		attribute.String("outcome", outcome),
	))
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("otp.mode", c.mode.String())))
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const maskedValue = "***"

// passcodeFields are masked regardless of configuration.
var passcodeFields = []string{"code", "otp", "token", "access_token", "secret", "password"}

var logLevel = new(slog.LevelVar)

// SetLogLevel changes the minimum level of the default logger at runtime.
// Unknown names are ignored.
func SetLogLevel(name string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return
	}
	logLevel.Set(level)
}

// initLogging installs the default logger: JSON to cfg.LogOutput, mirrored to
// the OTel bridge when lp is set, with sensitive fields masked and the
// correlation id attached.
func initLogging(cfg *Config, lp *sdklog.LoggerProvider) {
	SetLogLevel(cfg.LogLevel)

	out := cfg.LogOutput
	if out == nil {
		out = os.Stdout
	}

	var sink slog.Handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       logLevel,
		AddSource:   true,
		ReplaceAttr: renameAttr,
	})
	if lp != nil {
		sink = fanout{sink, otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp))}
	}

	m := newMasker(append(append([]string{}, passcodeFields...), cfg.MaskFields...))

	slog.SetDefault(slog.New(&contextHandler{
		Handler: &maskHandler{next: sink, m: m},
		service: cfg.ServiceName,
	}))
}

// renameAttr maps the built-in keys to the names the log pipeline indexes and
// trims source paths to the part under internal/.
func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", fmt.Sprintf("%s:%d", filepath.Join("internal", rel), src.Line))
	}
	return a
}

type contextHandler struct {
	slog.Handler
	service string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if cID := GetCorrelationID(ctx); cID != "" {
		r.AddAttrs(slog.String("_cID", cID))
	}
	r.AddAttrs(slog.String("service", h.service))

	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), service: h.service}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), service: h.service}
}

// fanout writes every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

type maskHandler struct {
	next slog.Handler
	m    masker
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.m) == 0 {
		return h.next.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.m.attr(a))
		return true
	})

	return h.next.Handle(ctx, out)
}

// WithAttrs masks attributes bound up front as well, so logger.With("code", x)
// is covered.
func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.m.attr(a)
	}
	return &maskHandler{next: h.next.WithAttrs(masked), m: h.m}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{next: h.next.WithGroup(name), m: h.m}
}

// masker is a set of lower-cased field names whose values are replaced.
type masker map[string]struct{}

func newMasker(fields []string) masker {
	m := make(masker, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			m[f] = struct{}{}
		}
	}
	return m
}

func (m masker) hides(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

func (m masker) attr(a slog.Attr) slog.Attr {
	if m.hides(a.Key) {
		return slog.String(a.Key, maskedValue)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = m.attr(ga)
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		// JSON request or response bodies are logged as strings.
		if s := v.String(); strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
			if masked, ok := m.json([]byte(s)); ok {
				a.Value = slog.StringValue(masked)
			}
		}
	case slog.KindAny:
		switch val := v.Any().(type) {
		case map[string]any, []any:
			a.Value = slog.AnyValue(m.value(val))
		case map[string]string:
			conv := make(map[string]any, len(val))
			for k, s := range val {
				conv[k] = s
			}
			a.Value = slog.AnyValue(m.value(conv))
		case []byte:
			if masked, ok := m.json(val); ok {
				a.Value = slog.StringValue(masked)
			}
		}
	}

	return a
}

func (m masker) json(payload []byte) (string, bool) {
	if len(payload) == 0 {
		return "", false
	}

	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}
	out, err := json.Marshal(m.value(body))
	if err != nil {
		return "", false
	}

	return string(out), true
}

func (m masker) value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if m.hides(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = m.value(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = m.value(inner)
		}
		return out
	default:
		return v
	}
}

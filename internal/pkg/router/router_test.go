package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/preschool/internal/pkg/clock"
	"github.com/shandysiswandi/preschool/internal/pkg/config"
	"github.com/shandysiswandi/preschool/internal/pkg/goerror"
	"github.com/shandysiswandi/preschool/internal/pkg/instrument"
	"github.com/shandysiswandi/preschool/internal/pkg/jwt"
	"github.com/shandysiswandi/preschool/internal/pkg/uid"
	"github.com/shandysiswandi/preschool/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyBody struct {
	Phone string `json:"phone"`
}

type createdResp struct {
	ID string `json:"id"`
}

func (createdResp) StatusCode() int { return http.StatusCreated }
func (createdResp) Message() string { return "created" }

func newTestRouter(t *testing.T) (*Router, *jwt.Symmetric) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  maintenance:
    endpoints: "/api/v1/passcode/maintenance"
`))
	require.NoError(t, err)

	tokens, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("s", 64)),
		Issuer: "preschool",
		TTL:    time.Minute,
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	require.NoError(t, err)

	r := NewRouter(Config{
		Config:     cfg,
		UUID:       uid.NewUUID(),
		JWT:        tokens,
		Instrument: instrument.NewNoop(),
	})

	r.POST("/api/v1/passcode/verify", func(req *Request) (any, error) {
		var body verifyBody
		if err := req.DecodeBody(&body); err != nil {
			return nil, err
		}
		if body.Phone == "" {
			return nil, goerror.NewInvalidInput(validator.ValidationError{"phone": "phone is a required field"})
		}
		return createdResp{ID: body.Phone}, nil
	}, Public())
	r.GET("/api/v1/passcode/session", func(req *Request) (any, error) {
		return map[string]string{"phone": jwt.GetAuth(req.Context()).Phone}, nil
	})
	r.GET("/api/v1/passcode/maintenance", func(*Request) (any, error) { return nil, nil }, Public())
	r.POST("/api/v1/passcode/request", func(*Request) (any, error) { panic("boom") }, Public())
	r.GET("/health", func(*Request) (any, error) { return nil, errors.New("unclassified") }, Public())
	r.GET("/api/v1/passcode/tagged", func(*Request) (any, error) { return nil, nil }, Public(), With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Route", "tagged")
			next.ServeHTTP(w, req)
		})
	}))

	return r, tokens
}

func serve(r http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)

	return rec, out
}

func TestRouter(t *testing.T) {
	r, tokens := newTestRouter(t)

	t.Run("PublicSuccessUsesResponseHooks", func(t *testing.T) {
		rec, out := serve(r, http.MethodPost, "/api/v1/passcode/verify", `{"phone":"+15551234567"}`, nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "created", out["message"])
		assert.Equal(t, map[string]any{"id": "+15551234567"}, out["data"])
		assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))
	})

	t.Run("KeepsIncomingCorrelationID", func(t *testing.T) {
		rec, _ := serve(r, http.MethodPost, "/api/v1/passcode/verify", `{"phone":"+1"}`, map[string]string{HeaderRequestID: "abc"})
		assert.Equal(t, "abc", rec.Header().Get(HeaderCorrelationID))
	})

	t.Run("ValidationError", func(t *testing.T) {
		rec, out := serve(r, http.MethodPost, "/api/v1/passcode/verify", `{"phone":""}`, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, map[string]any{"phone": "phone is a required field"}, out["error"])
	})

	t.Run("InvalidBody", func(t *testing.T) {
		rec, _ := serve(r, http.MethodPost, "/api/v1/passcode/verify", `{"phone":"+1","extra":true}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ProtectedWithoutToken", func(t *testing.T) {
		rec, _ := serve(r, http.MethodGet, "/api/v1/passcode/session", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ProtectedWithToken", func(t *testing.T) {
		token, _, err := tokens.Generate("+15551234567")
		require.NoError(t, err)

		rec, out := serve(r, http.MethodGet, "/api/v1/passcode/session", "", map[string]string{"Authorization": "Bearer " + token})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"phone": "+15551234567"}, out["data"])
	})

	t.Run("Maintenance", func(t *testing.T) {
		token, _, err := tokens.Generate("+15551234567")
		require.NoError(t, err)

		rec, _ := serve(r, http.MethodGet, "/api/v1/passcode/maintenance", "", map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("PanicRecovered", func(t *testing.T) {
		rec, out := serve(r, http.MethodPost, "/api/v1/passcode/request", `{}`, nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", out["message"])
	})

	t.Run("UnclassifiedError", func(t *testing.T) {
		rec, _ := serve(r, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("RouteMiddleware", func(t *testing.T) {
		rec, _ := serve(r, http.MethodGet, "/api/v1/passcode/tagged", "", nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "tagged", rec.Header().Get("X-Route"))
	})

	t.Run("MalformedBearer", func(t *testing.T) {
		rec, out := serve(r, http.MethodGet, "/api/v1/passcode/session", "", map[string]string{"Authorization": "Basic abc"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authentication required", out["message"])
	})

	t.Run("NotFound", func(t *testing.T) {
		rec, _ := serve(r, http.MethodGet, "/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", realIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", realIP(req))

	req.Header.Set("True-Client-IP", "not-an-ip")
	assert.Equal(t, "203.0.113.7", realIP(req))
}

func TestMaskData(t *testing.T) {
	keys := maskKeysFrom(nil)
	got := maskData(map[string]any{
		"phone": "+15551234567",
		"code":  "123456",
		"data":  []any{map[string]any{"token": "t"}},
	}, keys)

	assert.Equal(t, map[string]any{
		"phone": "+15551234567",
		"code":  "***",
		"data":  []any{map[string]any{"token": "***"}},
	}, got)
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("Disabled", func(t *testing.T) {
		h := RateLimit(0, 0)(ok)
		for range 5 {
			rec, _ := serve(h, http.MethodPost, "/", "", nil)
			assert.Equal(t, http.StatusNoContent, rec.Code)
		}
	})

	t.Run("PerClientBucket", func(t *testing.T) {
		h := RateLimit(0.001, 2)(ok)

		call := func(addr string) int {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Code
		}

		assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
		assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1"))
		assert.Equal(t, http.StatusNoContent, call("10.0.0.2"))
	})

	t.Run("IgnoresForwardedHeaders", func(t *testing.T) {
		r := NewRouter(Config{UUID: uid.NewUUID(), Instrument: instrument.NewNoop()})
		r.POST("/limited", func(req *Request) (any, error) {
			return map[string]string{"ip": req.ClientIP()}, nil
		}, Public(), With(RateLimit(0.001, 2)))

		call := func(forwarded string) (int, map[string]any) {
			req := httptest.NewRequest(http.MethodPost, "/limited", nil)
			req.RemoteAddr = "198.51.100.9:40000"
			req.Header.Set("X-Forwarded-For", forwarded)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			var out map[string]any
			_ = json.Unmarshal(rec.Body.Bytes(), &out)
			return rec.Code, out
		}

		code, out := call("203.0.113.1")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]any{"ip": "203.0.113.1"}, out["data"])

		code, _ = call("203.0.113.2")
		assert.Equal(t, http.StatusOK, code)

		code, _ = call("203.0.113.3")
		assert.Equal(t, http.StatusTooManyRequests, code)
	})
}

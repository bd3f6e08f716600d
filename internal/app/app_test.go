package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const testConfig = `
app:
  tz: UTC
  server:
    http:
      address: "127.0.0.1:0"
      read_header_timeout_seconds: 5
modules:
  passcode:
    enabled: true
instrument:
  enabled: false
  log_level: error
hash:
  hmac:
    secret: test-hmac-secret
jwt:
  secret: test-jwt-secret-test-jwt-secret-test-jwt-secret-test-jwt-secret-0
  issuer: preschool
  audiences: preschool-web
  ttl_minutes: 60
otp:
  issuer: Preschool
  digits: 6
  ttl_seconds: 300
  max_attempts: 3
  resend_cooldown_seconds: 60
  store:
    distributed: %t
    driver: redis
  retry:
    max_attempts: 1
redis:
  url: "%s"
  dial_timeout_ms: 100
  read_timeout_ms: 100
  write_timeout_ms: 100
messaging:
  driver: log
`

const testPhone = "+15551234567"

var httpClient = &http.Client{Timeout: 5 * time.Second}

type successEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func startApp(t *testing.T, distributed bool, redisURL string) (*App, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, fmt.Appendf(nil, testConfig, distributed, redisURL), 0o600))
	t.Setenv("CONFIG_PATH", path)

	a := New()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	errChan := a.Serve(l)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Stop(ctx)
		assert.ErrorIs(t, <-errChan, http.ErrServerClosed)
	})

	return a, "http://" + l.Addr().String()
}

func doJSON(t *testing.T, method, url string, payload any, token string, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(buf).Encode(payload))
		body = buf
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		var env successEnvelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		require.NoError(t, json.Unmarshal(env.Data, out))
	}

	return resp.StatusCode
}

// useKnownCode swaps the stored digest so the test can answer the challenge
// without reading the SMS.
func useKnownCode(t *testing.T, a *App, code string) {
	t.Helper()

	ctx := context.Background()
	rec, err := a.otpCache.Get(ctx, testPhone)
	require.NoError(t, err)
	require.NotNil(t, rec)

	hashed, err := a.hmac.Hash(code)
	require.NoError(t, err)
	rec.Code = string(hashed)
	require.NoError(t, a.otpCache.Set(ctx, testPhone, *rec))
}

func TestApp_LocalOnlyPasscodeFlow(t *testing.T) {
	a, base := startApp(t, false, "")

	var health healthResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/health", nil, "", &health))
	assert.Equal(t, healthResponse{Status: "up", OTPStore: "local-only", Backend: "memory", Ready: true}, health)

	var issued struct {
		RequestID string    `json:"request_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"/api/v1/passcode/request", map[string]string{"phone": testPhone}, "", &issued))
	assert.NotEmpty(t, issued.RequestID)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), issued.ExpiresAt, 5*time.Second)

	useKnownCode(t, a, "123456")

	assert.Equal(t, http.StatusUnauthorized,
		doJSON(t, http.MethodPost, base+"/api/v1/passcode/verify", map[string]string{"phone": testPhone, "code": "000000"}, "", nil))

	var verified struct {
		AccessToken string `json:"access_token"`
	}
	require.Equal(t, http.StatusOK,
		doJSON(t, http.MethodPost, base+"/api/v1/passcode/verify", map[string]string{"phone": testPhone, "code": "123456"}, "", &verified))
	require.NotEmpty(t, verified.AccessToken)

	assert.Equal(t, http.StatusNotFound,
		doJSON(t, http.MethodPost, base+"/api/v1/passcode/verify", map[string]string{"phone": testPhone, "code": "123456"}, "", nil))

	var session struct {
		Phone string `json:"phone"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/api/v1/passcode/session", nil, verified.AccessToken, &session))
	assert.Equal(t, testPhone, session.Phone)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, http.MethodGet, base+"/api/v1/passcode/session", nil, "", nil))
}

func TestApp_DistributedFallsBackWhenRedisDown(t *testing.T) {
	a, base := startApp(t, true, "redis://127.0.0.1:1/0")

	var health healthResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/health", nil, "", &health))
	assert.Equal(t, "distributed", health.OTPStore)
	assert.Equal(t, "redis", health.Backend)
	assert.False(t, health.Ready)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"/api/v1/passcode/request", map[string]string{"phone": testPhone}, "", nil))

	useKnownCode(t, a, "654321")

	var verified struct {
		AccessToken string `json:"access_token"`
	}
	require.Equal(t, http.StatusOK,
		doJSON(t, http.MethodPost, base+"/api/v1/passcode/verify", map[string]string{"phone": testPhone, "code": "654321"}, "", &verified))
	assert.NotEmpty(t, verified.AccessToken)
}

func TestApp_HealthTracksRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	_, base := startApp(t, true, uri)

	var health healthResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/health", nil, "", &health))
	assert.True(t, health.Ready)

	require.NoError(t, ctr.Stop(ctx, nil))

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/health", nil, "", &health))
	assert.False(t, health.Ready)
	assert.Equal(t, "redis", health.Backend)
}

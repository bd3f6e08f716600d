package config

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
otp:
  ttl_seconds: 300
  max_attempts: 5
  store:
    distributed: true
    driver: redis
  retry:
    base_delay_ms: 50
    max_elapsed_minutes: 60
http:
  cors_origins: "http://localhost:3000, https://app.example.com,,"
  headers: "x-a:1, x-b:2,broken"
secret: %s
`

func newSample(t *testing.T) *Viper {
	t.Helper()

	data := fmt.Sprintf(sample, base64.StdEncoding.EncodeToString([]byte("hmac-key")))

	cfg, err := NewViperFromBytes("yaml", []byte(data))
	require.NoError(t, err)

	return cfg
}

func TestNewViperFromBytes(t *testing.T) {
	t.Run("RequiresType", func(t *testing.T) {
		_, err := NewViperFromBytes(" ", nil)
		assert.Error(t, err)
	})

	t.Run("RejectsInvalidYAML", func(t *testing.T) {
		_, err := NewViperFromBytes("yaml", []byte("otp: [unclosed"))
		assert.Error(t, err)
	})
}

func TestViper_Getters(t *testing.T) {
	cfg := newSample(t)

	assert.True(t, cfg.GetBool("otp.store.distributed"))
	assert.Equal(t, "redis", cfg.GetString("otp.store.driver"))
	assert.Equal(t, 5, cfg.GetInt("otp.max_attempts"))
	assert.Equal(t, 300*time.Second, cfg.GetSecond("otp.ttl_seconds"))
	assert.Equal(t, 50*time.Millisecond, cfg.GetMillisecond("otp.retry.base_delay_ms"))
	assert.Equal(t, time.Hour, cfg.GetMinute("otp.retry.max_elapsed_minutes"))
	assert.Equal(t, []byte("hmac-key"), cfg.GetBinary("secret"))
	assert.Nil(t, cfg.GetBinary("otp.store.driver"))
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.GetArray("http.cors_origins"))
	assert.Equal(t, map[string]string{"x-a": "1", "x-b": "2"}, cfg.GetMap("http.headers"))
	assert.Empty(t, cfg.GetArray("missing"))
	assert.NoError(t, cfg.Close())
}

func TestViper_EnvOverride(t *testing.T) {
	t.Setenv("PRESCHOOL_OTP_STORE_DISTRIBUTED", "false")

	cfg := newSample(t)

	assert.False(t, cfg.GetBool("otp.store.distributed"))
}

func TestViper_OnChange(t *testing.T) {
	cfg := newSample(t)
	calls := 0
	cfg.OnChange(func() { calls++ })

	cfg.notify()

	assert.Equal(t, 1, calls)
}

package config

import (
	"io"
	"time"
)

// DurationConfig reads integer values as durations in a fixed unit.
type DurationConfig interface {
	// GetMillisecond reads key as a number of milliseconds.
	GetMillisecond(key string) time.Duration
	// GetSecond reads key as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads key as a number of minutes.
	GetMinute(key string) time.Duration
	// GetHour reads key as a number of hours.
	GetHour(key string) time.Duration
}

// NumberConfig reads numeric values. Missing or malformed keys read as zero.
type NumberConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint64(key string) uint64
	GetFloat64(key string) float64
}

// Config is the read-only view of application settings.
//
// Keys are dotted paths into the config file ("otp.store.distributed"). Every
// key can be overridden by an environment variable named after the upper-cased
// key with dots replaced by underscores and the PRESCHOOL_ prefix.
type Config interface {
	io.Closer
	DurationConfig
	NumberConfig

	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value; invalid input reads as nil.
	GetBinary(key string) []byte

	// GetArray splits a comma separated value, trimming blanks and dropping
	// empty elements.
	GetArray(key string) []string

	// GetMap parses a "k1:v1,k2:v2" value.
	GetMap(key string) map[string]string

	// OnChange registers fn to run after the file has been reloaded.
	OnChange(fn func())
}

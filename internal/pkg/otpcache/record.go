package otpcache

import (
	"math"
	"time"
)

// Record is the passcode payload stored under a phone key.
//
// Only ExpiresAt is interpreted by the cache; everything else round-trips
// unchanged.
type Record struct {
	Code      string         `json:"code"`
	ExpiresAt int64          `json:"expiresAt"`
	Attempts  int            `json:"attempts,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// NewRecord builds a Record that expires at the given instant.
func NewRecord(code string, expiresAt time.Time) Record {
	return Record{Code: code, ExpiresAt: expiresAt.UnixMilli()}
}

// Expiry returns ExpiresAt as a time.Time.
func (r Record) Expiry() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}

// Expired reports whether the record is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.UnixMilli()
}

// Entry is what the cache hands to a backend on write.
type Entry struct {
	// Record is the original, unserialized payload.
	Record Record
	// Encoded is the JSON form of Record.
	Encoded []byte
	// TTLSeconds is the remaining lifetime, see TTLSeconds.
	TTLSeconds int64
}

// maxTTLSeconds is the largest whole-second lifetime a time.Duration holds.
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// TTL returns the entry lifetime clamped to the one second minimum that
// shared stores accept and to the largest representable duration.
func (e Entry) TTL() time.Duration {
	return time.Duration(min(max(e.TTLSeconds, 1), maxTTLSeconds)) * time.Second
}

// TTLSeconds computes ceil((expiresAt - now) / 1000) with both instants in
// epoch milliseconds. The result is zero or negative when the record has
// already expired.
func TTLSeconds(expiresAtMillis int64, now time.Time) int64 {
	diff := expiresAtMillis - now.UnixMilli()
	return int64(math.Ceil(float64(diff) / 1000))
}

// Package uid generates identifiers: UUIDv7 strings for correlation and token
// ids, snowflake numbers for passcode requests.
package uid

// NumberID generates sortable numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// Package hash keys short-lived secrets before they are stored.
//
// Passcodes are written to the OTP store as HMAC-SHA256 digests so a leaked
// cache entry does not reveal the code that was sent.
package hash

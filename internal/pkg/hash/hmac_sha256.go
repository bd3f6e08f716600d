package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 implements Hash with a hex encoded HMAC-SHA256.
type HMACSHA256 struct {
	secret []byte
}

func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Hash never fails; the error is part of the Hash contract.
func (s *HMACSHA256) Hash(str string) ([]byte, error) {
	return []byte(hex.EncodeToString(s.sum(str))), nil
}

// Verify compares in constant time.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	raw, err := hex.DecodeString(hashed)
	if err != nil {
		return false
	}
	return hmac.Equal(raw, s.sum(str))
}

func (s *HMACSHA256) sum(str string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(str))
	return h.Sum(nil)
}

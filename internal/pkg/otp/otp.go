package otp

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Generator creates one-time passcodes.
type Generator interface {
	// GenerateCode returns a new passcode for use at the given time.
	GenerateCode(at time.Time) (string, error)
}

// TOTP implements Generator with RFC 6238 codes over single-use secrets.
type TOTP struct {
	issuer string
	period uint
	digits otp.Digits
}

// NewTOTP falls back to 6 digits when digits is not 6 or 8, and to a 30
// second period when period is 0.
func NewTOTP(issuer string, period uint, digits otp.Digits) *TOTP {
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}
	if period == 0 {
		period = 30
	}

	return &TOTP{issuer: issuer, period: period, digits: digits}
}

// DigitsFromInt maps 8 to otp.DigitsEight and anything else to DigitsSix.
func DigitsFromInt(n int) otp.Digits {
	if n == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}

func (o *TOTP) GenerateCode(at time.Time) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      o.issuer,
		AccountName: "passcode",
		Period:      o.period,
		SecretSize:  20,
		Digits:      o.digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}

	return totp.GenerateCodeCustom(key.Secret(), at, totp.ValidateOpts{
		Period:    o.period,
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
}

package otp

import (
	"regexp"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTP_GenerateCode(t *testing.T) {
	tests := []struct {
		name   string
		digits otp.Digits
		re     string
	}{
		{name: "SixDigits", digits: otp.DigitsSix, re: `^[0-9]{6}$`},
		{name: "EightDigits", digits: otp.DigitsEight, re: `^[0-9]{8}$`},
		{name: "UnsupportedFallsBack", digits: otp.Digits(5), re: `^[0-9]{6}$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := NewTOTP("preschool", 0, tt.digits).GenerateCode(time.Now())

			require.NoError(t, err)
			assert.Regexp(t, regexp.MustCompile(tt.re), code)
		})
	}
}

func TestDigitsFromInt(t *testing.T) {
	assert.Equal(t, otp.DigitsEight, DigitsFromInt(8))
	assert.Equal(t, otp.DigitsSix, DigitsFromInt(6))
	assert.Equal(t, otp.DigitsSix, DigitsFromInt(0))
}

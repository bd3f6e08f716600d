// Package otp generates the numeric passcodes sent by SMS.
//
// Each code is a TOTP value computed over a fresh random secret, so codes are
// uniformly distributed and never derivable from an earlier one.
package otp

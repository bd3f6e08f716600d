// Package validator validates inbound request structs.
//
// Use cases depend on the Validator interface; the go-playground/validator v10
// implementation registers English messages plus the passcode specific rules
// ("e164" messages and the "passcode" digit rule).
package validator

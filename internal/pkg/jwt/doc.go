// Package jwt issues and verifies the HS512 session tokens handed out after
// a phone passcode is verified. Tokens carry the phone number as subject.
package jwt

// Package clock provides a tiny time abstraction.
//
// Code that computes expiries depends on Clocker instead of calling time.Now
// directly, so tests can freeze time with Fixed and assert exact TTLs.
package clock

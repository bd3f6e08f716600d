// Package otpcache stores short-lived one-time passcode records keyed by phone
// number.
//
// A Cache holds an ordered chain of backends. In distributed mode the chain is
// a shared store (Redis or Postgres) followed by an in-process map; in
// local-only mode it is the in-process map alone. Connectivity failures of the
// shared store are logged and absorbed by falling through to the next backend,
// so callers never have to know where a record ended up.
//
// The in-process map does not enforce expiry. Callers must check
// Record.Expired before trusting a record they read back.
package otpcache

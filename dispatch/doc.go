// Package dispatch relays verification tokens and tool invocations to the
// Viktor Spaces API using project-scoped credentials that must stay
// server-side.
//
// The email sender is invoked synchronously from the auth capability's
// send-verification hook: it must return nil only after the upstream API has
// accepted the message, and it makes exactly one attempt — delivery retry,
// per-project rate limiting, and the actual mail provider all live behind
// the Viktor Spaces API.
//
// Upstream failure text is preserved verbatim on returned errors for
// operator diagnosis. It can name upstream internals, so it must never be
// shown to end users as-is.
package dispatch

// Package session inspects capability-issued session tokens so a front end
// can render the signed-in identity without a capability round trip. It
// verifies and reads; it never issues, refreshes, or revokes — those belong
// to the external auth capability.
package session

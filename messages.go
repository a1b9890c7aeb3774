package authflow

import "fmt"

// Fixed user-facing messages. One message per step, regardless of why the
// capability rejected: distinguishing wrong-password from unknown-user (or
// from a rate limit) in user-visible text would let callers probe which
// accounts exist. The raw capability error still travels on the returned
// error and into audit for operators.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgResetRequestFailed = "Could not send reset code."
	msgResetConfirmFailed = "Could not reset password. Code may be expired."
	msgSignUpFailed       = "Could not create account."
	msgVerificationFailed = "Invalid or expired code."
	msgPasswordMismatch   = "Passwords don't match"
)

func msgPasswordTooShort(min int) string {
	return fmt.Sprintf("Password must be at least %d characters", min)
}

package authflow

// Step is the tagged union of form positions. Exactly the types in this file
// implement it; a switch over a Step that handles all of them is exhaustive.
//
// Transitions are strictly forward or back-to-start, and no step is reachable
// without the data its predecessor produced: StepResetCode and
// StepNewPassword always carry the email submitted at StepForgot, and
// StepNewPassword additionally carries the code entered at StepResetCode.
type Step interface {
	step()
}

// StepSignIn is the initial position of the sign-in form: collecting email
// and password.
type StepSignIn struct{}

// StepForgot collects the email a reset code should be sent to. Email is a
// prefill carried back from a failed StepNewPassword submit; it is empty when
// the user arrived here directly.
type StepForgot struct {
	Email string
}

// StepResetCode collects the reset code delivered to Email.
type StepResetCode struct {
	Email string
}

// StepNewPassword collects the replacement password. Code is the user's
// entry from StepResetCode, validated by the capability only when this step
// is submitted.
type StepNewPassword struct {
	Email string
	Code  string
}

// StepSignUp is the initial position of the sign-up form: collecting email,
// password, and confirmation.
type StepSignUp struct{}

// StepAwaitingVerification collects the verification code the capability
// dispatched to Email during sign-up.
type StepAwaitingVerification struct {
	Email string
}

func (StepSignIn) step()               {}
func (StepForgot) step()               {}
func (StepResetCode) step()            {}
func (StepNewPassword) step()          {}
func (StepSignUp) step()               {}
func (StepAwaitingVerification) step() {}

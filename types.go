package authflow

import "context"

// Flow identifies which credential operation a submission requests. The
// string values are the wire tags recognized by the password provider.
type Flow string

const (
	// FlowSignIn is an exported constant or variable used by the flow controllers.
	FlowSignIn Flow = "signIn"
	// FlowSignUp is an exported constant or variable used by the flow controllers.
	FlowSignUp Flow = "signUp"
	// FlowReset is an exported constant or variable used by the flow controllers.
	FlowReset Flow = "reset"
	// FlowResetVerification is an exported constant or variable used by the flow controllers.
	FlowResetVerification Flow = "reset-verification"
	// FlowEmailVerification is an exported constant or variable used by the flow controllers.
	FlowEmailVerification Flow = "email-verification"
)

// Provider ids recognized by the capability. ProviderTest is the sandbox
// provider: it auto-verifies accounts and is selected only for addresses
// matching the configured sandbox suffix.
const (
	// ProviderPassword is an exported constant or variable used by the flow controllers.
	ProviderPassword = "password"
	// ProviderTest is an exported constant or variable used by the flow controllers.
	ProviderTest = "test"
)

// Submission field names. A submission is a flat key-value set because the
// capability consumes form data; the constants keep call sites and fakes in
// agreement about spelling.
const (
	// FieldEmail is an exported constant or variable used by the flow controllers.
	FieldEmail = "email"
	// FieldPassword is an exported constant or variable used by the flow controllers.
	FieldPassword = "password"
	// FieldNewPassword is an exported constant or variable used by the flow controllers.
	FieldNewPassword = "newPassword"
	// FieldCode is an exported constant or variable used by the flow controllers.
	FieldCode = "code"
	// FieldName is an exported constant or variable used by the flow controllers.
	FieldName = "name"
	// FieldFlow is an exported constant or variable used by the flow controllers.
	FieldFlow = "flow"
)

// Submission is the ephemeral key-value set handed to the capability for one
// submit call. Controllers build a fresh Submission per call and never retain
// or inspect it afterwards.
type Submission map[string]string

// Flow returns the flow tag carried by the submission, or "" when absent.
func (s Submission) Flow() Flow {
	return Flow(s[FieldFlow])
}

// UserRecord is the read-only display identity returned by
// [Capability.CurrentUser]. It is what a front end needs to render a user
// menu; it carries no credential or session material.
type UserRecord struct {
	UserID string
	Email  string
	Name   string
}

// Capability is the external auth provider boundary. Implementations
// validate credentials and verification codes, own token validity windows,
// and flip global authenticated state; controllers only observe success or
// rejection of a submission.
//
// SignIn must return a non-nil error for invalid credentials, unknown flows,
// and expired codes. CurrentUser returns [ErrNoUser] when no session is
// established.
type Capability interface {
	SignIn(ctx context.Context, providerID string, sub Submission) error
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*UserRecord, error)
}

// Form carries the raw input a user entered before a submit. Each step reads
// only the fields it needs; unread fields are ignored.
type Form struct {
	Email           string
	Password        string
	ConfirmPassword string
	NewPassword     string
	Code            string
	Name            string
}

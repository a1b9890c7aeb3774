package authflow

import (
	"context"
	"fmt"
	"time"
)

// SignInController defines a public type used by authflow APIs.
//
// SignInController drives one sign-in form instance through
// StepSignIn -> (ForgotPassword) -> StepForgot -> StepResetCode ->
// StepNewPassword. Step, Message, and Completed are meant to be read from
// the same logical thread that calls Submit; only the loading flag is safe
// to poll concurrently.
type SignInController struct {
	flows     *Flows
	formID    string
	guard     inflightGuard
	step      Step
	message   string
	completed bool
}

// FormID identifies this form instance; it keys the persisted step when a
// step store is configured.
func (c *SignInController) FormID() string {
	if c == nil {
		return ""
	}
	return c.formID
}

// Step returns the current form position.
func (c *SignInController) Step() Step {
	if c == nil || c.step == nil {
		return StepSignIn{}
	}
	return c.step
}

// Message returns the user-facing message for the last Submit, or "" when it
// succeeded. The text is one of the fixed per-step strings, never capability
// error text.
func (c *SignInController) Message() string {
	if c == nil {
		return ""
	}
	return c.message
}

// Loading reports whether a submission is in flight.
func (c *SignInController) Loading() bool {
	if c == nil {
		return false
	}
	return c.guard.loading()
}

// Completed reports whether a reset flow ran to a successful
// reset-verification. The plain signIn flow never sets it: a successful
// credential submit is observed through the surrounding application's auth
// state, not through this controller.
func (c *SignInController) Completed() bool {
	if c == nil {
		return false
	}
	return c.completed
}

// ForgotPassword moves the form from StepSignIn to StepForgot. Pure and
// synchronous; a no-op on any other step.
func (c *SignInController) ForgotPassword(ctx context.Context) {
	if c == nil {
		return
	}
	if _, ok := c.step.(StepSignIn); !ok {
		return
	}
	c.transition(ctx, StepForgot{})
}

// Back moves one step toward the start of the flow: Forgot -> SignIn,
// ResetCode -> Forgot (keeping the email, so "resend" works),
// NewPassword -> SignIn (cancel). Pure, synchronous, always succeeds.
func (c *SignInController) Back(ctx context.Context) {
	if c == nil {
		return
	}

	switch step := c.step.(type) {
	case StepForgot:
		c.transition(ctx, StepSignIn{})
	case StepResetCode:
		c.transition(ctx, StepForgot{Email: step.Email})
	case StepNewPassword:
		c.transition(ctx, StepSignIn{})
	default:
		return
	}

	c.message = ""
	c.flows.metricInc(MetricBackTransition)
	c.flows.emitAudit(ctx, auditEventStepBack, c.formID, "", "", true, nil, nil)
}

// Submit runs the current step's submission against the capability. At most
// one Submit may be outstanding per controller; a re-entrant call fails with
// [ErrSubmitInFlight] before any capability use. On rejection the returned
// error wraps [ErrSubmissionRejected] and Message carries the step's fixed
// user-facing string.
func (c *SignInController) Submit(ctx context.Context, form Form) error {
	if c == nil || c.flows == nil {
		return ErrFlowsClosed
	}
	if c.flows.closed.Load() {
		return ErrFlowsClosed
	}
	if !c.guard.acquire() {
		c.flows.metricInc(MetricSubmitRejectedInFlight)
		c.flows.emitAudit(ctx, auditEventSubmitRejected, c.formID, "", "", false, ErrSubmitInFlight, nil)
		return ErrSubmitInFlight
	}
	defer c.guard.release()

	c.message = ""
	start := time.Now()
	defer c.flows.observeSubmit(start)

	switch step := c.step.(type) {
	case StepSignIn:
		return c.submitSignIn(ctx, form)
	case StepForgot:
		return c.submitForgot(ctx, form)
	case StepResetCode:
		return c.submitResetCode(ctx, step, form)
	case StepNewPassword:
		return c.submitNewPassword(ctx, step, form)
	default:
		return fmt.Errorf("%w: unknown step", ErrSubmissionRejected)
	}
}

func (c *SignInController) submitSignIn(ctx context.Context, form Form) error {
	sub := Submission{
		FieldEmail:    form.Email,
		FieldPassword: form.Password,
		FieldFlow:     string(FlowSignIn),
	}

	if err := c.flows.capability.SignIn(ctx, ProviderPassword, sub); err != nil {
		// Stay on StepSignIn. All rejection causes collapse into one
		// message; see messages.go.
		c.message = msgInvalidCredentials
		c.flows.metricInc(MetricSignInFailure)
		c.flows.emitAudit(ctx, auditEventSignInSubmit, c.formID, ProviderPassword, FlowSignIn, false, err, nil)
		return fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	// Authenticated state flips externally; the controller's position does
	// not change.
	c.flows.metricInc(MetricSignInSuccess)
	c.flows.emitAudit(ctx, auditEventSignInSubmit, c.formID, ProviderPassword, FlowSignIn, true, nil, nil)
	return nil
}

func (c *SignInController) submitForgot(ctx context.Context, form Form) error {
	sub := Submission{
		FieldEmail: form.Email,
		FieldFlow:  string(FlowReset),
	}

	if err := c.flows.capability.SignIn(ctx, ProviderPassword, sub); err != nil {
		c.message = msgResetRequestFailed
		c.flows.metricInc(MetricResetRequestFailure)
		c.flows.emitAudit(ctx, auditEventResetRequest, c.formID, ProviderPassword, FlowReset, false, err, nil)
		return fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	c.transition(ctx, StepResetCode{Email: form.Email})
	c.flows.metricInc(MetricResetRequestSuccess)
	c.flows.emitAudit(ctx, auditEventResetRequest, c.formID, ProviderPassword, FlowReset, true, nil, nil)
	return nil
}

// submitResetCode is purely local: the entered code is carried forward and
// validated by the capability only when the new password is submitted. There
// is no failure path here.
func (c *SignInController) submitResetCode(ctx context.Context, step StepResetCode, form Form) error {
	c.transition(ctx, StepNewPassword{Email: step.Email, Code: form.Code})
	return nil
}

func (c *SignInController) submitNewPassword(ctx context.Context, step StepNewPassword, form Form) error {
	sub := Submission{
		FieldEmail:       step.Email,
		FieldCode:        step.Code,
		FieldNewPassword: form.NewPassword,
		FieldFlow:        string(FlowResetVerification),
	}

	if err := c.flows.capability.SignIn(ctx, ProviderPassword, sub); err != nil {
		// Expired or invalid code: return to StepForgot so a fresh code can
		// be requested, prefilled when configured.
		next := StepForgot{}
		if c.flows.config.Flow.PrefillResetEmail {
			next.Email = step.Email
		}
		c.transition(ctx, next)
		c.message = msgResetConfirmFailed
		c.flows.metricInc(MetricResetConfirmFailure)
		c.flows.emitAudit(ctx, auditEventResetConfirm, c.formID, ProviderPassword, FlowResetVerification, false, err, nil)
		return fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	c.completed = true
	c.transition(ctx, StepSignIn{})
	c.flows.clearStep(ctx, c.formID)
	c.flows.metricInc(MetricResetConfirmSuccess)
	c.flows.emitAudit(ctx, auditEventResetConfirm, c.formID, ProviderPassword, FlowResetVerification, true, nil, nil)
	return nil
}

func (c *SignInController) transition(ctx context.Context, next Step) {
	c.step = next
	c.flows.saveStep(ctx, c.formID, next)
}

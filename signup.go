package authflow

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SignUpController defines a public type used by authflow APIs.
//
// SignUpController drives one sign-up form instance through
// StepSignUp -> StepAwaitingVerification, with the sandbox routing rule
// applied before submission: addresses matching the configured sandbox
// suffix go to the "test" provider and skip verification entirely.
type SignUpController struct {
	flows     *Flows
	formID    string
	guard     inflightGuard
	step      Step
	message   string
	completed bool
}

// FormID identifies this form instance; it keys the persisted step when a
// step store is configured.
func (c *SignUpController) FormID() string {
	if c == nil {
		return ""
	}
	return c.formID
}

// Step returns the current form position.
func (c *SignUpController) Step() Step {
	if c == nil || c.step == nil {
		return StepSignUp{}
	}
	return c.step
}

// Message returns the user-facing message for the last Submit, or "" when it
// succeeded.
func (c *SignUpController) Message() string {
	if c == nil {
		return ""
	}
	return c.message
}

// Loading reports whether a submission is in flight.
func (c *SignUpController) Loading() bool {
	if c == nil {
		return false
	}
	return c.guard.loading()
}

// Completed reports whether the flow finished: either a sandbox sign-up
// succeeded, or a normal sign-up's verification code was accepted.
func (c *SignUpController) Completed() bool {
	if c == nil {
		return false
	}
	return c.completed
}

// Back moves AwaitingVerification back to SignUp. Pure, synchronous, always
// succeeds; a no-op on StepSignUp.
func (c *SignUpController) Back(ctx context.Context) {
	if c == nil {
		return
	}
	if _, ok := c.step.(StepAwaitingVerification); !ok {
		return
	}

	c.transition(ctx, StepSignUp{})
	c.message = ""
	c.flows.metricInc(MetricBackTransition)
	c.flows.emitAudit(ctx, auditEventStepBack, c.formID, "", "", true, nil, nil)
}

// Submit runs the current step's submission. Local validation (password
// confirmation and minimum length) rejects before the in-flight slot is
// taken, mirroring a form that checks inputs before disabling its submit
// control. Everything else follows the [SignInController.Submit] contract.
func (c *SignUpController) Submit(ctx context.Context, form Form) error {
	if c == nil || c.flows == nil {
		return ErrFlowsClosed
	}
	if c.flows.closed.Load() {
		return ErrFlowsClosed
	}

	if _, ok := c.step.(StepSignUp); ok {
		if err := c.validateLocally(form); err != nil {
			return err
		}
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
	case StepSignUp:
		return c.submitSignUp(ctx, form)
	case StepAwaitingVerification:
		return c.submitVerification(ctx, step, form)
	default:
		return fmt.Errorf("%w: unknown step", ErrSubmissionRejected)
	}
}

func (c *SignUpController) validateLocally(form Form) error {
	if form.Password != form.ConfirmPassword {
		c.message = msgPasswordMismatch
		c.flows.metricInc(MetricSignUpLocalRejected)
		return fmt.Errorf("%w: password confirmation mismatch", ErrLocalValidation)
	}
	if min := c.flows.config.Flow.MinPasswordLength; len(form.Password) < min {
		c.message = msgPasswordTooShort(min)
		c.flows.metricInc(MetricSignUpLocalRejected)
		return fmt.Errorf("%w: password below minimum length", ErrLocalValidation)
	}
	return nil
}

// sandbox reports whether the address belongs to the sandbox domain. The
// sandbox provider auto-verifies, so matching sign-ups complete without an
// AwaitingVerification step.
func (c *SignUpController) sandbox(email string) bool {
	suffix := c.flows.config.Flow.SandboxSuffix
	if suffix == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), strings.ToLower(suffix))
}

func (c *SignUpController) submitSignUp(ctx context.Context, form Form) error {
	sub := Submission{
		FieldEmail:    form.Email,
		FieldPassword: form.Password,
		FieldFlow:     string(FlowSignUp),
	}
	if form.Name != "" {
		sub[FieldName] = form.Name
	}

	provider := ProviderPassword
	if c.sandbox(form.Email) {
		provider = ProviderTest
		c.flows.metricInc(MetricSignUpSandboxRouted)
	}

	if err := c.flows.capability.SignIn(ctx, provider, sub); err != nil {
		c.message = msgSignUpFailed
		c.flows.metricInc(MetricSignUpFailure)
		c.flows.emitAudit(ctx, auditEventSignUpSubmit, c.formID, provider, FlowSignUp, false, err, nil)
		return fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	if provider == ProviderTest {
		// Trusted sandbox: account is already verified.
		c.completed = true
		c.flows.clearStep(ctx, c.formID)
	} else {
		c.transition(ctx, StepAwaitingVerification{Email: form.Email})
	}

	c.flows.metricInc(MetricSignUpSuccess)
	c.flows.emitAudit(ctx, auditEventSignUpSubmit, c.formID, provider, FlowSignUp, true, nil, nil)
	return nil
}

func (c *SignUpController) submitVerification(ctx context.Context, step StepAwaitingVerification, form Form) error {
	sub := Submission{
		FieldEmail: step.Email,
		FieldCode:  form.Code,
		FieldFlow:  string(FlowEmailVerification),
	}

	if err := c.flows.capability.SignIn(ctx, ProviderPassword, sub); err != nil {
		c.message = msgVerificationFailed
		c.flows.metricInc(MetricVerificationFailure)
		c.flows.emitAudit(ctx, auditEventEmailVerification, c.formID, ProviderPassword, FlowEmailVerification, false, err, nil)
		return fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	c.completed = true
	c.flows.clearStep(ctx, c.formID)
	c.flows.metricInc(MetricVerificationSuccess)
	c.flows.emitAudit(ctx, auditEventEmailVerification, c.formID, ProviderPassword, FlowEmailVerification, true, nil, nil)
	return nil
}

func (c *SignUpController) transition(ctx context.Context, next Step) {
	c.step = next
	c.flows.saveStep(ctx, c.formID, next)
}

package authflow

import (
	"context"
	"errors"
	"runtime"
	"testing"
)

func TestSignInSuccessStaysOnSignInStep(t *testing.T) {
	cap := &fakeCapability{}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()

	err := c.Submit(context.Background(), Form{Email: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	call := cap.lastCall(t)
	if call.provider != ProviderPassword {
		t.Fatalf("expected provider %q, got %q", ProviderPassword, call.provider)
	}
	if call.sub[FieldFlow] != string(FlowSignIn) {
		t.Fatalf("expected flow signIn, got %q", call.sub[FieldFlow])
	}
	if call.sub[FieldEmail] != "alice@example.com" || call.sub[FieldPassword] != "correct-horse" {
		t.Fatalf("unexpected submission: %v", call.sub)
	}

	if _, ok := c.Step().(StepSignIn); !ok {
		t.Fatalf("expected StepSignIn, got %T", c.Step())
	}
	if c.Message() != "" {
		t.Fatalf("expected empty message, got %q", c.Message())
	}
}

func TestSignInRejectionShowsGenericMessageOnly(t *testing.T) {
	// The capability error names the real cause; none of it may surface in
	// the user-facing message.
	cap := &fakeCapability{err: errors.New("user bob@example.com does not exist")}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()

	err := c.Submit(context.Background(), Form{Email: "bob@example.com", Password: "nope"})
	if !errors.Is(err, ErrSubmissionRejected) {
		t.Fatalf("expected ErrSubmissionRejected, got %v", err)
	}

	if _, ok := c.Step().(StepSignIn); !ok {
		t.Fatalf("expected to stay on StepSignIn, got %T", c.Step())
	}
	if c.Message() != "Invalid email or password" {
		t.Fatalf("expected fixed message, got %q", c.Message())
	}
	if got := flows.MetricsSnapshot().Counters[MetricSignInFailure]; got != 1 {
		t.Fatalf("expected MetricSignInFailure=1, got %d", got)
	}
}

func TestForgotSuccessAdvancesToResetCode(t *testing.T) {
	cap := &fakeCapability{}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()

	c.ForgotPassword(context.Background())
	if _, ok := c.Step().(StepForgot); !ok {
		t.Fatalf("expected StepForgot, got %T", c.Step())
	}

	if err := c.Submit(context.Background(), Form{Email: "alice@example.com"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	call := cap.lastCall(t)
	if call.sub[FieldFlow] != string(FlowReset) {
		t.Fatalf("expected flow reset, got %q", call.sub[FieldFlow])
	}
	if _, ok := call.sub[FieldPassword]; ok {
		t.Fatalf("reset request must not carry a password")
	}

	step, ok := c.Step().(StepResetCode)
	if !ok {
		t.Fatalf("expected StepResetCode, got %T", c.Step())
	}
	if step.Email != "alice@example.com" {
		t.Fatalf("expected email carried forward, got %q", step.Email)
	}
}

func TestForgotRejectionStaysWithMessage(t *testing.T) {
	cap := &fakeCapability{err: errors.New("rate limited")}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()
	c.ForgotPassword(context.Background())

	err := c.Submit(context.Background(), Form{Email: "alice@example.com"})
	if !errors.Is(err, ErrSubmissionRejected) {
		t.Fatalf("expected ErrSubmissionRejected, got %v", err)
	}
	if _, ok := c.Step().(StepForgot); !ok {
		t.Fatalf("expected to stay on StepForgot, got %T", c.Step())
	}
	if c.Message() != "Could not send reset code." {
		t.Fatalf("expected fixed message, got %q", c.Message())
	}
}

func TestResetCodeStepIsLocalAndAlwaysAdvances(t *testing.T) {
	cap := &fakeCapability{}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()
	c.ForgotPassword(context.Background())
	if err := c.Submit(context.Background(), Form{Email: "alice@example.com"}); err != nil {
		t.Fatalf("forgot submit failed: %v", err)
	}
	before := cap.callCount()

	// Even a garbage code advances; the capability judges it at the final
	// reset submission.
	if err := c.Submit(context.Background(), Form{Code: "not-even-numeric"}); err != nil {
		t.Fatalf("reset code submit failed: %v", err)
	}

	if cap.callCount() != before {
		t.Fatalf("reset code step must not call the capability")
	}
	step, ok := c.Step().(StepNewPassword)
	if !ok {
		t.Fatalf("expected StepNewPassword, got %T", c.Step())
	}
	if step.Email != "alice@example.com" || step.Code != "not-even-numeric" {
		t.Fatalf("expected carried email and code, got %+v", step)
	}
}

func TestNewPasswordSuccessCompletesFlow(t *testing.T) {
	cap := &fakeCapability{}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()
	c.ForgotPassword(context.Background())
	if err := c.Submit(context.Background(), Form{Email: "alice@example.com"}); err != nil {
		t.Fatalf("forgot submit failed: %v", err)
	}
	if err := c.Submit(context.Background(), Form{Code: "482913"}); err != nil {
		t.Fatalf("reset code submit failed: %v", err)
	}

	if err := c.Submit(context.Background(), Form{NewPassword: "new-secret-99"}); err != nil {
		t.Fatalf("new password submit failed: %v", err)
	}

	call := cap.lastCall(t)
	if call.sub[FieldFlow] != string(FlowResetVerification) {
		t.Fatalf("expected flow reset-verification, got %q", call.sub[FieldFlow])
	}
	if call.sub[FieldEmail] != "alice@example.com" || call.sub[FieldCode] != "482913" || call.sub[FieldNewPassword] != "new-secret-99" {
		t.Fatalf("unexpected submission: %v", call.sub)
	}
	if !c.Completed() {
		t.Fatalf("expected completed flow")
	}
}

func TestNewPasswordRejectionReturnsToForgotPrefilled(t *testing.T) {
	cap := &fakeCapability{errByFlow: map[Flow]error{
		FlowResetVerification: errors.New("code expired"),
	}}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()
	c.ForgotPassword(context.Background())
	if err := c.Submit(context.Background(), Form{Email: "alice@example.com"}); err != nil {
		t.Fatalf("forgot submit failed: %v", err)
	}
	if err := c.Submit(context.Background(), Form{Code: "000000"}); err != nil {
		t.Fatalf("reset code submit failed: %v", err)
	}

	err := c.Submit(context.Background(), Form{NewPassword: "new-secret-99"})
	if !errors.Is(err, ErrSubmissionRejected) {
		t.Fatalf("expected ErrSubmissionRejected, got %v", err)
	}

	step, ok := c.Step().(StepForgot)
	if !ok {
		t.Fatalf("expected StepForgot, got %T", c.Step())
	}
	if step.Email != "alice@example.com" {
		t.Fatalf("expected prefilled email, got %q", step.Email)
	}
	if c.Message() != "Could not reset password. Code may be expired." {
		t.Fatalf("expected fixed message, got %q", c.Message())
	}
	if c.Completed() {
		t.Fatalf("flow must not be completed")
	}
}

func TestSignInBackTransitions(t *testing.T) {
	cap := &fakeCapability{}
	flows := newTestFlows(t, cap)
	ctx := context.Background()

	c := flows.NewSignIn()
	c.ForgotPassword(ctx)
	c.Back(ctx)
	if _, ok := c.Step().(StepSignIn); !ok {
		t.Fatalf("Forgot back: expected StepSignIn, got %T", c.Step())
	}

	// ResetCode -> Forgot keeps the email so "resend" works.
	c.ForgotPassword(ctx)
	if err := c.Submit(ctx, Form{Email: "alice@example.com"}); err != nil {
		t.Fatalf("forgot submit failed: %v", err)
	}
	c.Back(ctx)
	step, ok := c.Step().(StepForgot)
	if !ok {
		t.Fatalf("ResetCode back: expected StepForgot, got %T", c.Step())
	}
	if step.Email != "alice@example.com" {
		t.Fatalf("ResetCode back: expected email kept, got %q", step.Email)
	}

	// NewPassword -> SignIn is a full cancel.
	if err := c.Submit(ctx, Form{Email: "alice@example.com"}); err != nil {
		t.Fatalf("forgot resubmit failed: %v", err)
	}
	if err := c.Submit(ctx, Form{Code: "123456"}); err != nil {
		t.Fatalf("code submit failed: %v", err)
	}
	c.Back(ctx)
	if _, ok := c.Step().(StepSignIn); !ok {
		t.Fatalf("NewPassword back: expected StepSignIn, got %T", c.Step())
	}

	// Back on the start step is a no-op, repeatedly.
	c.Back(ctx)
	c.Back(ctx)
	if _, ok := c.Step().(StepSignIn); !ok {
		t.Fatalf("expected StepSignIn after repeated back, got %T", c.Step())
	}
}

func TestSubmitReentrantRejectedWithoutCapabilityCall(t *testing.T) {
	gate := make(chan struct{})
	cap := &fakeCapability{block: gate}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.Submit(context.Background(), Form{Email: "a@b.c", Password: "x"})
	}()

	for !c.Loading() {
		runtime.Gosched()
	}

	err := c.Submit(context.Background(), Form{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	if c.Loading() {
		t.Fatalf("loading must reset after completion")
	}
	if cap.callCount() != 1 {
		t.Fatalf("expected exactly one capability call, got %d", cap.callCount())
	}
	if got := flows.MetricsSnapshot().Counters[MetricSubmitRejectedInFlight]; got != 1 {
		t.Fatalf("expected MetricSubmitRejectedInFlight=1, got %d", got)
	}
}

func TestLoadingResetsAfterRejection(t *testing.T) {
	cap := &fakeCapability{err: errors.New("nope")}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()

	if c.Loading() {
		t.Fatalf("loading must start false")
	}
	_ = c.Submit(context.Background(), Form{Email: "a@b.c", Password: "x"})
	if c.Loading() {
		t.Fatalf("loading must reset after rejection")
	}
}

func TestSubmitAfterCloseRejected(t *testing.T) {
	cap := &fakeCapability{}
	flows := newTestFlows(t, cap)
	c := flows.NewSignIn()

	flows.Close()

	err := c.Submit(context.Background(), Form{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, ErrFlowsClosed) {
		t.Fatalf("expected ErrFlowsClosed, got %v", err)
	}
	if cap.callCount() != 0 {
		t.Fatalf("closed flows must not reach the capability")
	}
}

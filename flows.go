package authflow

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/viktorspaces/authflow/session"
)

// Flows defines a public type used by authflow APIs.
//
// Flows instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Flows struct {
	config     Config
	capability Capability
	stepStore  *stepStore
	audit      *auditDispatcher
	metrics    *Metrics
	verifier   *session.Verifier
	closed     atomic.Bool
}

// NewSignIn creates a fresh sign-in controller positioned at [StepSignIn].
func (f *Flows) NewSignIn() *SignInController {
	if f == nil {
		return nil
	}
	return &SignInController{
		flows:  f,
		formID: newFormID(),
		step:   StepSignIn{},
	}
}

// ResumeSignIn restores a sign-in controller from a previously persisted
// step. It fails with [ErrStepStoreUnavailable] when no step store is
// configured and [ErrStepNotFound] when the record expired or never existed.
// A record holding a sign-up step is treated as not found.
func (f *Flows) ResumeSignIn(ctx context.Context, formID string) (*SignInController, error) {
	step, err := f.loadStep(ctx, formID)
	if err != nil {
		return nil, err
	}
	switch step.(type) {
	case StepSignIn, StepForgot, StepResetCode, StepNewPassword:
	default:
		return nil, ErrStepNotFound
	}
	return &SignInController{flows: f, formID: formID, step: step}, nil
}

// NewSignUp creates a fresh sign-up controller positioned at [StepSignUp].
func (f *Flows) NewSignUp() *SignUpController {
	if f == nil {
		return nil
	}
	return &SignUpController{
		flows:  f,
		formID: newFormID(),
		step:   StepSignUp{},
	}
}

// ResumeSignUp restores a sign-up controller from a previously persisted
// step. Semantics match [Flows.ResumeSignIn].
func (f *Flows) ResumeSignUp(ctx context.Context, formID string) (*SignUpController, error) {
	step, err := f.loadStep(ctx, formID)
	if err != nil {
		return nil, err
	}
	switch step.(type) {
	case StepSignUp, StepAwaitingVerification:
	default:
		return nil, ErrStepNotFound
	}
	return &SignUpController{flows: f, formID: formID, step: step}, nil
}

// CurrentUser returns the authenticated user's display record from the
// capability, or [ErrNoUser] when no session is established. The record is
// read-only from the caller's perspective.
func (f *Flows) CurrentUser(ctx context.Context) (*UserRecord, error) {
	if f == nil || f.capability == nil {
		return nil, ErrCapabilityRequired
	}
	return f.capability.CurrentUser(ctx)
}

// UserFromToken derives a display record from a capability-issued session
// token without a capability round trip. It requires a session verifier to
// have been supplied at build time.
func (f *Flows) UserFromToken(raw string) (*UserRecord, error) {
	if f == nil || f.verifier == nil {
		return nil, session.ErrVerifierNotConfigured
	}
	id, err := f.verifier.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &UserRecord{
		UserID: id.Subject,
		Email:  id.Email,
		Name:   id.Name,
	}, nil
}

// SignOut forwards to the capability. The controllers never call it; ending
// a session is an application action, not a form step.
func (f *Flows) SignOut(ctx context.Context) error {
	if f == nil || f.capability == nil {
		return ErrCapabilityRequired
	}
	return f.capability.SignOut(ctx)
}

// Close drains the audit dispatcher. Controllers created from a closed Flows
// reject every Submit with [ErrFlowsClosed].
func (f *Flows) Close() {
	if f == nil {
		return
	}
	if f.closed.CompareAndSwap(false, true) {
		f.audit.Close()
	}
}

// MetricsSnapshot exposes the current counter and histogram values for the
// exporters under metrics/export.
func (f *Flows) MetricsSnapshot() MetricsSnapshot {
	if f == nil || f.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return f.metrics.Snapshot()
}

// AuditDropped reports how many audit events the dispatcher discarded under
// backpressure.
func (f *Flows) AuditDropped() uint64 {
	if f == nil || f.audit == nil {
		return 0
	}
	return f.audit.Dropped()
}

func (f *Flows) loadStep(ctx context.Context, formID string) (Step, error) {
	if f == nil {
		return nil, ErrFlowsClosed
	}
	if f.stepStore == nil {
		return nil, ErrStepStoreUnavailable
	}
	return f.stepStore.Load(ctx, formID)
}

func (f *Flows) saveStep(ctx context.Context, formID string, step Step) {
	if f == nil || f.stepStore == nil {
		return
	}
	// Persistence is advisory: a failed save only costs resumability, never
	// the in-memory flow.
	if err := f.stepStore.Save(ctx, formID, step, f.config.StepStore.StepTTL); err != nil {
		f.emitAudit(ctx, auditEventStepBack, formID, "", "", false, err, map[string]string{
			"reason": "step_save_failed",
		})
	}
}

func (f *Flows) clearStep(ctx context.Context, formID string) {
	if f == nil || f.stepStore == nil {
		return
	}
	_ = f.stepStore.Clear(ctx, formID)
}

func (f *Flows) metricInc(id MetricID) {
	if f == nil || f.metrics == nil {
		return
	}
	f.metrics.Inc(id)
}

func (f *Flows) observeSubmit(start time.Time) {
	if f == nil || f.metrics == nil {
		return
	}
	f.metrics.Observe(MetricSubmitLatency, time.Since(start))
}

func (f *Flows) emitAudit(
	ctx context.Context,
	eventType, formID, provider string,
	flow Flow,
	success bool,
	err error,
	metadata map[string]string,
) {
	if f == nil || f.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		FormID:    formID,
		Provider:  provider,
		Flow:      string(flow),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	f.audit.Emit(ctx, event)
}

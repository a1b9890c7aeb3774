package internaldefs

import (
	authflow "github.com/viktorspaces/authflow"
)

// CounterDef defines a public type used by authflow APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authflow APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the flow controllers.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricSignInSuccess, Name: "authflow_signin_success_total", Help: "Successful sign-in submissions."},
	{ID: authflow.MetricSignInFailure, Name: "authflow_signin_failure_total", Help: "Rejected sign-in submissions."},
	{ID: authflow.MetricSignUpSuccess, Name: "authflow_signup_success_total", Help: "Successful sign-up submissions."},
	{ID: authflow.MetricSignUpFailure, Name: "authflow_signup_failure_total", Help: "Rejected sign-up submissions."},
	{ID: authflow.MetricSignUpSandboxRouted, Name: "authflow_signup_sandbox_routed_total", Help: "Sign-up submissions routed to the sandbox provider."},
	{ID: authflow.MetricSignUpLocalRejected, Name: "authflow_signup_local_rejected_total", Help: "Sign-up submissions rejected by local validation."},
	{ID: authflow.MetricResetRequestSuccess, Name: "authflow_reset_request_success_total", Help: "Successful reset code requests."},
	{ID: authflow.MetricResetRequestFailure, Name: "authflow_reset_request_failure_total", Help: "Rejected reset code requests."},
	{ID: authflow.MetricResetConfirmSuccess, Name: "authflow_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: authflow.MetricResetConfirmFailure, Name: "authflow_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: authflow.MetricVerificationSuccess, Name: "authflow_verification_success_total", Help: "Successful email verification submissions."},
	{ID: authflow.MetricVerificationFailure, Name: "authflow_verification_failure_total", Help: "Rejected email verification submissions."},
	{ID: authflow.MetricBackTransition, Name: "authflow_back_transition_total", Help: "Back transitions between form steps."},
	{ID: authflow.MetricSubmitRejectedInFlight, Name: "authflow_submit_rejected_inflight_total", Help: "Submissions rejected by the in-flight guard."},
}

// HistogramDefs is an exported constant or variable used by the flow controllers.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricSubmitLatency, Name: "authflow_submit_latency_seconds", Help: "Submit durations, including the capability round trip."},
}

// HistogramBounds is an exported constant or variable used by the flow controllers.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the flow controllers.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative form.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

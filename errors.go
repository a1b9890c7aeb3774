package authflow

import "errors"

var (
	// ErrCapabilityRequired is an exported constant or variable used by the flow controllers.
	ErrCapabilityRequired = errors.New("capability required")
	// ErrBuilderReused is an exported constant or variable used by the flow controllers.
	ErrBuilderReused = errors.New("builder already built")
	// ErrFlowsClosed is an exported constant or variable used by the flow controllers.
	ErrFlowsClosed = errors.New("flows closed")
	// ErrSubmitInFlight is an exported constant or variable used by the flow controllers.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrSubmissionRejected is an exported constant or variable used by the flow controllers.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrLocalValidation is an exported constant or variable used by the flow controllers.
	ErrLocalValidation = errors.New("local validation failed")
	// ErrNoUser is an exported constant or variable used by the flow controllers.
	ErrNoUser = errors.New("no authenticated user")
	// ErrStepStoreUnavailable is an exported constant or variable used by the flow controllers.
	ErrStepStoreUnavailable = errors.New("step store unavailable")
	// ErrStepNotFound is an exported constant or variable used by the flow controllers.
	ErrStepNotFound = errors.New("step record not found")
)

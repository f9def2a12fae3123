package schemas

import "errors"

// Error kinds shared by the resolution engine and the browser executor. Callers
// wrap them with %w and test with errors.Is.
var (
	// ErrNoCandidateFound means the page offered no element of the requested kind.
	ErrNoCandidateFound = errors.New("no candidate found")
	// ErrAmbiguousNoResolution means candidates existed but none passed a match tier.
	ErrAmbiguousNoResolution = errors.New("no candidate passed the minimum match tier")
	// ErrActionFailed means an element was resolved but the native interaction raised.
	ErrActionFailed = errors.New("action failed")
	// ErrRepairRejected means a repair suggestion failed semantic validation.
	ErrRepairRejected = errors.New("repair suggestion rejected")
	// ErrRepairUnavailable means the repair oracle could not be reached or answered badly.
	ErrRepairUnavailable = errors.New("repair unavailable")
)

package probe

import "errors"

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrNotReady     = errors.New("service not ready")
	ErrBadResponse  = errors.New("unexpected response")
	ErrNoChecks     = errors.New("nothing to probe")
	ErrVerification = errors.New("verification failed")
)

package session

import "errors"

var (
	// ErrConfiguration means no rate in the fallback ladder was accepted.
	// Usually degraded-but-nonfatal: the session keeps its prior rate.
	ErrConfiguration = errors.New("session configuration failed")

	// ErrActivation means the session could not be reactivated even with
	// relaxed options. Fatal for the current load.
	ErrActivation = errors.New("session activation failed")
)

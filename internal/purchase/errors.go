package purchase

import "errors"

// Error taxonomy for the purchase flow. Callers match with errors.Is and
// map each kind to its own HTTP status; anything else is a transient
// infrastructure error and surfaces undecorated so the gateway's webhook
// retry can recover.
var (
	// ErrSessionNotFound indicates the referenced session does not exist.
	ErrSessionNotFound = errors.New("purchase: session not found")
	// ErrInvalidSessionData indicates session creation input is incomplete.
	ErrInvalidSessionData = errors.New("purchase: invalid session data")
	// ErrMissingPassportData indicates a single-voucher session was created
	// without passport data, an upstream flow bug rather than a user error.
	ErrMissingPassportData = errors.New("purchase: session has no passport data")
	// ErrInvalidSessionState indicates a finalize attempt on a session that
	// is no longer pending after the idempotency gate, a defensive guard.
	ErrInvalidSessionState = errors.New("purchase: session is not pending")
)

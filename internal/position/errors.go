package position

import "errors"

var (
	// ErrInvalidParams rejects non-positive quantities/prices or stop/target
	// percentages that would land on the wrong side of entry.
	ErrInvalidParams = errors.New("position: invalid open parameters")

	// ErrOverClose rejects a close for more quantity than remains. This is an
	// invariant violation on the caller's side, never a clamp.
	ErrOverClose = errors.New("position: close quantity exceeds remaining")

	// ErrAlreadyClosed rejects any mutation after the position went terminal.
	ErrAlreadyClosed = errors.New("position: already closed")

	// ErrDuplicateKey means the (symbol, strategy) slot already holds an open
	// position.
	ErrDuplicateKey = errors.New("registry: position already open for key")

	// ErrCapacityExceeded means the configured max open positions is reached.
	ErrCapacityExceeded = errors.New("registry: max open positions reached")

	// ErrRiskRejected wraps a denial from the risk policy.
	ErrRiskRejected = errors.New("registry: risk policy rejected open")
)

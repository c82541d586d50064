package lifecycle

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

var (
	// ErrNotFound means no help request has the given id.
	ErrNotFound = errors.New("help request not found")
	// ErrAlreadyTerminal means the request was already resolved or marked
	// unresolved, by a supervisor or by the timeout sweep.
	ErrAlreadyTerminal = errors.New("help request is already closed")
	// ErrStoreUnavailable means the durable store failed or did not answer
	// within its timeout. The caller may retry.
	ErrStoreUnavailable = errors.New("request store unavailable")
	// ErrValidation means the input was rejected before touching any store.
	ErrValidation = errors.New("invalid input")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError maps store-level failures onto the engine's sentinels.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, requests.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, requests.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrAlreadyTerminal)
	case errors.Is(err, knowledge.ErrEmptyQuestion):
		return fmt.Errorf("%s: %w", op, ErrValidation)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
}

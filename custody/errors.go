package custody

import (
	"fmt"

	"github.com/pkg/errors"
)

// Rejection kinds surfaced to callers. Each failed request matches exactly one
// kind via errors.Is; wrapping adds context without changing the kind.
// Rejections are side-effect-free: no state or log change happens on any of
// them. ErrCommitConflict is the one exception to "your request was invalid":
// it means the request was valid but lost a race to a concurrent commit, and
// is the only kind a caller should consider retrying.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidStateForAction = errors.New("invalid state for action")
	ErrReceiverMismatch      = errors.New("receiver mismatch")
	ErrRoleMismatchForState  = errors.New("role mismatch for state")
	ErrPreconditionFailed    = errors.New("precondition failed")
	ErrNotFound              = errors.New("batch not found")
	ErrIntegrityViolation    = errors.New("audit log integrity violation")
	ErrCommitConflict        = errors.New("commit conflict")
)

// ErrExpiryNotInFuture is a PreconditionFailed flavor: errors.Is matches it
// against both itself and ErrPreconditionFailed.
var ErrExpiryNotInFuture = fmt.Errorf("%w: expiry not in future", ErrPreconditionFailed)

package draft

import (
	"errors"
	"fmt"

	"github.com/mcdev12/courtside/go/internal/draft/autopick"
	"github.com/mcdev12/courtside/go/internal/models"
)

// Domain errors. A failed operation returning one of these left the session
// unchanged.
var (
	ErrNotYourTurn          = errors.New("not your turn")
	ErrPlayerAlreadyDrafted = errors.New("player already drafted")
	ErrRosterFull           = errors.New("roster full")
	ErrInvalidState         = errors.New("invalid draft state")
	ErrSessionNotFound      = errors.New("draft session not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrSessionExists        = errors.New("draft session already exists for league")
	ErrInvalidSettings      = errors.New("invalid draft settings")

	// ErrNoEligiblePlayer is raised by expiry when auto-pick has no legal choice.
	ErrNoEligiblePlayer = autopick.ErrNoEligiblePlayer
)

// InvalidStateError reports an operation attempted in the wrong status.
type InvalidStateError struct {
	Op       string
	Status   models.DraftStatus
	Expected []models.DraftStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: draft is %s, expected %v", e.Op, e.Status, e.Expected)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

func invalidState(op string, status models.DraftStatus, expected ...models.DraftStatus) error {
	return &InvalidStateError{Op: op, Status: status, Expected: expected}
}

// IsDomainError separates business rule failures from infrastructure faults.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotYourTurn,
		ErrPlayerAlreadyDrafted,
		ErrRosterFull,
		ErrInvalidState,
		ErrSessionNotFound,
		ErrTeamNotFound,
		ErrPlayerNotFound,
		ErrSessionExists,
		ErrInvalidSettings,
		ErrNoEligiblePlayer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

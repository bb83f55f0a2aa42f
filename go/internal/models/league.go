package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InviteTargetKind is the discriminant of an invite link target.
type InviteTargetKind string

const (
	InviteTargetLeague        InviteTargetKind = "LEAGUE"
	InviteTargetFantasyLeague InviteTargetKind = "FANTASY_LEAGUE"
)

var ErrInvalidInviteTarget = errors.New("invalid invite target")

// InviteTarget points an invite link at either a prediction league or a fantasy league.
type InviteTarget struct {
	Kind InviteTargetKind `json:"kind"`
	ID   uuid.UUID        `json:"id"`
}

// LeagueTarget builds a target for a prediction league.
func LeagueTarget(id uuid.UUID) InviteTarget {
	return InviteTarget{Kind: InviteTargetLeague, ID: id}
}

// FantasyLeagueTarget builds a target for a fantasy league.
func FantasyLeagueTarget(id uuid.UUID) InviteTarget {
	return InviteTarget{Kind: InviteTargetFantasyLeague, ID: id}
}

// Validate checks the discriminant and the referenced id.
func (t InviteTarget) Validate() error {
	switch t.Kind {
	case InviteTargetLeague, InviteTargetFantasyLeague:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInviteTarget, t.Kind)
	}
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: %s id is required", ErrInvalidInviteTarget, t.Kind)
	}
	return nil
}

// FantasyLeagueID returns the id when the target is a fantasy league.
func (t InviteTarget) FantasyLeagueID() (uuid.UUID, bool) {
	if t.Kind != InviteTargetFantasyLeague {
		return uuid.Nil, false
	}
	return t.ID, true
}

// InviteLink is a shareable join code for one league of either kind.
type InviteLink struct {
	Code      string       `json:"code"`
	Target    InviteTarget `json:"target"`
	CreatedBy uuid.UUID    `json:"created_by"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Expired reports whether the link can no longer be used at now.
func (l InviteLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

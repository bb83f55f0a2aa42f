package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInviteTargetValidate(t *testing.T) {
	id := uuid.New()

	assert.NoError(t, LeagueTarget(id).Validate())
	assert.NoError(t, FantasyLeagueTarget(id).Validate())

	assert.ErrorIs(t, InviteTarget{Kind: "TEAM", ID: id}.Validate(), ErrInvalidInviteTarget)
	assert.ErrorIs(t, InviteTarget{ID: id}.Validate(), ErrInvalidInviteTarget)
	assert.ErrorIs(t, FantasyLeagueTarget(uuid.Nil).Validate(), ErrInvalidInviteTarget)
}

func TestInviteTargetFantasyLeagueID(t *testing.T) {
	id := uuid.New()

	got, ok := FantasyLeagueTarget(id).FantasyLeagueID()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = LeagueTarget(id).FantasyLeagueID()
	assert.False(t, ok)
}

func TestInviteLinkExpired(t *testing.T) {
	now := time.Date(2025, 10, 21, 19, 30, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	assert.False(t, InviteLink{}.Expired(now), "links without expiry never expire")

	link := InviteLink{ExpiresAt: &expires}
	assert.False(t, link.Expired(now))
	assert.True(t, link.Expired(expires))
	assert.True(t, link.Expired(expires.Add(time.Second)))
}

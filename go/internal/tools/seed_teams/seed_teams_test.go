package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSession(t *testing.T) {
	league := uuid.New()
	req, err := buildSession(league.String(), 4, 10, 45)
	require.NoError(t, err)

	assert.Equal(t, league, req.LeagueID)
	assert.Equal(t, 45, req.Settings.PickTimeLimitSec)
	require.Len(t, req.Teams, 4)
	owners := map[uuid.UUID]bool{}
	for _, seat := range req.Teams {
		assert.NotEmpty(t, seat.Name)
		owners[seat.OwnerID] = true
	}
	assert.Len(t, owners, 4)
}

func TestBuildSessionRejectsBadInput(t *testing.T) {
	_, err := buildSession("", 0, 10, 45)
	assert.Error(t, err)
	_, err = buildSession("", len(teamNames)+1, 10, 45)
	assert.Error(t, err)
	_, err = buildSession("league-one", 2, 10, 45)
	assert.Error(t, err)

	req, err := buildSession("", 2, 10, 45)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, req.LeagueID)
}

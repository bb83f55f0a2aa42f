package draft

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/mcdev12/courtside/go/internal/rpcjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h *harness) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := NewServiceHandler(NewService(h.app))
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(server.Client(), server.URL), server
}

func TestServiceDraftRoundTrip(t *testing.T) {
	h := newHarness(t, harnessConfig{teams: 2, teamSize: 1, limitSec: 30})
	client, _ := newTestServer(t, h)
	ctx := context.Background()

	started, err := client.Start(ctx, h.league, h.seats[0].OwnerID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusInProgress, started.State.Session.Status)
	assert.True(t, started.Notified)
	require.NotNil(t, started.State.TeamOnClock)
	assert.Equal(t, h.seats[0].ID, started.State.TeamOnClock.ID)

	page, err := client.ListAvailablePlayers(ctx, h.league, player.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Players, 2)
	assert.Equal(t, len(h.pool), page.Total)

	res, err := client.MakePick(ctx, MakePickRequest{LeagueID: h.league, TeamID: h.seats[0].ID, PlayerID: page.Players[0].ID, ExpectedPick: pickNo(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pick.PickNumber)
	assert.Equal(t, 2, res.CurrentPick)

	h.clock.Advance(30 * time.Second)
	due, err := client.ListDueLeagues(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{h.league}, due)

	expiry, err := client.CheckAndApplyExpiry(ctx, h.league)
	require.NoError(t, err)
	require.True(t, expiry.Applied)
	assert.True(t, expiry.Pick.Completed)

	state, err := client.GetState(ctx, h.league)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusCompleted, state.Session.Status)

	picks, err := client.ListPicks(ctx, h.league)
	require.NoError(t, err)
	assert.Len(t, picks, 2)

	history, err := client.History(ctx, h.league, 2, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.DraftActionPick, history[0].ActionType)
	assert.Equal(t, models.DraftActionAutoPick, history[1].ActionType)
}

func TestServiceErrorCodes(t *testing.T) {
	h := newHarness(t, harnessConfig{teams: 2, teamSize: 2})
	client, _ := newTestServer(t, h)
	ctx := context.Background()

	_, err := client.Pause(ctx, h.league, h.seats[0].OwnerID)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = client.Start(ctx, h.league, h.seats[0].OwnerID)
	require.NoError(t, err)

	_, err = client.MakePick(ctx, MakePickRequest{LeagueID: h.league, TeamID: h.seats[1].ID, PlayerID: h.pool[0].ID, ExpectedPick: pickNo(1)})
	assert.Equal(t, connect.CodeAborted, connect.CodeOf(err))

	_, err = client.MakePick(ctx, MakePickRequest{LeagueID: h.league, TeamID: h.seats[0].ID, PlayerID: h.pool[0].ID, ExpectedPick: pickNo(1)})
	require.NoError(t, err)
	_, err = client.MakePick(ctx, MakePickRequest{LeagueID: h.league, TeamID: h.seats[1].ID, PlayerID: h.pool[0].ID, ExpectedPick: pickNo(2)})
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	_, err = client.MakePick(ctx, MakePickRequest{LeagueID: h.league, TeamID: h.seats[1].ID, PlayerID: h.pool[1].ID})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.GetState(ctx, uuid.New())
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = client.CreateSession(ctx, CreateSessionRequest{LeagueID: h.league, Settings: models.DraftSettings{PickTimeLimitSec: 10, TeamSize: 1}, Teams: h.seats})
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	err = client.PostChat(ctx, h.league, h.seats[0].OwnerID, "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestServiceRejectsMalformedIDs(t *testing.T) {
	h := newHarness(t, harnessConfig{teams: 2, teamSize: 1})
	_, server := newTestServer(t, h)

	raw := connect.NewClient[LeagueRequest, SessionView](
		server.Client(), server.URL+GetDraftStateProcedure, rpcjson.ClientOptions()...,
	)
	_, err := raw.CallUnary(context.Background(), connect.NewRequest(&LeagueRequest{LeagueID: "not-a-uuid"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestServiceRequiresExpectedPick(t *testing.T) {
	h := newHarness(t, harnessConfig{teams: 2, teamSize: 1})
	_, server := newTestServer(t, h)
	_, err := h.app.Start(context.Background(), h.league, h.seats[0].OwnerID)
	require.NoError(t, err)

	raw := connect.NewClient[MakePickMessage, PickResult](
		server.Client(), server.URL+MakePickProcedure, rpcjson.ClientOptions()...,
	)
	msg := &MakePickMessage{LeagueID: h.league.String(), TeamID: h.seats[0].ID.String(), PlayerID: h.pool[0].ID.String()}
	_, err = raw.CallUnary(context.Background(), connect.NewRequest(msg))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	msg.ExpectedPick = pickNo(0)
	_, err = raw.CallUnary(context.Background(), connect.NewRequest(msg))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	picks, err := h.app.ListPicks(context.Background(), h.league)
	require.NoError(t, err)
	assert.Empty(t, picks)
}

func TestServiceRejectsPickThatLostToAutoPick(t *testing.T) {
	h := newHarness(t, harnessConfig{teams: 2, teamSize: 2, limitSec: 60})
	client, _ := newTestServer(t, h)
	ctx := context.Background()

	_, err := client.Start(ctx, h.league, h.seats[0].OwnerID)
	require.NoError(t, err)
	_, err = client.MakePick(ctx, MakePickRequest{LeagueID: h.league, TeamID: h.seats[0].ID, PlayerID: h.pool[0].ID, ExpectedPick: pickNo(1)})
	require.NoError(t, err)

	// Seat 2 holds picks 2 and 3. Its pick 2 times out and is auto-picked.
	h.clock.Advance(60 * time.Second)
	expiry, err := client.CheckAndApplyExpiry(ctx, h.league)
	require.NoError(t, err)
	require.True(t, expiry.Applied)

	_, err = client.MakePick(ctx, MakePickRequest{LeagueID: h.league, TeamID: h.seats[1].ID, PlayerID: h.pool[3].ID, ExpectedPick: pickNo(2)})
	assert.Equal(t, connect.CodeAborted, connect.CodeOf(err))

	state, err := client.GetState(ctx, h.league)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Session.CurrentPick, "the stale pick must not consume pick 3")
}

func TestServiceCreateSession(t *testing.T) {
	store := NewMemoryStore()
	app := NewApp(store, player.NewApp(store, player.DefaultCacheConfig()), nil)
	mux := http.NewServeMux()
	mux.Handle(NewServiceHandler(NewService(app)))
	server := httptest.NewServer(mux)
	defer server.Close()
	client := NewClient(server.Client(), server.URL)

	league := uuid.New()
	view, err := client.CreateSession(context.Background(), CreateSessionRequest{
		LeagueID: league,
		Settings: models.DraftSettings{PickTimeLimitSec: 45, TeamSize: 13},
		Teams: []TeamSeat{
			{OwnerID: uuid.New(), Name: "Splash Bros"},
			{OwnerID: uuid.New(), Name: "Twin Towers"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, league, view.Session.LeagueID)
	assert.Equal(t, models.DraftStatusPending, view.Session.Status)
	assert.Equal(t, 26, view.TotalPicks)
	assert.Len(t, view.Teams, 2)
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		code connect.Code
	}{
		{ErrNotYourTurn, connect.CodeAborted},
		{ErrPlayerAlreadyDrafted, connect.CodeAlreadyExists},
		{ErrRosterFull, connect.CodeFailedPrecondition},
		{invalidState("resume", models.DraftStatusCompleted, models.DraftStatusPaused), connect.CodeFailedPrecondition},
		{ErrTeamNotFound, connect.CodeNotFound},
		{ErrNoEligiblePlayer, connect.CodeInternal},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{errors.New("dial tcp: connection refused"), connect.CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, toConnectError("Test", tt.err).Code())
		})
	}
}

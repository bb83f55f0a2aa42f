package draft

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/mcdev12/courtside/go/internal/rpcjson"
)

// Client calls a remote DraftService. It mirrors the App method set used by
// out-of-process callers such as the standalone scheduler and the websocket
// gateway.
type Client struct {
	createSession  *connect.Client[CreateDraftSessionRequest, SessionView]
	start          *connect.Client[LeagueActionRequest, TransitionResult]
	makePick       *connect.Client[MakePickMessage, PickResult]
	pause          *connect.Client[LeagueActionRequest, TransitionResult]
	resume         *connect.Client[LeagueActionRequest, TransitionResult]
	checkExpiry    *connect.Client[LeagueRequest, ExpiryResult]
	listDue        *connect.Client[ListDueDraftsRequest, ListDueDraftsResponse]
	getState       *connect.Client[LeagueRequest, SessionView]
	listPicks      *connect.Client[LeagueRequest, ListPicksResponse]
	history        *connect.Client[GetHistoryRequest, GetHistoryResponse]
	availablePlays *connect.Client[ListAvailablePlayersRequest, player.Page]
	postChat       *connect.Client[PostChatMessageRequest, PostChatMessageResponse]
}

// NewClient creates a draft client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = rpcjson.ClientOptions(opts...)
	return &Client{
		createSession:  connect.NewClient[CreateDraftSessionRequest, SessionView](httpClient, baseURL+CreateDraftSessionProcedure, opts...),
		start:          connect.NewClient[LeagueActionRequest, TransitionResult](httpClient, baseURL+StartDraftProcedure, opts...),
		makePick:       connect.NewClient[MakePickMessage, PickResult](httpClient, baseURL+MakePickProcedure, opts...),
		pause:          connect.NewClient[LeagueActionRequest, TransitionResult](httpClient, baseURL+PauseDraftProcedure, opts...),
		resume:         connect.NewClient[LeagueActionRequest, TransitionResult](httpClient, baseURL+ResumeDraftProcedure, opts...),
		checkExpiry:    connect.NewClient[LeagueRequest, ExpiryResult](httpClient, baseURL+CheckAndApplyExpiryProcedure, opts...),
		listDue:        connect.NewClient[ListDueDraftsRequest, ListDueDraftsResponse](httpClient, baseURL+ListDueDraftsProcedure, opts...),
		getState:       connect.NewClient[LeagueRequest, SessionView](httpClient, baseURL+GetDraftStateProcedure, opts...),
		listPicks:      connect.NewClient[LeagueRequest, ListPicksResponse](httpClient, baseURL+ListPicksProcedure, opts...),
		history:        connect.NewClient[GetHistoryRequest, GetHistoryResponse](httpClient, baseURL+GetHistoryProcedure, opts...),
		availablePlays: connect.NewClient[ListAvailablePlayersRequest, player.Page](httpClient, baseURL+ListAvailablePlayersProcedure, opts...),
		postChat:       connect.NewClient[PostChatMessageRequest, PostChatMessageResponse](httpClient, baseURL+PostChatMessageProcedure, opts...),
	}
}

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionView, error) {
	msg := &CreateDraftSessionRequest{
		LeagueID: req.LeagueID.String(),
		Settings: req.Settings,
		Teams:    make([]TeamSeatMessage, 0, len(req.Teams)),
	}
	for _, t := range req.Teams {
		seat := TeamSeatMessage{OwnerID: t.OwnerID.String(), Name: t.Name, DraftOrder: t.DraftOrder}
		if t.ID != uuid.Nil {
			seat.ID = t.ID.String()
		}
		msg.Teams = append(msg.Teams, seat)
	}

	res, err := c.createSession.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("create draft session: %w", err)
	}
	return res.Msg, nil
}

func (c *Client) Start(ctx context.Context, leagueID, actingUserID uuid.UUID) (*TransitionResult, error) {
	res, err := c.start.CallUnary(ctx, connect.NewRequest(leagueAction(leagueID, actingUserID)))
	if err != nil {
		return nil, fmt.Errorf("start draft: %w", err)
	}
	return res.Msg, nil
}

// MakePick requires req.ExpectedPick; the server rejects picks that do not
// name their slot.
func (c *Client) MakePick(ctx context.Context, req MakePickRequest) (*PickResult, error) {
	if req.ExpectedPick == nil {
		return nil, fmt.Errorf("make pick: %w", connect.NewError(connect.CodeInvalidArgument, errExpectedPickRequired))
	}
	res, err := c.makePick.CallUnary(ctx, connect.NewRequest(&MakePickMessage{
		LeagueID:     req.LeagueID.String(),
		TeamID:       req.TeamID.String(),
		PlayerID:     req.PlayerID.String(),
		ExpectedPick: req.ExpectedPick,
	}))
	if err != nil {
		return nil, fmt.Errorf("make pick: %w", err)
	}
	return res.Msg, nil
}

func (c *Client) Pause(ctx context.Context, leagueID, byUserID uuid.UUID) (*TransitionResult, error) {
	res, err := c.pause.CallUnary(ctx, connect.NewRequest(leagueAction(leagueID, byUserID)))
	if err != nil {
		return nil, fmt.Errorf("pause draft: %w", err)
	}
	return res.Msg, nil
}

func (c *Client) Resume(ctx context.Context, leagueID, byUserID uuid.UUID) (*TransitionResult, error) {
	res, err := c.resume.CallUnary(ctx, connect.NewRequest(leagueAction(leagueID, byUserID)))
	if err != nil {
		return nil, fmt.Errorf("resume draft: %w", err)
	}
	return res.Msg, nil
}

func (c *Client) CheckAndApplyExpiry(ctx context.Context, leagueID uuid.UUID) (*ExpiryResult, error) {
	res, err := c.checkExpiry.CallUnary(ctx, connect.NewRequest(&LeagueRequest{LeagueID: leagueID.String()}))
	if err != nil {
		return nil, fmt.Errorf("check expiry for league %s: %w", leagueID, err)
	}
	return res.Msg, nil
}

func (c *Client) ListDueLeagues(ctx context.Context, limit int) ([]uuid.UUID, error) {
	res, err := c.listDue.CallUnary(ctx, connect.NewRequest(&ListDueDraftsRequest{Limit: limit}))
	if err != nil {
		return nil, fmt.Errorf("list due drafts: %w", err)
	}
	return res.Msg.LeagueIDs, nil
}

func (c *Client) GetState(ctx context.Context, leagueID uuid.UUID) (*SessionView, error) {
	res, err := c.getState.CallUnary(ctx, connect.NewRequest(&LeagueRequest{LeagueID: leagueID.String()}))
	if err != nil {
		return nil, fmt.Errorf("get draft state: %w", err)
	}
	return res.Msg, nil
}

func (c *Client) ListPicks(ctx context.Context, leagueID uuid.UUID) ([]models.DraftPick, error) {
	res, err := c.listPicks.CallUnary(ctx, connect.NewRequest(&LeagueRequest{LeagueID: leagueID.String()}))
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}
	return res.Msg.Picks, nil
}

func (c *Client) History(ctx context.Context, leagueID uuid.UUID, limit, offset int) ([]models.DraftAction, error) {
	res, err := c.history.CallUnary(ctx, connect.NewRequest(&GetHistoryRequest{
		LeagueID: leagueID.String(),
		Limit:    limit,
		Offset:   offset,
	}))
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return res.Msg.Actions, nil
}

func (c *Client) ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID, filter player.Filter) (*player.Page, error) {
	res, err := c.availablePlays.CallUnary(ctx, connect.NewRequest(&ListAvailablePlayersRequest{
		LeagueID: leagueID.String(),
		Position: filter.Position,
		Search:   filter.Search,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}))
	if err != nil {
		return nil, fmt.Errorf("list available players: %w", err)
	}
	return res.Msg, nil
}

func (c *Client) PostChat(ctx context.Context, leagueID, userID uuid.UUID, message string) error {
	_, err := c.postChat.CallUnary(ctx, connect.NewRequest(&PostChatMessageRequest{
		LeagueID: leagueID.String(),
		UserID:   userID.String(),
		Message:  message,
	}))
	if err != nil {
		return fmt.Errorf("post chat message: %w", err)
	}
	return nil
}

var _ DraftApp = (*Client)(nil)

func leagueAction(leagueID, userID uuid.UUID) *LeagueActionRequest {
	return &LeagueActionRequest{LeagueID: leagueID.String(), UserID: userID.String()}
}

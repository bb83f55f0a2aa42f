package draft

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/mcdev12/courtside/go/internal/rpcjson"
	"github.com/rs/zerolog/log"
)

// DraftServiceName is the fully-qualified name of the draft service.
const DraftServiceName = "courtside.draft.v1.DraftService"

// Procedure paths, one per RPC.
const (
	CreateDraftSessionProcedure   = "/" + DraftServiceName + "/CreateDraftSession"
	StartDraftProcedure           = "/" + DraftServiceName + "/StartDraft"
	MakePickProcedure             = "/" + DraftServiceName + "/MakePick"
	PauseDraftProcedure           = "/" + DraftServiceName + "/PauseDraft"
	ResumeDraftProcedure          = "/" + DraftServiceName + "/ResumeDraft"
	CheckAndApplyExpiryProcedure  = "/" + DraftServiceName + "/CheckAndApplyExpiry"
	ListDueDraftsProcedure        = "/" + DraftServiceName + "/ListDueDrafts"
	GetDraftStateProcedure        = "/" + DraftServiceName + "/GetDraftState"
	ListPicksProcedure            = "/" + DraftServiceName + "/ListPicks"
	GetHistoryProcedure           = "/" + DraftServiceName + "/GetHistory"
	ListAvailablePlayersProcedure = "/" + DraftServiceName + "/ListAvailablePlayers"
	PostChatMessageProcedure      = "/" + DraftServiceName + "/PostChatMessage"
)

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionView, error)
	Start(ctx context.Context, leagueID, actingUserID uuid.UUID) (*TransitionResult, error)
	MakePick(ctx context.Context, req MakePickRequest) (*PickResult, error)
	Pause(ctx context.Context, leagueID, byUserID uuid.UUID) (*TransitionResult, error)
	Resume(ctx context.Context, leagueID, byUserID uuid.UUID) (*TransitionResult, error)
	CheckAndApplyExpiry(ctx context.Context, leagueID uuid.UUID) (*ExpiryResult, error)
	ListDueLeagues(ctx context.Context, limit int) ([]uuid.UUID, error)
	GetState(ctx context.Context, leagueID uuid.UUID) (*SessionView, error)
	ListPicks(ctx context.Context, leagueID uuid.UUID) ([]models.DraftPick, error)
	History(ctx context.Context, leagueID uuid.UUID, limit, offset int) ([]models.DraftAction, error)
	ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID, filter player.Filter) (*player.Page, error)
	PostChat(ctx context.Context, leagueID, userID uuid.UUID, message string) error
}

var _ DraftApp = (*App)(nil)

var errExpectedPickRequired = errors.New("expected_pick is required")

// Wire messages. IDs travel as strings so a malformed id is reported as
// InvalidArgument instead of a decode failure.

type TeamSeatMessage struct {
	ID         string `json:"id,omitempty"`
	OwnerID    string `json:"owner_id"`
	Name       string `json:"name"`
	DraftOrder int    `json:"draft_order,omitempty"`
}

type CreateDraftSessionRequest struct {
	LeagueID string               `json:"league_id"`
	Settings models.DraftSettings `json:"settings"`
	Teams    []TeamSeatMessage    `json:"teams"`
}

// LeagueRequest addresses one league's draft.
type LeagueRequest struct {
	LeagueID string `json:"league_id"`
}

// LeagueActionRequest carries the user behind a lifecycle transition.
type LeagueActionRequest struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
}

// MakePickMessage must name the pick it is meant for. At a snake turn the
// same team holds two consecutive picks, so a request that lost the race to an
// auto-pick would otherwise land on the team's next pick.
type MakePickMessage struct {
	LeagueID     string `json:"league_id"`
	TeamID       string `json:"team_id"`
	PlayerID     string `json:"player_id"`
	ExpectedPick *int   `json:"expected_pick"`
}

type ListDueDraftsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListDueDraftsResponse struct {
	LeagueIDs []uuid.UUID `json:"league_ids"`
}

type ListPicksResponse struct {
	Picks []models.DraftPick `json:"picks"`
}

type GetHistoryRequest struct {
	LeagueID string `json:"league_id"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

type GetHistoryResponse struct {
	Actions []models.DraftAction `json:"actions"`
}

type ListAvailablePlayersRequest struct {
	LeagueID string `json:"league_id"`
	Position string `json:"position,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

type PostChatMessageRequest struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
}

type PostChatMessageResponse struct{}

// Service implements the DraftService RPCs
type Service struct {
	app DraftApp
}

// NewService creates a new draft RPC service
func NewService(app DraftApp) *Service {
	return &Service{app: app}
}

// NewServiceHandler builds the HTTP handler serving every DraftService
// procedure, rooted at the returned path.
func NewServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = rpcjson.HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(CreateDraftSessionProcedure, connect.NewUnaryHandler(CreateDraftSessionProcedure, svc.CreateDraftSession, opts...))
	mux.Handle(StartDraftProcedure, connect.NewUnaryHandler(StartDraftProcedure, svc.StartDraft, opts...))
	mux.Handle(MakePickProcedure, connect.NewUnaryHandler(MakePickProcedure, svc.MakePick, opts...))
	mux.Handle(PauseDraftProcedure, connect.NewUnaryHandler(PauseDraftProcedure, svc.PauseDraft, opts...))
	mux.Handle(ResumeDraftProcedure, connect.NewUnaryHandler(ResumeDraftProcedure, svc.ResumeDraft, opts...))
	mux.Handle(CheckAndApplyExpiryProcedure, connect.NewUnaryHandler(CheckAndApplyExpiryProcedure, svc.CheckAndApplyExpiry, opts...))
	mux.Handle(ListDueDraftsProcedure, connect.NewUnaryHandler(ListDueDraftsProcedure, svc.ListDueDrafts, opts...))
	mux.Handle(GetDraftStateProcedure, connect.NewUnaryHandler(GetDraftStateProcedure, svc.GetDraftState, opts...))
	mux.Handle(ListPicksProcedure, connect.NewUnaryHandler(ListPicksProcedure, svc.ListPicks, opts...))
	mux.Handle(GetHistoryProcedure, connect.NewUnaryHandler(GetHistoryProcedure, svc.GetHistory, opts...))
	mux.Handle(ListAvailablePlayersProcedure, connect.NewUnaryHandler(ListAvailablePlayersProcedure, svc.ListAvailablePlayers, opts...))
	mux.Handle(PostChatMessageProcedure, connect.NewUnaryHandler(PostChatMessageProcedure, svc.PostChatMessage, opts...))
	return "/" + DraftServiceName + "/", mux
}

// CreateDraftSession configures a league's draft
func (s *Service) CreateDraftSession(ctx context.Context, req *connect.Request[CreateDraftSessionRequest]) (*connect.Response[SessionView], error) {
	appReq, err := s.toCreateSessionRequest(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	view, err := s.app.CreateSession(ctx, appReq)
	if err != nil {
		return nil, toConnectError("CreateDraftSession", err)
	}
	return connect.NewResponse(view), nil
}

func (s *Service) StartDraft(ctx context.Context, req *connect.Request[LeagueActionRequest]) (*connect.Response[TransitionResult], error) {
	leagueID, userID, err := parseLeagueAction(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	res, err := s.app.Start(ctx, leagueID, userID)
	if err != nil {
		return nil, toConnectError("StartDraft", err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) MakePick(ctx context.Context, req *connect.Request[MakePickMessage]) (*connect.Response[PickResult], error) {
	appReq, err := s.toMakePickRequest(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	res, err := s.app.MakePick(ctx, appReq)
	if err != nil {
		return nil, toConnectError("MakePick", err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) PauseDraft(ctx context.Context, req *connect.Request[LeagueActionRequest]) (*connect.Response[TransitionResult], error) {
	leagueID, userID, err := parseLeagueAction(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	res, err := s.app.Pause(ctx, leagueID, userID)
	if err != nil {
		return nil, toConnectError("PauseDraft", err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) ResumeDraft(ctx context.Context, req *connect.Request[LeagueActionRequest]) (*connect.Response[TransitionResult], error) {
	leagueID, userID, err := parseLeagueAction(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	res, err := s.app.Resume(ctx, leagueID, userID)
	if err != nil {
		return nil, toConnectError("ResumeDraft", err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) CheckAndApplyExpiry(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[ExpiryResult], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	res, err := s.app.CheckAndApplyExpiry(ctx, leagueID)
	if err != nil {
		return nil, toConnectError("CheckAndApplyExpiry", err)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) ListDueDrafts(ctx context.Context, req *connect.Request[ListDueDraftsRequest]) (*connect.Response[ListDueDraftsResponse], error) {
	leagues, err := s.app.ListDueLeagues(ctx, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError("ListDueDrafts", err)
	}
	if leagues == nil {
		leagues = []uuid.UUID{}
	}
	return connect.NewResponse(&ListDueDraftsResponse{LeagueIDs: leagues}), nil
}

func (s *Service) GetDraftState(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[SessionView], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	view, err := s.app.GetState(ctx, leagueID)
	if err != nil {
		return nil, toConnectError("GetDraftState", err)
	}
	return connect.NewResponse(view), nil
}

func (s *Service) ListPicks(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[ListPicksResponse], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	picks, err := s.app.ListPicks(ctx, leagueID)
	if err != nil {
		return nil, toConnectError("ListPicks", err)
	}
	if picks == nil {
		picks = []models.DraftPick{}
	}
	return connect.NewResponse(&ListPicksResponse{Picks: picks}), nil
}

func (s *Service) GetHistory(ctx context.Context, req *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	actions, err := s.app.History(ctx, leagueID, req.Msg.Limit, req.Msg.Offset)
	if err != nil {
		return nil, toConnectError("GetHistory", err)
	}
	if actions == nil {
		actions = []models.DraftAction{}
	}
	return connect.NewResponse(&GetHistoryResponse{Actions: actions}), nil
}

func (s *Service) ListAvailablePlayers(ctx context.Context, req *connect.Request[ListAvailablePlayersRequest]) (*connect.Response[player.Page], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	page, err := s.app.ListAvailablePlayers(ctx, leagueID, player.Filter{
		Position: req.Msg.Position,
		Search:   req.Msg.Search,
		Limit:    req.Msg.Limit,
		Offset:   req.Msg.Offset,
	})
	if err != nil {
		return nil, toConnectError("ListAvailablePlayers", err)
	}
	return connect.NewResponse(page), nil
}

func (s *Service) PostChatMessage(ctx context.Context, req *connect.Request[PostChatMessageRequest]) (*connect.Response[PostChatMessageResponse], error) {
	leagueID, userID, err := parseLeagueAction(&LeagueActionRequest{LeagueID: req.Msg.LeagueID, UserID: req.Msg.UserID})
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.app.PostChat(ctx, leagueID, userID, req.Msg.Message); err != nil {
		return nil, toConnectError("PostChatMessage", err)
	}
	return connect.NewResponse(&PostChatMessageResponse{}), nil
}

// Conversion methods between wire messages and app layer requests

func (s *Service) toCreateSessionRequest(msg *CreateDraftSessionRequest) (CreateSessionRequest, error) {
	leagueID, err := uuid.Parse(msg.LeagueID)
	if err != nil {
		return CreateSessionRequest{}, err
	}

	req := CreateSessionRequest{
		LeagueID: leagueID,
		Settings: msg.Settings,
		Teams:    make([]TeamSeat, 0, len(msg.Teams)),
	}
	for _, t := range msg.Teams {
		seat := TeamSeat{Name: t.Name, DraftOrder: t.DraftOrder}
		if seat.OwnerID, err = uuid.Parse(t.OwnerID); err != nil {
			return CreateSessionRequest{}, err
		}
		if strings.TrimSpace(t.ID) != "" {
			if seat.ID, err = uuid.Parse(t.ID); err != nil {
				return CreateSessionRequest{}, err
			}
		}
		req.Teams = append(req.Teams, seat)
	}
	return req, nil
}

func (s *Service) toMakePickRequest(msg *MakePickMessage) (MakePickRequest, error) {
	leagueID, err := uuid.Parse(msg.LeagueID)
	if err != nil {
		return MakePickRequest{}, err
	}
	teamID, err := uuid.Parse(msg.TeamID)
	if err != nil {
		return MakePickRequest{}, err
	}
	playerID, err := uuid.Parse(msg.PlayerID)
	if err != nil {
		return MakePickRequest{}, err
	}
	if msg.ExpectedPick == nil {
		return MakePickRequest{}, errExpectedPickRequired
	}
	if *msg.ExpectedPick < 1 {
		return MakePickRequest{}, fmt.Errorf("expected_pick must be positive, got %d", *msg.ExpectedPick)
	}

	return MakePickRequest{
		LeagueID:     leagueID,
		TeamID:       teamID,
		PlayerID:     playerID,
		ExpectedPick: msg.ExpectedPick,
	}, nil
}

func parseLeagueAction(msg *LeagueActionRequest) (uuid.UUID, uuid.UUID, error) {
	leagueID, err := uuid.Parse(msg.LeagueID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return leagueID, userID, nil
}

// toConnectError maps domain errors to connect codes. Anything else is an
// infrastructure fault the caller may retry.
func toConnectError(procedure string, err error) *connect.Error {
	var code connect.Code
	switch {
	case errors.Is(err, ErrNotYourTurn):
		code = connect.CodeAborted
	case errors.Is(err, ErrPlayerAlreadyDrafted), errors.Is(err, ErrSessionExists):
		code = connect.CodeAlreadyExists
	case errors.Is(err, ErrRosterFull), errors.Is(err, ErrInvalidState):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrTeamNotFound), errors.Is(err, ErrPlayerNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, ErrInvalidSettings):
		code = connect.CodeInvalidArgument
	case errors.Is(err, ErrNoEligiblePlayer):
		code = connect.CodeInternal
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	default:
		code = connect.CodeUnavailable
		log.Error().Err(err).Str("procedure", procedure).Msg("draft rpc failed")
	}
	return connect.NewError(code, err)
}

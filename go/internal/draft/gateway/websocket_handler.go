package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for draft connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateProvider     StateProvider
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, provider StateProvider) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateProvider:     provider,
	}
}

// HandleDraftConnection handles GET /ws/leagues/{leagueID}/draft. The first
// message on the socket is always a state-sync snapshot, so a client that
// missed events recovers by reconnecting.
func (h *WebSocketHandler) HandleDraftConnection(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		http.Error(w, "invalid league id", http.StatusBadRequest)
		return
	}

	// In production, this would come from the auth token
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	// Reserve before reading state so events published during the read are
	// delivered after the snapshot instead of being lost.
	connection := h.connectionManager.Reserve(userID, leagueID)

	initial, status, err := h.snapshot(r, leagueID)
	if err != nil {
		h.connectionManager.Release(connection)
		if status == http.StatusBadGateway {
			log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to load state for new connection")
			http.Error(w, "failed to load draft state", status)
			return
		}
		http.Error(w, err.Error(), status)
		return
	}

	// Upgrade writes its own error response
	if err := h.connectionManager.Upgrade(w, r, connection, initial); err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// snapshot encodes the league's state_sync event, returning the HTTP status to
// answer with when it fails.
func (h *WebSocketHandler) snapshot(r *http.Request, leagueID uuid.UUID) ([]byte, int, error) {
	state, err := h.stateProvider.GetState(r.Context(), leagueID)
	if err != nil {
		if isNotFound(err) {
			return nil, http.StatusNotFound, errors.New("draft not found")
		}
		return nil, http.StatusBadGateway, fmt.Errorf("failed to load draft state: %w", err)
	}

	event, err := events.New(leagueID, events.TypeStateSync, state, time.Now())
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to encode draft state")
	}
	initial, err := json.Marshal(event)
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to encode draft state")
	}
	return initial, http.StatusOK, nil
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/leagues/{leagueID}/draft", h.HandleDraftConnection)
	r.Get("/ws/stats", h.HandleConnectionStats)
}

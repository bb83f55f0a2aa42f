package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateHandler serves draft snapshots over plain HTTP for clients that
// reconnect or poll.
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleGetDraftState handles GET /api/leagues/{leagueID}/draft/state
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		http.Error(w, "invalid league id", http.StatusBadRequest)
		return
	}

	state, err := h.stateProvider.GetState(r.Context(), leagueID)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "draft not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to get draft state")
		http.Error(w, "failed to get draft state", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode draft state response")
	}
}

// RegisterRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/leagues/{leagueID}/draft/state", h.HandleGetDraftState)
}

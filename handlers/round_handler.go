package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tabletourney/tournament-system/services"
)

type RoundHandler struct {
	roundService services.RoundService
}

func NewRoundHandler(roundService services.RoundService) *RoundHandler {
	return &RoundHandler{roundService: roundService}
}

// ImportRound pulls the round's pairings from the linked provider event.
// Re-importing the same round replaces the previous import.
func (h *RoundHandler) ImportRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundNumber, err := urlParamInt(r, "roundNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, err := h.roundService.ImportRound(r.Context(), userID, tournamentID, roundNumber)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateAllocations runs the table allocation for an imported round.
// With ?preview=true the result is returned without being stored.
func (h *RoundHandler) GenerateAllocations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundNumber, err := urlParamInt(r, "roundNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	preview := r.URL.Query().Get("preview") == "true"

	result, err := h.roundService.GenerateAllocations(r.Context(), userID, tournamentID, roundNumber, preview)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"allocations": result, "preview": preview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RoundHandler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundNumber, err := urlParamInt(r, "roundNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	allocations, err := h.roundService.GetAllocations(r.Context(), tournamentID, roundNumber)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"allocations": allocations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetPlayerHistory reports the tables and terrains one player has already
// been allocated in this tournament.
func (h *RoundHandler) GetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bcpPlayerID := chi.URLParam(r, "playerID")
	if bcpPlayerID == "" {
		badRequestResponse(w, r, errors.New("invalid playerID parameter"))
		return
	}

	history, err := h.roundService.GetPlayerHistory(r.Context(), tournamentID, bcpPlayerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RoundHandler) PublishRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundNumber, err := urlParamInt(r, "roundNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.roundService.PublishRound(r.Context(), userID, tournamentID, roundNumber); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "published"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	dialogueservice "github.com/tabletopforge/npc-dialogue/internal/service/dialogue"
	"github.com/tabletopforge/npc-dialogue/pkg/utils"
)

// Handler wraps the dialogue orchestrator 1:1 for HTTP clients.
type Handler struct {
	svc *dialogueservice.Service
}

// New creates the dialogue handler.
func New(svc *dialogueservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the turn and GM routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/npcs/{npcID}/dialogue", h.handleDialogue)
	r.Post("/npcs/{npcID}/attributes", h.handleAdjustAttribute)
	r.Post("/npcs/{npcID}/attitude", h.handleSetAttitude)
	r.Post("/npcs/{npcID}/clear", h.handleClearHistory)
}

// handleDialogue submits one chat turn.
func (h *Handler) handleDialogue(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "npcID")

	var payload struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.svc.Converse(r.Context(), npcID, payload.Input)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	var rateErr *dialogueservice.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		retryAfter := int(rateErr.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		utils.RespondJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "rate limit exceeded",
			"retryAfter": retryAfter,
		})
	case errors.Is(err, dialogueservice.ErrNPCNotFound):
		utils.RespondError(w, http.StatusNotFound, "npc not found")
	case errors.Is(err, dialogueservice.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, "input is required")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate response")
	}
}

// handleAdjustAttribute applies a GM patience/interest delta.
func (h *Handler) handleAdjustAttribute(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "npcID")

	var payload struct {
		Kind  string `json:"kind"`
		Delta int    `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	committed, err := h.svc.AdjustAttribute(r.Context(), npcID, payload.Kind, payload.Delta)
	if err != nil {
		if errors.Is(err, dialogueservice.ErrNPCNotFound) {
			utils.RespondError(w, http.StatusNotFound, "npc not found")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, committed)
}

// handleSetAttitude supersedes the session with an attitude preset.
func (h *Handler) handleSetAttitude(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "npcID")

	var payload struct {
		Attitude string `json:"attitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	committed, err := h.svc.SetAttitude(r.Context(), npcID, sessionmodel.Attitude(payload.Attitude))
	if err != nil {
		switch {
		case errors.Is(err, dialogueservice.ErrNPCNotFound):
			utils.RespondError(w, http.StatusNotFound, "npc not found")
		case errors.Is(err, dialogueservice.ErrInvalidAttitude):
			utils.RespondError(w, http.StatusBadRequest, "invalid attitude")
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, committed)
}

// handleClearHistory wipes the conversation and motivation tracking.
func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "npcID")

	committed, err := h.svc.ClearHistory(r.Context(), npcID)
	if err != nil {
		if errors.Is(err, dialogueservice.ErrNPCNotFound) {
			utils.RespondError(w, http.StatusNotFound, "npc not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, committed)
}

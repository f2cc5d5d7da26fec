package npc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	npcmodel "github.com/tabletopforge/npc-dialogue/internal/model/npc"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
	"github.com/tabletopforge/npc-dialogue/pkg/utils"
)

// Handler serves NPC profile listings and per-NPC context.
type Handler struct {
	profiles npcmodel.Store
	sessions *sessionservice.Store
}

// New creates the NPC handler.
func New(profiles npcmodel.Store, sessions *sessionservice.Store) *Handler {
	return &Handler{profiles: profiles, sessions: sessions}
}

// RegisterRoutes mounts the NPC routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/npcs", h.handleList)
	r.Get("/npcs/{npcID}", h.handleContext)
}

// handleList returns the id/name/description summary of every loaded NPC.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	type summary struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	profiles := h.profiles.List()
	out := make([]summary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, summary{ID: p.ID, Name: p.Name, Description: p.Description})
	}

	utils.RespondJSON(w, http.StatusOK, out)
}

// handleContext returns the full profile together with the current session
// state so a GM view can render everything in one call.
func (h *Handler) handleContext(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "npcID")

	profile, ok := h.profiles.FindByID(npcID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "npc not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"session": h.sessions.Get(r.Context(), npcID),
	})
}

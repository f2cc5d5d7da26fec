package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	dialoguehandler "github.com/tabletopforge/npc-dialogue/internal/handler/dialogue"
	eventshandler "github.com/tabletopforge/npc-dialogue/internal/handler/events"
	npchandler "github.com/tabletopforge/npc-dialogue/internal/handler/npc"
	middlewarePkg "github.com/tabletopforge/npc-dialogue/internal/middleware"
	npcmodel "github.com/tabletopforge/npc-dialogue/internal/model/npc"
	dialogueservice "github.com/tabletopforge/npc-dialogue/internal/service/dialogue"
	"github.com/tabletopforge/npc-dialogue/internal/service/hub"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
)

// NewRouter wires HTTP routes to the core services.
func NewRouter(profiles npcmodel.Store, sessions *sessionservice.Store, dialogueSvc *dialogueservice.Service, broadcast *hub.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	npcHandler := npchandler.New(profiles, sessions)
	dialogueHandler := dialoguehandler.New(dialogueSvc)
	eventsHandler := eventshandler.New(broadcast, profiles)

	r.Route("/api", func(api chi.Router) {
		npcHandler.RegisterRoutes(api)
		dialogueHandler.RegisterRoutes(api)
		eventsHandler.RegisterRoutes(api)
	})

	return r
}

package events

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	npcmodel "github.com/tabletopforge/npc-dialogue/internal/model/npc"
	"github.com/tabletopforge/npc-dialogue/internal/service/hub"
	"github.com/tabletopforge/npc-dialogue/pkg/utils"
)

// Handler exposes the broadcast hub over SSE and WebSocket. Both transports
// drain the same subscription channel, so the event order a viewer sees is
// exactly the hub's publish order.
type Handler struct {
	broadcast *hub.Hub
	profiles  npcmodel.Store
	upgrader  websocket.Upgrader
}

// New creates the events handler.
func New(broadcast *hub.Hub, profiles npcmodel.Store) *Handler {
	return &Handler{
		broadcast: broadcast,
		profiles:  profiles,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the subscription routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/npcs/{npcID}/events", h.handleSSE)
	r.Get("/npcs/{npcID}/ws", h.handleWebSocket)
}

// handleSSE streams hub events until the client disconnects.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "npcID")
	if _, ok := h.profiles.FindByID(npcID); !ok {
		utils.RespondError(w, http.StatusNotFound, "npc not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	ctx := r.Context()
	sub := h.broadcast.Subscribe(ctx, npcID)
	defer h.broadcast.Unsubscribe(sub)

	log.Printf("[events] sse stream opened character=%s", npcID)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[events] sse stream closed character=%s", npcID)
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, ev.Type, ev.Payload); err != nil {
				log.Printf("[events] sse write failed character=%s: %v", npcID, err)
				return
			}
		}
	}
}

// handleWebSocket streams the same hub events over a WebSocket connection.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "npcID")
	if _, ok := h.profiles.FindByID(npcID); !ok {
		utils.RespondError(w, http.StatusNotFound, "npc not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[events] websocket upgrade failed character=%s: %v", npcID, err)
		return
	}
	defer conn.Close()

	sub := h.broadcast.Subscribe(r.Context(), npcID)
	defer h.broadcast.Unsubscribe(sub)

	// Drain client frames so close/ping traffic is processed; the client
	// never sends data events on this socket.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("[events] websocket stream opened character=%s", npcID)
	for {
		select {
		case <-done:
			log.Printf("[events] websocket stream closed character=%s", npcID)
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("[events] websocket write failed character=%s: %v", npcID, err)
				return
			}
		}
	}
}

package hub

import (
	"context"
	"log"
	"sync"
	"time"

	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
)

// Event types published to subscribers.
const (
	EventConnected    = "connected"
	EventSnapshot     = "snapshot"
	EventConversation = "conversationUpdate"
	EventAttribute    = "attributeUpdate"
	EventSideEffect   = "sideEffect"
	EventHeartbeat    = "heartbeat"
)

// Event is one framed message on a subscriber channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ConversationUpdate carries the full committed message list.
type ConversationUpdate struct {
	Messages    []sessionmodel.Message `json:"messages"`
	LastUpdated time.Time              `json:"lastUpdated"`
}

// AttributeUpdate reports a committed meter or attitude change.
type AttributeUpdate struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// Heartbeat keeps idle connections alive and flushes out dead ones.
type Heartbeat struct {
	Timestamp time.Time `json:"timestamp"`
}

const subscriberBuffer = 32

// Subscription is one live viewer of a character. Receive from C until it is
// closed; the hub closes it on unsubscribe or when the subscriber falls too
// far behind.
type Subscription struct {
	C           chan Event
	characterID string
}

// CharacterID returns the character this subscription watches.
func (s *Subscription) CharacterID() string {
	return s.characterID
}

// Hub fans committed session events out to every open channel per character.
// Publishes for one character are serialized under the hub lock, so every
// subscriber observes events in commit order.
type Hub struct {
	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	sessions *sessionservice.Store
}

// NewHub wires the hub against the session store used for late-joiner
// snapshots.
func NewHub(sessions *sessionservice.Store) *Hub {
	return &Hub{
		subs:     make(map[string]map[*Subscription]struct{}),
		sessions: sessions,
	}
}

// Subscribe registers a new channel for characterID. The channel immediately
// carries a connected ack and a full state snapshot, so a late joiner is
// consistent without waiting for the next mutation.
func (h *Hub) Subscribe(ctx context.Context, characterID string) *Subscription {
	sub := &Subscription{
		C:           make(chan Event, subscriberBuffer),
		characterID: characterID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sub.C <- Event{Type: EventConnected, Payload: map[string]string{"characterId": characterID}}
	sub.C <- Event{Type: EventSnapshot, Payload: h.sessions.Get(ctx, characterID)}

	set, ok := h.subs[characterID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[characterID] = set
	}
	set[sub] = struct{}{}

	log.Printf("[hub] subscriber joined character=%s total=%d", characterID, len(set))
	return sub
}

// Unsubscribe removes the channel and closes it. The per-character set is
// discarded once empty so idle characters leak nothing.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(sub)
}

// drop removes and closes sub. Callers must hold mu.
func (h *Hub) drop(sub *Subscription) {
	set, ok := h.subs[sub.characterID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.C)
	if len(set) == 0 {
		delete(h.subs, sub.characterID)
	}
}

// Publish delivers ev to every current subscriber of characterID. A
// subscriber whose buffer is full is dropped so it can never block or lose
// the event for the others. Publishing with zero subscribers is a no-op.
func (h *Hub) Publish(characterID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliver(characterID, ev)
}

// deliver fans ev out to one character's set. Callers must hold mu.
func (h *Hub) deliver(characterID string, ev Event) {
	set, ok := h.subs[characterID]
	if !ok {
		return
	}

	var stalled []*Subscription
	for sub := range set {
		select {
		case sub.C <- ev:
		default:
			stalled = append(stalled, sub)
		}
	}

	for _, sub := range stalled {
		log.Printf("[hub] dropping stalled subscriber character=%s", characterID)
		h.drop(sub)
	}
}

// SubscriberCount reports the current number of open channels for a
// character.
func (h *Hub) SubscriberCount(characterID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[characterID])
}

// Run emits a heartbeat on every open channel at the given interval until
// ctx is cancelled, then closes all remaining channels.
func (h *Hub) Run(ctx context.Context, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case t := <-ticker.C:
			h.mu.Lock()
			ev := Event{Type: EventHeartbeat, Payload: Heartbeat{Timestamp: t.UTC()}}
			for characterID := range h.subs {
				h.deliver(characterID, ev)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for characterID, set := range h.subs {
		for sub := range set {
			close(sub.C)
		}
		delete(h.subs, characterID)
	}
}

package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tabletopforge/npc-dialogue/internal/model/npc"
	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	"github.com/tabletopforge/npc-dialogue/internal/ratelimit"
	"github.com/tabletopforge/npc-dialogue/internal/service/hub"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
	triggerservice "github.com/tabletopforge/npc-dialogue/internal/service/trigger"
)

var (
	ErrNPCNotFound     = errors.New("npc not found")
	ErrInvalidAttitude = errors.New("invalid attitude")
	ErrEmptyInput      = errors.New("input is required")
)

// RateLimitError reports a rejected admission with a retry hint. It is an
// expected outcome, not a fault.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// ModelClient produces the raw in-character response for one turn.
type ModelClient interface {
	Generate(ctx context.Context, profile npc.Profile, sess sessionmodel.Session, userInput string) (string, error)
}

// Reply is the committed result of one chat turn.
type Reply struct {
	Response string               `json:"response"`
	Session  sessionmodel.Session `json:"session"`
}

// Service sequences a chat turn across the limiter, model, trigger engine,
// session store and broadcast hub. It also hosts the GM operations so every
// state change is committed and published from one place.
type Service struct {
	profiles    npc.Store
	sessions    *sessionservice.Store
	limiter     *ratelimit.Limiter
	triggers    *triggerservice.Engine
	broadcast   *hub.Hub
	model       ModelClient
	turnTimeout time.Duration
	turns       *lockTable
	states      *lockTable
}

// NewService wires the orchestrator. model may be nil when no chat model is
// configured; Converse then fails cleanly while GM operations keep working.
func NewService(profiles npc.Store, sessions *sessionservice.Store, limiter *ratelimit.Limiter, triggers *triggerservice.Engine, broadcast *hub.Hub, model ModelClient, turnTimeout time.Duration) *Service {
	return &Service{
		profiles:    profiles,
		sessions:    sessions,
		limiter:     limiter,
		triggers:    triggers,
		broadcast:   broadcast,
		model:       model,
		turnTimeout: turnTimeout,
		turns:       newLockTable(),
		states:      newLockTable(),
	}
}

// Converse runs one chat turn. On model failure or timeout nothing is
// committed and nothing is broadcast; the error is the caller's alone.
func (s *Service) Converse(ctx context.Context, characterID, input string) (Reply, error) {
	if input == "" {
		return Reply{}, ErrEmptyInput
	}

	profile, ok := s.profiles.FindByID(characterID)
	if !ok {
		return Reply{}, ErrNPCNotFound
	}

	if s.model == nil {
		return Reply{}, errors.New("no chat model configured")
	}

	if allowed, retryAfter := s.limiter.Admit(characterID); !allowed {
		return Reply{}, &RateLimitError{RetryAfter: retryAfter}
	}

	// Serialize turns per character for the whole awaiting-model window.
	lock := s.turns.get(characterID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.sessions.Get(ctx, characterID)

	modelCtx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	raw, err := s.model.Generate(modelCtx, profile, sess, input)
	if err != nil {
		return Reply{}, fmt.Errorf("model call failed: %w", err)
	}

	state := s.states.get(characterID)
	state.Lock()
	defer state.Unlock()

	outcome := s.triggers.Process(ctx, characterID, raw)

	committed := s.sessions.Append(ctx, characterID,
		sessionmodel.Message{Role: sessionmodel.RoleUser, Content: input},
		sessionmodel.Message{Role: sessionmodel.RoleAssistant, Content: outcome.Text},
	)

	s.broadcast.Publish(characterID, hub.Event{
		Type: hub.EventConversation,
		Payload: hub.ConversationUpdate{
			Messages:    committed.Messages,
			LastUpdated: committed.LastActive,
		},
	})

	if outcome.Applied {
		s.broadcast.Publish(characterID, hub.Event{
			Type:    hub.EventAttribute,
			Payload: hub.AttributeUpdate{Kind: "interest", Value: committed.Interest},
		})
	}
	for _, effect := range outcome.Effects {
		s.broadcast.Publish(characterID, hub.Event{Type: hub.EventSideEffect, Payload: effect})
	}

	log.Printf("[dialogue] turn committed character=%s messages=%d", characterID, len(committed.Messages))
	return Reply{Response: outcome.Text, Session: committed}, nil
}

// AdjustAttribute applies a GM delta to patience or interest. It does not
// wait on the turn lock; the state lock makes read-clamp-write-publish one
// unit, so two racing deltas cannot publish in the wrong order.
func (s *Service) AdjustAttribute(ctx context.Context, characterID, kind string, delta int) (sessionmodel.Session, error) {
	if _, ok := s.profiles.FindByID(characterID); !ok {
		return sessionmodel.Session{}, ErrNPCNotFound
	}

	state := s.states.get(characterID)
	state.Lock()
	defer state.Unlock()

	var committed sessionmodel.Session
	var value int
	switch kind {
	case "patience":
		committed = s.sessions.AdjustPatience(ctx, characterID, delta)
		value = committed.Patience
	case "interest":
		committed = s.sessions.AdjustInterest(ctx, characterID, delta)
		value = committed.Interest
	default:
		return sessionmodel.Session{}, fmt.Errorf("unknown attribute %q", kind)
	}

	s.broadcast.Publish(characterID, hub.Event{
		Type:    hub.EventAttribute,
		Payload: hub.AttributeUpdate{Kind: kind, Value: value},
	})
	return committed, nil
}

// SetAttitude supersedes the session with the given attitude preset and
// publishes the full reset.
func (s *Service) SetAttitude(ctx context.Context, characterID string, attitude sessionmodel.Attitude) (sessionmodel.Session, error) {
	if _, ok := s.profiles.FindByID(characterID); !ok {
		return sessionmodel.Session{}, ErrNPCNotFound
	}
	if !sessionmodel.ValidAttitude(attitude) {
		return sessionmodel.Session{}, ErrInvalidAttitude
	}

	state := s.states.get(characterID)
	state.Lock()
	defer state.Unlock()

	committed := s.sessions.SetAttitude(ctx, characterID, attitude)

	s.broadcast.Publish(characterID, hub.Event{
		Type:    hub.EventAttribute,
		Payload: hub.AttributeUpdate{Kind: "attitude", Value: committed.Attitude},
	})
	s.broadcast.Publish(characterID, hub.Event{
		Type:    hub.EventAttribute,
		Payload: hub.AttributeUpdate{Kind: "patience", Value: committed.Patience},
	})
	s.broadcast.Publish(characterID, hub.Event{
		Type:    hub.EventAttribute,
		Payload: hub.AttributeUpdate{Kind: "interest", Value: committed.Interest},
	})
	s.broadcast.Publish(characterID, hub.Event{
		Type: hub.EventConversation,
		Payload: hub.ConversationUpdate{
			Messages:    committed.Messages,
			LastUpdated: committed.LastActive,
		},
	})
	return committed, nil
}

// ClearHistory resets the conversation and motivation tracking, leaving the
// meters and attitude as they are.
func (s *Service) ClearHistory(ctx context.Context, characterID string) (sessionmodel.Session, error) {
	if _, ok := s.profiles.FindByID(characterID); !ok {
		return sessionmodel.Session{}, ErrNPCNotFound
	}

	state := s.states.get(characterID)
	state.Lock()
	defer state.Unlock()

	committed := s.sessions.ClearHistory(ctx, characterID)

	s.broadcast.Publish(characterID, hub.Event{
		Type: hub.EventConversation,
		Payload: hub.ConversationUpdate{
			Messages:    committed.Messages,
			LastUpdated: committed.LastActive,
		},
	})
	return committed, nil
}

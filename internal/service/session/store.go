package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	"github.com/tabletopforge/npc-dialogue/internal/storage"
)

// Store owns every live session. All mutation goes through mutate so the
// read-clamp-write cycle for a character is a single atomic unit; callers
// only ever see deep copies of the cached state.
type Store struct {
	mu      sync.Mutex
	cache   map[string]*sessionmodel.Session
	storage storage.SessionStorage
}

// NewStore returns a Store backed by the given durable storage. A nil
// storage keeps sessions purely in memory.
func NewStore(st storage.SessionStorage) *Store {
	return &Store{
		cache:   make(map[string]*sessionmodel.Session),
		storage: st,
	}
}

// get returns the cached session for characterID, loading a durable snapshot
// or constructing the neutral default on first access. Callers must hold mu.
func (s *Store) get(characterID string) *sessionmodel.Session {
	if cached, ok := s.cache[characterID]; ok {
		return cached
	}

	if s.storage != nil {
		loaded, ok, err := s.storage.Load(characterID)
		if err != nil {
			log.Printf("[session] failed to load snapshot for %s: %v", characterID, err)
		} else if ok {
			// Snapshots can be hand-edited; re-clamp before trusting them.
			loaded.Patience = sessionmodel.Clamp(loaded.Patience)
			loaded.Interest = sessionmodel.Clamp(loaded.Interest)
			s.cache[characterID] = &loaded
			return &loaded
		}
	}

	fresh := defaultSession(characterID)
	s.cache[characterID] = fresh
	return fresh
}

func defaultSession(characterID string) *sessionmodel.Session {
	patience, interest := sessionmodel.Preset(sessionmodel.Neutral)
	return &sessionmodel.Session{
		CharacterID: characterID,
		SessionID:   uuid.NewString(),
		Attitude:    sessionmodel.Neutral,
		Patience:    patience,
		Interest:    interest,
		LastActive:  time.Now().UTC(),
	}
}

// mutate runs fn against the live session and returns a copy of the result.
func (s *Store) mutate(characterID string, fn func(*sessionmodel.Session)) sessionmodel.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.get(characterID)
	fn(live)
	live.Patience = sessionmodel.Clamp(live.Patience)
	live.Interest = sessionmodel.Clamp(live.Interest)
	live.LastActive = time.Now().UTC()
	return live.Clone()
}

// Get returns the current session for characterID, creating it lazily.
// It never fails.
func (s *Store) Get(_ context.Context, characterID string) sessionmodel.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(characterID).Clone()
}

// Update merges the partial update into the session and returns the new
// snapshot. Messages and TrackedMotivations replace wholesale; appending is
// the caller's responsibility when building the partial.
func (s *Store) Update(_ context.Context, characterID string, u sessionmodel.Update) sessionmodel.Session {
	return s.mutate(characterID, func(live *sessionmodel.Session) {
		u.Apply(live, time.Now().UTC())
	})
}

// Append atomically appends messages to the conversation.
func (s *Store) Append(_ context.Context, characterID string, msgs ...sessionmodel.Message) sessionmodel.Session {
	return s.mutate(characterID, func(live *sessionmodel.Session) {
		live.Messages = append(live.Messages, msgs...)
	})
}

// AdjustPatience applies a GM delta to the patience meter, clamped.
func (s *Store) AdjustPatience(_ context.Context, characterID string, delta int) sessionmodel.Session {
	return s.mutate(characterID, func(live *sessionmodel.Session) {
		live.Patience += delta
	})
}

// AdjustInterest applies a GM delta to the interest meter, clamped.
func (s *Store) AdjustInterest(_ context.Context, characterID string, delta int) sessionmodel.Session {
	return s.mutate(characterID, func(live *sessionmodel.Session) {
		live.Interest += delta
	})
}

// SetAttitude supersedes the current session with a fresh one at the given
// attitude preset: new session id, preset meters, empty history.
func (s *Store) SetAttitude(_ context.Context, characterID string, attitude sessionmodel.Attitude) sessionmodel.Session {
	return s.mutate(characterID, func(live *sessionmodel.Session) {
		patience, interest := sessionmodel.Preset(attitude)
		live.SessionID = uuid.NewString()
		live.Attitude = attitude
		live.Patience = patience
		live.Interest = interest
		live.Messages = nil
		live.TrackedMotivations = nil
	})
}

// ClearHistory resets the conversation and motivation tracking while leaving
// attitude and meters untouched.
func (s *Store) ClearHistory(_ context.Context, characterID string) sessionmodel.Session {
	return s.mutate(characterID, func(live *sessionmodel.Session) {
		live.Messages = nil
		live.TrackedMotivations = nil
	})
}

// ApplyMotivation rewards a motivation appeal at most once per session: if
// label is untracked it bumps interest by delta and records the label. The
// returned snapshot reflects the post-call state either way.
func (s *Store) ApplyMotivation(_ context.Context, characterID, label string, delta int) (sessionmodel.Session, bool) {
	applied := false
	snapshot := s.mutate(characterID, func(live *sessionmodel.Session) {
		if live.HasMotivation(label) {
			return
		}
		live.Interest += delta
		live.TrackedMotivations = append(live.TrackedMotivations, label)
		applied = true
	})
	return snapshot, applied
}

// FlushAll persists every cached session. Each session is copied whole under
// the lock and written outside it, so a flush never blocks live traffic and
// never persists a torn state. Failures are logged per character and do not
// stop the rest.
func (s *Store) FlushAll(_ context.Context) {
	if s.storage == nil {
		return
	}

	s.mu.Lock()
	snapshots := make([]sessionmodel.Session, 0, len(s.cache))
	for _, live := range s.cache {
		snapshots = append(snapshots, live.Clone())
	}
	s.mu.Unlock()

	for _, snap := range snapshots {
		if err := s.storage.Save(snap.CharacterID, snap); err != nil {
			log.Printf("[session] failed to persist %s: %v", snap.CharacterID, err)
		}
	}
}

// StartAutoFlush persists all sessions on the given interval until ctx is
// cancelled, then performs one final flush.
func (s *Store) StartAutoFlush(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.FlushAll(context.Background())
				return
			case <-ticker.C:
				s.FlushAll(ctx)
			}
		}
	}()
}

package npc

// Profile captures the game-facing attributes of a single NPC.
type Profile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Personality  string   `json:"personality"`
	CurrentScene string   `json:"currentScene"`
	GameContext  string   `json:"gameContext,omitempty"`
	WhatTheyKnow []string `json:"whatTheyKnow,omitempty"`
	Pitfalls     []string `json:"pitfalls,omitempty"`
	Motivations  []string `json:"motivations,omitempty"`
	VoiceID      string   `json:"voiceId,omitempty"`
}

// HasMotivation reports whether label is one of the profile's motivations.
func (p Profile) HasMotivation(label string) bool {
	for _, m := range p.Motivations {
		if m == label {
			return true
		}
	}
	return false
}

// Store exposes NPC profile retrieval for the dialogue core and HTTP handlers.
type Store interface {
	List() []Profile
	FindByID(id string) (Profile, bool)
}

// MemoryStore implements Store with an in-memory slice, suitable for tests
// and demo deployments without an npcs directory.
type MemoryStore struct {
	items []Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items []Profile) *MemoryStore {
	return &MemoryStore{items: append([]Profile(nil), items...)}
}

// List returns the loaded profile list.
func (s *MemoryStore) List() []Profile {
	return append([]Profile(nil), s.items...)
}

// FindByID looks up a profile by identifier.
func (s *MemoryStore) FindByID(id string) (Profile, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Profile{}, false
}

// Seed provides a default profile so the server is usable out of the box.
func Seed() []Profile {
	return []Profile{
		{
			ID:           "gatekeeper-bren",
			Name:         "Bren",
			Description:  "A weathered gatekeeper guarding the east road into Veldmoor.",
			Personality:  "Gruff, wary of strangers, secretly homesick.",
			CurrentScene: "Night watch at the east gate, drizzle falling.",
			WhatTheyKnow: []string{
				"The caravan that passed at dusk carried no trade seal.",
				"The captain doubled the watch after the last full moon.",
			},
			Pitfalls: []string{
				"Will not discuss the captain's orders with outsiders.",
			},
			Motivations: []string{
				"word from his family in the lowlands",
				"a warm meal",
			},
			VoiceID: "veldmoor-gatekeeper",
		},
	}
}

package trigger

import (
	"context"
	"log"

	"github.com/tabletopforge/npc-dialogue/internal/analysis/trigger"
	"github.com/tabletopforge/npc-dialogue/internal/model/npc"
	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
)

// Defaults for the motivation reward.
const (
	DefaultInterestDelta = 1
	DefaultSoundEffect   = "motivation_chime"
)

// SideEffect is an event the orchestrator should broadcast after commit.
type SideEffect struct {
	Kind   string `json:"kind"`
	Effect string `json:"effect"`
}

// Outcome is the tagged result of processing one model response.
type Outcome struct {
	Text       string
	Applied    bool
	Motivation string
	Session    sessionmodel.Session
	Effects    []SideEffect
}

// Engine translates motivation markers into session mutations and side
// effects. Each label rewards at most once per session; the marker is
// stripped from the player-visible text either way.
type Engine struct {
	sessions      *sessionservice.Store
	profiles      npc.Store
	interestDelta int
	soundEffect   string
}

// NewEngine wires the engine against the session store and profile provider.
func NewEngine(sessions *sessionservice.Store, profiles npc.Store) *Engine {
	return &Engine{
		sessions:      sessions,
		profiles:      profiles,
		interestDelta: DefaultInterestDelta,
		soundEffect:   DefaultSoundEffect,
	}
}

// Process scans raw model output for a motivation marker and applies the
// reward when the label is new this session. Malformed markers pass the
// original text through untouched; unknown labels are stripped but never
// rewarded.
func (e *Engine) Process(ctx context.Context, characterID, raw string) Outcome {
	cleaned, marker, ok := trigger.Parse(raw)
	if !ok {
		return Outcome{Text: raw, Session: e.sessions.Get(ctx, characterID)}
	}

	profile, found := e.profiles.FindByID(characterID)
	if !found || !profile.HasMotivation(marker.Motivation) {
		log.Printf("[trigger] %s: marker names unknown motivation %q, ignoring", characterID, marker.Motivation)
		return Outcome{Text: cleaned, Session: e.sessions.Get(ctx, characterID)}
	}

	snapshot, applied := e.sessions.ApplyMotivation(ctx, characterID, marker.Motivation, e.interestDelta)
	out := Outcome{
		Text:       cleaned,
		Applied:    applied,
		Motivation: marker.Motivation,
		Session:    snapshot,
	}
	if applied {
		out.Effects = append(out.Effects, SideEffect{Kind: "sound", Effect: e.soundEffect})
		log.Printf("[trigger] %s: motivation %q fulfilled, interest=%d", characterID, marker.Motivation, snapshot.Interest)
	}
	return out
}

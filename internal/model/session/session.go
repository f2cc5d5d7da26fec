package session

import "time"

// Attitude is the GM-selectable disposition of an NPC toward the party.
type Attitude string

const (
	Hostile    Attitude = "hostile"
	Suspicious Attitude = "suspicious"
	Neutral    Attitude = "neutral"
	Open       Attitude = "open"
	Friendly   Attitude = "friendly"
	Trusting   Attitude = "trusting"
)

// Meter bounds for patience and interest.
const (
	MeterMin = 0
	MeterMax = 5
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is the mutable per-NPC state shared between the GM and player views.
type Session struct {
	CharacterID        string    `json:"characterId"`
	SessionID          string    `json:"sessionId"`
	Attitude           Attitude  `json:"attitude"`
	Patience           int       `json:"patience"`
	Interest           int       `json:"interest"`
	Messages           []Message `json:"messages"`
	TrackedMotivations []string  `json:"trackedMotivations"`
	LastActive         time.Time `json:"lastActive"`
}

// preset holds the attitude-derived starting meters.
type preset struct {
	patience int
	interest int
}

var presets = map[Attitude]preset{
	Hostile:    {patience: 1, interest: 0},
	Suspicious: {patience: 2, interest: 1},
	Neutral:    {patience: 3, interest: 2},
	Open:       {patience: 3, interest: 3},
	Friendly:   {patience: 4, interest: 3},
	Trusting:   {patience: 5, interest: 4},
}

// ValidAttitude reports whether a is one of the fixed attitude values.
func ValidAttitude(a Attitude) bool {
	_, ok := presets[a]
	return ok
}

// Preset returns the starting patience and interest for an attitude. Unknown
// attitudes fall back to the neutral preset.
func Preset(a Attitude) (patience, interest int) {
	p, ok := presets[a]
	if !ok {
		p = presets[Neutral]
	}
	return p.patience, p.interest
}

// Clamp bounds a meter value to [MeterMin, MeterMax].
func Clamp(v int) int {
	if v < MeterMin {
		return MeterMin
	}
	if v > MeterMax {
		return MeterMax
	}
	return v
}

// HasMotivation reports whether label has already been rewarded this session.
func (s *Session) HasMotivation(label string) bool {
	for _, m := range s.TrackedMotivations {
		if m == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand the session out without
// exposing the store's slices to mutation.
func (s *Session) Clone() Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.TrackedMotivations = append([]string(nil), s.TrackedMotivations...)
	return out
}

// Update is a partial session mutation. Nil fields are left untouched;
// Messages and TrackedMotivations replace the existing slices wholesale.
type Update struct {
	SessionID          *string
	Attitude           *Attitude
	Patience           *int
	Interest           *int
	Messages           *[]Message
	TrackedMotivations *[]string
}

// Apply merges the update into s, clamping meters and stamping LastActive.
func (u Update) Apply(s *Session, now time.Time) {
	if u.SessionID != nil {
		s.SessionID = *u.SessionID
	}
	if u.Attitude != nil {
		s.Attitude = *u.Attitude
	}
	if u.Patience != nil {
		s.Patience = Clamp(*u.Patience)
	}
	if u.Interest != nil {
		s.Interest = Clamp(*u.Interest)
	}
	if u.Messages != nil {
		s.Messages = append([]Message(nil), (*u.Messages)...)
	}
	if u.TrackedMotivations != nil {
		s.TrackedMotivations = append([]string(nil), (*u.TrackedMotivations)...)
	}
	s.LastActive = now
}

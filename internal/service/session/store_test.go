package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	sessionservice "github.com/tabletopforge/npc-dialogue/internal/service/session"
	"github.com/tabletopforge/npc-dialogue/internal/storage"
)

func newMemoryStore(t *testing.T) *sessionservice.Store {
	t.Helper()
	return sessionservice.NewStore(nil)
}

func TestGetCreatesNeutralDefault(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	got := store.Get(ctx, "bren")

	if got.CharacterID != "bren" {
		t.Fatalf("characterId = %q", got.CharacterID)
	}
	if got.Attitude != sessionmodel.Neutral {
		t.Fatalf("attitude = %q, want neutral", got.Attitude)
	}
	if got.Patience != 3 || got.Interest != 2 {
		t.Fatalf("meters = (%d,%d), want (3,2)", got.Patience, got.Interest)
	}
	if got.SessionID == "" {
		t.Fatal("sessionId must be assigned")
	}
	if len(got.Messages) != 0 {
		t.Fatalf("fresh session has messages: %+v", got.Messages)
	}
}

func TestUpdateVisibleToSubsequentGet(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	attitude := sessionmodel.Friendly
	msgs := []sessionmodel.Message{{Role: sessionmodel.RoleUser, Content: "hello"}}
	store.Update(ctx, "bren", sessionmodel.Update{Attitude: &attitude, Messages: &msgs})

	got := store.Get(ctx, "bren")
	if got.Attitude != sessionmodel.Friendly {
		t.Fatalf("attitude = %q", got.Attitude)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestAdjustPatienceClampsHigh(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	got := store.AdjustPatience(ctx, "bren", 10)
	if got.Patience != 5 {
		t.Fatalf("patience = %d, want 5 after +10 from 3", got.Patience)
	}

	got = store.AdjustPatience(ctx, "bren", -100)
	if got.Patience != 0 {
		t.Fatalf("patience = %d, want 0 after large negative delta", got.Patience)
	}
}

func TestConcurrentAppendsBothSurvive(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, content := range []string{"hello", "there"} {
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			store.Append(ctx, "bren", sessionmodel.Message{Role: sessionmodel.RoleUser, Content: content})
		}(content)
	}
	wg.Wait()

	got := store.Get(ctx, "bren")
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %+v, want both appends to survive", got.Messages)
	}
	seen := map[string]bool{}
	for _, m := range got.Messages {
		seen[m.Content] = true
	}
	if !seen["hello"] || !seen["there"] {
		t.Fatalf("lost an append: %+v", got.Messages)
	}
}

func TestClearHistoryLeavesMeters(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	store.Append(ctx, "bren", sessionmodel.Message{Role: sessionmodel.RoleUser, Content: "hello"})
	store.ApplyMotivation(ctx, "bren", "a warm meal", 1)
	before := store.Get(ctx, "bren")

	got := store.ClearHistory(ctx, "bren")

	if len(got.Messages) != 0 {
		t.Fatalf("messages not cleared: %+v", got.Messages)
	}
	if len(got.TrackedMotivations) != 0 {
		t.Fatalf("motivations not cleared: %+v", got.TrackedMotivations)
	}
	if got.Patience != before.Patience || got.Interest != before.Interest || got.Attitude != before.Attitude {
		t.Fatalf("clear must not touch meters: before=%+v after=%+v", before, got)
	}
}

func TestSetAttitudeSupersedesSession(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	store.Append(ctx, "bren", sessionmodel.Message{Role: sessionmodel.RoleUser, Content: "hello"})
	before := store.Get(ctx, "bren")

	got := store.SetAttitude(ctx, "bren", sessionmodel.Hostile)

	if got.Attitude != sessionmodel.Hostile {
		t.Fatalf("attitude = %q", got.Attitude)
	}
	if got.Patience != 1 || got.Interest != 0 {
		t.Fatalf("meters = (%d,%d), want hostile preset (1,0)", got.Patience, got.Interest)
	}
	if got.SessionID == before.SessionID {
		t.Fatal("attitude change must mint a new session id")
	}
	if len(got.Messages) != 0 || len(got.TrackedMotivations) != 0 {
		t.Fatalf("superseded session must start empty: %+v", got)
	}
}

func TestApplyMotivationAtMostOnce(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	first, applied := store.ApplyMotivation(ctx, "bren", "a warm meal", 1)
	if !applied {
		t.Fatal("first appeal must apply")
	}
	if first.Interest != 3 {
		t.Fatalf("interest = %d, want 3 after +1 from 2", first.Interest)
	}

	second, applied := store.ApplyMotivation(ctx, "bren", "a warm meal", 1)
	if applied {
		t.Fatal("second appeal for the same label must not apply")
	}
	if second.Interest != 3 {
		t.Fatalf("interest = %d, want unchanged 3", second.Interest)
	}
	if len(second.TrackedMotivations) != 1 {
		t.Fatalf("label tracked %d times, want once", len(second.TrackedMotivations))
	}
}

func TestFlushAllAndReload(t *testing.T) {
	dir := t.TempDir()
	fileStore, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}

	ctx := context.Background()
	store := sessionservice.NewStore(fileStore)
	store.Append(ctx, "bren", sessionmodel.Message{Role: sessionmodel.RoleUser, Content: "hello"})
	store.AdjustInterest(ctx, "bren", 2)
	store.FlushAll(ctx)

	// A fresh store over the same directory must see the snapshot.
	reloaded := sessionservice.NewStore(fileStore)
	got := reloaded.Get(ctx, "bren")

	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("reloaded messages = %+v", got.Messages)
	}
	if got.Interest != 4 {
		t.Fatalf("reloaded interest = %d, want 4", got.Interest)
	}
}

// failingStorage rejects saves for one character and records the rest.
type failingStorage struct {
	mu     sync.Mutex
	failID string
	saved  map[string]sessionmodel.Session
}

func (f *failingStorage) Load(string) (sessionmodel.Session, bool, error) {
	return sessionmodel.Session{}, false, nil
}

func (f *failingStorage) Save(characterID string, sess sessionmodel.Session) error {
	if characterID == f.failID {
		return errors.New("disk full")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[characterID] = sess
	return nil
}

func TestFlushAllContinuesPastSaveFailure(t *testing.T) {
	st := &failingStorage{failID: "bren", saved: make(map[string]sessionmodel.Session)}
	store := sessionservice.NewStore(st)
	ctx := context.Background()

	store.AdjustInterest(ctx, "bren", 1)
	store.AdjustInterest(ctx, "mira", 1)
	store.AdjustPatience(ctx, "tomas", -1)

	store.FlushAll(ctx)

	if _, ok := st.saved["bren"]; ok {
		t.Fatal("failed character must not appear as saved")
	}
	for _, id := range []string{"mira", "tomas"} {
		snap, ok := st.saved[id]
		if !ok {
			t.Fatalf("%s was not persisted", id)
		}
		if snap.CharacterID != id {
			t.Fatalf("persisted characterId = %q, want %q", snap.CharacterID, id)
		}
	}
}

func TestGetClampsLoadedSnapshot(t *testing.T) {
	fileStore, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}

	corrupt := sessionmodel.Session{
		CharacterID: "bren",
		SessionID:   "snap-1",
		Attitude:    sessionmodel.Neutral,
		Patience:    -2,
		Interest:    9,
	}
	if err := fileStore.Save("bren", corrupt); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	store := sessionservice.NewStore(fileStore)
	got := store.Get(context.Background(), "bren")

	if got.Patience != 0 {
		t.Fatalf("patience = %d, want clamped 0", got.Patience)
	}
	if got.Interest != 5 {
		t.Fatalf("interest = %d, want clamped 5", got.Interest)
	}
}

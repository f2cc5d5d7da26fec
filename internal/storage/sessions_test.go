package storage_test

import (
	"testing"
	"time"

	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
	"github.com/tabletopforge/npc-dialogue/internal/storage"
)

func TestSaveAndLoad(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}

	want := sessionmodel.Session{
		CharacterID:        "bren",
		SessionID:          "abc",
		Attitude:           sessionmodel.Open,
		Patience:           3,
		Interest:           4,
		Messages:           []sessionmodel.Message{{Role: sessionmodel.RoleAssistant, Content: "hm"}},
		TrackedMotivations: []string{"a warm meal"},
		LastActive:         time.Now().UTC().Truncate(time.Second),
	}

	if err := store.Save("bren", want); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	got, ok, err := store.Load("bren")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot to exist")
	}
	if got.SessionID != want.SessionID || got.Attitude != want.Attitude || got.Interest != want.Interest {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hm" {
		t.Fatalf("messages mismatch: %+v", got.Messages)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}

	_, ok, err := store.Load("nobody")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if ok {
		t.Fatal("expected no snapshot for unknown character")
	}
}

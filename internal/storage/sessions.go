package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sessionmodel "github.com/tabletopforge/npc-dialogue/internal/model/session"
)

// SessionStorage persists per-NPC session snapshots. Load returns ok=false
// when no snapshot exists for the character.
type SessionStorage interface {
	Load(characterID string) (sessionmodel.Session, bool, error)
	Save(characterID string, s sessionmodel.Session) error
}

// FileStore keeps one JSON file per character under a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (f *FileStore) path(characterID string) string {
	// Character ids come from profile files, but keep path traversal out anyway.
	name := strings.ReplaceAll(characterID, string(os.PathSeparator), "_")
	return filepath.Join(f.baseDir, name+".json")
}

// Load reads the snapshot for characterID if one exists.
func (f *FileStore) Load(characterID string) (sessionmodel.Session, bool, error) {
	data, err := os.ReadFile(f.path(characterID))
	if os.IsNotExist(err) {
		return sessionmodel.Session{}, false, nil
	}
	if err != nil {
		return sessionmodel.Session{}, false, fmt.Errorf("read session snapshot: %w", err)
	}

	var s sessionmodel.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return sessionmodel.Session{}, false, fmt.Errorf("decode session snapshot: %w", err)
	}
	return s, true, nil
}

// Save writes the snapshot atomically via a temp file and rename so a crash
// mid-write never leaves a torn snapshot on disk.
func (f *FileStore) Save(characterID string, s sessionmodel.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}

	full := f.path(characterID)
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session snapshot: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit session snapshot: %w", err)
	}
	return nil
}

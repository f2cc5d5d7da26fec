package npc

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LoadDir reads every *.json file under dir into a MemoryStore. A file that
// fails to parse is skipped with a warning so one bad profile does not take
// down the rest.
func LoadDir(dir string) (*MemoryStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read npc directory: %w", err)
	}

	var items []Profile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("[npc] skipping %s: %v", entry.Name(), err)
			continue
		}

		var profile Profile
		if err := json.Unmarshal(data, &profile); err != nil {
			log.Printf("[npc] skipping %s: %v", entry.Name(), err)
			continue
		}
		if profile.ID == "" {
			log.Printf("[npc] skipping %s: missing id", entry.Name())
			continue
		}
		items = append(items, profile)
	}

	return NewMemoryStore(items), nil
}

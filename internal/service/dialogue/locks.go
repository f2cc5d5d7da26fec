package dialogue

import "sync"

// lockTable hands out one mutex per character. The orchestrator keeps two
// tables: turn locks serialize whole chat turns while a model call is in
// flight, and state locks span each commit-plus-publish pair so subscribers
// observe events in commit order. Without the turn lock a slow first turn
// could clobber a faster second turn's committed history.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) get(characterID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[characterID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[characterID] = lock
	}
	return lock
}

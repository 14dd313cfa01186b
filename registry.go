package main

import (
	"errors"
	"sync"
)

var (
	errGameExists   = errors.New("game already running for id")
	errGameNotFound = errors.New("game not found")
)

// registry is the process-wide map from game id to its running
// scheduler. All access goes through add/lookup/remove so the
// one-scheduler-per-id invariant stays checkable in one place.
type registry struct {
	mu    sync.RWMutex
	games map[string]*scheduler
}

func newRegistry() *registry {
	return &registry{games: make(map[string]*scheduler)}
}

// add registers a scheduler, refusing a second instance for an id that
// is already present.
func (r *registry) add(s *scheduler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[s.game.ID]; ok {
		return errGameExists
	}
	r.games[s.game.ID] = s
	return nil
}

func (r *registry) lookup(gameID string) (*scheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.games[gameID]
	return s, ok
}

// byLobby finds the running game for a lobby, if any. Lobby ids are
// immutable on the scheduler so this read is safe.
func (r *registry) byLobby(lobbyID string) (*scheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.games {
		if s.game.LobbyID == lobbyID {
			return s, true
		}
	}
	return nil, false
}

func (r *registry) remove(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, gameID)
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

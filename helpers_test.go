package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// testConfig returns game settings with deadlines short enough for
// tests but long enough to submit into.
func testConfig() GameConfig {
	return GameConfig{
		MinPlayers:    5,
		MaxPlayers:    15,
		LobbyWait:     30 * time.Millisecond,
		NightWait:     300 * time.Millisecond,
		DayWait:       10 * time.Millisecond,
		VoteWait:      300 * time.Millisecond,
		RevengeWait:   150 * time.Millisecond,
		FillerEnabled: false,
		FillerNames:   []string{"Agatha", "Bartholomew", "Cressida", "Dmitri"},
	}
}

// rosterEntry pins a player id to a role for hand-built games.
type rosterEntry struct {
	id   string
	role Role
}

// testGame builds a started game with a fixed role deal, skipping the
// lobby machinery.
func testGame(t *testing.T, entries []rosterEntry) *Game {
	t.Helper()
	g := newGame("test-game", "test-lobby", testConfig())
	g.Round = 1
	g.Phase = phaseNight
	for _, e := range entries {
		g.Players = append(g.Players, &Player{ID: e.id, Name: e.id, Role: e.role, Alive: true})
	}
	return g
}

// fakeProvider counts provision/teardown calls and can be told to
// fail either.
type fakeProvider struct {
	mu               sync.Mutex
	provisions       int
	teardowns        int
	failProvision    bool
	failTeardowns    int // fail this many teardown calls before succeeding
	teardownAttempts int
}

var errProvisionBroken = errors.New("provision broken")
var errTeardownBroken = errors.New("teardown broken")

func (f *fakeProvider) Provision(ctx context.Context, gameID string) (ResourceHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProvision {
		return ResourceHandle{}, errProvisionBroken
	}
	f.provisions++
	return ResourceHandle{GameID: gameID, Channels: []string{"village:" + gameID, "wolves:" + gameID}}, nil
}

func (f *fakeProvider) Teardown(ctx context.Context, handle ResourceHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardownAttempts++
	if f.failTeardowns > 0 {
		f.failTeardowns--
		return errTeardownBroken
	}
	f.teardowns++
	return nil
}

func (f *fakeProvider) counts() (provisions, teardowns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.provisions, f.teardowns
}

// chanNotifier forwards engine events onto buffered channels so tests
// can react to a running scheduler.
type chanNotifier struct {
	phases      chan Phase
	resolutions chan ResolutionResult
	reveals     chan Effect
	verdicts    chan Verdict
	failures    chan error
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{
		phases:      make(chan Phase, 64),
		resolutions: make(chan ResolutionResult, 64),
		reveals:     make(chan Effect, 64),
		verdicts:    make(chan Verdict, 8),
		failures:    make(chan error, 8),
	}
}

func (n *chanNotifier) PhaseChanged(gameID string, phase Phase, round int) { n.phases <- phase }
func (n *chanNotifier) Resolution(gameID string, res ResolutionResult)    { n.resolutions <- res }
func (n *chanNotifier) Reveal(gameID, actorID string, eff Effect)         { n.reveals <- eff }
func (n *chanNotifier) VerdictReached(gameID string, v Verdict)           { n.verdicts <- v }
func (n *chanNotifier) GameFailed(gameID string, err error)               { n.failures <- err }

// waitForPhase blocks until the notifier reports the wanted phase.
func (n *chanNotifier) waitForPhase(t *testing.T, want Phase) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-n.phases:
			if p == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %s", want)
		}
	}
}

// staticRoster is a RosterSource with a fixed joined list.
type staticRoster []Actor

func (r staticRoster) ListJoinedActors(lobbyID string) []Actor { return r }

func makeActors(ids ...string) staticRoster {
	var actors staticRoster
	for _, id := range ids {
		actors = append(actors, Actor{ID: id, Name: id})
	}
	return actors
}

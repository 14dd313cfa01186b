package main

import "testing"

func TestPhaseTransitions(t *testing.T) {
	legal := []struct{ from, to Phase }{
		{phaseLobby, phaseNight},
		{phaseNight, phaseDay},
		{phaseNight, phaseResolved},
		{phaseDay, phaseVote},
		{phaseVote, phaseNight},
		{phaseVote, phaseResolved},
		{phaseLobby, phaseAborted},
		{phaseNight, phaseAborted},
		{phaseDay, phaseAborted},
		{phaseVote, phaseAborted},
	}
	for _, tc := range legal {
		if !tc.from.canTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to Phase }{
		{phaseLobby, phaseDay},
		{phaseLobby, phaseVote},
		{phaseNight, phaseVote},
		{phaseDay, phaseNight},
		{phaseDay, phaseResolved},
		{phaseVote, phaseDay},
		{phaseResolved, phaseNight},
		{phaseResolved, phaseAborted},
		{phaseAborted, phaseNight},
		{phaseAborted, phaseResolved},
	}
	for _, tc := range illegal {
		if tc.from.canTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be refused", tc.from, tc.to)
		}
	}
}

func TestPhaseTerminal(t *testing.T) {
	for _, p := range []Phase{phaseLobby, phaseNight, phaseDay, phaseVote} {
		if p.terminal() {
			t.Errorf("%s reported terminal", p)
		}
	}
	for _, p := range []Phase{phaseResolved, phaseAborted} {
		if !p.terminal() {
			t.Errorf("%s reported non-terminal", p)
		}
	}
}

func TestSeedFromIDStable(t *testing.T) {
	if seedFromID("game-1") != seedFromID("game-1") {
		t.Fatal("same id produced different seeds")
	}
	if seedFromID("game-1") == seedFromID("game-2") {
		t.Fatal("distinct ids collided")
	}
}

func TestGameHelpers(t *testing.T) {
	g := standardVillage(t)
	g.playerByID("vil1").Alive = false

	if len(g.alivePlayers()) != 4 {
		t.Errorf("alivePlayers = %d, want 4", len(g.alivePlayers()))
	}

	actors := g.nightActors()
	if len(actors) != 3 {
		t.Fatalf("nightActors = %d, want wolf, seer, doctor", len(actors))
	}
	for _, p := range actors {
		if p.Role.Priority == 0 {
			t.Errorf("%s has no night action but was listed", p.ID)
		}
	}

	counts := g.aliveByFaction()
	if counts[FactionWolves] != 1 || counts[FactionVillage] != 3 {
		t.Errorf("aliveByFaction = %v", counts)
	}
}

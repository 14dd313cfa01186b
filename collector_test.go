package main

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func standardVillage(t *testing.T) *Game {
	return testGame(t, []rosterEntry{
		{"wolf1", roleWerewolf},
		{"seer1", roleSeer},
		{"doc1", roleDoctor},
		{"vil1", roleVillager},
		{"vil2", roleVillager},
	})
}

func TestCollectorRejectsIneligibleActor(t *testing.T) {
	g := standardVillage(t)
	c := newCollector(g, phaseNight, 1, g.nightActors())

	err := c.submit("vil1", ActionVote, "wolf1")
	if !errors.Is(err, errActorNotEligible) {
		t.Fatalf("err = %v, want errActorNotEligible", err)
	}
}

func TestCollectorRejectsWrongKindForRole(t *testing.T) {
	g := standardVillage(t)
	c := newCollector(g, phaseNight, 1, g.nightActors())

	if err := c.submit("wolf1", ActionProtect, "vil1"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("wolf protect err = %v, want errActorNotEligible", err)
	}
	if err := c.submit("seer1", ActionKill, "vil1"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("seer kill err = %v, want errActorNotEligible", err)
	}
	if err := c.submit("wolf1", ActionKill, "vil1"); err != nil {
		t.Fatalf("legal kill rejected: %v", err)
	}
}

func TestCollectorRejectsDeadTarget(t *testing.T) {
	g := standardVillage(t)
	g.playerByID("vil2").Alive = false
	c := newCollector(g, phaseNight, 1, g.nightActors())

	if err := c.submit("wolf1", ActionKill, "vil2"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("err = %v, want errActorNotEligible", err)
	}
	if err := c.submit("wolf1", ActionKill, "ghost"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("unknown target err = %v, want errActorNotEligible", err)
	}
}

func TestCollectorSelfTargetRules(t *testing.T) {
	g := standardVillage(t)
	c := newCollector(g, phaseNight, 1, g.nightActors())

	if err := c.submit("wolf1", ActionKill, "wolf1"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("wolf self-kill err = %v, want errActorNotEligible", err)
	}
	if err := c.submit("doc1", ActionProtect, "doc1"); err != nil {
		t.Fatalf("doctor self-protect rejected: %v", err)
	}
}

func TestCollectorGuardRepeatLimit(t *testing.T) {
	g := testGame(t, []rosterEntry{
		{"guard1", roleGuard},
		{"vil1", roleVillager},
		{"vil2", roleVillager},
	})
	g.lastGuard["guard1"] = "vil1"
	c := newCollector(g, phaseNight, 1, g.nightActors())

	if err := c.submit("guard1", ActionProtect, "vil1"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("repeated guard err = %v, want errActorNotEligible", err)
	}
	if err := c.submit("guard1", ActionProtect, "vil2"); err != nil {
		t.Fatalf("fresh guard target rejected: %v", err)
	}
}

func TestCollectorSelfVote(t *testing.T) {
	g := standardVillage(t)
	g.Phase = phaseVote
	c := newCollector(g, phaseVote, 1, g.alivePlayers())

	if err := c.submit("vil1", ActionVote, "vil1"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("self-vote err = %v, want errActorNotEligible", err)
	}

	g.Config.AllowSelfVote = true
	if err := c.submit("vil1", ActionVote, "vil1"); err != nil {
		t.Fatalf("allowed self-vote rejected: %v", err)
	}
}

func TestCollectorResubmitReplaces(t *testing.T) {
	g := standardVillage(t)
	c := newCollector(g, phaseNight, 1, []*Player{g.playerByID("wolf1")})

	if err := c.submit("wolf1", ActionKill, "vil1"); err != nil {
		t.Fatal(err)
	}
	if err := c.submit("wolf1", ActionKill, "vil2"); err != nil {
		t.Fatal(err)
	}

	actions := c.drain()
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].Target != "vil2" {
		t.Fatalf("target = %s, resubmission did not replace the earlier action", actions[0].Target)
	}
}

func TestCollectorAllInClosesEarly(t *testing.T) {
	g := standardVillage(t)
	c := newCollector(g, phaseNight, 1, g.nightActors())

	c.submit("wolf1", ActionKill, "vil1")
	c.submit("doc1", ActionProtect, "vil1")
	select {
	case <-c.allIn:
		t.Fatal("allIn closed before every actor submitted")
	default:
	}

	c.submit("seer1", ActionInspect, "wolf1")
	select {
	case <-c.allIn:
	default:
		t.Fatal("allIn not closed after the last actor submitted")
	}
}

func TestCollectorDrainPadsDefaults(t *testing.T) {
	g := standardVillage(t)
	g.Phase = phaseVote
	c := newCollector(g, phaseVote, 1, g.alivePlayers())

	c.submit("vil1", ActionVote, "wolf1")
	actions := c.drain()
	if len(actions) != 5 {
		t.Fatalf("got %d actions, want 5", len(actions))
	}

	for i := 1; i < len(actions); i++ {
		if actions[i-1].Actor >= actions[i].Actor {
			t.Fatalf("drain not sorted by actor: %s before %s", actions[i-1].Actor, actions[i].Actor)
		}
	}
	for _, a := range actions {
		if a.Actor == "vil1" {
			if a.Kind != ActionVote || a.Target != "wolf1" {
				t.Errorf("vil1 action = %s %s, want vote wolf1", a.Kind, a.Target)
			}
			continue
		}
		if a.Kind != ActionAbstain {
			t.Errorf("%s padded with %s, want abstain", a.Actor, a.Kind)
		}
	}
}

func TestCollectorNightDefaultIsNoop(t *testing.T) {
	g := standardVillage(t)
	c := newCollector(g, phaseNight, 1, g.nightActors())

	actions := c.drain()
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}
	for _, a := range actions {
		if a.Kind != ActionNone {
			t.Errorf("%s padded with %s, want none", a.Actor, a.Kind)
		}
	}
}

func TestCollectorDrainIdempotent(t *testing.T) {
	g := standardVillage(t)
	c := newCollector(g, phaseNight, 1, g.nightActors())

	if first := c.drain(); first == nil {
		t.Fatal("first drain returned nil")
	}
	if second := c.drain(); second != nil {
		t.Fatalf("second drain returned %d actions, want nil", len(second))
	}
	if err := c.submit("wolf1", ActionKill, "vil1"); !errors.Is(err, errPhaseClosed) {
		t.Fatalf("submit after drain err = %v, want errPhaseClosed", err)
	}
}

func TestCollectorRevengeMailbox(t *testing.T) {
	g := standardVillage(t)
	hunter := &Player{ID: "hunt1", Name: "hunt1", Role: roleHunter}
	g.Players = append(g.Players, hunter)

	c := newCollector(g, phaseVote, 1, []*Player{hunter})
	c.revenge = true

	if err := c.submit("hunt1", ActionVote, "wolf1"); !errors.Is(err, errActorNotEligible) {
		t.Fatalf("vote into revenge mailbox err = %v, want errActorNotEligible", err)
	}
	if err := c.submit("hunt1", ActionRevenge, "wolf1"); err != nil {
		t.Fatalf("revenge shot rejected: %v", err)
	}
	select {
	case <-c.allIn:
	default:
		t.Fatal("single-actor mailbox did not close after the shot")
	}
}

func TestCollectorConcurrentSubmits(t *testing.T) {
	var entries []rosterEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, rosterEntry{fmt.Sprintf("p%02d", i), roleVillager})
	}
	g := testGame(t, entries)
	g.Phase = phaseVote
	c := newCollector(g, phaseVote, 1, g.alivePlayers())

	var wg sync.WaitGroup
	for _, p := range g.Players {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := c.submit(id, ActionVote, "p00"); err != nil && id != "p00" {
				t.Errorf("submit %s: %v", id, err)
			}
		}(p.ID)
	}
	wg.Wait()

	select {
	case <-c.allIn:
	default:
		// p00 may have been rejected for self-voting; everyone else must
		// still be in.
		if submitted, _ := c.pendingCount(); submitted < 9 {
			t.Fatalf("only %d submissions landed", submitted)
		}
	}
	if actions := c.drain(); len(actions) != 10 {
		t.Fatalf("got %d actions, want 10", len(actions))
	}
}

package main

import (
	"math/rand"
	"sync"
	"time"
)

// DecisionPolicy decides a filler player's action for a phase. Fillers
// go through the same collector contract as real actors; the policy
// only replaces the human making up their mind.
type DecisionPolicy interface {
	// Decide picks an action for self given the current alive set.
	// revenge marks a pending revenge-shot mailbox rather than the
	// phase's normal action.
	Decide(phase Phase, revenge bool, self *Player, alive []*Player) (ActionKind, string)
	// Delay is how long to wait before submitting, so fillers are not
	// trivially distinguishable by instant submissions.
	Delay() time.Duration
}

// randomPolicy picks uniformly among legal targets. Each filler gets
// its own seeded source so games replay deterministically.
type randomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newRandomPolicy(seed int64) *randomPolicy {
	return &randomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (rp *randomPolicy) Delay() time.Duration {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return 500*time.Millisecond + time.Duration(rp.rng.Int63n(int64(1500*time.Millisecond)))
}

func (rp *randomPolicy) Decide(phase Phase, revenge bool, self *Player, alive []*Player) (ActionKind, string) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if revenge {
		target := rp.pick(self, alive, false)
		if target == "" {
			return ActionNone, ""
		}
		return ActionRevenge, target
	}

	switch phase {
	case phaseNight:
		kind := abilityAction(self.Role.Ability)
		if kind == ActionNone {
			return ActionNone, ""
		}
		target := rp.pick(self, alive, self.Role.SelfTarget)
		if target == "" {
			return ActionNone, ""
		}
		return kind, target
	case phaseVote:
		target := rp.pick(self, alive, false)
		if target == "" {
			return ActionAbstain, ""
		}
		return ActionVote, target
	default:
		return ActionNone, ""
	}
}

// pick chooses a random living target, excluding self unless allowed
// and excluding known packmates for wolf kills.
func (rp *randomPolicy) pick(self *Player, alive []*Player, allowSelf bool) string {
	var candidates []string
	for _, p := range alive {
		if p.ID == self.ID && !allowSelf {
			continue
		}
		if self.Role.Ability == AbilityKill && p.Role.Faction == self.Role.Faction {
			continue
		}
		candidates = append(candidates, p.ID)
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rp.rng.Intn(len(candidates))]
}

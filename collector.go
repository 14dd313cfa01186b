package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ActionKind is what an actor is trying to do this phase.
type ActionKind string

const (
	ActionKill    ActionKind = "kill"
	ActionProtect ActionKind = "protect"
	ActionInspect ActionKind = "inspect"
	ActionVote    ActionKind = "vote"
	ActionAbstain ActionKind = "abstain"
	ActionRevenge ActionKind = "revenge"
	ActionNone    ActionKind = "none"
)

// Action is one pending submission. At most one live Action exists per
// actor per phase instance; a resubmission replaces the earlier one.
type Action struct {
	Actor       string
	Kind        ActionKind
	Target      string // empty for abstain / no-op
	SubmittedAt time.Time
}

var (
	errActorNotEligible = errors.New("actor not eligible")
	errPhaseClosed      = errors.New("phase already closed")
)

// collector is the per-phase mailbox. It is the only structure in a
// game that accepts concurrent writes; everything else runs on the
// scheduler goroutine. Submissions serialize on the collector's own
// mutex, never a process-wide lock.
type collector struct {
	game    *Game
	phase   Phase
	gen     uint64 // phase generation, guards against stale deadline timers
	revenge bool   // single-actor mailbox for a dead Hunter's shot

	mu       sync.Mutex
	eligible map[string]*Player
	actions  map[string]Action
	closed   bool

	// allIn is closed once every eligible actor has a pending action,
	// waking the scheduler for an early phase close.
	allIn     chan struct{}
	allInOnce sync.Once
}

func newCollector(g *Game, phase Phase, gen uint64, eligible []*Player) *collector {
	m := make(map[string]*Player, len(eligible))
	for _, p := range eligible {
		m[p.ID] = p
	}
	return &collector{
		game:     g,
		phase:    phase,
		gen:      gen,
		eligible: m,
		actions:  make(map[string]Action, len(eligible)),
		allIn:    make(chan struct{}),
	}
}

// submit records an action for an actor, replacing any earlier one
// from the same actor in this phase instance.
func (c *collector) submit(actorID string, kind ActionKind, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errPhaseClosed
	}
	actor, ok := c.eligible[actorID]
	if !ok {
		return fmt.Errorf("%w: %s cannot act during %s", errActorNotEligible, actorID, c.phase)
	}
	if err := c.validate(actor, kind, target); err != nil {
		return err
	}

	c.actions[actorID] = Action{Actor: actorID, Kind: kind, Target: target, SubmittedAt: time.Now()}
	DebugLog("collector: %s submitted %s -> %q during %s %d", actorID, kind, target, c.phase, c.game.Round)

	if len(c.actions) == len(c.eligible) {
		c.allInOnce.Do(func() { close(c.allIn) })
	}
	return nil
}

// validate applies the phase- and role-specific eligibility rules.
// Callers hold c.mu.
func (c *collector) validate(actor *Player, kind ActionKind, target string) error {
	switch {
	case c.revenge:
		if kind != ActionRevenge {
			return fmt.Errorf("%w: only a revenge shot is pending", errActorNotEligible)
		}
	case c.phase == phaseNight:
		if kind != abilityAction(actor.Role.Ability) {
			return fmt.Errorf("%w: role %s cannot %s", errActorNotEligible, actor.Role.ID, kind)
		}
	case c.phase == phaseVote:
		if kind != ActionVote && kind != ActionAbstain {
			return fmt.Errorf("%w: %s is not a vote", errActorNotEligible, kind)
		}
		if kind == ActionAbstain {
			return nil
		}
		if target == actor.ID && !c.game.Config.AllowSelfVote {
			return fmt.Errorf("%w: self-votes are disabled", errActorNotEligible)
		}
	default:
		return fmt.Errorf("%w: no actions accepted during %s", errActorNotEligible, c.phase)
	}

	if target == "" {
		return nil
	}
	victim := c.game.playerByID(target)
	if victim == nil || !victim.Alive {
		return fmt.Errorf("%w: target %s is not a living player", errActorNotEligible, target)
	}
	if c.phase == phaseNight && !c.revenge {
		if target == actor.ID && !actor.Role.SelfTarget {
			return fmt.Errorf("%w: %s cannot target themselves", errActorNotEligible, actor.Role.ID)
		}
		if actor.Role.RepeatLimit && c.game.lastGuard[actor.ID] == target {
			return fmt.Errorf("%w: cannot protect the same player two nights running", errActorNotEligible)
		}
	}
	return nil
}

// abilityAction maps a role's night ability to the action kind it is
// allowed to submit.
func abilityAction(a Ability) ActionKind {
	switch a {
	case AbilityKill:
		return ActionKill
	case AbilityProtect:
		return ActionProtect
	case AbilityInspect:
		return ActionInspect
	case AbilityRevenge:
		return ActionRevenge
	default:
		return ActionNone
	}
}

// defaultAction is the forced-close policy for actors who never
// submitted: abstain for votes, no-op for abilities and revenge shots.
func (c *collector) defaultAction(p *Player) Action {
	if c.phase == phaseVote && !c.revenge {
		return Action{Actor: p.ID, Kind: ActionAbstain}
	}
	return Action{Actor: p.ID, Kind: ActionNone}
}

// drain closes the mailbox and returns the final action set, padding
// missing actors with the default action. It is safe to call more than
// once; later calls return nil so a stale timer cannot re-drain.
func (c *collector) drain() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	actions := make([]Action, 0, len(c.eligible))
	for id, p := range c.eligible {
		if a, ok := c.actions[id]; ok {
			actions = append(actions, a)
		} else {
			actions = append(actions, c.defaultAction(p))
		}
	}
	// Sorted by actor so the same submission set always resolves from
	// the same input ordering.
	sort.Slice(actions, func(i, j int) bool { return actions[i].Actor < actions[j].Actor })
	return actions
}

// pendingCount reports how many eligible actors have submitted.
func (c *collector) pendingCount() (submitted, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actions), len(c.eligible)
}

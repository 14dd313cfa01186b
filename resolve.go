package main

import (
	"log"
	"sort"
)

// EffectKind classifies one entry of a resolution's audit trail.
type EffectKind string

const (
	EffectEliminated     EffectKind = "eliminated"
	EffectProtected      EffectKind = "protected"
	EffectRevealed       EffectKind = "revealed"
	EffectNoLynch        EffectKind = "no_lynch"
	EffectRevengePending EffectKind = "revenge_pending"
)

// Effect is one state mutation produced by a resolution.
type Effect struct {
	Kind    EffectKind
	Player  string  // who the effect lands on; empty for no-lynch
	Actor   string  // who caused it (inspector for reveals)
	Faction Faction // revealed faction, for EffectRevealed
	Round   int
}

// ResolutionResult is the append-only record of one resolution.
type ResolutionResult struct {
	Round   int
	Phase   Phase
	Effects []Effect
}

// resolveNight applies the night's actions in ability-priority order:
// protection before kills before inspections. A protected target
// survives every kill aimed at them; duplicate kills on one target
// collapse to a single elimination. Eliminations are applied to the
// game before returning.
func resolveNight(g *Game, actions []Action) ResolutionResult {
	res := ResolutionResult{Round: g.Round, Phase: phaseNight}

	sort.SliceStable(actions, func(i, j int) bool {
		pi, pj := actionTier(g, actions[i]), actionTier(g, actions[j])
		if pi != pj {
			return pi < pj
		}
		return actions[i].Actor < actions[j].Actor
	})

	protected := make(map[string]bool)
	saved := make(map[string]bool)
	killed := make(map[string]bool)

	for _, a := range actions {
		switch a.Kind {
		case ActionProtect:
			if a.Target == "" {
				continue
			}
			protected[a.Target] = true
			actor := g.playerByID(a.Actor)
			if actor != nil && actor.Role.RepeatLimit {
				g.lastGuard[a.Actor] = a.Target
			}
		case ActionKill:
			if a.Target == "" {
				continue
			}
			if protected[a.Target] {
				if !saved[a.Target] {
					saved[a.Target] = true
					res.Effects = append(res.Effects, Effect{Kind: EffectProtected, Player: a.Target, Round: g.Round})
					log.Printf("Game %s: %s was saved from a night kill", g.ID, a.Target)
				}
				continue
			}
			if killed[a.Target] {
				continue
			}
			killed[a.Target] = true
			res.Effects = append(res.Effects, eliminate(g, a.Target, a.Actor)...)
		case ActionInspect:
			if a.Target == "" {
				continue
			}
			target := g.playerByID(a.Target)
			if target == nil {
				continue
			}
			res.Effects = append(res.Effects, Effect{
				Kind:    EffectRevealed,
				Player:  a.Target,
				Actor:   a.Actor,
				Faction: target.Role.Faction,
				Round:   g.Round,
			})
			log.Printf("Game %s: %s inspected %s (%s)", g.ID, a.Actor, a.Target, target.Role.Faction)
		}
	}

	g.History = append(g.History, res)
	return res
}

// resolveVote tallies the day's votes. The highest count is
// eliminated; a tie among the top count means no lynch, never a random
// pick. Abstentions count toward no target.
func resolveVote(g *Game, actions []Action) ResolutionResult {
	res := ResolutionResult{Round: g.Round, Phase: phaseVote}

	tally := make(map[string]int)
	for _, a := range actions {
		if a.Kind == ActionVote && a.Target != "" {
			tally[a.Target]++
		}
	}

	top, tie := "", false
	for target, n := range tally {
		switch {
		case n > tally[top]:
			top, tie = target, false
		case n == tally[top] && target != top:
			tie = true
		}
	}

	if top == "" || tie {
		res.Effects = append(res.Effects, Effect{Kind: EffectNoLynch, Round: g.Round})
		log.Printf("Game %s: vote tied or empty, no lynch this round", g.ID)
	} else {
		res.Effects = append(res.Effects, eliminate(g, top, "")...)
	}

	g.History = append(g.History, res)
	return res
}

// resolveRevenge applies a dead Hunter's shot.
func resolveRevenge(g *Game, actions []Action) ResolutionResult {
	res := ResolutionResult{Round: g.Round, Phase: g.Phase}
	for _, a := range actions {
		if a.Kind != ActionRevenge || a.Target == "" {
			continue
		}
		res.Effects = append(res.Effects, eliminate(g, a.Target, a.Actor)...)
	}
	g.History = append(g.History, res)
	return res
}

// eliminate flips a player's alive flag (true to false only, never
// back) and flags a pending revenge shot when the victim holds one.
func eliminate(g *Game, targetID, actorID string) []Effect {
	target := g.playerByID(targetID)
	if target == nil || !target.Alive {
		return nil
	}
	target.Alive = false
	log.Printf("Game %s: %s (%s) was eliminated", g.ID, target.Name, target.Role.ID)

	effects := []Effect{{Kind: EffectEliminated, Player: targetID, Actor: actorID, Round: g.Round}}
	if target.Role.Ability == AbilityRevenge {
		effects = append(effects, Effect{Kind: EffectRevengePending, Player: targetID, Round: g.Round})
	}
	return effects
}

// actionTier orders night actions by the acting role's priority tier.
func actionTier(g *Game, a Action) int {
	p := g.playerByID(a.Actor)
	if p == nil {
		return int(^uint(0) >> 1)
	}
	return p.Role.Priority
}

// pendingRevenge returns the players owed a revenge shot by a result.
func pendingRevenge(g *Game, res ResolutionResult) []*Player {
	var due []*Player
	for _, e := range res.Effects {
		if e.Kind != EffectRevengePending {
			continue
		}
		if p := g.playerByID(e.Player); p != nil {
			due = append(due, p)
		}
	}
	return due
}

package main

import (
	"errors"
	"fmt"
)

// Faction groups roles that share a win condition.
type Faction string

const (
	FactionVillage Faction = "village"
	FactionWolves  Faction = "wolves"
)

// Ability is what a role can do. Night abilities resolve by priority
// tier; AbilityRevenge fires outside the normal night order, when its
// holder is eliminated.
type Ability string

const (
	AbilityNone    Ability = "none"
	AbilityKill    Ability = "kill"
	AbilityProtect Ability = "protect"
	AbilityInspect Ability = "inspect"
	AbilityRevenge Ability = "revenge"
)

// Resolution priority tiers. Lower resolves first, zero means the role
// takes no night action. The engine only reads these numbers, so new
// roles slot in without touching resolution code.
const (
	tierProtect = 1
	tierKill    = 2
	tierInspect = 3
)

// Role is immutable catalog data shared read-only by all games.
type Role struct {
	ID          string
	Name        string
	Faction     Faction
	Ability     Ability
	Targets     int // targeting arity of the ability
	Priority    int // night resolution tier, 0 = no night action
	SelfTarget  bool
	RepeatLimit bool // may not target the same player two nights running
}

var (
	roleWerewolf = Role{ID: "werewolf", Name: "Werewolf", Faction: FactionWolves, Ability: AbilityKill, Targets: 1, Priority: tierKill, SelfTarget: false}
	roleVillager = Role{ID: "villager", Name: "Villager", Faction: FactionVillage, Ability: AbilityNone}
	roleSeer     = Role{ID: "seer", Name: "Seer", Faction: FactionVillage, Ability: AbilityInspect, Targets: 1, Priority: tierInspect, SelfTarget: false}
	roleDoctor   = Role{ID: "doctor", Name: "Doctor", Faction: FactionVillage, Ability: AbilityProtect, Targets: 1, Priority: tierProtect, SelfTarget: true}
	roleGuard    = Role{ID: "guard", Name: "Guard", Faction: FactionVillage, Ability: AbilityProtect, Targets: 1, Priority: tierProtect, SelfTarget: false, RepeatLimit: true}
	roleHunter   = Role{ID: "hunter", Name: "Hunter", Faction: FactionVillage, Ability: AbilityRevenge, Targets: 1}
)

var roleCatalog = []Role{roleWerewolf, roleVillager, roleSeer, roleDoctor, roleGuard, roleHunter}

func roleByID(id string) (Role, bool) {
	for _, r := range roleCatalog {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// roleBracket fixes the special-role counts for a half-open player
// count range [Min, Max). The villager count is the remainder.
type roleBracket struct {
	Min, Max int
	Counts   map[string]int
}

var roleBrackets = []roleBracket{
	{Min: 5, Max: 7, Counts: map[string]int{"werewolf": 1, "seer": 1, "doctor": 1}},
	{Min: 7, Max: 9, Counts: map[string]int{"werewolf": 2, "seer": 1, "doctor": 1}},
	{Min: 9, Max: 12, Counts: map[string]int{"werewolf": 2, "seer": 1, "doctor": 1, "guard": 1, "hunter": 1}},
	{Min: 12, Max: 16, Counts: map[string]int{"werewolf": 3, "seer": 1, "doctor": 1, "guard": 1, "hunter": 1}},
}

var errUnsupportedPlayerCount = errors.New("unsupported player count")

// countsForSize derives the full role-count vector for a roster of n
// players. The returned map always sums to n.
func countsForSize(n int) (map[string]int, error) {
	for _, b := range roleBrackets {
		if n < b.Min || n >= b.Max {
			continue
		}
		counts := make(map[string]int, len(b.Counts)+1)
		special := 0
		for id, c := range b.Counts {
			counts[id] = c
			special += c
		}
		counts["villager"] = n - special
		return counts, nil
	}
	return nil, fmt.Errorf("%w: %d", errUnsupportedPlayerCount, n)
}

// validateCatalog proves at startup that every supported roster size
// maps to a consistent count vector, so misconfiguration surfaces
// before any game starts.
func validateCatalog(minPlayers, maxPlayers int) error {
	for n := minPlayers; n <= maxPlayers; n++ {
		counts, err := countsForSize(n)
		if err != nil {
			return fmt.Errorf("no role bracket covers %d players: %w", n, err)
		}
		sum := 0
		for id, c := range counts {
			if _, ok := roleByID(id); !ok {
				return fmt.Errorf("bracket for %d players references unknown role %q", n, id)
			}
			if c < 0 {
				return fmt.Errorf("bracket for %d players yields negative count for %q", n, id)
			}
			sum += c
		}
		if sum != n {
			return fmt.Errorf("bracket for %d players sums to %d", n, sum)
		}
	}
	return nil
}

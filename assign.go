package main

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
)

// dealRoles derives the role-count vector for the roster size and
// assigns a role to every player by zipping the (already shuffled)
// roster against a shuffled expansion of the vector. The assignment is
// final for the game's lifetime.
func dealRoles(players []*Player, rng *rand.Rand) error {
	counts, err := countsForSize(len(players))
	if err != nil {
		return err
	}

	pool := expandCounts(counts)
	if len(pool) != len(players) {
		// validateCatalog runs at startup, so this is a programming
		// error rather than a configuration one.
		return fmt.Errorf("role pool size %d does not match roster size %d", len(pool), len(players))
	}

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	for i, p := range players {
		p.Role = pool[i]
		log.Printf("Dealt role %s to %s", p.Role.ID, p.Name)
	}
	return nil
}

// expandCounts repeats each role per its count, in stable role-id
// order so the only randomness in a deal is the shuffle.
func expandCounts(counts map[string]int) []Role {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var pool []Role
	for _, id := range ids {
		role, ok := roleByID(id)
		if !ok {
			continue // validateCatalog rejects unknown ids at startup
		}
		for i := 0; i < counts[id]; i++ {
			pool = append(pool, role)
		}
	}
	return pool
}

package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
)

// Actor is a joined participant as reported by the platform layer.
type Actor struct {
	ID   string
	Name string
}

var (
	errInsufficientPlayers = errors.New("not enough players")
	errFillerPoolExhausted = errors.New("filler name pool exhausted")
)

// buildRoster turns the joined lobby into a finalized, shuffled player
// list. If the lobby is short and filler is enabled, synthetic players
// are added up to the minimum, each driven by its own decision policy.
// The shuffle uses the game's seeded rng so a deal can be replayed.
func buildRoster(joined []Actor, cfg GameConfig, rng *rand.Rand) ([]*Player, error) {
	if len(joined) > cfg.MaxPlayers {
		return nil, fmt.Errorf("%w: %d joined, maximum is %d", errUnsupportedPlayerCount, len(joined), cfg.MaxPlayers)
	}

	players := make([]*Player, 0, cfg.MinPlayers)
	for _, a := range joined {
		players = append(players, &Player{ID: a.ID, Name: a.Name, Alive: true})
	}

	if deficit := cfg.MinPlayers - len(players); deficit > 0 {
		if !cfg.FillerEnabled {
			return nil, fmt.Errorf("%w: %d joined, need %d", errInsufficientPlayers, len(joined), cfg.MinPlayers)
		}
		fillers, err := makeFillers(deficit, cfg.FillerNames, rng)
		if err != nil {
			return nil, err
		}
		players = append(players, fillers...)
		log.Printf("Roster padded with %d filler players (%d real joiners)", deficit, len(joined))
	}

	rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
	return players, nil
}

// makeFillers draws unique names from the pool without replacement.
func makeFillers(n int, pool []string, rng *rand.Rand) ([]*Player, error) {
	if len(pool) < n {
		return nil, fmt.Errorf("%w: need %d names, pool has %d", errFillerPoolExhausted, n, len(pool))
	}

	names := make([]string, len(pool))
	copy(names, pool)
	rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	fillers := make([]*Player, 0, n)
	for _, name := range names[:n] {
		fillers = append(fillers, &Player{
			ID:       "filler:" + name,
			Name:     name,
			Alive:    true,
			IsFiller: true,
			Policy:   newRandomPolicy(rng.Int63()),
		})
	}
	return fillers, nil
}

package main

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// Phase is the current stage of a running game.
type Phase string

const (
	phaseLobby    Phase = "lobby"
	phaseNight    Phase = "night"
	phaseDay      Phase = "day"
	phaseVote     Phase = "vote"
	phaseResolved Phase = "resolved"
	phaseAborted  Phase = "aborted"
)

// phaseTransitions lists the legal forward edges of the game state
// machine. Aborted is reachable from any non-terminal phase and is
// handled separately in transition().
var phaseTransitions = map[Phase][]Phase{
	phaseLobby: {phaseNight},
	phaseNight: {phaseDay, phaseResolved},
	phaseDay:   {phaseVote},
	phaseVote:  {phaseNight, phaseResolved},
}

func (p Phase) canTransitionTo(target Phase) bool {
	if target == phaseAborted {
		return !p.terminal()
	}
	for _, next := range phaseTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

func (p Phase) terminal() bool {
	return p == phaseResolved || p == phaseAborted
}

// Player is one participant in a single game. Players are owned by the
// game that created them and are only touched from its scheduler
// goroutine after the lobby closes.
type Player struct {
	ID       string // platform actor id, or synthetic id for fillers
	Name     string
	Role     Role
	Alive    bool
	IsFiller bool
	Policy   DecisionPolicy // nil for real actors
}

// GameConfig is the per-game snapshot of the relevant server settings.
// It is copied at game creation so later config changes never touch a
// running game.
type GameConfig struct {
	MinPlayers int
	MaxPlayers int

	LobbyWait   time.Duration
	NightWait   time.Duration
	DayWait     time.Duration
	VoteWait    time.Duration
	RevengeWait time.Duration

	FillerEnabled bool
	FillerNames   []string

	AllowSelfVote bool
}

func (cfg AppConfig) gameConfig() GameConfig {
	return GameConfig{
		MinPlayers:    cfg.MinPlayers,
		MaxPlayers:    cfg.MaxPlayers,
		LobbyWait:     time.Duration(cfg.LobbySeconds) * time.Second,
		NightWait:     time.Duration(cfg.NightSeconds) * time.Second,
		DayWait:       time.Duration(cfg.DaySeconds) * time.Second,
		VoteWait:      time.Duration(cfg.VoteSeconds) * time.Second,
		RevengeWait:   time.Duration(cfg.RevengeSeconds) * time.Second,
		FillerEnabled: cfg.FillerEnabled,
		FillerNames:   cfg.fillerNamePool(),
		AllowSelfVote: cfg.AllowSelfVote,
	}
}

// Game holds all state for one match. Only its scheduler goroutine
// mutates it once the game has started.
type Game struct {
	ID      string
	LobbyID string
	Phase   Phase
	Players []*Player
	Round   int
	Config  GameConfig
	Seed    int64

	// History is the append-only audit trail of every resolution.
	History []ResolutionResult

	// lastGuard maps a protector's id to the target they guarded last
	// night, for roles that may not repeat a target.
	lastGuard map[string]string

	rng *rand.Rand
}

func newGame(id, lobbyID string, cfg GameConfig) *Game {
	seed := seedFromID(id)
	return &Game{
		ID:        id,
		LobbyID:   lobbyID,
		Phase:     phaseLobby,
		Config:    cfg,
		Seed:      seed,
		lastGuard: make(map[string]string),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// seedFromID derives the per-game shuffle seed from the game id so a
// round can be reconstructed from the logs.
func seedFromID(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}

func (g *Game) playerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) alivePlayers() []*Player {
	var alive []*Player
	for _, p := range g.Players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	return alive
}

// nightActors returns the alive players whose role acts at night.
func (g *Game) nightActors() []*Player {
	var actors []*Player
	for _, p := range g.Players {
		if p.Alive && p.Role.Priority > 0 {
			actors = append(actors, p)
		}
	}
	return actors
}

func (g *Game) aliveByFaction() map[Faction]int {
	counts := make(map[Faction]int)
	for _, p := range g.Players {
		if p.Alive {
			counts[p.Role.Faction]++
		}
	}
	return counts
}

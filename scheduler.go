package main

import (
	"log"
	"sync"
	"time"
)

// Notifier receives the engine's outbound events. The engine emits
// structured facts only; rendering them into user-visible text is the
// platform layer's problem.
type Notifier interface {
	PhaseChanged(gameID string, phase Phase, round int)
	Resolution(gameID string, res ResolutionResult)
	Reveal(gameID, actorID string, eff Effect)
	VerdictReached(gameID string, v Verdict)
	GameFailed(gameID string, err error)
}

// RosterSource lists the actors joined to a lobby, supplied by the
// platform layer.
type RosterSource interface {
	ListJoinedActors(lobbyID string) []Actor
}

// scheduler owns one game's full lifecycle on its own goroutine.
// Nothing outside this file mutates the game after the lobby closes;
// external inputs arrive through Submit, StartNow and Abort only.
type scheduler struct {
	game     *Game
	reg      *registry
	roster   RosterSource
	notifier Notifier
	res      *resourceManager
	store    *Store // nil disables result persistence

	mu  sync.Mutex
	cur *collector
	gen uint64

	abort     chan struct{}
	abortOnce sync.Once
	startNow  chan struct{}
	startOnce sync.Once
	done      chan struct{}
}

func newScheduler(game *Game, reg *registry, roster RosterSource, provider ChannelProvider, notifier Notifier, store *Store) *scheduler {
	return &scheduler{
		game:     game,
		reg:      reg,
		roster:   roster,
		notifier: notifier,
		res:      newResourceManager(provider, store),
		store:    store,
		abort:    make(chan struct{}),
		startNow: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// start registers the scheduler and launches its goroutine. The
// registry refuses a second instance for the same game id.
func (s *scheduler) start() error {
	if err := s.reg.add(s); err != nil {
		return err
	}
	go s.run()
	return nil
}

// Submit routes an actor's action to the current phase's collector.
// Safe to call from any goroutine.
func (s *scheduler) Submit(actorID string, kind ActionKind, target string) error {
	s.mu.Lock()
	c := s.cur
	s.mu.Unlock()
	if c == nil {
		return errPhaseClosed
	}
	return c.submit(actorID, kind, target)
}

// Abort is the externally pushed abort condition (the room emptied
// out). It preempts whatever the scheduler is waiting on.
func (s *scheduler) Abort() {
	s.abortOnce.Do(func() { close(s.abort) })
}

// StartNow is the manual lobby override.
func (s *scheduler) StartNow() {
	s.startOnce.Do(func() { close(s.startNow) })
}

// Done is closed once the game has reached a terminal state and all
// cleanup has run.
func (s *scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *scheduler) run() {
	defer close(s.done)
	defer s.reg.remove(s.game.ID)

	g := s.game
	cfg := g.Config
	log.Printf("Game %s: lobby open in %s (seed %d)", g.ID, g.LobbyID, g.Seed)

	if s.waitLobby(cfg.LobbyWait) {
		s.finishAborted()
		return
	}

	joined := s.roster.ListJoinedActors(g.LobbyID)
	players, err := buildRoster(joined, cfg, g.rng)
	if err != nil {
		logError("scheduler: buildRoster", err)
		s.notifier.GameFailed(g.ID, err)
		s.finishAborted() // nothing provisioned yet, teardown is a no-op
		return
	}
	g.Players = players

	if err := dealRoles(g.Players, g.rng); err != nil {
		logError("scheduler: dealRoles", err)
		s.notifier.GameFailed(g.ID, err)
		s.finishAborted()
		return
	}

	// Channels are provisioned exactly once, before any collector
	// opens; failure means the game never enters Night.
	if err := s.res.provision(g.ID); err != nil {
		logError("scheduler: provision", err)
		s.notifier.GameFailed(g.ID, err)
		s.finishAborted()
		return
	}

	for {
		g.Round++

		s.transition(phaseNight)
		c := s.openPhase(phaseNight, g.nightActors(), false)
		if s.waitPhase(c, cfg.NightWait) {
			s.finishAborted()
			return
		}
		res := resolveNight(g, s.closePhase(c))
		s.publish(res)
		if s.runRevengeChain(res) {
			s.finishAborted()
			return
		}
		if v := evaluateWin(g); v.terminal() {
			s.finishResolved(v)
			return
		}

		s.transition(phaseDay)
		if s.waitTimer(cfg.DayWait) {
			s.finishAborted()
			return
		}

		s.transition(phaseVote)
		c = s.openPhase(phaseVote, g.alivePlayers(), false)
		if s.waitPhase(c, cfg.VoteWait) {
			s.finishAborted()
			return
		}
		res = resolveVote(g, s.closePhase(c))
		s.publish(res)
		if s.runRevengeChain(res) {
			s.finishAborted()
			return
		}
		if v := evaluateWin(g); v.terminal() {
			s.finishResolved(v)
			return
		}
	}
}

// transition moves the game to the next phase and announces it.
func (s *scheduler) transition(to Phase) {
	if !s.game.Phase.canTransitionTo(to) {
		log.Printf("Game %s: refusing illegal transition %s -> %s", s.game.ID, s.game.Phase, to)
		return
	}
	DebugLog("scheduler: game %s %s -> %s (round %d)", s.game.ID, s.game.Phase, to, s.game.Round)
	s.game.Phase = to
	s.notifier.PhaseChanged(s.game.ID, to, s.game.Round)
}

// openPhase installs a fresh collector for the given actors and kicks
// off filler submissions. The generation counter makes any reference
// to an earlier phase's collector inert.
func (s *scheduler) openPhase(phase Phase, eligible []*Player, revenge bool) *collector {
	s.mu.Lock()
	s.gen++
	c := newCollector(s.game, phase, s.gen, eligible)
	c.revenge = revenge
	s.cur = c
	s.mu.Unlock()

	alive := s.game.alivePlayers()
	for _, p := range eligible {
		if p.IsFiller && p.Policy != nil {
			go s.runFiller(c, p, alive)
		}
	}
	return c
}

// closePhase detaches and drains the collector. Submissions arriving
// afterwards get errPhaseClosed.
func (s *scheduler) closePhase(c *collector) []Action {
	s.mu.Lock()
	if s.cur == c {
		s.cur = nil
	}
	s.mu.Unlock()
	return c.drain()
}

// runFiller submits a filler's decision through the same collector
// contract real actors use, after the policy's small delay.
func (s *scheduler) runFiller(c *collector, p *Player, alive []*Player) {
	t := time.NewTimer(p.Policy.Delay())
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.abort:
		return
	}

	kind, target := p.Policy.Decide(c.phase, c.revenge, p, alive)
	if err := c.submit(p.ID, kind, target); err != nil {
		DebugLog("scheduler: filler %s submission dropped: %v", p.ID, err)
	}
}

// waitPhase blocks until every eligible actor has submitted, the phase
// deadline elapses, or the abort signal fires. The timer dies with
// this call, so it can never outlive the phase it belongs to.
func (s *scheduler) waitPhase(c *collector, d time.Duration) (aborted bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.allIn:
		DebugLog("scheduler: game %s %s closed early, all %d actors in", s.game.ID, c.phase, len(c.eligible))
		return false
	case <-t.C:
		submitted, total := c.pendingCount()
		DebugLog("scheduler: game %s %s deadline, %d/%d submitted", s.game.ID, c.phase, submitted, total)
		return false
	case <-s.abort:
		return true
	}
}

func (s *scheduler) waitTimer(d time.Duration) (aborted bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-s.abort:
		return true
	}
}

func (s *scheduler) waitLobby(d time.Duration) (aborted bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-s.startNow:
		return false
	case <-s.abort:
		return true
	}
}

// runRevengeChain opens a single-actor mailbox for each pending
// revenge shot, chaining when a shot kills another revenge holder.
func (s *scheduler) runRevengeChain(res ResolutionResult) (aborted bool) {
	due := pendingRevenge(s.game, res)
	for len(due) > 0 {
		hunter := due[0]
		due = due[1:]

		c := s.openPhase(s.game.Phase, []*Player{hunter}, true)
		if s.waitPhase(c, s.game.Config.RevengeWait) {
			return true
		}
		shot := resolveRevenge(s.game, s.closePhase(c))
		s.publish(shot)
		due = append(due, pendingRevenge(s.game, shot)...)
	}
	return false
}

// publish fans a resolution out: reveals go only to the inspecting
// actor, everything else is broadcast.
func (s *scheduler) publish(res ResolutionResult) {
	public := ResolutionResult{Round: res.Round, Phase: res.Phase}
	for _, e := range res.Effects {
		if e.Kind == EffectRevealed {
			s.notifier.Reveal(s.game.ID, e.Actor, e)
			continue
		}
		public.Effects = append(public.Effects, e)
	}
	s.notifier.Resolution(s.game.ID, public)
}

func (s *scheduler) finishResolved(v Verdict) {
	s.transition(phaseResolved)
	s.notifier.VerdictReached(s.game.ID, v)
	s.res.teardown()

	if s.store != nil {
		// Fire and forget; the game is terminal whether or not the
		// record lands.
		g, store := s.game, s.store
		go func() {
			if err := store.recordGameResult(g, v); err != nil {
				logError("scheduler: recordGameResult", err)
			}
		}()
	}
	log.Printf("Game %s: resolved, %s %s", s.game.ID, v.Kind, v.Faction)
}

func (s *scheduler) finishAborted() {
	s.transition(phaseAborted)
	s.res.teardown()
	log.Printf("Game %s: aborted", s.game.ID)
}

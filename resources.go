package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// ResourceHandle references the externally provisioned communication
// channels of one game. Opaque to the engine; only the provider knows
// what the channel ids mean.
type ResourceHandle struct {
	GameID   string
	Channels []string
}

// ChannelProvider provisions and releases a game's ephemeral channels.
// Supplied by the platform layer; the engine never assumes a call
// succeeds.
type ChannelProvider interface {
	Provision(ctx context.Context, gameID string) (ResourceHandle, error)
	Teardown(ctx context.Context, handle ResourceHandle) error
}

// External resource calls carry their own timeouts and bounded retry,
// separate from phase deadlines, so a slow platform API cannot stall
// gameplay pacing.
const (
	provisionTimeout = 10 * time.Second
	teardownTimeout  = 10 * time.Second
	teardownAttempts = 3
	teardownBackoff  = time.Second
)

// resourceManager owns one game's ResourceHandle. Provisioning runs
// once at the Lobby to Night transition; teardown runs exactly once no
// matter which terminal path fires first.
type resourceManager struct {
	provider ChannelProvider
	store    *Store // nil in tests without persistence

	backoff time.Duration

	mu          sync.Mutex
	handle      ResourceHandle
	provisioned bool
	torn        bool
}

func newResourceManager(provider ChannelProvider, store *Store) *resourceManager {
	return &resourceManager{provider: provider, store: store, backoff: teardownBackoff}
}

// provision requests the game's channels. On failure the game must
// abort before ever entering Night; any partially provisioned handle
// is released best-effort.
func (m *resourceManager) provision(gameID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()

	handle, err := m.provider.Provision(ctx, gameID)
	if err != nil {
		if len(handle.Channels) > 0 {
			// Partial provisioning still needs releasing.
			m.release(handle)
		}
		return err
	}

	m.mu.Lock()
	m.handle = handle
	m.provisioned = true
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.markProvisioned(handle); err != nil {
			logError("resourceManager.provision: markProvisioned", err)
		}
	}
	log.Printf("Game %s: provisioned %d channels", gameID, len(handle.Channels))
	return nil
}

// teardown releases the game's channels at most once. Safe to call
// from the normal end, the abort path, and crash reconciliation; only
// the first caller does the work.
func (m *resourceManager) teardown() {
	m.mu.Lock()
	if m.torn || !m.provisioned {
		m.torn = true
		m.mu.Unlock()
		return
	}
	m.torn = true
	handle := m.handle
	m.mu.Unlock()

	m.release(handle)

	if m.store != nil {
		if err := m.store.clearProvisioned(handle.GameID); err != nil {
			logError("resourceManager.teardown: clearProvisioned", err)
		}
	}
}

// release calls the provider with bounded retry and backoff. Failures
// are logged and never re-raised; the game is already terminal by the
// time teardown runs.
func (m *resourceManager) release(handle ResourceHandle) {
	backoff := m.backoff
	for attempt := 1; attempt <= teardownAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		err := m.provider.Teardown(ctx, handle)
		cancel()
		if err == nil {
			log.Printf("Game %s: channels released", handle.GameID)
			return
		}
		logError("resourceManager.release", err)
		if attempt < teardownAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	log.Printf("WARNING: game %s channels orphaned after %d teardown attempts, manual cleanup needed: %v",
		handle.GameID, teardownAttempts, handle.Channels)
}

// reconcileOrphans force-tears-down channels that are still marked
// provisioned from a previous process, discovered at startup. A crash
// mid-game is an implicit abort; the channels must not leak.
func reconcileOrphans(store *Store, provider ChannelProvider) {
	handles, err := store.listProvisioned()
	if err != nil {
		logError("reconcileOrphans: listProvisioned", err)
		return
	}
	for _, h := range handles {
		log.Printf("Reconcile: game %s has orphaned channels from a previous run, releasing", h.GameID)
		m := newResourceManager(provider, store)
		m.handle = h
		m.provisioned = true
		m.teardown()
	}
}

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func addClient(h *Hub, actorID, name, lobbyID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[&websocket.Conn{}] = &Client{conn: &websocket.Conn{}, actorID: actorID, name: name, lobbyID: lobbyID}
}

func TestHubListJoinedActors(t *testing.T) {
	h := newHub(newRegistry(), nil, testConfig())
	addClient(h, "a", "Alice", "l1")
	addClient(h, "b", "Bob", "l1")
	addClient(h, "a", "Alice", "l1") // second connection, same actor
	addClient(h, "c", "Cara", "l2")

	actors := h.ListJoinedActors("l1")
	if len(actors) != 2 {
		t.Fatalf("got %d actors, want 2 after dedup", len(actors))
	}
	for _, a := range actors {
		if a.ID == "c" {
			t.Fatal("actor from another lobby listed")
		}
	}
}

func TestHubChannelProvider(t *testing.T) {
	h := newHub(newRegistry(), nil, testConfig())

	handle, err := h.Provision(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"village:g1", "wolves:g1"}
	if len(handle.Channels) != 2 || handle.Channels[0] != want[0] || handle.Channels[1] != want[1] {
		t.Fatalf("channels = %v, want %v", handle.Channels, want)
	}
	h.chanMu.Lock()
	_, held := h.channels["g1"]
	h.chanMu.Unlock()
	if !held {
		t.Fatal("provisioned channels not tracked")
	}

	if err := h.Teardown(context.Background(), handle); err != nil {
		t.Fatal(err)
	}
	h.chanMu.Lock()
	_, held = h.channels["g1"]
	h.chanMu.Unlock()
	if held {
		t.Fatal("channels still tracked after teardown")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Provision(cancelled, "g2"); err == nil {
		t.Fatal("provision succeeded with a dead context")
	}
}

func TestHubOneGamePerLobby(t *testing.T) {
	cfg := testConfig()
	cfg.LobbyWait = 5 * time.Second
	reg := newRegistry()
	h := newHub(reg, nil, cfg)

	id, err := h.startGame("l1")
	if err != nil {
		t.Fatal(err)
	}
	if h.lobbyFor(id) != "l1" {
		t.Fatalf("lobbyFor(%s) = %q", id, h.lobbyFor(id))
	}

	if _, err := h.startGame("l1"); !errors.Is(err, errGameExists) {
		t.Fatalf("second game err = %v, want errGameExists", err)
	}

	sched, ok := reg.lookup(id)
	if !ok {
		t.Fatal("started game not in registry")
	}
	sched.Abort()
	select {
	case <-sched.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("aborted game never finished")
	}

	// The lobby index is cleared asynchronously once the game ends.
	deadline := time.Now().Add(2 * time.Second)
	for h.lobbyFor(id) != "" {
		if time.Now().After(deadline) {
			t.Fatal("lobby index still holds the finished game")
		}
		time.Sleep(5 * time.Millisecond)
	}

	id2, err := h.startGame("l1")
	if err != nil {
		t.Fatalf("lobby not reusable after its game ended: %v", err)
	}
	if sched, ok := reg.lookup(id2); ok {
		sched.Abort()
		<-sched.Done()
	}
}

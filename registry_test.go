package main

import (
	"errors"
	"testing"
)

func stubScheduler(gameID, lobbyID string) *scheduler {
	return &scheduler{game: newGame(gameID, lobbyID, testConfig())}
}

func TestRegistryAddLookupRemove(t *testing.T) {
	reg := newRegistry()
	s := stubScheduler("g1", "l1")

	if err := reg.add(s); err != nil {
		t.Fatal(err)
	}
	if got, ok := reg.lookup("g1"); !ok || got != s {
		t.Fatal("lookup after add failed")
	}
	if reg.count() != 1 {
		t.Fatalf("count = %d, want 1", reg.count())
	}

	reg.remove("g1")
	if _, ok := reg.lookup("g1"); ok {
		t.Fatal("lookup found a removed game")
	}
	if reg.count() != 0 {
		t.Fatalf("count = %d, want 0", reg.count())
	}
}

func TestRegistryRefusesDuplicateID(t *testing.T) {
	reg := newRegistry()
	if err := reg.add(stubScheduler("g1", "l1")); err != nil {
		t.Fatal(err)
	}
	if err := reg.add(stubScheduler("g1", "l2")); !errors.Is(err, errGameExists) {
		t.Fatalf("err = %v, want errGameExists", err)
	}
}

func TestRegistryByLobby(t *testing.T) {
	reg := newRegistry()
	s1 := stubScheduler("g1", "l1")
	s2 := stubScheduler("g2", "l2")
	reg.add(s1)
	reg.add(s2)

	if got, ok := reg.byLobby("l2"); !ok || got != s2 {
		t.Fatal("byLobby did not find the lobby's game")
	}
	if _, ok := reg.byLobby("l3"); ok {
		t.Fatal("byLobby found a game for an empty lobby")
	}
}

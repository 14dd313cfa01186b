package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSMessage is an inbound client message.
type WSMessage struct {
	Action string `json:"action"`           // new_game | start | submit
	Kind   string `json:"kind,omitempty"`   // action kind for submit
	Target string `json:"target,omitempty"` // target actor id
}

// WSEvent is an outbound engine event rendered as JSON. The engine
// hands the hub structured facts; clients do their own presentation.
type WSEvent struct {
	Event   string   `json:"event"` // phase | resolution | reveal | verdict | toast | story | game_failed
	GameID  string   `json:"game_id,omitempty"`
	Phase   Phase    `json:"phase,omitempty"`
	Round   int      `json:"round,omitempty"`
	Effects []Effect `json:"effects,omitempty"`
	Effect  *Effect  `json:"effect,omitempty"`
	Verdict *Verdict `json:"verdict,omitempty"`
	Message string   `json:"message,omitempty"`
	Chunk   string   `json:"chunk,omitempty"`
}

// Client is one websocket connection with its platform identity. The
// layer in front of the hub authenticates actors; the hub trusts the
// ids it is handed.
type Client struct {
	conn    *websocket.Conn
	actorID string
	name    string
	lobbyID string
	writeMu sync.Mutex // serialize writes, required by gorilla/websocket
}

// Hub is the platform boundary: it tracks connected actors per lobby,
// forwards their submissions into the engine, and renders engine
// events back out. It also implements the roster-source and
// channel-provider contracts.
type Hub struct {
	reg     *registry
	store   *Store
	gameCfg GameConfig

	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup

	// channels stands in for the chat platform's ephemeral channel
	// API: topics exist only while a game holds them.
	chanMu   sync.Mutex
	channels map[string][]string // gameID -> channel topics

	lobbyMu sync.Mutex
	lobbies map[string]string // gameID -> lobbyID
}

func newHub(reg *registry, store *Store, gameCfg GameConfig) *Hub {
	return &Hub{
		reg:        reg,
		store:      store,
		gameCfg:    gameCfg,
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
		channels:   make(map[string][]string),
		lobbies:    make(map[string]string),
	}
}

// stop signals the hub goroutine to exit and waits for it to finish.
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

func (h *Hub) run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("Actor %s (%s) connected to lobby %s. Total: %d", client.actorID, client.name, client.lobbyID, total)

			// Manual-start override once the lobby is full.
			if len(h.ListJoinedActors(client.lobbyID)) >= h.gameCfg.MaxPlayers {
				if sched, ok := h.reg.byLobby(client.lobbyID); ok {
					sched.StartNow()
				}
			}

		case conn := <-h.unregister:
			var emptied string
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				emptied = client.lobbyID
				for _, c := range h.clients {
					if c.lobbyID == client.lobbyID {
						emptied = ""
						break
					}
				}
				log.Printf("Actor %s disconnected from lobby %s. Total: %d", client.actorID, client.lobbyID, len(h.clients))
			}
			h.mu.Unlock()

			// An emptied room is the abort condition, pushed into the
			// scheduler rather than polled.
			if emptied != "" {
				if sched, ok := h.reg.byLobby(emptied); ok {
					log.Printf("Lobby %s emptied, aborting its game", emptied)
					sched.Abort()
				}
			}
		}
	}
}

// ListJoinedActors implements the roster-source contract.
func (h *Hub) ListJoinedActors(lobbyID string) []Actor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var actors []Actor
	for _, c := range h.clients {
		if c.lobbyID == lobbyID && !seen[c.actorID] {
			seen[c.actorID] = true
			actors = append(actors, Actor{ID: c.actorID, Name: c.name})
		}
	}
	return actors
}

// startGame creates and registers a new game for a lobby.
func (h *Hub) startGame(lobbyID string) (string, error) {
	if _, ok := h.reg.byLobby(lobbyID); ok {
		return "", fmt.Errorf("%w: lobby %s", errGameExists, lobbyID)
	}

	game := newGame(uuid.NewString(), lobbyID, h.gameCfg)
	sched := newScheduler(game, h.reg, h, h, h, h.store)

	h.lobbyMu.Lock()
	h.lobbies[game.ID] = lobbyID
	h.lobbyMu.Unlock()

	if err := sched.start(); err != nil {
		h.lobbyMu.Lock()
		delete(h.lobbies, game.ID)
		h.lobbyMu.Unlock()
		return "", err
	}
	go func() {
		<-sched.Done()
		h.lobbyMu.Lock()
		delete(h.lobbies, game.ID)
		h.lobbyMu.Unlock()
	}()

	log.Printf("Game %s created for lobby %s", game.ID, lobbyID)
	return game.ID, nil
}

func (h *Hub) lobbyFor(gameID string) string {
	h.lobbyMu.Lock()
	defer h.lobbyMu.Unlock()
	return h.lobbies[gameID]
}

// Provision implements the channel-provider contract by allocating
// per-game channel topics.
func (h *Hub) Provision(ctx context.Context, gameID string) (ResourceHandle, error) {
	if err := ctx.Err(); err != nil {
		return ResourceHandle{}, err
	}
	handle := ResourceHandle{
		GameID:   gameID,
		Channels: []string{"village:" + gameID, "wolves:" + gameID},
	}
	h.chanMu.Lock()
	h.channels[gameID] = handle.Channels
	h.chanMu.Unlock()
	return handle, nil
}

// Teardown releases a game's channel topics.
func (h *Hub) Teardown(ctx context.Context, handle ResourceHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.chanMu.Lock()
	delete(h.channels, handle.GameID)
	h.chanMu.Unlock()
	return nil
}

// Notifier implementation: engine events fan out to the lobby.

func (h *Hub) PhaseChanged(gameID string, phase Phase, round int) {
	h.sendToLobby(h.lobbyFor(gameID), WSEvent{Event: "phase", GameID: gameID, Phase: phase, Round: round})
}

func (h *Hub) Resolution(gameID string, res ResolutionResult) {
	h.sendToLobby(h.lobbyFor(gameID), WSEvent{Event: "resolution", GameID: gameID, Phase: res.Phase, Round: res.Round, Effects: res.Effects})
	maybeNarrate(h, gameID, res)
}

func (h *Hub) Reveal(gameID, actorID string, eff Effect) {
	h.sendToActor(actorID, WSEvent{Event: "reveal", GameID: gameID, Effect: &eff, Round: eff.Round})
}

func (h *Hub) VerdictReached(gameID string, v Verdict) {
	h.sendToLobby(h.lobbyFor(gameID), WSEvent{Event: "verdict", GameID: gameID, Verdict: &v})
}

func (h *Hub) GameFailed(gameID string, err error) {
	h.sendToLobby(h.lobbyFor(gameID), WSEvent{Event: "game_failed", GameID: gameID, Message: err.Error()})
}

func (h *Hub) sendToLobby(lobbyID string, event WSEvent) {
	if lobbyID == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logError("hub.sendToLobby: marshal", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.lobbyID != lobbyID {
			continue
		}
		h.write(client, payload)
	}
}

func (h *Hub) sendToActor(actorID string, event WSEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logError("hub.sendToActor: marshal", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.actorID == actorID {
			h.write(client, payload)
		}
	}
}

func (h *Hub) write(client *Client, payload []byte) {
	LogWSMessage("OUT", client.actorID, string(payload))
	client.writeMu.Lock()
	err := client.conn.WriteMessage(websocket.TextMessage, payload)
	client.writeMu.Unlock()
	if err != nil {
		log.Printf("WebSocket write error to actor %s: %v", client.actorID, err)
	}
}

// handleWSMessage dispatches one inbound client message.
func (h *Hub) handleWSMessage(client *Client, raw []byte) {
	LogWSMessage("IN", client.actorID, string(raw))

	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendErrorToast(client.actorID, "Malformed message")
		return
	}

	switch msg.Action {
	case "new_game":
		if _, err := h.startGame(client.lobbyID); err != nil {
			logError("hub: startGame", err)
			h.sendErrorToast(client.actorID, "A game is already running here")
		}
	case "start":
		sched, ok := h.reg.byLobby(client.lobbyID)
		if !ok {
			h.sendErrorToast(client.actorID, "No game to start")
			return
		}
		sched.StartNow()
	case "submit":
		sched, ok := h.reg.byLobby(client.lobbyID)
		if !ok {
			h.sendErrorToast(client.actorID, "No game running")
			return
		}
		if err := sched.Submit(client.actorID, ActionKind(msg.Kind), msg.Target); err != nil {
			h.sendErrorToast(client.actorID, err.Error())
		}
	default:
		h.sendErrorToast(client.actorID, "Unknown action")
	}
}

// handleWebSocket upgrades a connection. Identity comes from the
// authenticating layer in front of us via query parameters.
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	actorID := r.URL.Query().Get("actor")
	lobbyID := r.URL.Query().Get("lobby")
	name := r.URL.Query().Get("name")
	if actorID == "" || lobbyID == "" {
		http.Error(w, "actor and lobby are required", http.StatusBadRequest)
		return
	}
	if name == "" {
		name = actorID
	}

	var upgrader = websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error for actor %s: %v", actorID, err)
		return
	}

	client := &Client{conn: conn, actorID: actorID, name: name, lobbyID: lobbyID}
	h.register <- client

	go func() {
		defer func() {
			h.unregister <- conn
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleWSMessage(client, message)
		}
	}()
}

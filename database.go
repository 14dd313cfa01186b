package main

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_result (
	game_id     TEXT PRIMARY KEY,
	lobby_id    TEXT NOT NULL,
	verdict     TEXT NOT NULL,
	faction     TEXT NOT NULL DEFAULT '',
	rounds      INTEGER NOT NULL,
	finished_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS game_result_player (
	game_id   TEXT NOT NULL,
	player_id TEXT NOT NULL,
	name      TEXT NOT NULL,
	role      TEXT NOT NULL,
	faction   TEXT NOT NULL,
	is_filler INTEGER NOT NULL,
	alive     INTEGER NOT NULL,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS game_resource (
	game_id        TEXT PRIMARY KEY,
	channels       TEXT NOT NULL,
	provisioned_at TIMESTAMP NOT NULL
);
`

// Store is the persistence sink. The engine only writes terminal game
// records and provisioned-resource markers; nothing here is on any
// gameplay path.
type Store struct {
	db *sqlx.DB
}

func openStore(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) close() error {
	return s.db.Close()
}

// recordGameResult persists the terminal record for a finished game.
// Called fire-and-forget after teardown; a failure never blocks the
// game's terminal transition.
func (s *Store) recordGameResult(g *Game, v Verdict) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO game_result (game_id, lobby_id, verdict, faction, rounds, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.LobbyID, string(v.Kind), string(v.Faction), g.Round, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, p := range g.Players {
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO game_result_player (game_id, player_id, name, role, faction, is_filler, alive)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, p.ID, p.Name, p.Role.ID, string(p.Role.Faction), p.IsFiller, p.Alive)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	LogDBState("after game result: " + g.ID)
	return nil
}

// markProvisioned records that a game holds external channels, so a
// restart can find and release orphans.
func (s *Store) markProvisioned(h ResourceHandle) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO game_resource (game_id, channels, provisioned_at)
		VALUES (?, ?, ?)`,
		h.GameID, strings.Join(h.Channels, ","), time.Now().UTC())
	return err
}

func (s *Store) clearProvisioned(gameID string) error {
	_, err := s.db.Exec(`DELETE FROM game_resource WHERE game_id = ?`, gameID)
	return err
}

// listProvisioned returns every handle still marked provisioned.
func (s *Store) listProvisioned() ([]ResourceHandle, error) {
	var rows []struct {
		GameID   string `db:"game_id"`
		Channels string `db:"channels"`
	}
	err := s.db.Select(&rows, `SELECT game_id, channels FROM game_resource`)
	if err != nil {
		return nil, err
	}

	handles := make([]ResourceHandle, 0, len(rows))
	for _, r := range rows {
		h := ResourceHandle{GameID: r.GameID}
		if r.Channels != "" {
			h.Channels = strings.Split(r.Channels, ",")
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Package store persists chat history to MySQL. It is an external
// collaborator to the game engine (§1): the engine only depends on
// service.ChatStore, never on *sql.DB directly.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/hiddenrole/mafia/internal/domain/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id VARCHAR(36) PRIMARY KEY,
	room TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	sender_name TEXT NOT NULL,
	text TEXT NOT NULL,
	ts BIGINT NOT NULL
)`

// ChatStore is a database/sql-backed implementation of service.ChatStore.
type ChatStore struct {
	db *sql.DB
}

// Open connects to dsn and ensures the messages table exists.
func Open(dsn string) (*ChatStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open chat store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping chat store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate chat store: %w", err)
	}
	return &ChatStore{db: db}, nil
}

// NewWithDB wraps an already-opened *sql.DB (used by tests with sqlmock,
// which fakes the driver rather than a real connection).
func NewWithDB(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) SaveMessage(msg service.ChatMessage) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (id, room, sender_id, sender_name, text, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Room, msg.SenderID, msg.SenderName, msg.Text, msg.TS,
	)
	return err
}

// History returns up to limit messages for roomKey, oldest first (newest
// last, per §6's HTTP surface contract).
func (s *ChatStore) History(roomKey string, limit int) ([]service.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, room, sender_id, sender_name, text, ts FROM messages WHERE room = ? ORDER BY ts DESC LIMIT ?`,
		roomKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []service.ChatMessage
	for rows.Next() {
		var m service.ChatMessage
		if err := rows.Scan(&m.ID, &m.Room, &m.SenderID, &m.SenderName, &m.Text, &m.TS); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse to oldest-first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DeleteRoom removes every row for the given room keys (public plus both
// team sub-rooms), used on room reset (§4.7).
func (s *ChatStore) DeleteRoom(roomKeys ...string) error {
	for _, key := range roomKeys {
		if _, err := s.db.Exec(`DELETE FROM messages WHERE room = ?`, key); err != nil {
			return err
		}
	}
	return nil
}

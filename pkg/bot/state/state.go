// Package state provides a SQLite-backed alternative to the in-memory
// engagement, permission, and escalation stores, for deployments that
// need those records to survive a process restart. The views it exposes
// satisfy the same contracts the router consumes, so swapping backends
// does not touch any routing logic.
package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lium-dot/alpha/pkg/bot/escalate"
)

// DB wraps a SQLite database holding bot state. Safe for concurrent use
// within one process; WAL mode and a busy timeout keep an external reader
// (manual inspection, backups) from wedging writes.
type DB struct {
	db     *sql.DB
	logger *slog.Logger

	tokenMu sync.Mutex
	lastMS  int64
}

// Open creates or opens the state database at path and ensures the schema
// exists.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("state: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: wal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: busy timeout: %w", err)
	}

	s := &DB{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS engagement (
			conversation_id TEXT PRIMARY KEY,
			count           INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS permissions (
			conversation_id TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS pending_queries (
			token        TEXT PRIMARY KEY,
			requester    TEXT NOT NULL,
			display_name TEXT NOT NULL,
			prompt       TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("state: migrate: %w", err)
		}
	}
	return nil
}

// Close checkpoints the WAL and closes the database.
func (s *DB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Record increments the engagement counter for the conversation and
// returns the new count. The contract has no error path; a storage
// failure is logged and reported as count zero, which keeps the caller
// on the unapproved side of every threshold comparison.
func (s *DB) Record(conversationID string) int {
	var count int
	err := s.db.QueryRow(`
		INSERT INTO engagement (conversation_id, count) VALUES (?, 1)
		ON CONFLICT (conversation_id) DO UPDATE SET count = count + 1
		RETURNING count
	`, conversationID).Scan(&count)
	if err != nil {
		s.logger.Error("engagement record failed", "error", err, "conversation", conversationID)
		return 0
	}
	return count
}

// Count returns the current engagement count without incrementing.
func (s *DB) Count(conversationID string) int {
	var count int
	err := s.db.QueryRow(
		`SELECT count FROM engagement WHERE conversation_id = ?`, conversationID,
	).Scan(&count)
	if err != nil {
		return 0
	}
	return count
}

// IsApproved reports whether the conversation has been granted access.
// Storage failures fail closed.
func (s *DB) IsApproved(conversationID string) bool {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM permissions WHERE conversation_id = ?`, conversationID,
	).Scan(&one)
	return err == nil
}

// Grant adds the conversation to the allow-list. Idempotent; durable once
// the statement returns.
func (s *DB) Grant(conversationID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO permissions (conversation_id) VALUES (?)`, conversationID,
	)
	if err != nil {
		return fmt.Errorf("state: grant: %w", err)
	}
	return nil
}

// Enqueue stores a pending query and returns its correlation token, using
// the same monotonic base-36 scheme as the in-memory queue.
func (s *DB) Enqueue(requester, displayName, prompt string) (string, error) {
	s.tokenMu.Lock()
	ms := time.Now().UnixMilli()
	if ms <= s.lastMS {
		ms = s.lastMS + 1
	}
	s.lastMS = ms
	s.tokenMu.Unlock()

	token := strconv.FormatInt(ms, 36)
	_, err := s.db.Exec(`
		INSERT INTO pending_queries (token, requester, display_name, prompt, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, token, requester, displayName, prompt, ms)
	if err != nil {
		return "", fmt.Errorf("state: enqueue: %w", err)
	}
	return token, nil
}

// Resolve removes and returns the pending query for token. The delete and
// the lookup are one statement, so concurrent resolvers see at most one
// success per token.
func (s *DB) Resolve(token string) (escalate.PendingQuery, bool) {
	pq := escalate.PendingQuery{Token: token}
	err := s.db.QueryRow(`
		DELETE FROM pending_queries WHERE token = ?
		RETURNING requester, display_name, prompt
	`, token).Scan(&pq.Requester, &pq.DisplayName, &pq.Prompt)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Error("escalation resolve failed", "error", err, "token", token)
		}
		return escalate.PendingQuery{}, false
	}
	return pq, true
}

// Package store keeps signed-in sessions in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// Session binds an opaque session id to a remote-store account and its token.
type Session struct {
	ID        string
	UserID    string
	Email     string
	Token     *oauth2.Token
	CreatedAt time.Time
}

// SQLiteStore persists sessions in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	token_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_created_at ON sessions (created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession inserts sess or replaces the session with the same id.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess Session) error {
	if sess.ID == "" || sess.UserID == "" {
		return errors.New("session id and user id are required")
	}
	tok, err := encodeToken(sess.Token)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, email, token_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id    = excluded.user_id,
			email      = excluded.email,
			token_json = excluded.token_json,
			created_at = excluded.created_at
	`, sess.ID, sess.UserID, sess.Email, tok, sess.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// UpdateToken replaces the token of an existing session.
func (s *SQLiteStore) UpdateToken(ctx context.Context, id string, token *oauth2.Token) error {
	tok, err := encodeToken(token)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET token_json = ? WHERE id = ?", tok, id)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (Session, error) {
	var (
		sess    Session
		tokJSON string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, email, token_json, created_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.UserID, &sess.Email, &tokJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(tokJSON), &tok); err != nil {
		return Session{}, fmt.Errorf("decode session token: %w", err)
	}
	sess.Token = &tok
	sess.CreatedAt = time.Unix(0, created).UTC()
	return sess, nil
}

// DeleteSession removes the session; deleting an unknown id is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteExpired removes sessions created before the cutoff and reports how
// many were removed.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE created_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

func encodeToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("session token is required")
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encode session token: %w", err)
	}
	return string(b), nil
}

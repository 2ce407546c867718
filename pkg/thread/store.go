// Package thread provides durable, ordered storage of conversation messages
// keyed by a (root, turn) identifier pair. Root 0 is the reserved top-level
// thread; every generation run owns its own root.
package thread

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"kaiwa/internal/observability"
)

// TopLevelRoot identifies the user-facing thread.
const TopLevelRoot int64 = 0

// Message is one persisted conversation turn.
type Message struct {
	Root    int64  `json:"root"`
	Turn    int64  `json:"turn"`
	Role    string `json:"role"` // user, assistant, info, error
	Content string `json:"content"`
}

// Store persists messages in a single sqlite relation. Turn allocation for a
// root happens inside the same transaction as the insert, so concurrent
// appends to one root can never mint duplicate turns.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	// Serializes writers per root on top of sqlite's own locking, so a turn
	// allocation is never interleaved with another append to the same root.
	rootLocks map[int64]*sync.Mutex
	locksMu   sync.Mutex
}

// Config holds store configuration
type Config struct {
	DBPath string
	Logger zerolog.Logger
}

// NewStore opens (and if needed initializes) the chat history database.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, storageErr("open", err)
	}

	// WAL mode for better concurrency between the UI reader and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, storageErr("open", err)
	}

	s := &Store{
		db:        db,
		logger:    cfg.Logger,
		rootLocks: make(map[int64]*sync.Mutex),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info().Str("db", cfg.DBPath).Msg("Thread store initialized")

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_history (
		root    INTEGER NOT NULL,
		turn    INTEGER NOT NULL,
		role    TEXT    NOT NULL,
		content TEXT    NOT NULL,
		PRIMARY KEY (root, turn)
	)`
	if _, err := s.db.Exec(schema); err != nil {
		return storageErr("init schema", err)
	}
	return nil
}

func (s *Store) rootLock(root int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, ok := s.rootLocks[root]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.rootLocks[root] = lock
	return lock
}

// Append inserts a message at the next free turn of root and returns the
// allocated turn. Allocation starts at 0 for an empty thread.
func (s *Store) Append(ctx context.Context, root int64, role, content string) (int64, error) {
	lock := s.rootLock(root)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	defer func() {
		observability.RecordStoreWrite(time.Since(start))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("append", err)
	}
	defer tx.Rollback()

	var turn int64
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(turn) + 1, 0) FROM chat_history WHERE root = ?", root)
	if err := row.Scan(&turn); err != nil {
		return 0, storageErr("append", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO chat_history (root, turn, role, content) VALUES (?, ?, ?, ?)",
		root, turn, role, content); err != nil {
		return 0, storageErr("append", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("append", err)
	}

	s.logger.Debug().Int64("root", root).Int64("turn", turn).Str("role", role).Msg("Message appended")

	return turn, nil
}

// AppendAt inserts a message at an explicit turn, overwriting role and
// content in place when the (root, turn) row already exists.
func (s *Store) AppendAt(ctx context.Context, root, turn int64, role, content string) error {
	lock := s.rootLock(root)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	defer func() {
		observability.RecordStoreWrite(time.Since(start))
	}()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (root, turn, role, content) VALUES (?, ?, ?, ?)
		 ON CONFLICT(root, turn) DO UPDATE SET role = excluded.role, content = excluded.content`,
		root, turn, role, content)
	if err != nil {
		return storageErr("append at", err)
	}

	s.logger.Debug().Int64("root", root).Int64("turn", turn).Str("role", role).Msg("Message upserted")

	return nil
}

// Thread returns every message of root ascending by turn. An unknown root
// yields an empty slice, not an error.
func (s *Store) Thread(ctx context.Context, root int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT root, turn, role, content FROM chat_history WHERE root = ? ORDER BY turn ASC", root)
	if err != nil {
		return nil, storageErr("fetch thread", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Root, &m.Turn, &m.Role, &m.Content); err != nil {
			return nil, storageErr("fetch thread", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("fetch thread", err)
	}

	return messages, nil
}

// Message returns the row at (root, turn), or nil when absent.
func (s *Store) Message(ctx context.Context, root, turn int64) (*Message, error) {
	var m Message
	row := s.db.QueryRowContext(ctx,
		"SELECT root, turn, role, content FROM chat_history WHERE root = ? AND turn = ?", root, turn)
	if err := row.Scan(&m.Root, &m.Turn, &m.Role, &m.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("fetch message", err)
	}
	return &m, nil
}

// Roots returns every distinct root in ascending order.
func (s *Store) Roots(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT root FROM chat_history ORDER BY root ASC")
	if err != nil {
		return nil, storageErr("list roots", err)
	}
	defer rows.Close()

	var roots []int64
	for rows.Next() {
		var r int64
		if err := rows.Scan(&r); err != nil {
			return nil, storageErr("list roots", err)
		}
		roots = append(roots, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list roots", err)
	}

	return roots, nil
}

// DeleteThread removes every message of root.
func (s *Store) DeleteThread(ctx context.Context, root int64) error {
	lock := s.rootLock(root)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_history WHERE root = ?", root); err != nil {
		return storageErr("delete thread", err)
	}

	s.logger.Info().Int64("root", root).Msg("Thread deleted")

	return nil
}

// Clear removes every persisted message. Backs the --reset CLI flow.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_history"); err != nil {
		return storageErr("clear", err)
	}

	s.logger.Info().Msg("Chat history cleared")

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close thread store: %w", err)
	}
	return nil
}

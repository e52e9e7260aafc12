package allocator

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS allocator_state (
	name           TEXT PRIMARY KEY,
	next_id        INTEGER NOT NULL,
	next_result_id INTEGER NOT NULL,
	updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLite keeps the counters in a local database file so the CLI and the
// terminal front end continue numbering across runs.
type SQLite struct {
	mu   sync.Mutex
	db   *sql.DB
	name string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("allocator: open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("allocator: create sqlite schema: %w", err)
	}
	seed := `INSERT OR IGNORE INTO allocator_state (name, next_id, next_result_id) VALUES (?, ?, ?)`
	if _, err := db.ExecContext(ctx, seed, DefaultStateName, DefaultNextID, DefaultNextResultID); err != nil {
		db.Close()
		return nil, fmt.Errorf("allocator: seed sqlite state: %w", err)
	}
	return &SQLite{db: db, name: DefaultStateName}, nil
}

func (s *SQLite) take(ctx context.Context, column string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(
		`UPDATE allocator_state SET %[1]s = %[1]s + 1, updated_at = CURRENT_TIMESTAMP WHERE name = ? RETURNING %[1]s - 1`,
		column,
	)
	var id int64
	if err := s.db.QueryRowContext(ctx, query, s.name).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocator: sqlite draw %s: %w", column, err)
	}
	return id, nil
}

func (s *SQLite) NextModID(ctx context.Context) (int64, error) {
	return s.take(ctx, "next_id")
}

func (s *SQLite) ConsumeResultID(ctx context.Context) (int64, error) {
	return s.take(ctx, "next_result_id")
}

func (s *SQLite) Reset(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE allocator_state SET next_id = ?, next_result_id = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`
	if _, err := s.db.ExecContext(ctx, query, DefaultNextID, DefaultNextResultID, s.name); err != nil {
		return State{}, fmt.Errorf("allocator: sqlite reset: %w", err)
	}
	return DefaultState(), nil
}

func (s *SQLite) Snapshot(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st State
	query := `SELECT next_id, next_result_id FROM allocator_state WHERE name = ?`
	if err := s.db.QueryRowContext(ctx, query, s.name).Scan(&st.NextID, &st.NextResultID); err != nil {
		return State{}, fmt.Errorf("allocator: sqlite snapshot: %w", err)
	}
	return st, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

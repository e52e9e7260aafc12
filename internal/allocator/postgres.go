package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/miniworld/modgen/internal/database"
)

// DefaultStateName is the allocator_state row used when none is configured.
const DefaultStateName = "default"

// Postgres keeps the counters in the allocator_state table. Each draw is a
// single UPDATE ... RETURNING, so the row lock serializes concurrent callers.
type Postgres struct {
	db   *database.Postgres
	name string
}

// NewPostgres seeds the named row if it does not exist yet. The table itself
// comes from the embedded migrations (database.Migrate).
func NewPostgres(ctx context.Context, db *database.Postgres, name string) (*Postgres, error) {
	if name == "" {
		name = DefaultStateName
	}
	query := `
		INSERT INTO allocator_state (name, next_id, next_result_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := db.Pool().Exec(ctx, query, name, DefaultNextID, DefaultNextResultID); err != nil {
		return nil, fmt.Errorf("allocator: seed postgres state: %w", err)
	}
	return &Postgres{db: db, name: name}, nil
}

func (p *Postgres) NextModID(ctx context.Context) (int64, error) {
	query := `
		UPDATE allocator_state
		SET next_id = next_id + 1, updated_at = NOW()
		WHERE name = $1
		RETURNING next_id - 1
	`
	return p.take(ctx, query)
}

func (p *Postgres) ConsumeResultID(ctx context.Context) (int64, error) {
	query := `
		UPDATE allocator_state
		SET next_result_id = next_result_id + 1, updated_at = NOW()
		WHERE name = $1
		RETURNING next_result_id - 1
	`
	return p.take(ctx, query)
}

func (p *Postgres) take(ctx context.Context, query string) (int64, error) {
	var id int64
	err := p.db.Pool().QueryRow(ctx, query, p.name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("allocator: state row %q missing", p.name)
	}
	if err != nil {
		return 0, fmt.Errorf("allocator: postgres draw: %w", err)
	}
	return id, nil
}

func (p *Postgres) Reset(ctx context.Context) (State, error) {
	query := `
		UPDATE allocator_state
		SET next_id = $2, next_result_id = $3, updated_at = NOW()
		WHERE name = $1
	`
	if _, err := p.db.Pool().Exec(ctx, query, p.name, DefaultNextID, DefaultNextResultID); err != nil {
		return State{}, fmt.Errorf("allocator: postgres reset: %w", err)
	}
	return DefaultState(), nil
}

func (p *Postgres) Snapshot(ctx context.Context) (State, error) {
	var s State
	query := `SELECT next_id, next_result_id FROM allocator_state WHERE name = $1`
	if err := p.db.Pool().QueryRow(ctx, query, p.name).Scan(&s.NextID, &s.NextResultID); err != nil {
		return State{}, fmt.Errorf("allocator: postgres snapshot: %w", err)
	}
	return s, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

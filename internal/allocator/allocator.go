// Package allocator hands out the numeric ids generated documents refer to.
//
// Two counters are kept: the mod id assigned to a creature actor and the
// result id assigned to its craftable item. Both only move forward, except on
// Reset which restores DefaultNextID and DefaultNextResultID. Every Store
// serializes its read-modify-write so that no two callers observe the same
// value.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultNextID       int64 = 2
	DefaultNextResultID int64 = 4097
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("allocator: unknown backend")

// State is a snapshot of both counters.
type State struct {
	NextID       int64 `json:"next_id"`
	NextResultID int64 `json:"next_result_id"`
}

// DefaultState is the state Reset restores.
func DefaultState() State {
	return State{NextID: DefaultNextID, NextResultID: DefaultNextResultID}
}

// Store is the single source of numeric ids for a run.
type Store interface {
	// NextModID returns the current mod id and advances it by one.
	NextModID(ctx context.Context) (int64, error)
	// ConsumeResultID returns the current result id and advances it by one.
	ConsumeResultID(ctx context.Context) (int64, error)
	// Reset restores both counters to their defaults.
	Reset(ctx context.Context) (State, error)
	// Snapshot reads both counters without advancing them.
	Snapshot(ctx context.Context) (State, error)
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by config.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ParseBackend normalizes a backend name.
func ParseBackend(name string) (string, error) {
	switch b := strings.ToLower(strings.TrimSpace(name)); b {
	case "", BackendMemory:
		return BackendMemory, nil
	case BackendRedis, BackendPostgres, BackendSQLite:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Package bundles keeps generated bundles in memory so they can be previewed
// and downloaded after the generating request returned.
package bundles

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/miniworld/modgen/internal/models"
)

// ErrNotFound is returned for unknown or expired keys.
var ErrNotFound = errors.New("bundle not found or expired")

// Kind tells single bundles from batch bundles.
type Kind string

const (
	KindSingle Kind = "single"
	KindBatch  Kind = "batch"
)

// Bundle is one stored generation outcome with its prepared archive.
type Bundle struct {
	Key         string                     `json:"key"`
	Kind        Kind                       `json:"kind"`
	Author      string                     `json:"author"`
	ArchiveName string                     `json:"archive_name"`
	Archive     []byte                     `json:"-"`
	Results     []*models.GenerationResult `json:"-"`
	Failures    []models.BatchFailure      `json:"failures,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	ExpiresAt   time.Time                  `json:"expires_at"`
}

// File finds a generated file by name across all results.
func (b *Bundle) File(name string) (models.GeneratedFile, bool) {
	for _, r := range b.Results {
		if f, ok := r.File(name); ok {
			return f, true
		}
	}
	return models.GeneratedFile{}, false
}

// Files returns every generated file in result order.
func (b *Bundle) Files() []models.GeneratedFile {
	var out []models.GeneratedFile
	for _, r := range b.Results {
		out = append(out, r.Files...)
	}
	return out
}

// Store is a TTL map of bundles keyed by random session keys.
type Store struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	bundles map[string]*Bundle
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		ttl:     ttl,
		now:     time.Now,
		bundles: make(map[string]*Bundle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores b under a fresh key and returns it with Key and timestamps set.
func (s *Store) Put(b *Bundle) *Bundle {
	now := s.now()
	b.Key = uuid.NewString()
	b.CreatedAt = now
	b.ExpiresAt = now.Add(s.ttl)

	s.mu.Lock()
	s.bundles[b.Key] = b
	s.mu.Unlock()
	return b
}

// Get returns the bundle for key unless it expired.
func (s *Store) Get(key string) (*Bundle, error) {
	s.mu.RLock()
	b, ok := s.bundles[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(b.ExpiresAt) {
		return nil, ErrNotFound
	}
	return b, nil
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.bundles, key)
	s.mu.Unlock()
}

// Sweep drops expired bundles and returns how many remain.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range s.bundles {
		if !now.Before(b.ExpiresAt) {
			delete(s.bundles, k)
		}
	}
	return len(s.bundles)
}

// Len returns the number of bundles that have not expired yet.
func (s *Store) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.bundles {
		if now.Before(b.ExpiresAt) {
			n++
		}
	}
	return n
}

// List returns live bundles, newest first.
func (s *Store) List() []*Bundle {
	now := s.now()
	s.mu.RLock()
	out := make([]*Bundle, 0, len(s.bundles))
	for _, b := range s.bundles {
		if now.Before(b.ExpiresAt) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

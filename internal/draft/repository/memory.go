package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftdeck/draftdeck/internal/draft"
)

// MemoryRepo is the in-memory draft store used for unit tests and for running
// the service without MongoDB.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*draft.Draft
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*draft.Draft)}
}

func (m *MemoryRepo) Create(ctx context.Context, d *draft.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Version = 1
	m.store[d.ID] = d.Clone()
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*draft.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return d.Clone(), nil
	}
	return nil, draft.ErrNotFound
}

func (m *MemoryRepo) ListByTeam(ctx context.Context, teamID string) ([]*draft.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*draft.Draft{}
	for _, d := range m.store {
		if d.TeamID == teamID {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (m *MemoryRepo) FindActiveByHash(ctx context.Context, teamID, hash string) (*draft.Draft, error) {
	if hash == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.store {
		if d.TeamID == teamID && d.ContentHash == hash && !d.Status.Terminal() && d.Status != draft.StatusDraft {
			return d.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MemoryRepo) ListScheduledDue(ctx context.Context, now time.Time) ([]*draft.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*draft.Draft{}
	for _, d := range m.store {
		if d.Status == draft.StatusScheduled && d.ScheduledFor != nil && !d.ScheduledFor.After(now) {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

// Update commits only when the stored version matches the caller's snapshot.
func (m *MemoryRepo) Update(ctx context.Context, d *draft.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[d.ID]
	if !ok {
		return draft.ErrNotFound
	}
	if cur.Version != d.Version {
		return draft.ErrConflict
	}
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	m.store[d.ID] = d.Clone()
	return nil
}

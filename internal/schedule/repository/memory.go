package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftdeck/draftdeck/internal/schedule"
)

// MemorySlotRepo keeps templates and concrete slots in process memory.
type MemorySlotRepo struct {
	mu    sync.RWMutex
	slots map[string]*schedule.TimeSlot
}

func NewMemorySlotRepo() *MemorySlotRepo {
	return &MemorySlotRepo{slots: make(map[string]*schedule.TimeSlot)}
}

func (m *MemorySlotRepo) CreateSlot(ctx context.Context, s *schedule.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, ok := m.slots[s.ID]; ok {
		return nil
	}
	cp := *s
	m.slots[s.ID] = &cp
	return nil
}

func (m *MemorySlotRepo) GetSlot(ctx context.Context, id string) (*schedule.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, schedule.ErrSlotNotFound
}

func (m *MemorySlotRepo) ListTemplates(ctx context.Context, teamID string) ([]*schedule.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*schedule.TimeSlot{}
	for _, s := range m.slots {
		if s.TeamID == teamID && s.IsRecurring {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *MemorySlotRepo) ListConcrete(ctx context.Context, teamID string, from, to time.Time) ([]*schedule.TimeSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*schedule.TimeSlot{}
	for _, s := range m.slots {
		if s.TeamID != teamID || s.IsRecurring {
			continue
		}
		if s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sortByStart(out)
	return out, nil
}

func (m *MemorySlotRepo) UpdateSlot(ctx context.Context, s *schedule.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[s.ID]; !ok {
		return schedule.ErrSlotNotFound
	}
	cp := *s
	m.slots[s.ID] = &cp
	return nil
}

func sortByStart(slots []*schedule.TimeSlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
}

// MemoryQueueRepo keeps per-team waiting lists in process memory.
type MemoryQueueRepo struct {
	mu     sync.RWMutex
	queues map[string][]*schedule.QueueSlot
}

func NewMemoryQueueRepo() *MemoryQueueRepo {
	return &MemoryQueueRepo{queues: make(map[string][]*schedule.QueueSlot)}
}

func (m *MemoryQueueRepo) List(ctx context.Context, teamID string) ([]*schedule.QueueSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.queues[teamID]
	out := make([]*schedule.QueueSlot, len(src))
	for i, q := range src {
		cp := *q
		out[i] = &cp
	}
	return out, nil
}

func (m *MemoryQueueRepo) Replace(ctx context.Context, teamID string, entries []*schedule.QueueSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]*schedule.QueueSlot, len(entries))
	for i, q := range entries {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		cp := *q
		stored[i] = &cp
	}
	m.queues[teamID] = stored
	return nil
}

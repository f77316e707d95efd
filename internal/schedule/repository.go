package schedule

import (
	"context"
	"time"
)

// SlotRepository stores templates and concrete slots. CreateSlot on an id that
// already exists is a no-op so materialization passes stay idempotent.
type SlotRepository interface {
	CreateSlot(ctx context.Context, s *TimeSlot) error
	GetSlot(ctx context.Context, id string) (*TimeSlot, error)
	ListTemplates(ctx context.Context, teamID string) ([]*TimeSlot, error)

	// ListConcrete returns the team's non-template slots starting inside
	// [from, to), ordered by StartTime.
	ListConcrete(ctx context.Context, teamID string, from, to time.Time) ([]*TimeSlot, error)

	UpdateSlot(ctx context.Context, s *TimeSlot) error
}

// QueueRepository stores a team's waiting list. Replace rewrites the whole
// team queue in one shot; the scheduler uses it to renumber positions.
type QueueRepository interface {
	List(ctx context.Context, teamID string) ([]*QueueSlot, error)
	Replace(ctx context.Context, teamID string, entries []*QueueSlot) error
}

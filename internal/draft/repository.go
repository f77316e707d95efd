package draft

import (
	"context"
	"time"
)

// Repository provides draft persistence. Update is a compare-and-swap on
// (id, version): a stale version returns ErrConflict and writes nothing.
type Repository interface {
	Create(ctx context.Context, d *Draft) error
	Get(ctx context.Context, id string) (*Draft, error)
	ListByTeam(ctx context.Context, teamID string) ([]*Draft, error)

	// FindActiveByHash returns a non-terminal draft in the team holding the
	// given content hash, or nil when none exists. Used by the
	// duplicate-submission guard; an empty hash never matches.
	FindActiveByHash(ctx context.Context, teamID, hash string) (*Draft, error)

	// ListScheduledDue returns scheduled drafts whose publish time has passed.
	ListScheduledDue(ctx context.Context, now time.Time) ([]*Draft, error)

	Update(ctx context.Context, d *Draft) error
}

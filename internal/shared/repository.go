package shared

import (
	"context"
	"time"
)

// Repository persists shares and their comment threads. Comments are
// append-only; UpdateComment exists solely for the resolved flag.
type Repository interface {
	CreateShare(ctx context.Context, s *Share) error
	GetByToken(ctx context.Context, token string) (*Share, error)
	GetShareByID(ctx context.Context, id string) (*Share, error)

	// GetActiveByDraft returns the newest live share for a draft, or nil.
	GetActiveByDraft(ctx context.Context, draftID string, now time.Time) (*Share, error)

	UpdateShare(ctx context.Context, s *Share) error

	// DeleteExpired drops shares past their expiry; returns how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	AddComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id string) (*Comment, error)

	// ListComments returns a share's comments in creation order.
	ListComments(ctx context.Context, sharedDraftID string) ([]*Comment, error)

	UpdateComment(ctx context.Context, c *Comment) error
}

package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftdeck/draftdeck/internal/draft"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/pkg/metrics"
)

// AnonymousName labels comments from callers without an identity or a
// supplied display name.
const AnonymousName = "Anonymous"

// Service layers token-scoped sharing and commenting on top of drafts. Reads
// dominate here, so no team-wide locks: comment appends rely on repository
// insertion order only.
type Service struct {
	repo       Repository
	drafts     draft.Repository
	defaultTTL time.Duration

	now func() time.Time
}

// NewService wires the share layer. defaultTTL applies when CreateShare gets
// no explicit lifetime; zero or negative falls back to 14 days.
func NewService(repo Repository, drafts draft.Repository, defaultTTL time.Duration) *Service {
	if defaultTTL <= 0 {
		defaultTTL = 14 * 24 * time.Hour
	}
	return &Service{repo: repo, drafts: drafts, defaultTTL: defaultTTL, now: func() time.Time { return time.Now().UTC() }}
}

// CreateShare mints a share token for a draft, or returns the draft's
// existing live share so repeated sharing keeps one link.
func (s *Service) CreateShare(ctx context.Context, caller identity.Identity, draftID string, canComment bool, ttl time.Duration) (*Share, error) {
	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != caller.UserID && d.TeamID != caller.TeamID {
		return nil, draft.ErrNotPermitted
	}
	now := s.now()
	if existing, err := s.repo.GetActiveByDraft(ctx, draftID, now); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	share := &Share{
		ID:          uuid.NewString(),
		DraftID:     d.ID,
		TeamID:      d.TeamID,
		CreatorID:   caller.UserID,
		AccessToken: hex.EncodeToString(b),
		CanComment:  canComment,
		State:       ShareActive,
		AuthorName:  caller.Name,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	if err := s.repo.CreateShare(ctx, share); err != nil {
		return nil, err
	}
	metrics.SharesCreated.Inc()
	return share, nil
}

// Resolve maps a token to its share and draft. Unknown and revoked tokens are
// indistinguishable; expired ones report expiry so the UI can say why.
func (s *Service) Resolve(ctx context.Context, token string) (*Share, *draft.Draft, error) {
	share, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if share.State != ShareActive {
		return nil, nil, ErrTokenNotFound
	}
	if !share.ExpiresAt.After(s.now()) {
		return nil, nil, ErrTokenExpired
	}
	d, err := s.drafts.Get(ctx, share.DraftID)
	if err != nil {
		return nil, nil, err
	}
	return share, d, nil
}

// AddComment appends to the share's thread. caller may be the zero Identity
// for anonymous commenting; displayName falls back to the anonymous label.
func (s *Service) AddComment(ctx context.Context, token, content string, caller identity.Identity, displayName string) (*Comment, error) {
	share, _, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if !share.CanComment {
		return nil, ErrCommentsDisabled
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &draft.ValidationError{Msg: "comment content is empty"}
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = caller.Name
	}
	if name == "" {
		name = AnonymousName
	}
	c := &Comment{
		ID:            uuid.NewString(),
		SharedDraftID: share.ID,
		Content:       content,
		AuthorID:      caller.UserID,
		AuthorName:    name,
		CreatedAt:     s.now(),
	}
	if err := s.repo.AddComment(ctx, c); err != nil {
		return nil, err
	}
	metrics.CommentsAdded.Inc()
	return c, nil
}

// Comments lists the thread in creation order.
func (s *Service) Comments(ctx context.Context, token string) ([]*Comment, error) {
	share, _, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, share.ID)
}

// SetResolved toggles a comment's resolved flag. Team members only; the
// comment body itself is immutable.
func (s *Service) SetResolved(ctx context.Context, caller identity.Identity, commentID string, resolved bool) (*Comment, error) {
	c, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	share, err := s.shareByID(ctx, c.SharedDraftID)
	if err != nil {
		return nil, err
	}
	if share.TeamID != caller.TeamID {
		return nil, draft.ErrNotPermitted
	}
	c.Resolved = resolved
	if resolved {
		t := s.now()
		c.ResolvedAt = &t
		c.ResolvedBy = caller.UserID
	} else {
		c.ResolvedAt = nil
		c.ResolvedBy = ""
	}
	if err := s.repo.UpdateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Revoke deactivates a share. The creator or any team reviewer may revoke.
func (s *Service) Revoke(ctx context.Context, caller identity.Identity, token string) error {
	share, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if share.CreatorID != caller.UserID && !(caller.TeamID == share.TeamID && caller.CanReview()) {
		return draft.ErrNotPermitted
	}
	share.State = ShareRevoked
	return s.repo.UpdateShare(ctx, share)
}

// CleanupExpired removes shares past expiry. Run periodically.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func (s *Service) shareByID(ctx context.Context, shareID string) (*Share, error) {
	return s.repo.GetShareByID(ctx, shareID)
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

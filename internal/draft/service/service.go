package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/draftdeck/draftdeck/internal/draft"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/locking"
	"github.com/draftdeck/draftdeck/pkg/metrics"
)

// Service owns the draft lifecycle: creation, author edits, submission with
// the duplicate-content guard, and review. Per-draft transitions run under an
// exclusive lock; the submission hash check shares the team lock so two
// near-simultaneous submissions cannot both pass it.
type Service struct {
	repo  draft.Repository
	locks locking.Locker
}

func New(repo draft.Repository, locks locking.Locker) *Service {
	return &Service{repo: repo, locks: locks}
}

func draftKey(id string) string { return "draft:" + id }

// TeamScheduleKey is the serialization namespace for a team's submissions,
// slot reservations and queue renumbering.
func TeamScheduleKey(teamID string) string { return "team:" + teamID + ":schedule" }

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, locking.ErrNotAcquired) {
			return nil, draft.ErrConflict
		}
		return nil, err
	}
	return release, nil
}

// Repo exposes the underlying repository to collaborating services.
func (s *Service) Repo() draft.Repository { return s.repo }

// Create stores a new draft in the draft state. Thread drafts get their post
// positions normalized to the input order.
func (s *Service) Create(ctx context.Context, caller identity.Identity, kind draft.Kind, posts []draft.Post) (*draft.Draft, error) {
	if err := validatePosts(kind, posts); err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Position = i
	}
	d := &draft.Draft{
		AuthorID: caller.UserID,
		TeamID:   caller.TeamID,
		Kind:     kind,
		Posts:    posts,
		Status:   draft.StatusDraft,
	}
	d.ContentHash = draft.HashDraft(d)
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateContent replaces a draft's posts. Only the author may edit, and only
// before submission.
func (s *Service) UpdateContent(ctx context.Context, caller identity.Identity, draftID string, posts []draft.Post) (*draft.Draft, error) {
	release, err := s.lock(ctx, draftKey(draftID))
	if err != nil {
		return nil, err
	}
	defer release()

	d, err := s.repo.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != caller.UserID {
		return nil, draft.ErrNotPermitted
	}
	if d.Status != draft.StatusDraft {
		return nil, &draft.NotEditableError{Status: d.Status}
	}
	if err := validatePosts(d.Kind, posts); err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Position = i
	}
	d.Posts = posts
	d.ContentHash = draft.HashDraft(d)
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns a draft visible to the caller: the author or any teammate.
func (s *Service) Get(ctx context.Context, caller identity.Identity, draftID string) (*draft.Draft, error) {
	d, err := s.repo.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != caller.UserID && d.TeamID != caller.TeamID {
		return nil, draft.ErrNotFound
	}
	return d, nil
}

// Submit moves an authored draft into pending_approval. The content hash is
// refreshed first and checked against every live draft in the team; a match
// rejects the submission before anything is written.
func (s *Service) Submit(ctx context.Context, caller identity.Identity, draftID string) (*draft.Draft, error) {
	d, err := s.repo.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	release, err := s.lock(ctx, TeamScheduleKey(d.TeamID))
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock so the hash check and the transition see the
	// same committed state.
	d, err = s.repo.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != caller.UserID {
		return nil, draft.ErrNotPermitted
	}
	if err := validatePosts(d.Kind, d.Posts); err != nil {
		return nil, err
	}
	d.ContentHash = draft.HashDraft(d)
	if dup, err := s.repo.FindActiveByHash(ctx, d.TeamID, d.ContentHash); err != nil {
		return nil, err
	} else if dup != nil && dup.ID != d.ID {
		return nil, &draft.DuplicateContentError{Hash: d.ContentHash, ConflictingID: dup.ID}
	}
	if err := d.Transition(draft.StatusPendingApproval); err != nil {
		return nil, err
	}
	d.RejectionReason = ""
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	metrics.DraftsSubmitted.WithLabelValues(string(d.Kind)).Inc()
	return d, nil
}

// Review settles a pending submission. Reviewer-only; reviewing an already
// settled draft fails with InvalidTransitionError rather than silently
// succeeding again.
func (s *Service) Review(ctx context.Context, caller identity.Identity, draftID string, approve bool, reason string) (*draft.Draft, error) {
	if !caller.CanReview() {
		return nil, draft.ErrNotPermitted
	}
	release, err := s.lock(ctx, draftKey(draftID))
	if err != nil {
		return nil, err
	}
	defer release()

	d, err := s.repo.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.TeamID != caller.TeamID {
		return nil, draft.ErrNotPermitted
	}
	target := draft.StatusApproved
	if !approve {
		target = draft.StatusRejected
	}
	if err := d.Transition(target); err != nil {
		return nil, err
	}
	if !approve {
		d.RejectionReason = strings.TrimSpace(reason)
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	metrics.DraftsReviewed.WithLabelValues(string(target)).Inc()
	return d, nil
}

// MarkScheduled records the reserved slot on an approved draft. Called by the
// scheduler inside the team lock.
func (s *Service) MarkScheduled(ctx context.Context, draftID, slotID string, at time.Time) (*draft.Draft, error) {
	return s.applyTransition(ctx, draftID, draft.StatusScheduled, func(d *draft.Draft) {
		d.SlotID = slotID
		t := at.UTC()
		d.ScheduledFor = &t
	})
}

// Requeue returns a scheduled draft to the approved pool after a dispatch
// failure, counting the attempt.
func (s *Service) Requeue(ctx context.Context, draftID string) (*draft.Draft, error) {
	return s.applyTransition(ctx, draftID, draft.StatusApproved, func(d *draft.Draft) {
		d.SlotID = ""
		d.ScheduledFor = nil
		d.DispatchAttempts++
	})
}

// MarkPublished finalizes a successful dispatch.
func (s *Service) MarkPublished(ctx context.Context, draftID, externalPostID string) (*draft.Draft, error) {
	return s.applyTransition(ctx, draftID, draft.StatusPublished, func(d *draft.Draft) {
		d.ExternalPostID = externalPostID
	})
}

// MarkFailed parks a draft after dispatch retries are exhausted so the author
// can resubmit manually. The reason is kept for display.
func (s *Service) MarkFailed(ctx context.Context, draftID, reason string) (*draft.Draft, error) {
	return s.applyTransition(ctx, draftID, draft.StatusFailed, func(d *draft.Draft) {
		d.SlotID = ""
		d.ScheduledFor = nil
		d.RejectionReason = reason
	})
}

// MarkCancelled ends a scheduled or approved draft at the user's request.
// Slot release and queue promotion are the scheduler's responsibility.
func (s *Service) MarkCancelled(ctx context.Context, draftID string) (*draft.Draft, error) {
	return s.applyTransition(ctx, draftID, draft.StatusCancelled, func(d *draft.Draft) {
		d.SlotID = ""
		d.ScheduledFor = nil
	})
}

func (s *Service) applyTransition(ctx context.Context, draftID string, to draft.Status, mutate func(*draft.Draft)) (*draft.Draft, error) {
	release, err := s.lock(ctx, draftKey(draftID))
	if err != nil {
		return nil, err
	}
	defer release()

	d, err := s.repo.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := d.Transition(to); err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(d)
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func validatePosts(kind draft.Kind, posts []draft.Post) error {
	if len(posts) == 0 {
		return &draft.ValidationError{Msg: "draft has no posts"}
	}
	if kind == draft.KindTweet && len(posts) != 1 {
		return &draft.ValidationError{Msg: "tweet draft must contain exactly one post"}
	}
	return nil
}

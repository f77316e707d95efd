package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/draftdeck/draftdeck/internal/draft"
)

func newDraft(team, hash string, status draft.Status) *draft.Draft {
	return &draft.Draft{
		AuthorID:    "author",
		TeamID:      team,
		Kind:        draft.KindTweet,
		Posts:       []draft.Post{{Content: "hi"}},
		Status:      status,
		ContentHash: hash,
	}
}

func TestMemoryRepo_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	d := newDraft("t1", "h1", draft.StatusDraft)
	require.NoError(t, repo.Create(ctx, d))
	require.NotEmpty(t, d.ID)
	require.EqualValues(t, 1, d.Version)

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.ID, got.ID)

	// repo hands out copies
	got.Posts[0].Content = "mutated"
	again, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "hi", again.Posts[0].Content)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, draft.ErrNotFound)
}

func TestMemoryRepo_UpdateCAS(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	d := newDraft("t1", "h1", draft.StatusDraft)
	require.NoError(t, repo.Create(ctx, d))

	a, _ := repo.Get(ctx, d.ID)
	b, _ := repo.Get(ctx, d.ID)

	a.Status = draft.StatusPendingApproval
	require.NoError(t, repo.Update(ctx, a))

	// b still holds the old version and must lose
	b.Status = draft.StatusPendingApproval
	require.ErrorIs(t, repo.Update(ctx, b), draft.ErrConflict)

	cur, _ := repo.Get(ctx, d.ID)
	require.Equal(t, draft.StatusPendingApproval, cur.Status)
	require.EqualValues(t, 2, cur.Version)
}

func TestMemoryRepo_FindActiveByHash(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	pending := newDraft("t1", "dup", draft.StatusPendingApproval)
	require.NoError(t, repo.Create(ctx, pending))

	got, err := repo.FindActiveByHash(ctx, "t1", "dup")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, pending.ID, got.ID)

	// other team does not match
	got, err = repo.FindActiveByHash(ctx, "t2", "dup")
	require.NoError(t, err)
	require.Nil(t, got)

	// empty hash never matches
	got, err = repo.FindActiveByHash(ctx, "t1", "")
	require.NoError(t, err)
	require.Nil(t, got)

	// unsubmitted and terminal drafts do not block resubmission
	require.NoError(t, repo.Create(ctx, newDraft("t3", "dup", draft.StatusDraft)))
	require.NoError(t, repo.Create(ctx, newDraft("t3", "dup", draft.StatusRejected)))
	require.NoError(t, repo.Create(ctx, newDraft("t3", "dup", draft.StatusPublished)))
	got, err = repo.FindActiveByHash(ctx, "t3", "dup")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryRepo_ListScheduledDue(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	past := newDraft("t1", "h1", draft.StatusScheduled)
	pastAt := now.Add(-time.Minute)
	past.ScheduledFor = &pastAt
	require.NoError(t, repo.Create(ctx, past))

	future := newDraft("t1", "h2", draft.StatusScheduled)
	futureAt := now.Add(time.Hour)
	future.ScheduledFor = &futureAt
	require.NoError(t, repo.Create(ctx, future))

	require.NoError(t, repo.Create(ctx, newDraft("t1", "h3", draft.StatusApproved)))

	due, err := repo.ListScheduledDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, past.ID, due[0].ID)
}

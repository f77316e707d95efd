package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/draftdeck/draftdeck/internal/draft"
	draftrepo "github.com/draftdeck/draftdeck/internal/draft/repository"
	draftsvc "github.com/draftdeck/draftdeck/internal/draft/service"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/locking"
	"github.com/draftdeck/draftdeck/internal/schedule"
	schedrepo "github.com/draftdeck/draftdeck/internal/schedule/repository"
)

var (
	dispAuthor   = identity.Identity{UserID: "u1", TeamID: "t1", Role: identity.RoleMember}
	dispReviewer = identity.Identity{UserID: "u2", TeamID: "t1", Role: identity.RoleAdmin}
)

// stubPublisher fails the first failures calls, then succeeds.
type stubPublisher struct {
	failures int
	calls    int
}

func (p *stubPublisher) Publish(ctx context.Context, d *draft.Draft) (string, error) {
	p.calls++
	if p.calls <= p.failures {
		return "", errors.New("platform unavailable")
	}
	return "ext-" + d.ID, nil
}

type dispFixture struct {
	disp   *Dispatcher
	drafts *draftsvc.Service
	sched  *schedule.Scheduler
	pub    *stubPublisher
	now    time.Time
}

func newDispFixture(t *testing.T, failures, maxRetries int) *dispFixture {
	t.Helper()
	locks := locking.NewMemoryLocker(2 * time.Second)
	drafts := draftsvc.New(draftrepo.NewMemoryRepo(), locks)
	sched := schedule.NewScheduler(schedrepo.NewMemorySlotRepo(), schedrepo.NewMemoryQueueRepo(), drafts, locks, schedule.Config{HorizonDays: 14})
	pub := &stubPublisher{failures: failures}
	disp := New(drafts, sched, pub, maxRetries, time.Minute)

	now := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	sched.SetClock(func() time.Time { return now })
	disp.SetClock(func() time.Time { return now })
	return &dispFixture{disp: disp, drafts: drafts, sched: sched, pub: pub, now: now}
}

func (f *dispFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
	now := f.now
	f.sched.SetClock(func() time.Time { return now })
	f.disp.SetClock(func() time.Time { return now })
}

// scheduledDraft books a slot one hour out and returns the scheduled draft.
func (f *dispFixture) scheduledDraft(t *testing.T, content string) *draft.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := f.drafts.Create(ctx, dispAuthor, draft.KindTweet, []draft.Post{{Content: content}})
	require.NoError(t, err)
	_, err = f.drafts.Submit(ctx, dispAuthor, d.ID)
	require.NoError(t, err)
	_, err = f.drafts.Review(ctx, dispReviewer, d.ID, true, "")
	require.NoError(t, err)

	start := f.now.Add(time.Hour)
	_, err = f.sched.CreateSlot(ctx, dispAuthor, start, start.Add(time.Hour))
	require.NoError(t, err)
	slot, queued, err := f.sched.Reserve(ctx, dispAuthor, d.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, queued)
	require.NotNil(t, slot)

	got, err := f.drafts.Get(ctx, dispAuthor, d.ID)
	require.NoError(t, err)
	return got
}

func TestRunOnce_PublishesDueDrafts(t *testing.T) {
	f := newDispFixture(t, 0, 3)
	ctx := context.Background()
	d := f.scheduledDraft(t, "goes out")

	// not yet due
	require.NoError(t, f.disp.RunOnce(ctx))
	got, _ := f.drafts.Get(ctx, dispAuthor, d.ID)
	require.Equal(t, draft.StatusScheduled, got.Status)

	f.advance(2 * time.Hour)
	require.NoError(t, f.disp.RunOnce(ctx))

	got, err := f.drafts.Get(ctx, dispAuthor, d.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusPublished, got.Status)
	require.Equal(t, "ext-"+d.ID, got.ExternalPostID)
}

func TestRunOnce_FailureRequeuesUrgent(t *testing.T) {
	f := newDispFixture(t, 1, 3)
	ctx := context.Background()
	d := f.scheduledDraft(t, "flaky platform")

	f.advance(2 * time.Hour)
	require.NoError(t, f.disp.RunOnce(ctx))

	// requeued with the attempt counted; the freed slot is in the past so the
	// draft waits in the queue rather than rebooking it
	got, err := f.drafts.Get(ctx, dispAuthor, d.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusApproved, got.Status)
	require.Equal(t, 1, got.DispatchAttempts)

	entries, err := f.sched.Queue(ctx, dispAuthor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, d.ID, entries[0].DraftID)
	require.Equal(t, schedule.PriorityUrgent, entries[0].Priority)

	// a fresh future slot lets the retry book and publish
	start := f.now.Add(time.Hour)
	_, err = f.sched.CreateSlot(ctx, dispAuthor, start, start.Add(time.Hour))
	require.NoError(t, err)
	slot, queued, err := f.sched.Reserve(ctx, dispAuthor, d.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, queued)
	require.NotNil(t, slot)

	f.advance(2 * time.Hour)
	require.NoError(t, f.disp.RunOnce(ctx))
	got, err = f.drafts.Get(ctx, dispAuthor, d.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusPublished, got.Status)
}

func TestRunOnce_ExhaustedRetriesParkFailed(t *testing.T) {
	f := newDispFixture(t, 10, 2)
	ctx := context.Background()
	d := f.scheduledDraft(t, "always failing")

	// first failure: attempt 1 of 2, requeued
	f.advance(2 * time.Hour)
	require.NoError(t, f.disp.RunOnce(ctx))
	got, err := f.drafts.Get(ctx, dispAuthor, d.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusApproved, got.Status)

	// rebook on a fresh slot and fail again: retry budget spent
	start := f.now.Add(time.Hour)
	_, err = f.sched.CreateSlot(ctx, dispAuthor, start, start.Add(time.Hour))
	require.NoError(t, err)
	_, _, err = f.sched.Reserve(ctx, dispAuthor, d.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	require.NoError(t, f.disp.RunOnce(ctx))

	got, err = f.drafts.Get(ctx, dispAuthor, d.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusFailed, got.Status)
	require.NotEmpty(t, got.RejectionReason)

	// failed is terminal; nothing further dispatches
	f.advance(time.Hour)
	require.NoError(t, f.disp.RunOnce(ctx))
	got, _ = f.drafts.Get(ctx, dispAuthor, d.ID)
	require.Equal(t, draft.StatusFailed, got.Status)
}

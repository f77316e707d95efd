package schedule_test

import (
	"context"
	"fmt"
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
	schedAuthor   = identity.Identity{UserID: "u1", TeamID: "t1", Role: identity.RoleMember, Name: "Ada"}
	schedReviewer = identity.Identity{UserID: "u2", TeamID: "t1", Role: identity.RoleAdmin, Name: "Linus"}
)

type fixture struct {
	sched  *schedule.Scheduler
	drafts *draftsvc.Service
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, schedule.Config{HorizonDays: 14})
}

func newFixtureWith(t *testing.T, cfg schedule.Config) *fixture {
	t.Helper()
	locks := locking.NewMemoryLocker(2 * time.Second)
	drafts := draftsvc.New(draftrepo.NewMemoryRepo(), locks)
	sched := schedule.NewScheduler(schedrepo.NewMemorySlotRepo(), schedrepo.NewMemoryQueueRepo(), drafts, locks, cfg)
	now := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	sched.SetClock(func() time.Time { return now })
	return &fixture{sched: sched, drafts: drafts, now: now}
}

func (f *fixture) approvedDraft(t *testing.T, content string) *draft.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := f.drafts.Create(ctx, schedAuthor, draft.KindTweet, []draft.Post{{Content: content}})
	require.NoError(t, err)
	_, err = f.drafts.Submit(ctx, schedAuthor, d.ID)
	require.NoError(t, err)
	d, err = f.drafts.Review(ctx, schedReviewer, d.ID, true, "")
	require.NoError(t, err)
	return d
}

func (f *fixture) addSlot(t *testing.T, offset time.Duration) *schedule.TimeSlot {
	t.Helper()
	start := f.now.Add(offset)
	slot, err := f.sched.CreateSlot(context.Background(), schedAuthor, start, start.Add(time.Hour))
	require.NoError(t, err)
	return slot
}

func TestReserve_AssignsEarliestSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	later := f.addSlot(t, 48*time.Hour)
	earlier := f.addSlot(t, 24*time.Hour)
	d := f.approvedDraft(t, "post one")

	slot, queued, err := f.sched.Reserve(ctx, schedAuthor, d.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, queued)
	require.Equal(t, earlier.ID, slot.ID)
	require.False(t, slot.IsAvailable)
	require.Equal(t, d.ID, slot.DraftID)

	got, err := f.drafts.Get(ctx, schedAuthor, d.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusScheduled, got.Status)
	require.Equal(t, earlier.ID, got.SlotID)
	require.True(t, got.ScheduledFor.Equal(earlier.StartTime))

	// second draft takes the remaining slot
	d2 := f.approvedDraft(t, "post two")
	slot2, queued, err := f.sched.Reserve(ctx, schedAuthor, d2.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, queued)
	require.Equal(t, later.ID, slot2.ID)
}

func TestReserve_RequiresApprovedDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSlot(t, 24*time.Hour)

	d, err := f.drafts.Create(ctx, schedAuthor, draft.KindTweet, []draft.Post{{Content: "unapproved"}})
	require.NoError(t, err)

	_, _, err = f.sched.Reserve(ctx, schedAuthor, d.ID, nil, schedule.PriorityNormal)
	var ite *draft.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestReserve_NoCapacityOnlyWhenHorizonEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d := f.approvedDraft(t, "nowhere to go")
	_, _, err := f.sched.Reserve(ctx, schedAuthor, d.ID, nil, schedule.PriorityNormal)
	require.ErrorIs(t, err, schedule.ErrNoCapacity)

	// one taken slot in the horizon means queueing, not NoCapacity
	f.addSlot(t, 24*time.Hour)
	first := f.approvedDraft(t, "takes the slot")
	_, _, err = f.sched.Reserve(ctx, schedAuthor, first.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	_, queued, err := f.sched.Reserve(ctx, schedAuthor, d.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.NotNil(t, queued)
	require.Equal(t, 1, queued.Position)
}

func TestReserve_WindowFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addSlot(t, 24*time.Hour)
	target := f.addSlot(t, 72*time.Hour)
	d := f.approvedDraft(t, "windowed")

	w := &schedule.Window{From: f.now.Add(48 * time.Hour)}
	slot, queued, err := f.sched.Reserve(ctx, schedAuthor, d.ID, w, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, queued)
	require.Equal(t, target.ID, slot.ID)
}

func TestReserve_WindowMissQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addSlot(t, 24*time.Hour)
	d := f.approvedDraft(t, "window misses")

	w := &schedule.Window{From: f.now.Add(100 * time.Hour)}
	slot, queued, err := f.sched.Reserve(ctx, schedAuthor, d.ID, w, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, slot)
	require.NotNil(t, queued)
	require.True(t, queued.EstimatedTime.Equal(f.now.Add(24*time.Hour)))
}

func TestReserve_SkipsOverlappingReservedInterval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.addSlot(t, 24*time.Hour)
	overlapping := f.addSlot(t, 24*time.Hour+30*time.Minute)
	disjoint := f.addSlot(t, 48*time.Hour)

	holder := f.approvedDraft(t, "holder")
	slot, _, err := f.sched.Reserve(ctx, schedAuthor, holder.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Equal(t, first.ID, slot.ID)

	// the half-overlapping slot is skipped while the first reservation holds it
	next := f.approvedDraft(t, "next")
	slot, queued, err := f.sched.Reserve(ctx, schedAuthor, next.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, queued)
	require.Equal(t, disjoint.ID, slot.ID)

	// nothing disjoint left, so a third draft queues despite the free overlap
	third := f.approvedDraft(t, "third")
	slot, queued, err = f.sched.Reserve(ctx, schedAuthor, third.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Nil(t, slot)
	require.NotNil(t, queued)
	require.Equal(t, 1, queued.Position)

	// the overlapping slot itself was never handed out
	slots, err := f.sched.UpcomingSlots(ctx, schedAuthor)
	require.NoError(t, err)
	for _, s := range slots {
		if s.ID == overlapping.ID {
			require.True(t, s.IsAvailable)
			require.Empty(t, s.DraftID)
		}
	}
}

func TestQueue_PriorityOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// single slot, immediately taken
	f.addSlot(t, 24*time.Hour)
	first := f.approvedDraft(t, "holder")
	_, _, err := f.sched.Reserve(ctx, schedAuthor, first.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	var normals []*draft.Draft
	for i := 0; i < 3; i++ {
		d := f.approvedDraft(t, fmt.Sprintf("normal %d", i))
		_, queued, err := f.sched.Reserve(ctx, schedAuthor, d.ID, nil, schedule.PriorityNormal)
		require.NoError(t, err)
		require.Equal(t, i+1, queued.Position, "FIFO within a priority")
		normals = append(normals, d)
	}

	urgent := f.approvedDraft(t, "urgent one")
	_, queued, err := f.sched.Reserve(ctx, schedAuthor, urgent.ID, nil, schedule.PriorityUrgent)
	require.NoError(t, err)
	require.Equal(t, 1, queued.Position, "urgent jumps ahead of all normals")

	entries, err := f.sched.Queue(ctx, schedAuthor)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Equal(t, urgent.ID, entries[0].DraftID)
	for i, e := range entries {
		require.Equal(t, i+1, e.Position, "positions stay contiguous")
	}
	for i, d := range normals {
		require.Equal(t, d.ID, entries[i+1].DraftID)
	}
}

func TestCancel_PromotesQueueHead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot := f.addSlot(t, 24*time.Hour)
	holder := f.approvedDraft(t, "holder")
	_, _, err := f.sched.Reserve(ctx, schedAuthor, holder.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	waiter := f.approvedDraft(t, "waiter")
	_, queued, err := f.sched.Reserve(ctx, schedAuthor, waiter.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.NotNil(t, queued)

	cancelled, err := f.sched.Cancel(ctx, schedAuthor, holder.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusCancelled, cancelled.Status)

	// the waiter now owns the freed slot
	got, err := f.drafts.Get(ctx, schedAuthor, waiter.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusScheduled, got.Status)
	require.Equal(t, slot.ID, got.SlotID)

	entries, err := f.sched.Queue(ctx, schedAuthor)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCancel_PromotesIntoOutOfHoursSlot(t *testing.T) {
	f := newFixtureWith(t, schedule.Config{HorizonDays: 14, WorkStartHour: 9, WorkEndHour: 17})
	ctx := context.Background()

	// 18:00 the next day, outside working hours, reservable only by window
	evening := f.addSlot(t, 34*time.Hour)
	holder := f.approvedDraft(t, "evening holder")
	w := &schedule.Window{From: evening.StartTime, To: evening.StartTime.Add(time.Minute)}
	slot, _, err := f.sched.Reserve(ctx, schedAuthor, holder.ID, w, schedule.PriorityNormal)
	require.NoError(t, err)
	require.Equal(t, evening.ID, slot.ID)

	waiter := f.approvedDraft(t, "evening waiter")
	_, queued, err := f.sched.Reserve(ctx, schedAuthor, waiter.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)
	require.NotNil(t, queued)

	// cancelling must hand the freed evening slot to the queue head even
	// though the default window would never have picked it
	_, err = f.sched.Cancel(ctx, schedAuthor, holder.ID)
	require.NoError(t, err)

	got, err := f.drafts.Get(ctx, schedAuthor, waiter.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusScheduled, got.Status)
	require.Equal(t, evening.ID, got.SlotID)

	entries, err := f.sched.Queue(ctx, schedAuthor)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCancel_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addSlot(t, 24*time.Hour)
	d := f.approvedDraft(t, "contested cancel")
	_, _, err := f.sched.Reserve(ctx, schedAuthor, d.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	other := identity.Identity{UserID: "u5", TeamID: "t1", Role: identity.RoleMember}
	_, err = f.sched.Cancel(ctx, other, d.ID)
	require.ErrorIs(t, err, draft.ErrNotPermitted)

	// a reviewer may cancel another author's draft
	_, err = f.sched.Cancel(ctx, schedReviewer, d.ID)
	require.NoError(t, err)
}

func TestCancel_QueuedDraftLeavesNoGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addSlot(t, 24*time.Hour)
	holder := f.approvedDraft(t, "holder")
	_, _, err := f.sched.Reserve(ctx, schedAuthor, holder.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	var waiters []*draft.Draft
	for i := 0; i < 3; i++ {
		d := f.approvedDraft(t, fmt.Sprintf("waiter %d", i))
		_, _, err := f.sched.Reserve(ctx, schedAuthor, d.ID, nil, schedule.PriorityNormal)
		require.NoError(t, err)
		waiters = append(waiters, d)
	}

	// cancel the middle entry
	_, err = f.sched.Cancel(ctx, schedAuthor, waiters[1].ID)
	require.NoError(t, err)

	entries, err := f.sched.Queue(ctx, schedAuthor)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, waiters[0].ID, entries[0].DraftID)
	require.Equal(t, waiters[2].ID, entries[1].DraftID)
	for i, e := range entries {
		require.Equal(t, i+1, e.Position)
	}
}

func TestRequeueUrgent_FreesSlotAndJumpsQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slotA := f.addSlot(t, 24*time.Hour)
	failing := f.approvedDraft(t, "will fail dispatch")
	_, _, err := f.sched.Reserve(ctx, schedAuthor, failing.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	waiting := f.approvedDraft(t, "waiting")
	_, _, err = f.sched.Reserve(ctx, schedAuthor, waiting.ID, nil, schedule.PriorityNormal)
	require.NoError(t, err)

	require.NoError(t, f.sched.RequeueUrgent(ctx, "t1", failing.ID))

	// the freed slot goes to whoever heads the queue now: the urgent requeue
	got, err := f.drafts.Get(ctx, schedAuthor, failing.ID)
	require.NoError(t, err)
	require.Equal(t, draft.StatusScheduled, got.Status)
	require.Equal(t, slotA.ID, got.SlotID)
	require.Equal(t, 1, got.DispatchAttempts)

	entries, err := f.sched.Queue(ctx, schedAuthor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, waiting.ID, entries[0].DraftID)
}

func TestMaterialize_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := f.now.Add(24 * time.Hour)
	_, err := f.sched.CreateTemplate(ctx, schedAuthor, start, start.Add(time.Hour),
		schedule.RecurrencePattern{Frequency: schedule.Daily, Interval: 1})
	require.NoError(t, err)

	slots1, err := f.sched.UpcomingSlots(ctx, schedAuthor)
	require.NoError(t, err)
	require.NotEmpty(t, slots1)

	// repeated materialization must not duplicate occurrences
	slots2, err := f.sched.UpcomingSlots(ctx, schedAuthor)
	require.NoError(t, err)
	require.Equal(t, len(slots1), len(slots2))
}

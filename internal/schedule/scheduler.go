package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/draftdeck/draftdeck/internal/draft"
	draftsvc "github.com/draftdeck/draftdeck/internal/draft/service"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/locking"
	"github.com/draftdeck/draftdeck/pkg/logger"
	"github.com/draftdeck/draftdeck/pkg/metrics"
)

// Config bounds the slot search and defines the default reservation window.
type Config struct {
	// HorizonDays is the lookahead for recurrence materialization and the
	// NoCapacity boundary.
	HorizonDays int
	// WorkStartHour/WorkEndHour bound the default window (hours 0-23,
	// half-open) applied when a reservation names no preferred window.
	WorkStartHour int
	WorkEndHour   int
}

func (c Config) horizon() time.Duration {
	days := c.HorizonDays
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

// Scheduler allocates publication slots to approved drafts. All mutations for
// one team run under that team's scheduling lock, so reservation, release and
// queue renumbering never interleave.
type Scheduler struct {
	slots  SlotRepository
	queue  QueueRepository
	drafts *draftsvc.Service
	locks  locking.Locker
	cfg    Config

	now func() time.Time
}

func NewScheduler(slots SlotRepository, queue QueueRepository, drafts *draftsvc.Service, locks locking.Locker, cfg Config) *Scheduler {
	return &Scheduler{
		slots:  slots,
		queue:  queue,
		drafts: drafts,
		locks:  locks,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Scheduler) lockTeam(ctx context.Context, teamID string) (func(), error) {
	release, err := s.locks.Acquire(ctx, draftsvc.TeamScheduleKey(teamID))
	if err != nil {
		if errors.Is(err, locking.ErrNotAcquired) {
			return nil, draft.ErrConflict
		}
		return nil, err
	}
	return release, nil
}

// CreateTemplate registers a recurring slot definition for the caller's team.
func (s *Scheduler) CreateTemplate(ctx context.Context, caller identity.Identity, start, end time.Time, pattern RecurrencePattern) (*TimeSlot, error) {
	if !end.After(start) {
		return nil, &draft.ValidationError{Msg: "slot end must be after start"}
	}
	tpl := &TimeSlot{
		TeamID:      caller.TeamID,
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		IsAvailable: true,
		IsRecurring: true,
		Recurrence:  &pattern,
	}
	// Validate the pattern by expanding an empty range.
	if _, err := ExpandRecurrence(tpl, start, start); err != nil {
		return nil, err
	}
	if err := s.slots.CreateSlot(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// CreateSlot registers a one-off concrete slot.
func (s *Scheduler) CreateSlot(ctx context.Context, caller identity.Identity, start, end time.Time) (*TimeSlot, error) {
	if !end.After(start) {
		return nil, &draft.ValidationError{Msg: "slot end must be after start"}
	}
	slot := &TimeSlot{
		TeamID:      caller.TeamID,
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		IsAvailable: true,
	}
	if err := s.slots.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// Materialize expands every template of the team into concrete slots through
// the scheduling horizon. Occurrence ids are deterministic, so the pass is
// idempotent and safe to run on every tick.
func (s *Scheduler) Materialize(ctx context.Context, teamID string) error {
	now := s.now()
	templates, err := s.slots.ListTemplates(ctx, teamID)
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		occs, err := ExpandRecurrence(tpl, now, now.Add(s.cfg.horizon()))
		if err != nil {
			logger.Warnf("skipping template %s: %v", tpl.ID, err)
			continue
		}
		for _, occ := range occs {
			if err := s.slots.CreateSlot(ctx, occ); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reserve assigns the earliest eligible concrete slot to an approved draft
// and transitions it to scheduled. When no slot is free the draft joins the
// team queue instead; NoCapacity is returned only when the whole horizon
// holds no occurrence at all.
func (s *Scheduler) Reserve(ctx context.Context, caller identity.Identity, draftID string, window *Window, prio Priority) (*TimeSlot, *QueueSlot, error) {
	release, err := s.lockTeam(ctx, caller.TeamID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	d, err := s.drafts.Repo().Get(ctx, draftID)
	if err != nil {
		return nil, nil, err
	}
	if d.TeamID != caller.TeamID {
		return nil, nil, draft.ErrNotFound
	}
	if d.Status != draft.StatusApproved {
		return nil, nil, &draft.InvalidTransitionError{From: d.Status, To: draft.StatusScheduled}
	}

	if err := s.Materialize(ctx, caller.TeamID); err != nil {
		return nil, nil, err
	}
	now := s.now()
	concrete, err := s.slots.ListConcrete(ctx, caller.TeamID, now, now.Add(s.cfg.horizon()))
	if err != nil {
		return nil, nil, err
	}
	if len(concrete) == 0 {
		return nil, nil, ErrNoCapacity
	}

	if slot := s.pickSlot(concrete, window, now); slot != nil {
		if err := s.commitReservation(ctx, slot, draftID); err != nil {
			return nil, nil, err
		}
		return slot, nil, nil
	}

	qs, err := s.enqueue(ctx, caller.TeamID, draftID, prio, concrete)
	if err != nil {
		return nil, nil, err
	}
	return nil, qs, nil
}

// pickSlot returns the earliest available slot matching the window (or the
// default working-hours window) that does not overlap any reserved slot.
// concrete is ordered by StartTime, so the first hit wins ties.
func (s *Scheduler) pickSlot(concrete []*TimeSlot, window *Window, now time.Time) *TimeSlot {
	reserved := []*TimeSlot{}
	for _, c := range concrete {
		if !c.IsAvailable {
			reserved = append(reserved, c)
		}
	}
	for _, c := range concrete {
		if !c.IsAvailable || c.StartTime.Before(now) {
			continue
		}
		if window != nil {
			if !window.contains(c) {
				continue
			}
		} else if !s.inWorkingHours(c) {
			continue
		}
		if overlapsAny(c, reserved) {
			continue
		}
		return c
	}
	return nil
}

func (s *Scheduler) inWorkingHours(slot *TimeSlot) bool {
	start, end := s.cfg.WorkStartHour, s.cfg.WorkEndHour
	if start == 0 && end == 0 {
		return true
	}
	h := slot.StartTime.Hour()
	return h >= start && h < end
}

func overlapsAny(slot *TimeSlot, others []*TimeSlot) bool {
	for _, o := range others {
		if o.ID != slot.ID && slot.Overlaps(o) {
			return true
		}
	}
	return false
}

// commitReservation marks the slot taken, transitions the draft and drops any
// stale queue entry for it. The slot is rolled back when the draft transition
// loses its optimistic write.
func (s *Scheduler) commitReservation(ctx context.Context, slot *TimeSlot, draftID string) error {
	slot.IsAvailable = false
	slot.DraftID = draftID
	if err := s.slots.UpdateSlot(ctx, slot); err != nil {
		return err
	}
	if _, err := s.drafts.MarkScheduled(ctx, draftID, slot.ID, slot.StartTime); err != nil {
		slot.IsAvailable = true
		slot.DraftID = ""
		if rbErr := s.slots.UpdateSlot(ctx, slot); rbErr != nil {
			logger.Errorf("slot %s rollback failed: %v", slot.ID, rbErr)
		}
		return err
	}
	if err := s.removeQueued(ctx, slot.TeamID, draftID); err != nil {
		return err
	}
	metrics.SlotsReserved.WithLabelValues(slot.TeamID).Inc()
	return nil
}

// enqueue inserts the draft into the priority queue: urgent before high
// before normal, FIFO within a priority. Positions are renumbered 1..n and
// estimated times re-projected.
func (s *Scheduler) enqueue(ctx context.Context, teamID, draftID string, prio Priority, concrete []*TimeSlot) (*QueueSlot, error) {
	if prio == "" {
		prio = PriorityNormal
	}
	entries, err := s.queue.List(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.DraftID == draftID {
			return e, nil
		}
	}
	qs := &QueueSlot{
		TeamID:     teamID,
		DraftID:    draftID,
		Priority:   prio,
		EnqueuedAt: s.now(),
	}
	idx := len(entries)
	for i, e := range entries {
		if qs.Priority.Before(e.Priority) {
			idx = i
			break
		}
	}
	entries = append(entries[:idx], append([]*QueueSlot{qs}, entries[idx:]...)...)
	s.renumber(entries, concrete)
	if err := s.queue.Replace(ctx, teamID, entries); err != nil {
		return nil, err
	}
	metrics.DraftsQueued.WithLabelValues(string(prio)).Inc()
	return qs, nil
}

// renumber restores the contiguous 1..n position order and re-projects
// estimated times from the next unreserved occurrences.
func (s *Scheduler) renumber(entries []*QueueSlot, concrete []*TimeSlot) {
	now := s.now()
	free := []time.Time{}
	for _, c := range concrete {
		if c.IsAvailable && !c.StartTime.Before(now) {
			free = append(free, c.StartTime)
		}
	}
	for i, e := range entries {
		e.Position = i + 1
		if i < len(free) {
			e.EstimatedTime = free[i]
		} else if len(free) > 0 {
			e.EstimatedTime = free[len(free)-1]
		} else {
			e.EstimatedTime = time.Time{}
		}
	}
}

func (s *Scheduler) removeQueued(ctx context.Context, teamID, draftID string) error {
	entries, err := s.queue.List(ctx, teamID)
	if err != nil {
		return err
	}
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.DraftID == draftID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return nil
	}
	now := s.now()
	concrete, err := s.slots.ListConcrete(ctx, teamID, now, now.Add(s.cfg.horizon()))
	if err != nil {
		return err
	}
	s.renumber(kept, concrete)
	return s.queue.Replace(ctx, teamID, kept)
}

// Cancel releases a scheduled draft's slot and synchronously promotes the
// queue head, so a freed slot is never observably unoffered.
func (s *Scheduler) Cancel(ctx context.Context, caller identity.Identity, draftID string) (*draft.Draft, error) {
	release, err := s.lockTeam(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}
	defer release()

	d, err := s.drafts.Repo().Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.TeamID != caller.TeamID {
		return nil, draft.ErrNotFound
	}
	if d.AuthorID != caller.UserID && !caller.CanReview() {
		return nil, draft.ErrNotPermitted
	}
	slotID := d.SlotID
	d, err = s.drafts.MarkCancelled(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if slotID != "" {
		if err := s.freeSlot(ctx, slotID); err != nil {
			return nil, err
		}
	}
	if err := s.removeQueued(ctx, caller.TeamID, draftID); err != nil {
		return nil, err
	}
	if err := s.promote(ctx, caller.TeamID); err != nil {
		return nil, err
	}
	return d, nil
}

// RequeueUrgent returns a scheduled draft to the queue head region after a
// dispatch failure: its slot is freed and it re-enters with urgent priority.
func (s *Scheduler) RequeueUrgent(ctx context.Context, teamID, draftID string) error {
	release, err := s.lockTeam(ctx, teamID)
	if err != nil {
		return err
	}
	defer release()

	d, err := s.drafts.Repo().Get(ctx, draftID)
	if err != nil {
		return err
	}
	slotID := d.SlotID
	if _, err := s.drafts.Requeue(ctx, draftID); err != nil {
		return err
	}
	if slotID != "" {
		if err := s.freeSlot(ctx, slotID); err != nil {
			return err
		}
	}
	now := s.now()
	concrete, err := s.slots.ListConcrete(ctx, teamID, now, now.Add(s.cfg.horizon()))
	if err != nil {
		return err
	}
	if _, err := s.enqueue(ctx, teamID, draftID, PriorityUrgent, concrete); err != nil {
		return err
	}
	return s.promote(ctx, teamID)
}

func (s *Scheduler) freeSlot(ctx context.Context, slotID string) error {
	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil
		}
		return err
	}
	slot.IsAvailable = true
	slot.DraftID = ""
	return s.slots.UpdateSlot(ctx, slot)
}

// promote hands the earliest eligible free slot to the queue head. Entries
// whose draft is no longer schedulable are dropped and the next head tried.
func (s *Scheduler) promote(ctx context.Context, teamID string) error {
	entries, err := s.queue.List(ctx, teamID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	now := s.now()
	concrete, err := s.slots.ListConcrete(ctx, teamID, now, now.Add(s.cfg.horizon()))
	if err != nil {
		return err
	}

	for len(entries) > 0 {
		// An unbounded window here: a freed slot was already deemed usable when
		// first reserved, so promotion must not re-apply the working-hours
		// default and strand out-of-hours slots.
		slot := s.pickSlot(concrete, &Window{}, now)
		if slot == nil {
			break
		}
		head := entries[0]
		if err := s.commitReservationInPromotion(ctx, slot, head.DraftID); err != nil {
			var ite *draft.InvalidTransitionError
			if errors.As(err, &ite) || errors.Is(err, draft.ErrNotFound) {
				// Stale entry (draft cancelled or failed while queued).
				entries = entries[1:]
				continue
			}
			return err
		}
		entries = entries[1:]
		metrics.QueuePromotions.WithLabelValues(teamID).Inc()
		break
	}
	s.renumber(entries, concrete)
	return s.queue.Replace(ctx, teamID, entries)
}

// commitReservationInPromotion is commitReservation without the queue strip;
// promote rewrites the queue itself.
func (s *Scheduler) commitReservationInPromotion(ctx context.Context, slot *TimeSlot, draftID string) error {
	slot.IsAvailable = false
	slot.DraftID = draftID
	if err := s.slots.UpdateSlot(ctx, slot); err != nil {
		return err
	}
	if _, err := s.drafts.MarkScheduled(ctx, draftID, slot.ID, slot.StartTime); err != nil {
		slot.IsAvailable = true
		slot.DraftID = ""
		if rbErr := s.slots.UpdateSlot(ctx, slot); rbErr != nil {
			logger.Errorf("slot %s rollback failed: %v", slot.ID, rbErr)
		}
		return err
	}
	metrics.SlotsReserved.WithLabelValues(slot.TeamID).Inc()
	return nil
}

// Queue returns the team's waiting list in position order.
func (s *Scheduler) Queue(ctx context.Context, caller identity.Identity) ([]*QueueSlot, error) {
	return s.queue.List(ctx, caller.TeamID)
}

// UpcomingSlots lists the team's concrete slots over the horizon.
func (s *Scheduler) UpcomingSlots(ctx context.Context, caller identity.Identity) ([]*TimeSlot, error) {
	if err := s.Materialize(ctx, caller.TeamID); err != nil {
		return nil, err
	}
	now := s.now()
	return s.slots.ListConcrete(ctx, caller.TeamID, now, now.Add(s.cfg.horizon()))
}

// SetClock overrides the scheduler's clock. Test hook.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

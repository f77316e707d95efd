package dispatch

import (
	"context"
	"time"

	"github.com/draftdeck/draftdeck/internal/draft"
	draftsvc "github.com/draftdeck/draftdeck/internal/draft/service"
	"github.com/draftdeck/draftdeck/internal/schedule"
	"github.com/draftdeck/draftdeck/pkg/logger"
	"github.com/draftdeck/draftdeck/pkg/metrics"
)

// Publisher is the external posting boundary. Implementations talk to the
// social platform; the engine only sees success plus the external post id.
type Publisher interface {
	Publish(ctx context.Context, d *draft.Draft) (externalPostID string, err error)
}

// Dispatcher drives scheduled drafts through publication: on each tick it
// collects drafts whose slot time has passed and publishes them. A failed
// publish re-queues the draft with urgent priority until MaxRetries is spent,
// then parks it in the failed state for the author — never silently dropped.
type Dispatcher struct {
	drafts     *draftsvc.Service
	sched      *schedule.Scheduler
	pub        Publisher
	maxRetries int
	interval   time.Duration

	now func() time.Time
}

func New(drafts *draftsvc.Service, sched *schedule.Scheduler, pub Publisher, maxRetries int, interval time.Duration) *Dispatcher {
	if maxRetries < 1 {
		maxRetries = 3
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Dispatcher{
		drafts:     drafts,
		sched:      sched,
		pub:        pub,
		maxRetries: maxRetries,
		interval:   interval,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	logger.Infof("publication dispatcher started (interval=%s, maxRetries=%d)", d.interval, d.maxRetries)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("publication dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				logger.Errorf("dispatch pass failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single dispatch pass.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	due, err := d.drafts.Repo().ListScheduledDue(ctx, d.now())
	if err != nil {
		return err
	}
	for _, dr := range due {
		d.dispatchOne(ctx, dr)
	}
	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, dr *draft.Draft) {
	externalID, err := d.pub.Publish(ctx, dr)
	if err == nil {
		if _, err := d.drafts.MarkPublished(ctx, dr.ID, externalID); err != nil {
			logger.Errorf("draft %s published externally but not recorded: %v", dr.ID, err)
			return
		}
		metrics.DispatchOutcomes.WithLabelValues("published").Inc()
		logger.Infof("draft %s published as %s", dr.ID, externalID)
		return
	}

	logger.Warnf("publish failed for draft %s (attempt %d): %v", dr.ID, dr.DispatchAttempts+1, err)
	if dr.DispatchAttempts+1 >= d.maxRetries {
		if _, mfErr := d.drafts.MarkFailed(ctx, dr.ID, err.Error()); mfErr != nil {
			logger.Errorf("draft %s could not be marked failed: %v", dr.ID, mfErr)
			return
		}
		metrics.DispatchOutcomes.WithLabelValues("failed").Inc()
		return
	}
	if rqErr := d.sched.RequeueUrgent(ctx, dr.TeamID, dr.ID); rqErr != nil {
		logger.Errorf("draft %s requeue failed: %v", dr.ID, rqErr)
		return
	}
	metrics.DispatchOutcomes.WithLabelValues("requeued").Inc()
}

// SetClock overrides the dispatcher clock. Test hook.
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/draftdeck/draftdeck/internal/config"
	"github.com/draftdeck/draftdeck/internal/database"
	"github.com/draftdeck/draftdeck/internal/dispatch"
	"github.com/draftdeck/draftdeck/internal/draft"
	draftrepo "github.com/draftdeck/draftdeck/internal/draft/repository"
	draftsvc "github.com/draftdeck/draftdeck/internal/draft/service"
	"github.com/draftdeck/draftdeck/internal/locking"
	"github.com/draftdeck/draftdeck/internal/schedule"
	schedrepo "github.com/draftdeck/draftdeck/internal/schedule/repository"
	"github.com/draftdeck/draftdeck/pkg/logger"
)

// Standalone publication dispatcher. Runs the same dispatch loop the API
// binary embeds, for deployments that separate serving from publishing.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis: %v", err)
			rdb = nil
		}
	}

	var (
		drafts draft.Repository
		slots  schedule.SlotRepository
		queue  schedule.QueueRepository
	)
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Fatalf("dispatcher needs shared storage, cannot connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		db := client.Database(cfg.MongoDB.Database)
		drafts = draftrepo.NewMongoRepo(db.Collection("drafts"))
		slots = schedrepo.NewMongoSlotRepo(db.Collection("time_slots"))
		queue = schedrepo.NewMongoQueueRepo(db.Collection("queue_slots"))
	} else {
		// memory stores mean a private view of the world; only useful for
		// local smoke runs
		logger.Warnf("MONGODB_URI unset, dispatcher running on in-memory storage")
		drafts = draftrepo.NewMemoryRepo()
		slots = schedrepo.NewMemorySlotRepo()
		queue = schedrepo.NewMemoryQueueRepo()
	}

	var locks locking.Locker
	if rdb != nil {
		locks = locking.NewRedisLocker(rdb, cfg.Scheduler.LockTTL, cfg.Scheduler.LockWait)
	} else {
		locks = locking.NewMemoryLocker(cfg.Scheduler.LockWait)
	}

	draftSvc := draftsvc.New(drafts, locks)
	sched := schedule.NewScheduler(slots, queue, draftSvc, locks, schedule.Config{
		HorizonDays:   cfg.Scheduler.HorizonDays,
		WorkStartHour: cfg.Scheduler.WorkStartHour,
		WorkEndHour:   cfg.Scheduler.WorkEndHour,
	})

	disp := dispatch.New(draftSvc, sched, dispatch.LogPublisher{}, cfg.Dispatch.MaxRetries, cfg.Dispatch.Interval)
	disp.Start(ctx)
}

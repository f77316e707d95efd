package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/draftdeck/draftdeck/handlers"
	"github.com/draftdeck/draftdeck/internal/config"
	"github.com/draftdeck/draftdeck/internal/database"
	"github.com/draftdeck/draftdeck/internal/dispatch"
	"github.com/draftdeck/draftdeck/internal/draft"
	draftrepo "github.com/draftdeck/draftdeck/internal/draft/repository"
	draftsvc "github.com/draftdeck/draftdeck/internal/draft/service"
	"github.com/draftdeck/draftdeck/internal/locking"
	"github.com/draftdeck/draftdeck/internal/media"
	"github.com/draftdeck/draftdeck/internal/schedule"
	schedrepo "github.com/draftdeck/draftdeck/internal/schedule/repository"
	"github.com/draftdeck/draftdeck/internal/shared"
	"github.com/draftdeck/draftdeck/pkg/logger"
	"github.com/draftdeck/draftdeck/pkg/metrics"
	"github.com/draftdeck/draftdeck/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Connect to Redis early: locks and the rate-limiter use it when available
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Connect to MongoDB with retry/backoff; fall back to in-memory stores so
	// local stacks run without infrastructure.
	var client *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
			client = nil
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
		}
	}

	var (
		drafts    draft.Repository
		slots     schedule.SlotRepository
		queue     schedule.QueueRepository
		shareRepo shared.Repository
	)
	if client != nil {
		db := client.Database(cfg.MongoDB.Database)
		drafts = draftrepo.NewMongoRepo(db.Collection("drafts"))
		slots = schedrepo.NewMongoSlotRepo(db.Collection("time_slots"))
		queue = schedrepo.NewMongoQueueRepo(db.Collection("queue_slots"))
		shareRepo = shared.NewMongoRepository(db.Collection("shared_drafts"), db.Collection("comments"))
		logger.Infof("Using MongoDB storage: %s", cfg.MongoDB.Database)
	} else {
		drafts = draftrepo.NewMemoryRepo()
		slots = schedrepo.NewMemorySlotRepo()
		queue = schedrepo.NewMemoryQueueRepo()
		shareRepo = shared.NewMemoryRepository()
		logger.Warnf("MongoDB unavailable, using in-memory storage")
	}
	if client == nil && rdb != nil {
		// Redis share store beats plain memory when Mongo is down.
		shareRepo = shared.NewRedisRepository(rdb)
		logger.Infof("Using Redis for share storage")
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
	shareSvc := shared.NewService(shareRepo, drafts, cfg.Share.DefaultTTL)

	// health + readiness
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"storage": drafts != nil,
			"mongo":   client != nil,
			"redis":   rdb != nil,
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// object storage is optional; without it drafts carry opaque media ids only
	var mediaStore *media.Store
	if cfg.Media.Endpoint != "" {
		mediaStore, err = media.NewStore(&media.Config{
			Endpoint:  cfg.Media.Endpoint,
			AccessKey: cfg.Media.AccessKey,
			SecretKey: cfg.Media.SecretKey,
			UseSSL:    cfg.Media.UseSSL,
			Bucket:    cfg.Media.Bucket,
			URLTTL:    cfg.Media.URLTTL,
		})
		if err != nil {
			logger.Warnf("media store unavailable: %v", err)
			mediaStore = nil
		} else {
			logger.Infof("Media storage enabled: %s/%s", cfg.Media.Endpoint, cfg.Media.Bucket)
		}
	}

	// public token-addressed share routes: the token is the credential
	handlers.RegisterPublicShareRoutes(r, shareSvc, mediaStore)

	api := r.Group("/api")
	if cfg.Auth.Insecure || cfg.Auth.JWTSecret == "" {
		logger.Warn("running with insecure header identity (dev mode)")
		api.Use(middleware.InsecureAuthMiddleware())
	} else {
		api.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	}
	handlers.RegisterDraftRoutes(api, draftSvc)
	handlers.RegisterScheduleRoutes(api, sched)
	handlers.RegisterShareRoutes(api, shareSvc)
	if mediaStore != nil {
		handlers.RegisterMediaRoutes(api, mediaStore)
	}

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// background loops: publication dispatch + expired share cleanup
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	disp := dispatch.New(draftSvc, sched, dispatch.LogPublisher{}, cfg.Dispatch.MaxRetries, cfg.Dispatch.Interval)
	go disp.Start(bgCtx)
	go func() {
		ticker := time.NewTicker(cfg.Share.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				if n, err := shareSvc.CleanupExpired(bgCtx); err != nil {
					logger.Errorf("share cleanup failed: %v", err)
				} else if n > 0 {
					logger.Infof("share cleanup removed %d expired shares", n)
				}
			}
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting scheduling service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

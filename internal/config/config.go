package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Dispatch  DispatchConfig
	Share     ShareConfig
	Media     MediaConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// JWTSecret verifies identity tokens minted by the external auth service.
	JWTSecret string
	// Insecure accepts identity from plain headers. Dev and test only.
	Insecure bool
}

type SchedulerConfig struct {
	HorizonDays   int
	WorkStartHour int
	WorkEndHour   int
	LockWait      time.Duration
	LockTTL       time.Duration
}

type DispatchConfig struct {
	Interval   time.Duration
	MaxRetries int
}

type ShareConfig struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

type MediaConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLTTL    time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5020")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("SCHEDULER_HORIZON_DAYS", 14)
	viper.SetDefault("SCHEDULER_WORK_START_HOUR", 8)
	viper.SetDefault("SCHEDULER_WORK_END_HOUR", 20)
	viper.SetDefault("SCHEDULER_LOCK_WAIT_MS", 2000)
	viper.SetDefault("SCHEDULER_LOCK_TTL_MS", 10000)
	viper.SetDefault("DISPATCH_INTERVAL_SECONDS", 60)
	viper.SetDefault("DISPATCH_MAX_RETRIES", 3)
	viper.SetDefault("SHARE_DEFAULT_TTL_HOURS", 336)
	viper.SetDefault("SHARE_CLEANUP_INTERVAL_MINUTES", 60)
	viper.SetDefault("MEDIA_URL_TTL_MINUTES", 15)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			Insecure:  viper.GetBool("AUTH_INSECURE"),
		},
		Scheduler: SchedulerConfig{
			HorizonDays:   viper.GetInt("SCHEDULER_HORIZON_DAYS"),
			WorkStartHour: viper.GetInt("SCHEDULER_WORK_START_HOUR"),
			WorkEndHour:   viper.GetInt("SCHEDULER_WORK_END_HOUR"),
			LockWait:      time.Duration(viper.GetInt("SCHEDULER_LOCK_WAIT_MS")) * time.Millisecond,
			LockTTL:       time.Duration(viper.GetInt("SCHEDULER_LOCK_TTL_MS")) * time.Millisecond,
		},
		Dispatch: DispatchConfig{
			Interval:   time.Duration(viper.GetInt("DISPATCH_INTERVAL_SECONDS")) * time.Second,
			MaxRetries: viper.GetInt("DISPATCH_MAX_RETRIES"),
		},
		Share: ShareConfig{
			DefaultTTL:      time.Duration(viper.GetInt("SHARE_DEFAULT_TTL_HOURS")) * time.Hour,
			CleanupInterval: time.Duration(viper.GetInt("SHARE_CLEANUP_INTERVAL_MINUTES")) * time.Minute,
		},
		Media: MediaConfig{
			Endpoint:  viper.GetString("MEDIA_ENDPOINT"),
			AccessKey: os.Getenv("MEDIA_ACCESS_KEY"),
			SecretKey: os.Getenv("MEDIA_SECRET_KEY"),
			UseSSL:    viper.GetBool("MEDIA_USE_SSL"),
			Bucket:    viper.GetString("MEDIA_BUCKET"),
			URLTTL:    time.Duration(viper.GetInt("MEDIA_URL_TTL_MINUTES")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.Insecure {
		log.Println("WARNING: JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}

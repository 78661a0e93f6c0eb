package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Publishing struct {
	MaxRetries           int
	RetryBaseDelay       time.Duration
	RateLimitedBaseDelay time.Duration
	FailureThreshold     int
}

type Analytics struct {
	MilestoneLikesLadder    []int64
	MilestoneReachThreshold int64
	RetentionDays           int
	EngagementEventDays     int
	WebhookEventDays        int
}

type Sync struct {
	SweepSchedule         string
	TokenRefreshSchedule  string
	DefaultFrequencyHours int
	AccountStagger        time.Duration
	RecentPostWindowDays  int
	PostRefreshInterval   time.Duration
	WorkerConcurrency     int
}

type Config struct {
	InstagramClientID     string
	InstagramClientSecret string
	InstagramRedirectURI  string
	FacebookClientID      string
	FacebookClientSecret  string
	TiktokClientKey       string
	TiktokClientSecret    string
	TiktokRedirectURI     string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	WhatsappAPIBaseURL    string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	R2                    R2
	SecretKey             string
	CookieName            string
	Publishing            Publishing
	Analytics             Analytics
	Sync                  Sync
}

func LoadConfig() *Config {
	return &Config{
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		InstagramRedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		FacebookClientID:      getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret:  getEnv("FACEBOOK_CLIENT_SECRET", ""),
		TiktokClientKey:       getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret:    getEnv("TIKTOK_CLIENT_SECRET", ""),
		TiktokRedirectURI:     getEnv("TIKTOK_REDIRECT_URI", ""),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", ""),
		WhatsappAPIBaseURL:    getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v21.0"),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", ""),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "sp_session"),
		Publishing: Publishing{
			MaxRetries:           getEnvInt("PUBLISH_MAX_RETRIES", 3),
			RetryBaseDelay:       getEnvDuration("PUBLISH_RETRY_BASE_DELAY", time.Minute),
			RateLimitedBaseDelay: getEnvDuration("PUBLISH_RATE_LIMIT_BASE_DELAY", 5*time.Minute),
			FailureThreshold:     getEnvInt("ACCOUNT_FAILURE_THRESHOLD", 3),
		},
		Analytics: Analytics{
			MilestoneLikesLadder:    getEnvInt64List("MILESTONE_LIKES_LADDER", []int64{100, 500, 1000, 5000, 10000}),
			MilestoneReachThreshold: int64(getEnvInt("MILESTONE_REACH_THRESHOLD", 10000)),
			RetentionDays:           getEnvInt("ANALYTICS_RETENTION_DAYS", 365),
			EngagementEventDays:     getEnvInt("ENGAGEMENT_EVENT_RETENTION_DAYS", 180),
			WebhookEventDays:        getEnvInt("WEBHOOK_EVENT_RETENTION_DAYS", 90),
		},
		Sync: Sync{
			SweepSchedule:         getEnv("SYNC_SWEEP_SCHEDULE", "@every 1h0m0s"),
			TokenRefreshSchedule:  getEnv("TOKEN_REFRESH_SCHEDULE", "@every 0h10m0s"),
			DefaultFrequencyHours: getEnvInt("SYNC_DEFAULT_FREQUENCY_HOURS", 6),
			AccountStagger:        getEnvDuration("SYNC_ACCOUNT_STAGGER", 2*time.Second),
			RecentPostWindowDays:  getEnvInt("SYNC_RECENT_POST_WINDOW_DAYS", 7),
			PostRefreshInterval:   getEnvDuration("SYNC_POST_REFRESH_INTERVAL", 24*time.Hour),
			WorkerConcurrency:     getEnvInt("WORKER_CONCURRENCY", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt64List(key string, defaultValue []int64) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var parsed []int64
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return defaultValue
		}
		parsed = append(parsed, n)
	}
	if len(parsed) == 0 {
		return defaultValue
	}
	return parsed
}

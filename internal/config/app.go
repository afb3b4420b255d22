package config

import (
	"errors"
	"time"
)

type AppConfig struct {
	IsProduction bool   `env:"IS_PRODUCTION" envDefault:"false"`
	Port         string `env:"PORT" envDefault:":8080"`
	HealthAddr   string `env:"HEALTH_ADDR" envDefault:""`

	// Logging
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"64"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`

	// Firebase
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string `env:"FIREBASE_CREDENTIALS_JSON"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	UsersCollection         string `env:"FIRESTORE_USERS_COLLECTION" envDefault:"users"`
	InterviewsCollection    string `env:"FIRESTORE_INTERVIEWS_COLLECTION" envDefault:"interviews"`

	// Voice agent platform
	VoiceAgentURL         string        `env:"VOICE_AGENT_URL,required"`
	VoiceAgentToken       string        `env:"VOICE_AGENT_TOKEN"`
	VoiceAgentWorkflowID  string        `env:"VOICE_AGENT_WORKFLOW_ID,required"`
	VoiceAgentDialTimeout time.Duration `env:"VOICE_AGENT_DIAL_TIMEOUT" envDefault:"10s"`

	// Session verification cache
	SessionCacheEnabled bool          `env:"SESSION_CACHE_ENABLED" envDefault:"false"`
	RedisAddr           string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisUsername       string        `env:"REDIS_USERNAME" envDefault:""`
	RedisPassword       string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
	SessionCachePrefix  string        `env:"SESSION_CACHE_PREFIX" envDefault:"interviewer:session:v1"`
	SessionCacheTTL     time.Duration `env:"SESSION_CACHE_TTL" envDefault:"60s"`
	SessionCacheSecret  string        `env:"SESSION_CACHE_SECRET"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

func (cfg *AppConfig) Validate() error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.FirebaseCredentialsJSON != "" && cfg.FirebaseCredentialsFile != "" {
		return errors.New("set only one of FIREBASE_CREDENTIALS_JSON and FIREBASE_CREDENTIALS_FILE")
	}
	if cfg.SessionCacheEnabled {
		if cfg.SessionCacheSecret == "" {
			return errors.New("SESSION_CACHE_SECRET is required when the session cache is enabled")
		}
		if cfg.SessionCacheTTL <= 0 {
			return errors.New("SESSION_CACHE_TTL must be positive")
		}
	}
	return nil
}

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	Env          string // "development" or "production"
	DatabasePath string
	CORSOrigin   string

	// Optional Redis-backed session store; empty means sessions live in
	// sqlite alongside everything else.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Blob storage for attachments. Endpoint may point at MinIO.
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// Outbound mail.
	SendGridAPIKey string
	MailFrom       string
	MailFromName   string
	AppBaseURL     string // reset links are built against this

	// Tag suggestions.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	TagModel      string

	// Cron expression for the token sweeper.
	SweepSchedule string

	// First-run admin seed. Seeding only happens while the users table is
	// empty and AdminPassword is non-empty.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load loads configuration from the environment, after reading an optional
// .env file, and applies defaults.
func Load() (*Config, error) {
	// Missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, err
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:   port,
		Env:          getEnv("APP_ENV", "development"),
		DatabasePath: getEnv("DATABASE_PATH", "./groupdesk.db"),
		CORSOrigin:   getEnv("CORS_ORIGIN", "http://localhost:3000"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		S3Bucket:    getEnv("S3_BUCKET", "groupdesk-attachments"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@groupdesk.local"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Groupdesk"),
		AppBaseURL:     getEnv("APP_BASE_URL", "http://localhost:3000"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		TagModel:      getEnv("TAG_MODEL", "gpt-4o-mini"),

		SweepSchedule: getEnv("SWEEP_SCHEDULE", "*/15 * * * *"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@groupdesk.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}, nil
}

// IsProduction reports whether the app runs with production settings
// (JSON logs, Secure cookies).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

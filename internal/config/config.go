// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database struct {
		Host       string `json:"host"`
		Port       string `json:"port"`
		User       string `json:"user"`
		Password   string `json:"password"`
		Name       string `json:"name"`
		SSLMode    string `json:"sslmode"`
		SearchPath string `json:"schema"`
	} `json:"database"`
	JWT struct {
		Secret       string        `json:"secret"`
		ExpiryPeriod time.Duration `json:"expiry_period"`
	} `json:"jwt"`
	Server struct {
		Port         string        `json:"port"`
		ReadTimeout  time.Duration `json:"read_timeout"`
		WriteTimeout time.Duration `json:"write_timeout"`
		CORSOrigins  []string      `json:"cors_origins"`
	}
	Redis struct {
		URL     string `json:"url"`
		Channel string `json:"channel"`
	} `json:"redis"`
	Realtime struct {
		TicketTTL     time.Duration `json:"ticket_ttl"`
		SendQueueSize int           `json:"send_queue_size"`
	} `json:"realtime"`
	Invitation struct {
		TTL time.Duration `json:"ttl"`
	} `json:"invitation"`
	Mail struct {
		Provider string `json:"provider"`
		From     string `json:"from"`
		FromName string `json:"from_name"`
	} `json:"mail"`
	Sendgrid struct {
		APIKey string `json:"api_key"`
	} `json:"sendgrid"`
	SMTP struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"smtp"`
	BaseURL string `json:"base_url"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// Database configuration
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Name = getEnv("DB_NAME", "huddle")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.SearchPath = getEnv("DB_SCHEMA", "public")

	// JWT configuration
	cfg.JWT.Secret = getEnv("JWT_SECRET", "your-secret-key")
	cfg.JWT.ExpiryPeriod = getEnvDuration("JWT_EXPIRY", time.Hour*24)

	// Server configuration
	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.ReadTimeout = time.Second * 15
	cfg.Server.WriteTimeout = time.Second * 15
	cfg.Server.CORSOrigins = []string{getEnv("CORS_ORIGIN", "http://*")}

	// Redis is optional; without it rooms live in this process only
	cfg.Redis.URL = getEnv("REDIS_URL", "")
	cfg.Redis.Channel = getEnv("REDIS_CHANNEL", "huddle:rooms")

	cfg.Realtime.TicketTTL = getEnvDuration("REALTIME_TICKET_TTL", 30*time.Second)
	cfg.Realtime.SendQueueSize = getEnvInt("REALTIME_SEND_QUEUE", 64)

	cfg.Invitation.TTL = getEnvDuration("INVITATION_TTL", 7*24*time.Hour)

	// Mail configuration
	cfg.Mail.Provider = getEnv("MAIL_PROVIDER", "sendgrid")
	cfg.Mail.From = getEnv("MAIL_FROM", "")
	cfg.Mail.FromName = getEnv("MAIL_FROM_NAME", "Huddle")
	cfg.Sendgrid.APIKey = getEnv("SENDGRID_API_KEY", "")
	cfg.SMTP.Host = getEnv("SMTP_HOST", "")
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", 587)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", "")
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")

	cfg.BaseURL = getEnv("BASE_URL", "http://localhost:3000")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	ServerHost string
	DevMode    bool

	// Database
	DatabaseURL  string
	DatabaseType string // "postgres" or "sqlite"

	// JWT
	JWTSecret     string
	JWTExpiration int // hours

	// Storage
	UploadDir string

	// GitHub proxy
	GitHubAPIBase string
	GitHubToken   string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string

	// App
	AppURL     string
	AppName    string
	AdminEmail string
}

func Load() *Config {
	// Optional .env for local development; ignored when absent
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),
		DevMode:    getEnvBool("DEV_MODE", true),

		// Database
		DatabaseURL:  getEnv("DATABASE_URL", "teamforge.db"),
		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration: getEnvInt("JWT_EXPIRATION", 72),

		// Storage
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),

		// GitHub proxy
		GitHubAPIBase: getEnv("GITHUB_API_BASE", "https://api.github.com"),
		GitHubToken:   getEnv("GITHUB_TOKEN", ""),

		// Email
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@teamforge.dev"),

		// App
		AppURL:     getEnv("APP_URL", "http://localhost:8080"),
		AppName:    getEnv("APP_NAME", "TeamForge"),
		AdminEmail: getEnv("ADMIN_EMAIL", "admin@teamforge.dev"),
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

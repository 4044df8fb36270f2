package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	MongoURI    string
	MongoDBName string

	JWTSecret     string
	TokenLifetime time.Duration

	FinnhubAPIKey  string
	FinnhubBaseURL string
	QuoteTimeout   time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string

	// Alert monitor tunables. Tolerance is the band used by the ==
	// operator; market prices carry sub-cent noise so exact float
	// equality would never fire.
	CheckInterval     time.Duration
	AlertCooldown     time.Duration
	EqualityTolerance float64
	MonitorEnabled    bool

	// Where CRUD handlers push change events. Defaults to the local
	// server's own broadcast endpoint; point it at a separate hub
	// process when the API and hub are deployed apart.
	BroadcastURL     string
	BroadcastTimeout time.Duration
}

var AppConfig *Config

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := getEnv("PORT", "8080")

	config := &Config{
		Port:        port,
		Environment: getEnv("ENVIRONMENT", "development"),

		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGODB_DB", "marketinni"),

		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenLifetime: getEnvDuration("TOKEN_LIFETIME", 7*24*time.Hour),

		FinnhubAPIKey:  getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		QuoteTimeout:   getEnvDuration("QUOTE_TIMEOUT", 30*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "Marketinni <alerts@marketinni.app>"),

		CheckInterval:     getEnvDuration("ALERT_CHECK_INTERVAL", 15*time.Minute),
		AlertCooldown:     getEnvDuration("ALERT_COOLDOWN", 4*time.Hour),
		EqualityTolerance: getEnvFloat("ALERT_EQUALITY_TOLERANCE", 0.01),
		MonitorEnabled:    getEnvBool("MONITOR_ENABLED", true),

		BroadcastURL:     getEnv("WS_BROADCAST_URL", "http://localhost:"+port+"/api/v1/broadcast"),
		BroadcastTimeout: getEnvDuration("BROADCAST_TIMEOUT", 2*time.Second),
	}

	AppConfig = config
	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %g", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresUrl             string
	MongoURI                string
	MongoDB                 string
	MetricsPort             string
	JWTSecret               string
	SessionSecret           string
	RedisURL                string
	StorageBucket           string
	AppURL                  string
	RateLimitRPS            int
	RateLimitBurst          int
	LogLevel                string
	RescoreCron             string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		PostgresUrl:             getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDB:                 getEnv("MONGO_DB", "bizgram"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		SessionSecret:           getEnv("SESSION_SECRET", "change-me-session-secret"),
		RedisURL:                getEnv("REDIS_URL", ""),
		StorageBucket:           getEnv("STORAGE_BUCKET", ""),
		AppURL:                  getEnv("APP_URL", "http://localhost:3000"),
		RateLimitRPS:            getEnvInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst:          getEnvInt("RATE_LIMIT_BURST", 20),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		RescoreCron:             getEnv("RESCORE_CRON", "@every 15m"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	RabbitMQURL string
	LogLevel    string
	LogFormat   string
	BcryptCost  int
	ResetDB     bool

	// ImportMaxBytes caps the size of an uploaded CSV file.
	ImportMaxBytes int64

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		MySQLDSN:       getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/letterdesk?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisPass:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      getEnv("JWT_SECRET", "change-me"),
		SwaggerHost:    os.Getenv("SWAGGER_HOST"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		BcryptCost:     getEnvInt("BCRYPT_COST", 10),
		ResetDB:        getEnvBool("RESET_DB", false),
		ImportMaxBytes: int64(getEnvInt("IMPORT_MAX_BYTES", 5<<20)),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminName:      getEnv("ADMIN_NAME", "Administrator"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

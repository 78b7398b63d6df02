package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SubmissionQueueName  string
	ResultChannelName    string
	SandboxURL           string
	SandboxAuthToken     string
	SandboxTimeoutSec    int
	BattleCountdownSec   int
	DefaultTimeLimitMs   int
	DefaultMemoryLimitKb int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		JWTKey:               []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:               time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "user"),
		DBPassword:           getEnv("DB_PASSWORD", "password"),
		DBName:               getEnv("DB_NAME", "algoverse_db"),
		DBSslMode:            getEnv("DB_SSLMODE", "disable"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvAsInt("REDIS_DB", 0),
		SubmissionQueueName:  getEnv("SUBMISSION_QUEUE_NAME", "submission_jobs_queue"),
		ResultChannelName:    getEnv("RESULT_CHANNEL_NAME", "submission_results"),
		SandboxURL:           getEnv("SANDBOX_URL", "http://localhost:2358"),
		SandboxAuthToken:     getEnv("SANDBOX_AUTH_TOKEN", ""),
		SandboxTimeoutSec:    getEnvAsInt("SANDBOX_TIMEOUT_SECONDS", 30),
		BattleCountdownSec:   getEnvAsInt("BATTLE_COUNTDOWN_SECONDS", 5),
		DefaultTimeLimitMs:   getEnvAsInt("DEFAULT_TIME_LIMIT_MS", 2000),
		DefaultMemoryLimitKb: getEnvAsInt("DEFAULT_MEMORY_LIMIT_KB", 128000),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Tokens TokenDirectoryConfig
	Push   PushConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type TokenDirectoryConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PushConfig struct {
	URL     string
	Timeout time.Duration
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout:    getDurationOrDefault("WRITE_TIMEOUT", "15s"),
			ShutdownTimeout: getDurationOrDefault("SHUTDOWN_TIMEOUT", "10s"),
		},
		Tokens: TokenDirectoryConfig{
			BaseURL: getEnvOrDefault("TOKEN_DIRECTORY_URL", "http://localhost:3001"),
			Timeout: getDurationOrDefault("TOKEN_DIRECTORY_TIMEOUT", "10s"),
		},
		Push: PushConfig{
			URL:     getEnvOrDefault("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
			Timeout: getDurationOrDefault("EXPO_PUSH_TIMEOUT", "10s"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Pretty: getBoolOrDefault("LOG_PRETTY", false),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Fatalf("Invalid boolean for %s: %v", key, err)
	}
	return boolValue
}

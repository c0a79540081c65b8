// Package config reads the process configuration from the environment.
// It is consulted only from main; everything downstream takes plain values.
package config

import (
	"fmt"
	"os"
)

// Config holds every environment-driven setting.
type Config struct {
	MainTable        string
	FilesBucket      string
	UserPoolID       string
	UserPoolClientID string

	// GeminiAPIKey may be empty when GeminiAPIKeyParam names an SSM
	// parameter holding the key.
	GeminiAPIKey      string
	GeminiAPIKeyParam string

	// BedrockRegion overrides the default region for the Bedrock runtime
	// client; inference profiles may live apart from the data plane.
	BedrockRegion string

	Env      string
	LogLevel string
}

// Load reads the environment. Required values missing is a startup error.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiAPIKeyParam: os.Getenv("GEMINI_API_KEY_PARAM"),
		BedrockRegion:     os.Getenv("BEDROCK_REGION"),
		Env:               getEnv("ENV", "prod"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
	}

	var err error
	if cfg.MainTable, err = requireEnv("MAIN_TABLE"); err != nil {
		return Config{}, err
	}
	if cfg.FilesBucket, err = requireEnv("FILES_BUCKET"); err != nil {
		return Config{}, err
	}
	if cfg.UserPoolID, err = requireEnv("USER_POOL_ID"); err != nil {
		return Config{}, err
	}
	if cfg.UserPoolClientID, err = requireEnv("USER_POOL_CLIENT_ID"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("config: required environment variable %s is not set", key)
	}
	return v, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

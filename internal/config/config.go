package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/recognize"
)

// Config holds runtime settings for the application.
type Config struct {
	Host      string
	Port      int
	Language  string
	ModelDir  string
	ModelID   string
	MinFreeMB int
}

// Load reads an optional .env file and environment variables, falling
// back to local-first defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not read .env file: %v\n", err)
	}

	return Config{
		Host:      getEnv("HOST", "127.0.0.1"),
		Port:      getEnvInt("PORT", 5000),
		Language:  getEnv("LANGUAGE", "en"),
		ModelDir:  getEnv("WHISPER_MODEL_DIR", defaultModelDir()),
		ModelID:   getEnv("WHISPER_MODEL", recognize.DefaultModelID),
		MinFreeMB: getEnvInt("MIN_FREE_MB", 100),
	}
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsLoopback reports whether the server only serves the local machine.
func (c Config) IsLoopback() bool {
	switch c.Host {
	case "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}

func defaultModelDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".whisper-youtube-transcriber", "models")
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}

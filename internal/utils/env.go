package utils

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Environment keys read at startup.
const (
	EnvServerURL = "RAGDESK_SERVER"
	EnvAPIKey    = "RAGDESK_API_KEY"
	EnvDebug     = "RAGDESK_DEBUG"
)

// LoadEnv loads a .env file from the working directory when one exists.
// A missing file is not an error; the process environment still applies.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ServerURL returns the configured inference server base URL, falling back
// to the local default.
func ServerURL() string {
	if v := os.Getenv(EnvServerURL); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// APIKey returns the server credential from the environment, possibly empty.
func APIKey() string {
	return os.Getenv(EnvAPIKey)
}

// DebugEnabled reports whether verbose logging was requested.
func DebugEnabled() bool {
	v := os.Getenv(EnvDebug)
	return v != "" && v != "0" && v != "false"
}

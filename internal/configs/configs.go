/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, the execution service
endpoint, and the default language for new rooms.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// DefaultExecAPIURL is the public Piston execution endpoint used when EXEC_API_URL is unset.
const DefaultExecAPIURL = "https://emkc.org/api/v2/piston/execute"

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Execution Service Settings
	ExecAPIURL string

	// Room Settings
	DefaultLanguage string
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type
// conversions and validation. It returns a pointer to the AppConfig struct and any
// error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "3001"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Execution Service Settings ---
	cfg.ExecAPIURL = os.Getenv("EXEC_API_URL")
	if cfg.ExecAPIURL == "" {
		cfg.ExecAPIURL = DefaultExecAPIURL
	}
	if _, err := url.ParseRequestURI(cfg.ExecAPIURL); err != nil {
		return nil, fmt.Errorf("invalid EXEC_API_URL environment variable: %w", err)
	}

	// --- Room Settings ---
	cfg.DefaultLanguage = os.Getenv("DEFAULT_LANGUAGE")
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "python"
	}

	return cfg, nil
}

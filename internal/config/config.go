// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Addon    AddonConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name            string
	PublicURL       string        // Optional, used for the advertised manifest URL
	Port            string        // Server port (default: 7700)
	ReadTimeout     time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout    time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout     time.Duration // HTTP idle timeout (default: 60s)
	AdvertiseMDNS   bool          // Advertise via mDNS/Zeroconf (default: true)
	RateLimitPerMin int           // Per-IP request budget per minute, 0 disables (default: 0)
}

// DatabaseConfig holds catalog file configuration.
type DatabaseConfig struct {
	// CatalogPath is the enriched catalog JSON (or .gz) produced by the
	// refresh pipeline.
	CatalogPath string
	// FiltersPath is the precomputed filter options file. Empty means
	// filters.json next to the catalog.
	FiltersPath string
	// Watch reloads the catalog when the file changes on disk.
	Watch bool
}

// AddonConfig holds the addon identity served in the manifest.
type AddonConfig struct {
	ID          string
	Name        string
	Description string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	serverName := flag.String("server-name", "", "Name for the server")
	publicURL := flag.String("public-url", "", "Public base URL for the addon")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 7700)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	advertiseMDNS := flag.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: true)")
	rateLimit := flag.String("rate-limit", "", "Per-IP requests per minute, 0 disables (default: 0)")

	// Catalog flags
	catalogPath := flag.String("catalog", "", "Path to the enriched catalog JSON")
	filtersPath := flag.String("filters", "", "Path to the filter options JSON")
	watchCatalog := flag.String("watch", "", "Reload the catalog on file change (default: true)")

	// Addon identity flags
	addonID := flag.String("addon-id", "", "Addon manifest id")
	addonName := flag.String("addon-name", "", "Addon display name")
	addonDescription := flag.String("addon-description", "", "Addon description")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name:            getConfigValue(*serverName, "SERVER_NAME", "Haru"),
			PublicURL:       getConfigValue(*publicURL, "PUBLIC_URL", ""),
			Port:            getConfigValue(*serverPort, "SERVER_PORT", "7700"),
			AdvertiseMDNS:   getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", true),
			RateLimitPerMin: getIntConfigValue(*rateLimit, "RATE_LIMIT_PER_MIN", 0),
		},
		Database: DatabaseConfig{
			CatalogPath: getConfigValue(*catalogPath, "CATALOG_PATH", ""),
			FiltersPath: getConfigValue(*filtersPath, "FILTERS_PATH", ""),
			Watch:       getBoolConfigValue(*watchCatalog, "WATCH_CATALOG", true),
		},
		Addon: AddonConfig{
			ID:          getConfigValue(*addonID, "ADDON_ID", "community.haru.anime"),
			Name:        getConfigValue(*addonName, "ADDON_NAME", "Haru Anime Catalogs"),
			Description: getConfigValue(*addonDescription, "ADDON_DESCRIPTION", "Anime catalogs built from Kitsu and MyAnimeList with IMDB ratings"),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate the catalog path.
	if err := cfg.expandCatalogPath(); err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}

	// Derive the filters path when not set.
	if err := cfg.expandFiltersPath(); err != nil {
		return nil, fmt.Errorf("invalid filters path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.Port == "" {
		return errors.New("server port cannot be empty")
	}

	if c.Database.CatalogPath == "" {
		return errors.New("catalog path cannot be empty after expansion")
	}

	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("rate limit cannot be negative: %d", c.Server.RateLimitPerMin)
	}

	if c.Addon.ID == "" {
		return errors.New("addon id cannot be empty")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandCatalogPath expands ~ and makes the path absolute.
// Defaults to data/database.json under the working directory.
func (c *Config) expandCatalogPath() error {
	defaultPath, err := filepath.Abs(filepath.Join("data", "database.json"))
	if err != nil {
		return fmt.Errorf("failed to resolve default catalog path: %w", err)
	}

	expanded, err := expandPath(c.Database.CatalogPath, defaultPath)
	if err != nil {
		return err
	}
	c.Database.CatalogPath = expanded
	return nil
}

// expandFiltersPath expands ~ and makes the path absolute.
// Defaults to filters.json next to the catalog file.
func (c *Config) expandFiltersPath() error {
	defaultPath := filepath.Join(filepath.Dir(c.Database.CatalogPath), "filters.json")

	expanded, err := expandPath(c.Database.FiltersPath, defaultPath)
	if err != nil {
		return err
	}
	c.Database.FiltersPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}

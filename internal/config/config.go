// Package config loads process configuration from the environment, the way
// the original service reads its .env-backed settings at startup. There is
// no config file format here: every field is one environment variable, and
// missing required variables fail startup immediately rather than limping
// along with zero values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-derived setting the server needs at boot.
// Email/Discord fields are carried even though this module does not
// implement the mail/OAuth flows themselves (out of scope per spec
// Non-goals) because other_examples-style services in this corpus treat
// them as part of the same settings struct; dropping them here would mean
// re-deriving them later if those flows are ever wired back in.
type Config struct {
	Host        string
	DatabaseURL string

	EmailHost string
	EmailName string
	EmailPass string
	EmailFrom string

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// TokenPurgeInterval controls how often the token manager sweeps
	// expired entries and rewrites its snapshot file.
	TokenPurgeInterval time.Duration

	// PortRangeStart/End bound the UDP ports handed out to F1 services.
	PortRangeStart int
	PortRangeEnd   int
}

// Load reads Config from the process environment. Required variables that
// are unset or empty return an error naming the missing key; optional
// variables fall back to defaults suited to local development.
func Load() (Config, error) {
	cfg := Config{
		EmailHost:           os.Getenv("EMAIL_HOST"),
		EmailName:           os.Getenv("EMAIL_NAME"),
		EmailPass:           os.Getenv("EMAIL_PASS"),
		EmailFrom:           os.Getenv("EMAIL_FROM"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  os.Getenv("DISCORD_REDIRECT_URI"),
		TokenPurgeInterval:  15 * time.Minute,
		PortRangeStart:      27700,
		PortRangeEnd:        27800,
	}

	var err error
	if cfg.Host, err = requireEnv("HOST"); err != nil {
		return Config{}, err
	}
	if cfg.DatabaseURL, err = requireEnv("DATABASE_URL"); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("TOKEN_PURGE_INTERVAL_SECONDS"); v != "" {
		secs, parseErr := strconv.Atoi(v)
		if parseErr != nil {
			return Config{}, fmt.Errorf("config: TOKEN_PURGE_INTERVAL_SECONDS: %w", parseErr)
		}
		cfg.TokenPurgeInterval = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("PORT_RANGE_START"); v != "" {
		cfg.PortRangeStart, err = strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: PORT_RANGE_START: %w", err)
		}
	}
	if v := os.Getenv("PORT_RANGE_END"); v != "" {
		cfg.PortRangeEnd, err = strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: PORT_RANGE_END: %w", err)
		}
	}
	if cfg.PortRangeEnd <= cfg.PortRangeStart {
		return Config{}, fmt.Errorf("config: PORT_RANGE_END (%d) must be greater than PORT_RANGE_START (%d)", cfg.PortRangeEnd, cfg.PortRangeStart)
	}

	return cfg, nil
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("config: missing required environment variable %s", key)
	}
	return v, nil
}

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/logging"
)

// Backend modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config holds runtime settings for the storefront CLI.
//
// Units: TokenTTL, RequestTimeout and OnlineCheckInterval are time.Duration.
type Config struct {
	Mode                string
	ServerURL           string
	HealthAddr          string
	StoragePath         string
	TokenSecret         string
	TokenTTL            time.Duration
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	LogFormat           string
	AllowRoleSelection  bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Mode = ModeLocal
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.StoragePath = "storefront.db"
	c.TokenSecret = ""
	c.TokenTTL = 24 * time.Hour
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.LogFormat = logging.FormatConsole
	c.AllowRoleSelection = false
}

// Validate checks that the settings are usable together.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeLocal, ModeRemote, c.Mode)
	}
	if c.StoragePath == "" {
		return fmt.Errorf("storage path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	if c.Mode == ModeRemote {
		u, err := url.Parse(c.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server url %q is not an absolute URL", c.ServerURL)
		}
		if c.RequestTimeout <= 0 {
			return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
		}
	}
	switch c.LogFormat {
	case logging.FormatJSON, logging.FormatText, logging.FormatConsole:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

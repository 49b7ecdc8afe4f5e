package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration, so "3s" and integer nanoseconds are both accepted. Absent
// keys leave the current value alone.
type JsonConfig struct {
	Mode                string          `json:"mode"`
	ServerURL           string          `json:"server_url"`
	HealthAddr          string          `json:"health_addr"`
	StoragePath         string          `json:"storage_path"`
	TokenSecret         string          `json:"token_secret"`
	TokenTTL            *timex.Duration `json:"token_ttl"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	LogFormat           string          `json:"log_format"`
	AllowRoleSelection  *bool           `json:"allow_role_selection"`
}

// parseJson overlays cfg with the JSON file at path.
func parseJson(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Mode, jc.Mode)
	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.HealthAddr, jc.HealthAddr)
	setString(&cfg.StoragePath, jc.StoragePath)
	setString(&cfg.TokenSecret, jc.TokenSecret)
	setString(&cfg.LogFormat, jc.LogFormat)
	setDuration(&cfg.TokenTTL, jc.TokenTTL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	if jc.AllowRoleSelection != nil {
		cfg.AllowRoleSelection = *jc.AllowRoleSelection
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/shopkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration file. Durations
// go through timex.Duration so both "24h" and integer nanoseconds parse.
// Absent fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr       string          `json:"http_addr"`
	GRPCAddr       string          `json:"grpc_addr"`
	DatabaseDSN    string          `json:"database_dsn"`
	SecretKey      string          `json:"secret_key"`
	TokenTTL       *timex.Duration `json:"token_ttl"`
	BcryptCost     *int            `json:"bcrypt_cost"`
	AllowedOrigins []string        `json:"allowed_origins"`
	AdminName      string          `json:"admin_name"`
	AdminEmail     string          `json:"admin_email"`
	AdminPassword  string          `json:"admin_password"`
	PurgeSchedule  string          `json:"purge_schedule"`
	LogFormat      string          `json:"log_format"`
}

// parseJson loads the JSON file at path into config. An empty path means no
// file was requested.
func parseJson(path string, config *Config) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.HTTPAddr, c.HTTPAddr)
	set(&config.GRPCAddr, c.GRPCAddr)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.AdminName, c.AdminName)
	set(&config.AdminEmail, c.AdminEmail)
	set(&config.AdminPassword, c.AdminPassword)
	set(&config.PurgeSchedule, c.PurgeSchedule)
	set(&config.LogFormat, c.LogFormat)

	if c.TokenTTL != nil {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvHTTPAddr       = "SHOP_HTTP_ADDR"
	EnvGRPCAddr       = "SHOP_GRPC_ADDR"
	EnvDatabaseDSN    = "SHOP_DATABASE_DSN"
	EnvSecretKey      = "SHOP_SECRET_KEY"
	EnvTokenTTL       = "SHOP_TOKEN_TTL"
	EnvBcryptCost     = "SHOP_BCRYPT_COST"
	EnvAllowedOrigins = "SHOP_CORS_ORIGINS"
	EnvAdminName      = "SHOP_ADMIN_NAME"
	EnvAdminEmail     = "SHOP_ADMIN_EMAIL"
	EnvAdminPassword  = "SHOP_ADMIN_PASSWORD"
	EnvPurgeSchedule  = "SHOP_PURGE_SCHEDULE"
	EnvLogFormat      = "SHOP_LOG_FORMAT"
)

// envLookup returns a lookup over the process environment, falling back to
// the variables of the dotenv file at path. A missing file is not an error.
// Process variables win over the file.
func envLookup(path string) (func(string) (string, bool), error) {
	vars, err := godotenv.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

// parseEnv overlays the SHOP_* variables found by lookup onto config.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvHTTPAddr, &config.HTTPAddr)
	str(EnvGRPCAddr, &config.GRPCAddr)
	str(EnvDatabaseDSN, &config.DatabaseDSN)
	str(EnvSecretKey, &config.SecretKey)
	str(EnvAdminName, &config.AdminName)
	str(EnvAdminEmail, &config.AdminEmail)
	str(EnvAdminPassword, &config.AdminPassword)
	str(EnvPurgeSchedule, &config.PurgeSchedule)
	str(EnvLogFormat, &config.LogFormat)

	if v, ok := lookup(EnvTokenTTL); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTokenTTL, err)
		}
		config.TokenTTL = d
	}
	if v, ok := lookup(EnvBcryptCost); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBcryptCost, err)
		}
		config.BcryptCost = n
	}
	if v, ok := lookup(EnvAllowedOrigins); ok && v != "" {
		config.AllowedOrigins = splitList(v)
	}
	return nil
}

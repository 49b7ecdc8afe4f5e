package config

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/shopkeeper/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-d", "-s", "-t", "-o", "-n", "-e", "-p", "-k", "-l"}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-g string     gRPC health bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-s string     token HMAC secret key
//	-t duration   token lifetime (e.g., "24h")
//	-o string     comma-separated CORS origins
//	-n string     bootstrap admin name
//	-e string     bootstrap admin email
//	-p string     bootstrap admin password
//	-k string     revocation purge cron schedule
//	-l string     log format: json, text or console
//
// args is filtered with flagx.FilterArgs first so flags owned by other
// components (-c for the JSON file) do not collide.
func parseFlags(args []string, config *Config) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenTTL, "t", config.TokenTTL, "token validity duration")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "comma-separated CORS origins")
	fs.StringVar(&config.AdminName, "n", config.AdminName, "bootstrap admin name")
	fs.StringVar(&config.AdminEmail, "e", config.AdminEmail, "bootstrap admin email")
	fs.StringVar(&config.AdminPassword, "p", config.AdminPassword, "bootstrap admin password")
	fs.StringVar(&config.PurgeSchedule, "k", config.PurgeSchedule, "revocation purge schedule")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AllowedOrigins = splitList(*origins)
	return nil
}

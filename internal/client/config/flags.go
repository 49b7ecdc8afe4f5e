package config

import (
	"github.com/spf13/pflag"
)

// Flags binds the CLI's persistent flags. Only flags the user actually set
// override the JSON file.
type Flags struct {
	fs         *pflag.FlagSet
	values     Config
	configPath string
}

// overrides copies one flag's value into the resulting Config.
var overrides = map[string]func(dst, src *Config){
	"mode":                 func(d, s *Config) { d.Mode = s.Mode },
	"addr":                 func(d, s *Config) { d.ServerURL = s.ServerURL },
	"health-addr":          func(d, s *Config) { d.HealthAddr = s.HealthAddr },
	"storage":              func(d, s *Config) { d.StoragePath = s.StoragePath },
	"token-secret":         func(d, s *Config) { d.TokenSecret = s.TokenSecret },
	"ttl":                  func(d, s *Config) { d.TokenTTL = s.TokenTTL },
	"timeout":              func(d, s *Config) { d.RequestTimeout = s.RequestTimeout },
	"interval":             func(d, s *Config) { d.OnlineCheckInterval = s.OnlineCheckInterval },
	"log-format":           func(d, s *Config) { d.LogFormat = s.LogFormat },
	"allow-role-selection": func(d, s *Config) { d.AllowRoleSelection = s.AllowRoleSelection },
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	f.values.LoadDefaults()
	v := &f.values

	fs.StringVarP(&f.configPath, "config", "c", "", "path to a JSON config file")
	fs.StringVarP(&v.Mode, "mode", "m", v.Mode, "auth backend: local or remote")
	fs.StringVarP(&v.ServerURL, "addr", "a", v.ServerURL, "base URL of the auth server (remote mode)")
	fs.StringVarP(&v.HealthAddr, "health-addr", "g", v.HealthAddr, "host:port of the server's gRPC health service (remote mode)")
	fs.StringVarP(&v.StoragePath, "storage", "d", v.StoragePath, "path to the local storage database")
	fs.StringVar(&v.TokenSecret, "token-secret", v.TokenSecret, "signature string for locally issued tokens (local mode)")
	fs.DurationVarP(&v.TokenTTL, "ttl", "t", v.TokenTTL, "lifetime of locally issued tokens")
	fs.DurationVar(&v.RequestTimeout, "timeout", v.RequestTimeout, "timeout of a single server request")
	fs.DurationVarP(&v.OnlineCheckInterval, "interval", "i", v.OnlineCheckInterval, "server reachability check interval")
	fs.StringVarP(&v.LogFormat, "log-format", "l", v.LogFormat, "log format: console, json or text")
	fs.BoolVar(&v.AllowRoleSelection, "allow-role-selection", v.AllowRoleSelection, "let registration pick a role (local demo only)")

	return f
}

// Load resolves the configuration once fs has been parsed: defaults, then
// the JSON file, then explicitly set flags.
func (f *Flags) Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if f.configPath != "" {
		if err := parseJson(f.configPath, cfg); err != nil {
			return nil, err
		}
	}

	// Changed lives on the shared *Flag, so this also sees flags parsed by
	// a subcommand that inherited the set.
	f.fs.VisitAll(func(fl *pflag.Flag) {
		if apply, ok := overrides[fl.Name]; ok && fl.Changed {
			apply(cfg, &f.values)
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

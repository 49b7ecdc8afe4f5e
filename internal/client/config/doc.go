// Package config loads runtime configuration for the storefront CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/--config.
//  3. Command-line flags the user explicitly set.
//
// Supported flags
//
//	-m, --mode string            local or remote
//	-a, --addr string            base URL of the auth server
//	-g, --health-addr string     host:port of the gRPC health service
//	-d, --storage string         local storage database path
//	    --token-secret string    signature string of local tokens
//	-t, --ttl duration           lifetime of local tokens
//	    --timeout duration       per-request timeout
//	-i, --interval duration      reachability check interval
//	-l, --log-format string      console, json or text
//	    --allow-role-selection   let registration pick a role
//
// # JSON schema
//
//	{
//	  "mode": "remote",
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "storage_path": "storefront.db",
//	  "token_ttl": "24h",
//	  "request_timeout": "10s",
//	  "online_check_interval": "3s",
//	  "log_format": "console",
//	  "allow_role_selection": false
//	}
package config

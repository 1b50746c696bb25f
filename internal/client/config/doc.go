// Package config loads runtime configuration for the speechcoach CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c/-config or SPEECHCOACH_CLI_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the API server
//	-f string   token file path
//	-t int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "https://api.example.com",
//	  "token_file": "/home/me/.config/speechcoach/tokens.json",
//	  "request_timeout": "10s"
//	}
package config

// Package config handles configuration file parsing and validation for the gateway.
//
// The gateway's own settings live in a TOML file. The API metadata itself is
// not configured here; it is read from the JH_WS02_* tables through the
// config_store DSN.
//
// # Configuration Structure
//
//   - [general]: listen address, request timeout, trusted proxies, SQL properties
//     catalogue, audit log sink, default encoding scheme
//   - [config_store]: DSN of the metadata tables, cache TTL and size, isolation
//   - [[connection]]: named SQL backends (the JNDI_USE column) with DSN templates
//   - [[host]]: the fixed host-code lookup (WEB_SERVICE_CODE to name and address)
//   - [dns]: optional DNS server for resolving host names
//   - [ssh]: credentials and timeouts for SSH actions
//   - [[encoding]]: IS_ENCODE strategy per syntax-configuration key
//
// Values of the form ${NAME} in DSNs and the SSH password are expanded from the
// environment after a .env file next to the configuration (if any) is loaded.
//
// # Example Usage
//
//	cfg, err := config.LoadConfig("/etc/ws02-gateway/gateway.toml")
//	if err != nil {
//	    log.Fatalf("%v", err)
//	}
//	if err := cfg.ValidateConfig(); err != nil {
//	    log.Fatalf("%v", err) // lists every failing field
//	}
package config

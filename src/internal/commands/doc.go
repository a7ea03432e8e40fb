// Package commands implements the ws02-gateway subcommands.
//
// Each command implements the Runner interface: Init parses its flags, loads
// and validates the configuration and wires the gateway through
// core.AppDependencies; Run does the work and releases what Init opened.
//
// # Available Commands
//
//   - service: serve the gateway over HTTP until SIGINT/SIGTERM; SIGHUP reloads
//     the SQL properties and drops cached definitions
//   - check-config: ping the config store, resolve every API code and report
//     invalid definitions, missing syntax keys and unconfigured connections
//   - export: write the Markdown API reference for the flows matching -prefix
//   - invoke: run one API through the full pipeline and print the JSON result
//
// # Example Usage
//
//	cmd := commands.CreateInvokeCommand()
//	ctx := &commands.AppContext{ConfigPath: "/etc/ws02-gateway/gateway.toml"}
//	if err := cmd.Init([]string{"-code", "T2T_01_MULTIPLE_API", "-param", "date=2024-01-01"}, ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cmd.Run(); err != nil {
//	    log.Fatal(err)
//	}
package commands

// Package utils provides small helpers shared across the gateway.
//
//   - Path utilities: resolve paths relative to the configuration directory
//   - IP utilities: turn wildcard patterns such as 192.168.1.* into networks
//   - Field lists: split comma-separated column lists from the metadata tables
//   - Shell quoting: make parameter values safe to splice into SSH commands
//
// # Example Usage
//
//	ipNet, err := utils.WildcardToIPNet("10.20.*.*")
//	// ipNet.String() == "10.20.0.0/16"
//
//	fields := utils.SplitFieldList(" ID, NAME ,,AMT ")
//	// []string{"ID", "NAME", "AMT"}
//
//	cmd := "report.sh " + utils.ShellQuote("it's")
//	// report.sh 'it'\''s'
package utils

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jhsoft/ws02-gateway/src/internal/commands"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

var (
	version = "dev"
	commit  = "n/a"
	date    = "n/a"
)

func main() {
	ctx := &commands.AppContext{Version: version, Commit: commit, Date: date}

	// Define flags
	flag.StringVar(&ctx.ConfigPath, "config", "/etc/ws02-gateway/gateway.toml", "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable debug logging")
	noColor := flag.Bool("no-color", false, "Disable coloured log prefixes")

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "WS02 metadata-driven API gateway\n")
		fmt.Fprintf(os.Stderr, "Version: %s (Commit: %s, Date: %s)\n\n", version, commit, date)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  service                 Serve the gateway over HTTP\n")
		fmt.Fprintf(os.Stderr, "  check-config            Resolve every API code and report broken definitions\n")
		fmt.Fprintf(os.Stderr, "  export                  Write the Markdown API reference for the batch flows\n")
		fmt.Fprintf(os.Stderr, "  invoke                  Call one API through the full pipeline and print the result\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if ctx.Verbose {
		log.SetVerbose(true)
	}
	if *noColor {
		log.SetColors(false)
	}

	// Ensure cfg file exists
	if _, err := os.Stat(ctx.ConfigPath); errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Configuration file not found: %s", ctx.ConfigPath)
	}

	cmds := []commands.Runner{
		commands.CreateServiceCommand(),
		commands.CreateCheckConfigCommand(),
		commands.CreateExportCommand(),
		commands.CreateInvokeCommand(),
	}

	args := flag.Args()

	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	subcommand := args[0]
	for _, cmd := range cmds {
		if cmd.Name() == subcommand {
			if err := cmd.Init(args[1:], ctx); err != nil {
				log.Fatalf("Failed to initialize command: %v", err)
			}

			if err := cmd.Run(); err != nil {
				log.Fatalf("Failed to run command: %v", err)
			}

			os.Exit(0)
		}
	}

	log.Fatalf("Unknown subcommand: %s", subcommand)
}

package commands

import (
	"fmt"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/core"
)

type Runner interface {
	Init(args []string, globalArgs *AppContext) error
	Run() error
	Name() string
}

type AppContext struct {
	ConfigPath string
	Verbose    bool

	// Version is reported by the status endpoint.
	Version string
	Commit  string
	Date    string
}

// loadAndValidateConfigOrFail loads configuration from file and validates it.
func loadAndValidateConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %v", err)
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return cfg, nil
}

// buildDependencies wires the gateway for commands that need the pipeline.
func buildDependencies(cfg *config.Config) (*core.AppDependencies, error) {
	deps, err := core.NewAppDependencies(core.AppConfig{Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise gateway: %w", err)
	}
	return deps, nil
}

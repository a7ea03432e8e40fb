package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		if path, err := filepath.Abs(configFile); err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		} else {
			configFile = path
		}
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Errorf("Configuration file not found: %s", configFile)
		return nil, fmt.Errorf("configuration file not found: %s", configFile)
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	if err := loadDotEnv(filepath.Dir(configFile)); err != nil {
		return nil, err
	}

	cfg, err := ParseConfig(content)
	if err != nil {
		return nil, err
	}
	cfg._absConfigFilePath = configFile

	log.Debugf("Configuration file path: %s", configFile)
	log.Debugf("SQL properties file: %s", cfg.GetAbsSQLPropertiesFile())

	return cfg, nil
}

// ParseConfig decodes TOML content and expands environment references.
// Relative paths in the result resolve against the working directory.
func ParseConfig(content []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(content, &config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			log.Errorf(derr.String())
			row, col := derr.Position()
			log.Errorf("Error at line %d, column %d", row, col)
			return nil, fmt.Errorf("failed to parse config file at line %d, column %d", row, col)
		}
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	config.expandEnv()
	return &config, nil
}

// loadDotEnv loads .env from the configuration directory if present.
// Variables already set in the environment win.
func loadDotEnv(dir string) error {
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %v", envFile, err)
	}
	log.Debugf("Loaded environment from %s", envFile)
	return nil
}

func (c *Config) expandEnv() {
	if c.ConfigStore != nil {
		c.ConfigStore.DSN = os.ExpandEnv(c.ConfigStore.DSN)
	}
	for _, conn := range c.Connections {
		conn.DSN = os.ExpandEnv(conn.DSN)
	}
	if c.SSH != nil {
		c.SSH.Password = os.ExpandEnv(c.SSH.Password)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
[general]
listen_addr = "0.0.0.0:8080"
sql_properties_file = "sql.properties"
trusted_proxies = ["10.0.0.0/8"]

[config_store]
dsn = "sqlserver://gw:${TEST_WS02_DB_PASSWORD}@db:1433?database=DFMDB"
cache_ttl_sec = 0

[[connection]]
name = "jdbc/DFMDB"
dsn = "sqlserver://gw:${TEST_WS02_DB_PASSWORD}@{{host_address}}:1433?database=DFMDB"

[[host]]
code = "WS01"
name = "Middle01"
address = "192.168.222.136"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sql.properties"), []byte("K=SELECT 1\n"), 0644); err != nil {
		t.Fatalf("Failed to write properties: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("TEST_WS02_DB_PASSWORD", "s3cret")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.General.GetListenAddr() != "0.0.0.0:8080" {
		t.Errorf("unexpected listen addr %s", cfg.General.GetListenAddr())
	}
	if want := "sqlserver://gw:s3cret@db:1433?database=DFMDB"; cfg.ConfigStore.DSN != want {
		t.Errorf("DSN = %s, want %s", cfg.ConfigStore.DSN, want)
	}
	conn, ok := cfg.GetConnection("jdbc/DFMDB")
	if !ok {
		t.Fatal("connection jdbc/DFMDB not found")
	}
	if want := "sqlserver://gw:s3cret@{{host_address}}:1433?database=DFMDB"; conn.DSN != want {
		t.Errorf("connection DSN = %s, want %s", conn.DSN, want)
	}
	if cfg.ConfigStore.GetCacheTTL() != 0 {
		t.Errorf("explicit cache_ttl_sec = 0 should disable caching, got %v", cfg.ConfigStore.GetCacheTTL())
	}
	if got := cfg.GetAbsSQLPropertiesFile(); got != filepath.Join(filepath.Dir(path), "sql.properties") {
		t.Errorf("unexpected properties path %s", got)
	}
	if err := cfg.ValidateConfig(); err != nil {
		t.Errorf("ValidateConfig() error = %v", err)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envFile, []byte("TEST_WS02_DB_PASSWORD=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	os.Unsetenv("TEST_WS02_DB_PASSWORD")
	t.Cleanup(func() { os.Unsetenv("TEST_WS02_DB_PASSWORD") })

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if want := "sqlserver://gw:from-dotenv@db:1433?database=DFMDB"; cfg.ConfigStore.DSN != want {
		t.Errorf("DSN = %s, want %s", cfg.ConfigStore.DSN, want)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseConfig_DecodeError(t *testing.T) {
	if _, err := ParseConfig([]byte("[general\nlisten_addr = 1")); err == nil {
		t.Error("Expected decode error")
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{General: &GeneralConfig{}, ConfigStore: &ConfigStoreConfig{}}

	if len(cfg.GetHosts()) != 2 || cfg.GetHosts()[0].Code != "WS01" || cfg.GetHosts()[1].Address != "192.168.222.138" {
		t.Errorf("unexpected default hosts %+v", cfg.GetHosts())
	}
	if cfg.General.GetListenAddr() != ":8080" {
		t.Errorf("unexpected default listen addr")
	}
	if cfg.General.GetDefaultEncoding() != EncodingHTML {
		t.Errorf("unexpected default encoding")
	}
	if cfg.ConfigStore.GetCacheTTL().Seconds() != 30 || cfg.ConfigStore.GetCacheSize() != 512 {
		t.Errorf("unexpected cache defaults")
	}
	host := &HostConfig{}
	if host.GetSSHPort() != 22 || host.GetMaxSessions() != 4 {
		t.Errorf("unexpected host defaults")
	}
}

package config

import (
	"path/filepath"
	"time"

	"github.com/jhsoft/ws02-gateway/src/internal/utils"
)

// Encoding scheme names accepted by [[encoding]] and general.default_encoding.
const (
	EncodingHTML   = "html"
	EncodingBase64 = "base64"
	EncodingURL    = "url"
	EncodingNone   = "none"
)

// Placeholders available in [[connection]] DSN templates.
const (
	DSN_TMPL_HOST_CODE    = "host_code"
	DSN_TMPL_HOST_NAME    = "host_name"
	DSN_TMPL_HOST_ADDRESS = "host_address"
)

type Config struct {
	// General holds general configuration.
	General *GeneralConfig `toml:"general"`
	// ConfigStore points at the database holding the JH_WS02_* tables.
	ConfigStore *ConfigStoreConfig `toml:"config_store"`
	// Connections are the SQL backends referenced by the JNDI_USE column.
	Connections []*ConnectionConfig `toml:"connection,omitempty"`
	// Hosts is the fixed lookup from WEB_SERVICE_CODE to a physical endpoint.
	Hosts []*HostConfig `toml:"host,omitempty"`
	// DNS is used to resolve host addresses that are names rather than IPs.
	DNS *DNSConfig `toml:"dns,omitempty"`
	// SSH holds credentials for SSH actions. Without it SSH APIs fail as misconfigured.
	SSH *SSHConfig `toml:"ssh,omitempty"`
	// Encodings select the IS_ENCODE strategy per syntax-configuration key.
	Encodings []*EncodingConfig `toml:"encoding,omitempty"`

	_absConfigFilePath string
}

type GeneralConfig struct {
	// ListenAddr is the HTTP listen address (default: ":8080").
	ListenAddr string `toml:"listen_addr" json:"listen_addr" validate:"omitempty,hostname_port"`
	// RequestTimeoutSec bounds a whole request including failover (default: 60).
	RequestTimeoutSec int `toml:"request_timeout_sec" json:"request_timeout_sec" validate:"gte=0"`
	// TrustedProxies are CIDRs whose X-Forwarded-For header is honoured when deriving the caller IP.
	TrustedProxies []string `toml:"trusted_proxies" json:"trusted_proxies" validate:"dive,cidr"`
	// SQLPropertiesFile maps syntax-configuration keys to statements and commands.
	SQLPropertiesFile string `toml:"sql_properties_file" json:"sql_properties_file" validate:"required"`
	// WatchSQLProperties reloads the properties file when it changes on disk.
	WatchSQLProperties bool `toml:"watch_sql_properties" json:"watch_sql_properties"`
	// AuditLogFile receives access decisions as JSON lines (default: stdout).
	AuditLogFile string `toml:"audit_log_file" json:"audit_log_file"`
	// DefaultEncoding is used for IS_ENCODE APIs without an [[encoding]] entry (default: html).
	DefaultEncoding string `toml:"default_encoding" json:"default_encoding" validate:"omitempty,encoding_scheme"`
	// EnableMetrics exposes Prometheus metrics on /metrics.
	EnableMetrics bool `toml:"enable_metrics" json:"enable_metrics"`
}

type ConfigStoreConfig struct {
	// DSN of the metadata database: sqlserver://, postgres:// or a SQLite path.
	DSN string `toml:"dsn" json:"-" validate:"required,dsn"`
	// CacheTTLSec is how long a resolved definition may be served from cache (default: 30, 0 disables caching).
	CacheTTLSec *int `toml:"cache_ttl_sec" json:"cache_ttl_sec" validate:"omitempty,gte=0"`
	// CacheSize bounds the number of cached definitions (default: 512).
	CacheSize int `toml:"cache_size" json:"cache_size" validate:"gte=0"`
	// Isolation of the read transaction used for one resolve (default: driver default).
	Isolation string `toml:"isolation" json:"isolation" validate:"omitempty,oneof=read_committed repeatable_read snapshot serializable"`
}

type ConnectionConfig struct {
	// Name matches the JNDI_USE column.
	Name string `toml:"name" json:"name" validate:"required"`
	// DSN may use {{host_code}}, {{host_name}} and {{host_address}} of the selected host.
	DSN string `toml:"dsn" json:"-" validate:"required,dsn"`
	// MaxOpenConns bounds concurrent connections per rendered DSN (default: 10).
	MaxOpenConns int `toml:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
	// StatementTimeoutSec bounds a single statement (default: 30).
	StatementTimeoutSec int `toml:"statement_timeout_sec" json:"statement_timeout_sec" validate:"gte=0"`
}

type HostConfig struct {
	// Code matches the WEB_SERVICE_CODE column.
	Code string `toml:"code" json:"code" validate:"required"`
	Name string `toml:"name" json:"name" validate:"required"`
	// Address is an IP or a host name.
	Address string `toml:"address" json:"address" validate:"required,hostname_rfc1123|ip"`
	// SSHPort defaults to 22.
	SSHPort uint16 `toml:"ssh_port" json:"ssh_port"`
	// MaxSessions bounds concurrent SSH sessions on this host (default: 4).
	MaxSessions int `toml:"max_sessions" json:"max_sessions" validate:"gte=0"`
}

type DNSConfig struct {
	// Server is queried for A/AAAA records of host names, e.g. "10.0.0.53:53".
	Server string `toml:"server" json:"server" validate:"required,hostname_port"`
	// TimeoutSec bounds one lookup (default: 2).
	TimeoutSec int `toml:"timeout_sec" json:"timeout_sec" validate:"gte=0"`
}

type SSHConfig struct {
	User string `toml:"user" json:"user" validate:"required"`
	// PrivateKeyFile is a PEM private key, relative to the configuration directory.
	PrivateKeyFile string `toml:"private_key_file" json:"private_key_file"`
	// Password may reference the environment, e.g. "${WS02_SSH_PASSWORD}".
	Password string `toml:"password" json:"-"`
	// KnownHostsFile is required unless InsecureIgnoreHostKey is set.
	KnownHostsFile        string `toml:"known_hosts_file" json:"known_hosts_file"`
	InsecureIgnoreHostKey bool   `toml:"insecure_ignore_host_key" json:"insecure_ignore_host_key"`
	// ConnectTimeoutSec bounds dialing and handshake (default: 10).
	ConnectTimeoutSec int `toml:"connect_timeout_sec" json:"connect_timeout_sec" validate:"gte=0"`
	// CommandTimeoutSec bounds a remote command (default: 60).
	CommandTimeoutSec int `toml:"command_timeout_sec" json:"command_timeout_sec" validate:"gte=0"`
}

type EncodingConfig struct {
	// SyntaxKey matches the SQL_PROP_KEY column.
	SyntaxKey string `toml:"syntax_key" json:"syntax_key" validate:"required"`
	Scheme    string `toml:"scheme" json:"scheme" validate:"required,encoding_scheme"`
	// Fields limits encoding to these output fields. Empty means every output field.
	Fields []string `toml:"fields" json:"fields"`
}

var defaultHosts = []*HostConfig{
	{Code: "WS01", Name: "Middle01", Address: "192.168.222.136"},
	{Code: "WS02", Name: "Middle02", Address: "192.168.222.138"},
}

func (c *Config) GetConfigDir() string {
	return filepath.Dir(c._absConfigFilePath)
}

func (c *Config) GetAbsSQLPropertiesFile() string {
	return utils.GetAbsolutePath(c.General.SQLPropertiesFile, c.GetConfigDir())
}

func (c *Config) GetAbsAuditLogFile() string {
	if c.General.AuditLogFile == "" {
		return ""
	}
	return utils.GetAbsolutePath(c.General.AuditLogFile, c.GetConfigDir())
}

// GetHosts returns the configured host lookup, or the built-in WS01/WS02 table.
func (c *Config) GetHosts() []*HostConfig {
	if len(c.Hosts) == 0 {
		return defaultHosts
	}
	return c.Hosts
}

// GetConnection returns the connection named by JNDI_USE.
func (c *Config) GetConnection(name string) (*ConnectionConfig, bool) {
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return nil, false
}

// GetEncoding returns the encoding entry for a syntax key.
func (c *Config) GetEncoding(syntaxKey string) (*EncodingConfig, bool) {
	for _, enc := range c.Encodings {
		if enc.SyntaxKey == syntaxKey {
			return enc, true
		}
	}
	return nil, false
}

func (g *GeneralConfig) GetListenAddr() string {
	if g.ListenAddr == "" {
		return ":8080"
	}
	return g.ListenAddr
}

func (g *GeneralConfig) GetRequestTimeout() time.Duration {
	return secondsOr(g.RequestTimeoutSec, 60)
}

func (g *GeneralConfig) GetDefaultEncoding() string {
	if g.DefaultEncoding == "" {
		return EncodingHTML
	}
	return g.DefaultEncoding
}

func (s *ConfigStoreConfig) GetCacheTTL() time.Duration {
	if s.CacheTTLSec == nil {
		return 30 * time.Second
	}
	return time.Duration(*s.CacheTTLSec) * time.Second
}

func (s *ConfigStoreConfig) GetCacheSize() int {
	if s.CacheSize <= 0 {
		return 512
	}
	return s.CacheSize
}

func (c *ConnectionConfig) GetMaxOpenConns() int {
	if c.MaxOpenConns <= 0 {
		return 10
	}
	return c.MaxOpenConns
}

func (c *ConnectionConfig) GetStatementTimeout() time.Duration {
	return secondsOr(c.StatementTimeoutSec, 30)
}

func (h *HostConfig) GetSSHPort() uint16 {
	if h.SSHPort == 0 {
		return 22
	}
	return h.SSHPort
}

func (h *HostConfig) GetMaxSessions() int {
	if h.MaxSessions <= 0 {
		return 4
	}
	return h.MaxSessions
}

func (d *DNSConfig) GetTimeout() time.Duration {
	return secondsOr(d.TimeoutSec, 2)
}

func (s *SSHConfig) GetConnectTimeout() time.Duration {
	return secondsOr(s.ConnectTimeoutSec, 10)
}

func (s *SSHConfig) GetCommandTimeout() time.Duration {
	return secondsOr(s.CommandTimeoutSec, 60)
}

func (c *Config) GetAbsPrivateKeyFile() string {
	if c.SSH == nil || c.SSH.PrivateKeyFile == "" {
		return ""
	}
	return utils.GetAbsolutePath(c.SSH.PrivateKeyFile, c.GetConfigDir())
}

func (c *Config) GetAbsKnownHostsFile() string {
	if c.SSH == nil || c.SSH.KnownHostsFile == "" {
		return ""
	}
	return utils.GetAbsolutePath(c.SSH.KnownHostsFile, c.GetConfigDir())
}

func secondsOr(value, def int) time.Duration {
	if value <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(value) * time.Second
}

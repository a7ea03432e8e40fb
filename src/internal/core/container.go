package core

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/jhsoft/ws02-gateway/src/internal/access"
	"github.com/jhsoft/ws02-gateway/src/internal/assembler"
	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/database"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/executor"
	"github.com/jhsoft/ws02-gateway/src/internal/gateway"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
	"github.com/jhsoft/ws02-gateway/src/internal/routing"
	"github.com/jhsoft/ws02-gateway/src/internal/store"
	"github.com/jhsoft/ws02-gateway/src/internal/syntax"
)

// AppDependencies is a dependency injection container that holds everything
// one gateway process needs.
//
// This container provides a centralized place to manage dependencies and enables:
//   - Configuration-driven dependency creation
//   - Swapping the metadata database or audit sink in tests
//   - One Close for every pool, session and file opened on the way
//
// Usage:
//
//	deps, err := core.NewAppDependencies(core.AppConfig{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	defer deps.Close()
//	result, err := deps.Dispatcher().Dispatch(ctx, req)
type AppDependencies struct {
	cfg *config.Config

	metaDB     *gorm.DB
	ownsMetaDB bool

	directory  *routing.Directory
	resolver   routing.Resolver
	store      *store.Store
	statements *syntax.Catalog

	limiter  *executor.Limiter
	sqlExec  *executor.SQLExecutor
	sshExec  *executor.SSHExecutor
	registry *executor.Registry

	encodings *assembler.Encodings
	guard     *access.Guard
	auditFile *os.File

	promRegistry *prometheus.Registry
	metrics      *gateway.Metrics

	dispatcher *gateway.Dispatcher
}

// AppConfig holds configuration for creating application dependencies.
type AppConfig struct {
	// Config is the validated gateway configuration.
	Config *config.Config

	// MetaDB replaces the connection to [config_store].dsn. The caller keeps
	// ownership of it.
	MetaDB *gorm.DB

	// Statements replaces the catalog loaded from sql_properties_file.
	Statements *syntax.Catalog

	// AuditOutput replaces audit_log_file.
	AuditOutput io.Writer
}

// NewAppDependencies wires the gateway from configuration. On failure every
// resource opened so far is released.
func NewAppDependencies(appCfg AppConfig) (deps *AppDependencies, err error) {
	cfg := appCfg.Config
	if cfg == nil || cfg.General == nil || cfg.ConfigStore == nil {
		return nil, fmt.Errorf("incomplete configuration")
	}

	d := &AppDependencies{cfg: cfg}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	d.metaDB = appCfg.MetaDB
	if d.metaDB == nil {
		d.metaDB, err = database.Open(cfg.ConfigStore.DSN, database.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to open config store: %w", err)
		}
		d.ownsMetaDB = true
	}

	d.directory = routing.NewDirectory(cfg.GetHosts())
	if cfg.DNS != nil {
		d.resolver = routing.NewDNSResolver(cfg.DNS.Server, cfg.DNS.GetTimeout())
	}

	d.store = store.New(d.metaDB, d.directory, store.Options{
		CacheTTL:  cfg.ConfigStore.GetCacheTTL(),
		CacheSize: cfg.ConfigStore.GetCacheSize(),
		Isolation: cfg.ConfigStore.Isolation,
	})

	d.statements = appCfg.Statements
	if d.statements == nil {
		d.statements, err = syntax.Load(cfg.GetAbsSQLPropertiesFile())
		if err != nil {
			return nil, fmt.Errorf("failed to load SQL properties: %w", err)
		}
	}

	d.limiter = executor.NewLimiter()
	d.registry = executor.NewRegistry()
	d.sqlExec = executor.NewSQLExecutor(d.statements, cfg.Connections, d.limiter)
	d.registry.Register(domain.ExecSQL, d.sqlExec)

	if cfg.SSH != nil {
		settings, sshErr := executor.SSHSettingsFromConfig(cfg)
		if sshErr != nil {
			return nil, fmt.Errorf("failed to prepare SSH executor: %w", sshErr)
		}
		d.sshExec = executor.NewSSHExecutor(d.statements, settings, d.limiter)
		d.registry.Register(domain.ExecSSH, d.sshExec)
	} else {
		log.Warnf("No [ssh] section: SSH APIs will fail as misconfigured")
	}

	d.encodings, err = assembler.NewEncodings(cfg.General.GetDefaultEncoding(), cfg.Encodings)
	if err != nil {
		return nil, err
	}

	auditOut := appCfg.AuditOutput
	if auditOut == nil {
		auditOut = os.Stdout
		if path := cfg.GetAbsAuditLogFile(); path != "" {
			d.auditFile, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
			if err != nil {
				return nil, fmt.Errorf("failed to open audit log: %w", err)
			}
			auditOut = d.auditFile
		}
	}
	d.guard = access.NewGuard(access.NewLogAuditor(auditOut))

	if cfg.General.EnableMetrics {
		d.promRegistry = gateway.NewRegistry()
		d.metrics, err = gateway.NewMetrics(d.promRegistry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	d.dispatcher = gateway.NewDispatcher(gateway.Options{
		Store:     d.store,
		Guard:     d.guard,
		Executor:  d.registry,
		Router:    routing.NewRouter(d.resolver),
		Assembler: assembler.New(d.encodings),
		Metrics:   d.metrics,
		Timeout:   cfg.General.GetRequestTimeout(),
	})

	return d, nil
}

// Config returns the configuration the container was built from.
func (d *AppDependencies) Config() *config.Config {
	return d.cfg
}

// Store returns the metadata-backed config store.
func (d *AppDependencies) Store() *store.Store {
	return d.store
}

// Statements returns the syntax-configuration catalog.
func (d *AppDependencies) Statements() *syntax.Catalog {
	return d.statements
}

// Dispatcher returns the request pipeline.
func (d *AppDependencies) Dispatcher() *gateway.Dispatcher {
	return d.dispatcher
}

// Directory returns the host lookup.
func (d *AppDependencies) Directory() *routing.Directory {
	return d.directory
}

// PrometheusRegistry returns the metrics registry, or nil when metrics are disabled.
func (d *AppDependencies) PrometheusRegistry() *prometheus.Registry {
	return d.promRegistry
}

// ExecutorNames lists the registered execution kinds.
func (d *AppDependencies) ExecutorNames() []string {
	kinds := d.registry.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	return names
}

// HostNames lists the directory as "CODE (address)".
func (d *AppDependencies) HostNames() []string {
	endpoints := d.directory.Endpoints()
	names := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		names = append(names, fmt.Sprintf("%s (%s)", e.Code, e.Address))
	}
	return names
}

// Close releases backend pools, SSH clients, the audit file and the
// metadata connection when the container opened it.
func (d *AppDependencies) Close() error {
	var errs []string
	if d.sqlExec != nil {
		if err := d.sqlExec.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.sshExec != nil {
		if err := d.sshExec.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if d.auditFile != nil {
		if err := d.auditFile.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		d.auditFile = nil
	}
	if d.ownsMetaDB && d.metaDB != nil {
		if err := database.Close(d.metaDB); err != nil {
			errs = append(errs, err.Error())
		}
		d.metaDB = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to release dependencies: %s", strings.Join(errs, "; "))
	}
	return nil
}

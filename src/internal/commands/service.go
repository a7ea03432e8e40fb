package commands

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhsoft/ws02-gateway/src/internal/api"
	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/core"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

func CreateServiceCommand() *ServiceCommand {
	sc := &ServiceCommand{
		fs: flag.NewFlagSet("service", flag.ExitOnError),
	}

	sc.fs.StringVar(&sc.ListenAddr, "listen", "", "Override [general].listen_addr")

	return sc
}

type ServiceCommand struct {
	fs         *flag.FlagSet
	cfg        *config.Config
	ctx        *AppContext
	ListenAddr string

	deps *core.AppDependencies

	server    *api.Server
	apiRunner *RestartableRunner
}

func (s *ServiceCommand) Name() string {
	return s.fs.Name()
}

func (s *ServiceCommand) Init(args []string, ctx *AppContext) error {
	s.ctx = ctx

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		s.cfg = cfg
	}

	deps, err := buildDependencies(s.cfg)
	if err != nil {
		return err
	}
	s.deps = deps

	return nil
}

func (s *ServiceCommand) Run() error {
	log.Infof("Starting ws02-gateway service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	if s.cfg.General.WatchSQLProperties {
		s.startPropertiesWatcher(ctx)
	}

	if err := s.startAPIServer(ctx); err != nil {
		_ = s.deps.Close()
		return err
	}

	log.Infof("Service started successfully.")
	log.Infof("Send SIGHUP to reload the SQL properties and drop cached definitions")

	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Infof("Received SIGHUP signal, reloading...")
				s.reload()

			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("Received signal %v, shutting down...", sig)
				return s.shutdown()
			}

		case <-s.apiRunner.Done():
			err := s.apiRunner.LastError()
			_ = s.shutdown()
			return fmt.Errorf("API server stopped: %v", err)
		}
	}
}

func (s *ServiceCommand) listenAddr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return s.cfg.General.GetListenAddr()
}

// buildRouter assembles the HTTP handler from the container.
func (s *ServiceCommand) buildRouter() (http.Handler, error) {
	trusted, err := api.ParseTrustedProxies(s.cfg.General.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	handler := api.NewHandler(s.deps.Dispatcher(), s.deps.Store(), s.deps.Statements(), api.HandlerOptions{
		Executors: s.deps.ExecutorNames(),
		Hosts:     s.deps.HostNames(),
		Version: api.VersionInfo{
			Version: s.ctx.Version,
			Commit:  s.ctx.Commit,
			Date:    s.ctx.Date,
		},
	})

	opts := api.RouterOptions{TrustedProxies: trusted}
	if reg := s.deps.PrometheusRegistry(); reg != nil {
		opts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	return api.NewRouter(handler, opts), nil
}

// startAPIServer serves the gateway under a restartable runner.
func (s *ServiceCommand) startAPIServer(ctx context.Context) error {
	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	bindAddr := s.listenAddr()
	log.Infof("Starting ws02-gateway API server on %s", bindAddr)
	log.Infof("")
	log.Infof("Describe, status and metrics endpoints are restricted to private subnets:")
	log.Infof("  IPv4: 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, 127.0.0.0/8")
	log.Infof("  IPv6: fc00::/7, fe80::/10, ::1/128")
	log.Infof("")

	s.server = api.NewServer(bindAddr, router, s.cfg.General.GetRequestTimeout()+5*time.Second)

	s.apiRunner = NewRestartableRunner(RunnerConfig{
		Name:           "API server",
		MaxRestarts:    10,
		RestartBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
	}, func(runCtx context.Context) error {
		return serveUntilDone(runCtx, s.server)
	})

	return s.apiRunner.Start(ctx)
}

// serveUntilDone serves until the listener fails or ctx is done, in which
// case in-flight requests get ten seconds to finish.
func serveUntilDone(ctx context.Context, server *api.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Errorf("Error during API server shutdown: %v", err)
		}
		return <-errCh
	}
}

func (s *ServiceCommand) startPropertiesWatcher(ctx context.Context) {
	// the watcher logs every reload itself
	if err := s.deps.Statements().Watch(ctx, nil); err != nil {
		log.Errorf("Failed to watch SQL properties: %v", err)
		log.Warnf("Statement changes will only be picked up on SIGHUP")
	}
}

// reload re-reads the statement catalogue and drops cached definitions so
// edits to the metadata tables are visible immediately.
func (s *ServiceCommand) reload() {
	if err := s.deps.Statements().Reload(); err != nil {
		log.Errorf("Failed to reload SQL properties: %v", err)
	} else {
		log.Infof("Reloaded %d statement(s)", s.deps.Statements().Len())
	}
	s.deps.Store().Purge()
	log.Infof("Definition cache cleared")
}

// shutdown performs graceful shutdown of all components.
func (s *ServiceCommand) shutdown() error {
	log.Infof("Shutting down ws02-gateway service...")

	if s.apiRunner != nil {
		if err := s.apiRunner.Stop(); err != nil {
			log.Errorf("Failed to stop API server: %v", err)
		}
	}

	if err := s.deps.Close(); err != nil {
		log.Errorf("Failed to release resources: %v", err)
	}

	log.Infof("Service stopped successfully")
	return nil
}

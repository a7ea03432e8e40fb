package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/core"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
	"github.com/jhsoft/ws02-gateway/src/internal/utils"
)

func CreateCheckConfigCommand() *CheckConfigCommand {
	cc := &CheckConfigCommand{
		fs: flag.NewFlagSet("check-config", flag.ExitOnError),
	}
	cc.fs.DurationVar(&cc.Timeout, "timeout", 30*time.Second, "Time allowed for the whole check")
	return cc
}

type CheckConfigCommand struct {
	fs      *flag.FlagSet
	ctx     *AppContext
	cfg     *config.Config
	deps    *core.AppDependencies
	Timeout time.Duration

	out io.Writer
}

func (c *CheckConfigCommand) Name() string {
	return c.fs.Name()
}

func (c *CheckConfigCommand) Init(args []string, ctx *AppContext) error {
	c.ctx = ctx

	if err := c.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		c.cfg = cfg
	}
	log.Infof("Configuration file %s is valid", ctx.ConfigPath)

	deps, err := buildDependencies(c.cfg)
	if err != nil {
		return err
	}
	c.deps = deps
	if c.out == nil {
		c.out = os.Stdout
	}
	return nil
}

func (c *CheckConfigCommand) Run() error {
	defer utils.CloseOrWarn(c.deps, "gateway dependencies")

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	if err := c.deps.Store().Ping(ctx); err != nil {
		return fmt.Errorf("config store is unreachable: %v", err)
	}
	log.Infof("Config store is reachable")

	report, err := checkDefinitions(ctx, c.deps.Store(), c.deps.Statements(), c.cfg, c.deps.ExecutorNames())
	if err != nil {
		return err
	}
	report.Print(c.out)

	if !report.OK() {
		return fmt.Errorf("%d of %d API definition(s) have problems", report.Failed(), report.Checked)
	}
	return nil
}

// definitionSource is the part of the config store the check reads.
type definitionSource interface {
	ListCodes(ctx context.Context) ([]string, error)
	Resolve(ctx context.Context, code string) (*domain.ApiDefinition, error)
}

// Finding is one problem with one API code.
type Finding struct {
	Code    string
	Problem string
}

type CheckReport struct {
	Checked  int
	Findings []Finding
}

func (r *CheckReport) OK() bool {
	return len(r.Findings) == 0
}

// Failed counts the codes with at least one finding.
func (r *CheckReport) Failed() int {
	seen := make(map[string]struct{})
	for _, f := range r.Findings {
		seen[f.Code] = struct{}{}
	}
	return len(seen)
}

func (r *CheckReport) Print(w io.Writer) {
	fmt.Fprintf(w, "Checked %d API definition(s)\n", r.Checked)
	if r.OK() {
		fmt.Fprintln(w, "OK: no problems found")
		return
	}
	for _, f := range r.Findings {
		fmt.Fprintf(w, "FAIL %s: %s\n", f.Code, f.Problem)
	}
}

// checkDefinitions resolves every code and cross-checks the definition
// against the statement catalogue and the gateway configuration.
func checkDefinitions(ctx context.Context, src definitionSource, statements domain.StatementCatalog, cfg *config.Config, executors []string) (*CheckReport, error) {
	codes, err := src.ListCodes(ctx)
	if err != nil {
		return nil, err
	}

	registered := make(map[domain.ExecKind]bool, len(executors))
	for _, name := range executors {
		registered[domain.ExecKind(name)] = true
	}

	report := &CheckReport{Checked: len(codes)}
	add := func(code, format string, args ...interface{}) {
		report.Findings = append(report.Findings, Finding{Code: code, Problem: fmt.Sprintf(format, args...)})
	}

	for _, code := range codes {
		def, err := src.Resolve(ctx, code)
		if err != nil {
			add(code, "%v", err)
			continue
		}

		if _, ok := statements.Lookup(def.SyntaxKey); !ok {
			add(code, "syntax key %q is missing from the SQL properties", def.SyntaxKey)
		}
		if !registered[def.Kind] {
			add(code, "no executor for %s actions", def.Kind)
		}
		if def.Kind == domain.ExecSQL {
			if _, ok := cfg.GetConnection(def.Connection); !ok {
				add(code, "connection %q is not configured", def.Connection)
			}
		}
		if len(def.IPRules) == 0 {
			log.Warnf("%s has no allowed IPs and denies every caller", code)
		}
	}
	return report, nil
}

package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jhsoft/ws02-gateway/src/internal/api"
	"github.com/jhsoft/ws02-gateway/src/internal/assembler"
	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/core"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/gateway"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
	"github.com/jhsoft/ws02-gateway/src/internal/utils"
)

// paramFlag collects repeated -param name=value flags.
type paramFlag map[string]string

func (p paramFlag) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (p paramFlag) Set(value string) error {
	name, v, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", value)
	}
	p[name] = v
	return nil
}

func CreateInvokeCommand() *InvokeCommand {
	ic := &InvokeCommand{
		fs:     flag.NewFlagSet("invoke", flag.ExitOnError),
		Params: paramFlag{},
	}
	ic.fs.StringVar(&ic.Code, "code", "", "API code to call (required)")
	ic.fs.Var(ic.Params, "param", "Parameter as name=value (repeatable)")
	ic.fs.StringVar(&ic.CallerIP, "caller", "127.0.0.1", "Caller IP checked against the API's allowlist")
	ic.fs.BoolVar(&ic.Compact, "compact", false, "Print JSON on one line")
	return ic
}

type InvokeCommand struct {
	fs       *flag.FlagSet
	ctx      *AppContext
	cfg      *config.Config
	deps     *core.AppDependencies
	Code     string
	Params   paramFlag
	CallerIP string
	Compact  bool

	invoker api.Invoker
	out     io.Writer
}

func (c *InvokeCommand) Name() string {
	return c.fs.Name()
}

func (c *InvokeCommand) Init(args []string, ctx *AppContext) error {
	c.ctx = ctx

	if err := c.fs.Parse(args); err != nil {
		return err
	}
	if c.Code == "" {
		return fmt.Errorf("-code is required")
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		c.cfg = cfg
	}

	deps, err := buildDependencies(c.cfg)
	if err != nil {
		return err
	}
	c.deps = deps
	c.invoker = deps.Dispatcher()
	c.out = os.Stdout
	return nil
}

func (c *InvokeCommand) Run() error {
	if c.deps != nil {
		defer utils.CloseOrWarn(c.deps, "gateway dependencies")
	}

	ctx := domain.WithRequestID(context.Background(), uuid.NewString())
	res, err := c.invoker.Dispatch(ctx, gateway.Request{
		Code:     c.Code,
		Params:   c.Params,
		CallerIP: c.CallerIP,
	})
	if res != nil {
		for _, a := range res.Attempts {
			if a.Err != nil {
				log.Debugf("Attempt %d on %s failed after %s: %v", a.Position, a.Host.Code, a.Duration, a.Err)
			} else {
				log.Debugf("Attempt %d on %s succeeded in %s", a.Position, a.Host.Code, a.Duration)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", c.Code, err)
	}

	rows := res.Nodes
	if rows == nil {
		rows = []*assembler.Node{}
	}
	enc := json.NewEncoder(c.out)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(api.InvokeResponse{
		Code:      res.Code,
		RequestID: res.RequestID,
		Host:      res.Host.Code,
		RowCount:  res.Rows,
		Rows:      rows,
	})
}

package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/core"
	"github.com/jhsoft/ws02-gateway/src/internal/export"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
	"github.com/jhsoft/ws02-gateway/src/internal/store"
	"github.com/jhsoft/ws02-gateway/src/internal/utils"
)

func CreateExportCommand() *ExportCommand {
	ec := &ExportCommand{
		fs: flag.NewFlagSet("export", flag.ExitOnError),
	}
	ec.fs.StringVar(&ec.Prefix, "prefix", store.DefaultFlowPrefix, "Export flows whose FLOW_ID starts with this prefix")
	ec.fs.StringVar(&ec.Output, "out", "", "Write the Markdown reference to this file instead of stdout")
	return ec
}

type ExportCommand struct {
	fs     *flag.FlagSet
	ctx    *AppContext
	cfg    *config.Config
	deps   *core.AppDependencies
	Prefix string
	Output string
}

func (e *ExportCommand) Name() string {
	return e.fs.Name()
}

func (e *ExportCommand) Init(args []string, ctx *AppContext) error {
	e.ctx = ctx

	if err := e.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		e.cfg = cfg
	}

	deps, err := buildDependencies(e.cfg)
	if err != nil {
		return err
	}
	e.deps = deps
	return nil
}

func (e *ExportCommand) Run() error {
	defer utils.CloseOrWarn(e.deps, "gateway dependencies")

	var w io.Writer = os.Stdout
	if e.Output != "" {
		f, err := os.Create(e.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %v", e.Output, err)
		}
		defer utils.CloseOrWarn(f, e.Output)
		w = f
	}

	err := export.Render(context.Background(), w, e.deps.Store(), export.Options{
		Prefix:     e.Prefix,
		Statements: e.deps.Statements(),
	})
	if err != nil {
		return fmt.Errorf("failed to export API reference: %v", err)
	}

	if e.Output != "" {
		log.Infof("API reference for flows %s* written to %s", e.Prefix, e.Output)
	}
	return nil
}

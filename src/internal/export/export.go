// Package export renders the API reference document for the batch flows.
package export

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

var logger = log.Named("export")

const (
	// EmptyCell stands in for missing values in tables.
	EmptyCell = "-"
	// MissingStatement replaces the statement of a syntax key absent from the catalogue.
	MissingStatement = "(no statement for key)"
)

//go:embed reference.md.tmpl
var referenceTemplate string

var tmpl = template.Must(template.New("reference").Funcs(template.FuncMap{
	"cell":  cell,
	"yesno": yesno,
	"join":  strings.Join,
}).Parse(referenceTemplate))

// Source reads flows and definitions.
type Source interface {
	ListFlows(ctx context.Context, prefix string) ([]domain.Flow, error)
	Resolve(ctx context.Context, code string) (*domain.ApiDefinition, error)
}

// Options configures Render.
type Options struct {
	// Prefix selects flows by FLOW_ID prefix.
	Prefix string
	// Statements resolves syntax keys to statement text. Nil renders every key as missing.
	Statements domain.StatementCatalog
}

// Document is the data handed to the template.
type Document struct {
	Prefix string
	Flows  []FlowSection
}

type FlowSection struct {
	ID    string
	Help  string
	Steps []StepRow
	APIs  []APISection
}

type StepRow struct {
	Position    int
	Code        string
	Description string
}

type APISection struct {
	Code      string
	Def       *domain.ApiDefinition
	Statement string
	// Problem is set when the definition could not be resolved.
	Problem string
}

// Build collects everything the reference shows. Each API is resolved once
// even when several flows call it.
func Build(ctx context.Context, src Source, opts Options) (*Document, error) {
	flows, err := src.ListFlows(ctx, opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	sort.SliceStable(flows, func(i, j int) bool { return flows[i].Help < flows[j].Help })

	resolved := make(map[string]APISection)
	section := func(code string) APISection {
		if s, ok := resolved[code]; ok {
			return s
		}
		s := APISection{Code: code}
		def, err := src.Resolve(ctx, code)
		if err != nil {
			logger.Warnf("Cannot document %s: %v", code, err)
			s.Problem = err.Error()
		} else {
			s.Def = def
			s.Statement = MissingStatement
			if opts.Statements != nil {
				if text, ok := opts.Statements.Lookup(def.SyntaxKey); ok {
					s.Statement = text
				}
			}
		}
		resolved[code] = s
		return s
	}

	doc := &Document{Prefix: opts.Prefix}
	for _, flow := range flows {
		fs := FlowSection{ID: flow.ID, Help: flow.Help}
		for _, step := range flow.Steps {
			api := section(step.Code)
			row := StepRow{Position: step.Position, Code: step.Code}
			if api.Def != nil {
				row.Description = api.Def.Description
			}
			fs.Steps = append(fs.Steps, row)
			fs.APIs = append(fs.APIs, api)
		}
		doc.Flows = append(doc.Flows, fs)
	}
	return doc, nil
}

// Render writes the Markdown reference for the flows matching opts.Prefix.
func Render(ctx context.Context, w io.Writer, src Source, opts Options) error {
	doc, err := Build(ctx, src, opts)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, doc)
}

// cell makes a value safe for one Markdown table cell.
func cell(v interface{}) string {
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return EmptyCell
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

func yesno(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

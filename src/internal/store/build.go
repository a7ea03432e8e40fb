package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhsoft/ws02-gateway/src/internal/access"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/model"
	"github.com/jhsoft/ws02-gateway/src/internal/params"
	"github.com/jhsoft/ws02-gateway/src/internal/utils"
)

// Issues collects every invariant violation found in one definition.
type Issues []string

func (i Issues) Error() string {
	return strings.Join(i, "; ")
}

func (i *Issues) addf(format string, args ...interface{}) {
	*i = append(*i, fmt.Sprintf(format, args...))
}

// snapshot is everything read for one code inside a single transaction.
type snapshot struct {
	code    model.CodeList
	formats []model.CodeFormat
	ips     []model.CodeIPRelation
	hosts   []model.CodeWSRelation
	fields  []model.CodeRangeAnalysis
}

// build turns a snapshot into a definition. It never repairs rows: any
// violation is reported and no definition is returned.
func build(s snapshot, hosts domain.HostDirectory) (*domain.ApiDefinition, Issues) {
	var issues Issues

	def := &domain.ApiDefinition{
		ID:          s.code.PK,
		Code:        s.code.CodeID,
		Description: s.code.APIDesc,
		Help:        s.code.CodeHelp,
		Connection:  strings.TrimSpace(s.code.JNDIUse),
		ActionType:  strings.ToUpper(strings.TrimSpace(s.code.ActionType)),
		SyntaxKey:   strings.TrimSpace(s.code.SQLPropKey),
		Encode:      isYes(s.code.IsEncode),
	}

	kind, err := domain.ParseExecKind(s.code.ExecType)
	if err != nil {
		issues.addf("EXEC_TYPE: %v", err)
	}
	def.Kind = kind

	if def.SyntaxKey == "" {
		issues.addf("SQL_PROP_KEY is empty")
	}
	switch kind {
	case domain.ExecSQL:
		if def.Connection == "" {
			issues.addf("JNDI_USE is empty for a SQL action")
		}
		if def.ActionType == "" {
			def.ActionType = domain.ActionQuery
		}
		if !oneOf(def.ActionType, domain.ActionQuery, domain.ActionProcedure, domain.ActionExecute) {
			issues.addf("ACTION_TYPE %q is not valid for a SQL action", def.ActionType)
		}
	case domain.ExecSSH:
		if def.ActionType == "" {
			def.ActionType = domain.ActionTSV
		}
		if !oneOf(def.ActionType, domain.ActionTSV, domain.ActionCSV) {
			issues.addf("ACTION_TYPE %q is not valid for an SSH action", def.ActionType)
		}
	}

	def.Outputs = buildOutputs(s.formats, &issues)
	def.IPRules = buildIPRules(s.ips, &issues)
	def.Hosts = buildHosts(s.hosts, hosts, &issues)
	def.Fields = buildFields(s.fields, &issues)

	if len(issues) > 0 {
		return nil, issues
	}
	return def, nil
}

func buildOutputs(rows []model.CodeFormat, issues *Issues) []domain.OutputNode {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ClassNum < rows[j].ClassNum })

	if len(rows) == 0 {
		issues.addf("no output levels declared")
		return nil
	}

	nodes := make([]domain.OutputNode, 0, len(rows))
	for i, row := range rows {
		node := domain.OutputNode{
			Level:     row.ClassNum,
			ParentKey: strings.TrimSpace(row.UpPKField),
			ChildKey:  strings.TrimSpace(row.DownPKField),
			Fields:    utils.SplitFieldList(row.OutputField),
		}

		if node.Level != i+1 {
			issues.addf("output levels are not contiguous from 1: found level %d at position %d", node.Level, i+1)
		}
		if len(node.Fields) == 0 {
			issues.addf("level %d has no output fields", node.Level)
		}

		if i == 0 {
			if node.ParentKey != "" {
				issues.addf("root level declares parent key %q", node.ParentKey)
			}
		} else {
			above := nodes[i-1]
			if node.ParentKey == "" || node.ChildKey == "" {
				issues.addf("level %d needs both UP_PK_FIELD and DOWN_PK_FIELD", node.Level)
			} else if !contains(above.Fields, node.ParentKey) {
				issues.addf("level %d parent key %q is not an output field of level %d", node.Level, node.ParentKey, above.Level)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func buildIPRules(rows []model.CodeIPRelation, issues *Issues) []domain.IPRule {
	sort.Slice(rows, func(i, j int) bool { return rows[i].AccessedIP < rows[j].AccessedIP })

	rules := make([]domain.IPRule, 0, len(rows))
	for _, row := range rows {
		matcher, err := access.ParseRule(row.AccessedIP)
		if err != nil {
			issues.addf("ACCESSED_IP: %v", err)
			continue
		}
		rules = append(rules, domain.IPRule{
			Pattern:     strings.TrimSpace(row.AccessedIP),
			Description: row.AccessedDesc,
			Matcher:     matcher,
		})
	}
	return rules
}

func buildHosts(rows []model.CodeWSRelation, directory domain.HostDirectory, issues *Issues) []domain.HostBinding {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ClassNum < rows[j].ClassNum })

	bindings := make([]domain.HostBinding, 0, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row.WebServiceCode)
		endpoint, ok := directory.Lookup(code)
		if !ok {
			issues.addf("unknown host code %q at position %d", code, row.ClassNum)
			continue
		}
		bindings = append(bindings, domain.HostBinding{
			Position: row.ClassNum,
			HostCode: code,
			Enabled:  isYes(row.IsDoing),
			Endpoint: endpoint,
		})
	}
	return bindings
}

func buildFields(rows []model.CodeRangeAnalysis, issues *Issues) []domain.FieldRule {
	sort.Slice(rows, func(i, j int) bool { return rows[i].FormatIdx < rows[j].FormatIdx })

	seen := make(map[string]bool, len(rows))
	fields := make([]domain.FieldRule, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.InputField)
		if name == "" {
			issues.addf("field at position %d has no name", row.FormatIdx)
			continue
		}
		if seen[strings.ToLower(name)] {
			issues.addf("field %q is declared twice", name)
			continue
		}
		seen[strings.ToLower(name)] = true

		matcher, err := params.CompileRule(row.RegDesc)
		if err != nil {
			issues.addf("field %q: %v", name, err)
			continue
		}
		fields = append(fields, domain.FieldRule{
			Position: row.FormatIdx,
			Name:     name,
			Default:  row.InputDefaultVal,
			Rule:     row.RegDesc,
			Matcher:  matcher,
		})
	}
	return fields
}

func isYes(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "Y")
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

package domain

import (
	"fmt"
	"net"
	"strings"
)

// ExecKind selects the backend an API's action runs on.
type ExecKind string

const (
	ExecSQL ExecKind = "SQL"
	ExecSSH ExecKind = "SSH"
)

// ParseExecKind maps the EXEC_TYPE column. "0"/"SQL" is SQL and "1"/"SSH" is SSH.
// Anything else is an error.
func ParseExecKind(raw string) (ExecKind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "0", "SQL":
		return ExecSQL, nil
	case "1", "SSH":
		return ExecSSH, nil
	}
	return "", fmt.Errorf("unknown execution kind %q", raw)
}

// Action types understood by the executors (ACTION_TYPE column).
const (
	// ActionQuery runs a statement returning rows. It is the default for SQL.
	ActionQuery = "QUERY"
	// ActionProcedure calls a stored procedure with the parameters appended positionally.
	ActionProcedure = "PROCEDURE"
	// ActionExecute runs a statement without rows and reports ROWS_AFFECTED.
	ActionExecute = "EXECUTE"
	// ActionTSV runs a remote command whose stdout is tab separated. It is the default for SSH.
	ActionTSV = "TSV"
	// ActionCSV runs a remote command whose stdout is comma separated.
	ActionCSV = "CSV"
)

// ApiDefinition is one resolved row of JH_WS02_CODE_LIST with everything attached to it.
type ApiDefinition struct {
	// ID is the PK the related tables reference through CODE_ID_PK.
	ID          string
	Code        string
	Description string
	Help        string
	Kind        ExecKind
	// Connection is the JNDI_USE name of the SQL backend.
	Connection string
	ActionType string
	// SyntaxKey is the SQL_PROP_KEY indexing the statement catalogue.
	SyntaxKey string
	Encode    bool

	Outputs []OutputNode
	IPRules []IPRule
	Hosts   []HostBinding
	Fields  []FieldRule
}

// OutputNode declares one level of the response hierarchy.
type OutputNode struct {
	Level int
	// ParentKey names a column of the level above. Empty at the root.
	ParentKey string
	// ChildKey names the column of this level compared against ParentKey.
	ChildKey string
	Fields   []string
}

// IPMatcher reports whether a caller address satisfies an allowlist entry.
type IPMatcher interface {
	Match(ip net.IP) bool
}

type IPRule struct {
	Pattern     string
	Description string
	Matcher     IPMatcher
}

// HostEndpoint is the physical target behind a host code.
type HostEndpoint struct {
	Code    string
	Name    string
	Address string
	SSHPort uint16
}

func (h HostEndpoint) String() string {
	return fmt.Sprintf("%s(%s/%s)", h.Code, h.Name, h.Address)
}

type HostBinding struct {
	Position int
	HostCode string
	Enabled  bool
	Endpoint HostEndpoint
}

// ValueMatcher checks a parameter value. Description is used in error messages.
type ValueMatcher interface {
	Match(value string) bool
	Description() string
}

type FieldRule struct {
	Position int
	Name     string
	Default  string
	// Rule is the raw REG_DESC text.
	Rule string
	// Matcher is nil when Rule is a plain description.
	Matcher ValueMatcher
}

// Param is one validated parameter in FieldRule order.
type Param struct {
	Position  int
	Name      string
	Value     string
	Defaulted bool
}

type ValidatedParams []Param

// Values returns the parameter values in positional order.
func (p ValidatedParams) Values() []string {
	values := make([]string, len(p))
	for i, param := range p {
		values[i] = param.Value
	}
	return values
}

// Args returns the values as driver arguments in positional order.
func (p ValidatedParams) Args() []interface{} {
	args := make([]interface{}, len(p))
	for i, param := range p {
		args[i] = param.Value
	}
	return args
}

// Map returns the values keyed by field name.
func (p ValidatedParams) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// ResultSet is one tabular result. A nil cell is a NULL.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

// RowSet is what an executor returns: one ResultSet per output level, or a
// single joined set the assembler splits across levels.
type RowSet struct {
	Sets []ResultSet
}

// RowCount returns the number of rows across all sets.
func (r *RowSet) RowCount() int {
	n := 0
	for _, set := range r.Sets {
		n += len(set.Rows)
	}
	return n
}

// Flow groups API codes into an ordered batch (JH_WS02_FLOW_LIST).
type Flow struct {
	ID    string
	Help  string
	Steps []FlowStep
}

type FlowStep struct {
	Position int
	Code     string
}

// Clone returns a copy whose slices can be handed to one request.
func (d *ApiDefinition) Clone() *ApiDefinition {
	c := *d
	c.Outputs = make([]OutputNode, len(d.Outputs))
	for i, node := range d.Outputs {
		node.Fields = append([]string(nil), node.Fields...)
		c.Outputs[i] = node
	}
	c.IPRules = append([]IPRule(nil), d.IPRules...)
	c.Hosts = append([]HostBinding(nil), d.Hosts...)
	c.Fields = append([]FieldRule(nil), d.Fields...)
	return &c
}

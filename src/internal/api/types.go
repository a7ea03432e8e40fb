package api

import (
	"github.com/jhsoft/ws02-gateway/src/internal/assembler"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
)

// DataResponse wraps successful responses with a "data" field.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// InvokeResponse is the result of one API call.
type InvokeResponse struct {
	Code      string            `json:"code"`
	RequestID string            `json:"request_id"`
	Host      string            `json:"host"`
	RowCount  int               `json:"row_count"`
	Rows      []*assembler.Node `json:"rows"`
}

// APIListResponse lists the configured API codes.
type APIListResponse struct {
	Codes []string `json:"codes"`
}

// APIDescription is the resolved definition of one API code.
type APIDescription struct {
	Code        string              `json:"code"`
	Description string              `json:"description"`
	Help        string              `json:"help,omitempty"`
	Kind        domain.ExecKind     `json:"kind"`
	Connection  string              `json:"connection,omitempty"`
	ActionType  string              `json:"action_type"`
	SyntaxKey   string              `json:"syntax_key"`
	Statement   bool                `json:"statement_defined"`
	Encode      bool                `json:"encode"`
	Outputs     []OutputDescription `json:"outputs"`
	AllowedIPs  []IPDescription     `json:"allowed_ips"`
	Hosts       []HostDescription   `json:"hosts"`
	Fields      []FieldDescription  `json:"fields"`
}

type OutputDescription struct {
	Level     int      `json:"level"`
	ParentKey string   `json:"parent_key,omitempty"`
	ChildKey  string   `json:"child_key,omitempty"`
	Fields    []string `json:"fields"`
}

type IPDescription struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description,omitempty"`
}

type HostDescription struct {
	Position int    `json:"position"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Enabled  bool   `json:"enabled"`
}

type FieldDescription struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Default  string `json:"default,omitempty"`
	Rule     string `json:"rule,omitempty"`
}

// HealthCheckResponse returns health check results.
type HealthCheckResponse struct {
	Healthy bool                   `json:"healthy"`
	Checks  map[string]CheckResult `json:"checks"`
}

// CheckResult contains the result of a single health check.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// StatusResponse reports build and runtime information.
type StatusResponse struct {
	Version    VersionInfo `json:"version"`
	Executors  []string    `json:"executors"`
	Hosts      []string    `json:"hosts"`
	Statements int         `json:"statements"`
}

// VersionInfo contains build version information.
type VersionInfo struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Commit  string `json:"commit"`
}

func describe(def *domain.ApiDefinition, statementDefined bool) APIDescription {
	d := APIDescription{
		Code:        def.Code,
		Description: def.Description,
		Help:        def.Help,
		Kind:        def.Kind,
		Connection:  def.Connection,
		ActionType:  def.ActionType,
		SyntaxKey:   def.SyntaxKey,
		Statement:   statementDefined,
		Encode:      def.Encode,
		Outputs:     make([]OutputDescription, len(def.Outputs)),
		AllowedIPs:  make([]IPDescription, len(def.IPRules)),
		Hosts:       make([]HostDescription, len(def.Hosts)),
		Fields:      make([]FieldDescription, len(def.Fields)),
	}
	for i, o := range def.Outputs {
		d.Outputs[i] = OutputDescription{Level: o.Level, ParentKey: o.ParentKey, ChildKey: o.ChildKey, Fields: o.Fields}
	}
	for i, r := range def.IPRules {
		d.AllowedIPs[i] = IPDescription{Pattern: r.Pattern, Description: r.Description}
	}
	for i, h := range def.Hosts {
		d.Hosts[i] = HostDescription{Position: h.Position, Code: h.HostCode, Name: h.Endpoint.Name, Address: h.Endpoint.Address, Enabled: h.Enabled}
	}
	for i, f := range def.Fields {
		d.Fields[i] = FieldDescription{Position: i + 1, Name: f.Name, Default: f.Default, Rule: f.Rule}
	}
	return d
}

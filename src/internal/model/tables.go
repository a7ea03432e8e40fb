// Package model maps the JH_WS02_* metadata tables for gorm.
//
// The gateway only ever reads these tables. Related tables reference
// JH_WS02_CODE_LIST.PK through CODE_ID_PK.
package model

// CodeList is one API definition.
type CodeList struct {
	PK         string `gorm:"column:PK;primaryKey" json:"pk"`
	CodeID     string `gorm:"column:CODE_ID;index" json:"code_id"`     // API code
	APIDesc    string `gorm:"column:API_DESC" json:"api_desc"`         // Short description
	CodeHelp   string `gorm:"column:CODE_HELP" json:"code_help"`       // Help text
	ExecType   string `gorm:"column:EXEC_TYPE" json:"exec_type"`       // 0 = SQL, 1 = SSH
	JNDIUse    string `gorm:"column:JNDI_USE" json:"jndi_use"`         // Named database connection
	ActionType string `gorm:"column:ACTION_TYPE" json:"action_type"`   // QUERY, PROCEDURE, EXECUTE, TSV, CSV
	SQLPropKey string `gorm:"column:SQL_PROP_KEY" json:"sql_prop_key"` // Syntax-configuration key
	IsEncode   string `gorm:"column:IS_ENCODE" json:"is_encode"`       // Y = encode output fields
}

func (CodeList) TableName() string {
	return "JH_WS02_CODE_LIST"
}

// CodeFormat is one output hierarchy level.
type CodeFormat struct {
	CodeIDPK    string `gorm:"column:CODE_ID_PK;primaryKey" json:"code_id_pk"`
	ClassNum    int    `gorm:"column:CLASS_NUM;primaryKey;autoIncrement:false" json:"class_num"` // 1 = root
	UpPKField   string `gorm:"column:UP_PK_FIELD" json:"up_pk_field"`                            // Parent-key column of the level above
	DownPKField string `gorm:"column:DOWN_PK_FIELD" json:"down_pk_field"`                        // Child-key column of this level
	OutputField string `gorm:"column:OUTPUT_FIELD" json:"output_field"`                          // Comma-separated ordered columns
}

func (CodeFormat) TableName() string {
	return "JH_WS02_CODE_FORMAT_LIST"
}

// CodeIPRelation is one allowlist entry.
type CodeIPRelation struct {
	CodeIDPK     string `gorm:"column:CODE_ID_PK;primaryKey" json:"code_id_pk"`
	AccessedIP   string `gorm:"column:ACCESSED_IP;primaryKey" json:"accessed_ip"` // Literal, CIDR or wildcard
	AccessedDesc string `gorm:"column:ACCESSED_DESC" json:"accessed_desc"`
}

func (CodeIPRelation) TableName() string {
	return "JH_WS02_CODE_IP_RELATION"
}

// CodeWSRelation binds an API to a backend host at a priority.
type CodeWSRelation struct {
	CodeIDPK       string `gorm:"column:CODE_ID_PK;primaryKey" json:"code_id_pk"`
	ClassNum       int    `gorm:"column:CLASS_NUM;primaryKey;autoIncrement:false" json:"class_num"` // Failover order
	WebServiceCode string `gorm:"column:WEB_SERVICE_CODE" json:"web_service_code"`                  // Host code, e.g. WS01
	IsDoing        string `gorm:"column:IS_DOING" json:"is_doing"`                                  // Y = enabled
}

func (CodeWSRelation) TableName() string {
	return "JH_WS02_CODE_WS_RELATION"
}

// CodeRangeAnalysis is one input field rule.
type CodeRangeAnalysis struct {
	CodeIDPK        string `gorm:"column:CODE_ID_PK;primaryKey" json:"code_id_pk"`
	FormatIdx       int    `gorm:"column:FORMAT_IDX;primaryKey;autoIncrement:false" json:"format_idx"` // Positional order
	InputField      string `gorm:"column:INPUT_FIELD" json:"input_field"`
	InputDefaultVal string `gorm:"column:INPUT_DEFAULT_VAL" json:"input_default_val"`
	RegDesc         string `gorm:"column:REG_DESC" json:"reg_desc"` // Pattern or free-text description
}

func (CodeRangeAnalysis) TableName() string {
	return "JH_WS02_CODE_RANGE_ANALYSIS"
}

// FlowList is one batch flow.
type FlowList struct {
	PK       string `gorm:"column:PK;primaryKey" json:"pk"`
	FlowID   string `gorm:"column:FLOW_ID;index" json:"flow_id"`
	FlowHelp string `gorm:"column:FLOW_HELP" json:"flow_help"`
}

func (FlowList) TableName() string {
	return "JH_WS02_FLOW_LIST"
}

// FlowSchedule is one step of a flow.
type FlowSchedule struct {
	FlowIDPK   string `gorm:"column:FLOW_ID_PK;primaryKey" json:"flow_id_pk"`
	ClassNum   int    `gorm:"column:CLASS_NUM;primaryKey;autoIncrement:false" json:"class_num"`
	CallCodeID string `gorm:"column:CALL_CODE_ID" json:"call_code_id"`
}

func (FlowSchedule) TableName() string {
	return "JH_WS02_FLOW_SCHEDULE_LIST"
}

// All lists every table model, for migrations in tests and tooling.
func All() []interface{} {
	return []interface{}{
		&CodeList{}, &CodeFormat{}, &CodeIPRelation{}, &CodeWSRelation{},
		&CodeRangeAnalysis{}, &FlowList{}, &FlowSchedule{},
	}
}

package access

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Decision is the outcome of an allowlist check.
type Decision string

const (
	Allowed Decision = "allowed"
	Denied  Decision = "denied"
)

// AuditEntry is one access decision.
type AuditEntry struct {
	APICode  string
	CallerIP string
	Decision Decision
	// Rule is the matching pattern for allowed callers, or the denial reason.
	Rule      string
	RequestID string
	Time      time.Time
}

// Auditor records access decisions.
type Auditor interface {
	Record(entry AuditEntry)
}

// LogAuditor writes entries as JSON lines through logrus.
type LogAuditor struct {
	logger *logrus.Logger
}

// NewLogAuditor writes audit entries to out.
func NewLogAuditor(out io.Writer) *LogAuditor {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "event",
		},
	})
	return &LogAuditor{logger: logger}
}

func (a *LogAuditor) Record(entry AuditEntry) {
	fields := logrus.Fields{
		"component": "access_guard",
		"api_code":  entry.APICode,
		"caller_ip": entry.CallerIP,
		"decision":  string(entry.Decision),
		"rule":      entry.Rule,
	}
	if entry.RequestID != "" {
		fields["request_id"] = entry.RequestID
	}
	a.logger.WithTime(entry.Time).WithFields(fields).Info("access_decision")
}

// NopAuditor discards entries.
type NopAuditor struct{}

func (NopAuditor) Record(AuditEntry) {}

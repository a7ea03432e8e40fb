package access

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

type recordingAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingAuditor) Record(entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func definition(t *testing.T, patterns ...string) *domain.ApiDefinition {
	t.Helper()
	def := &domain.ApiDefinition{Code: "T2T_01_MULTIPLE_API"}
	for _, p := range patterns {
		m, err := ParseRule(p)
		require.NoError(t, err, p)
		def.IPRules = append(def.IPRules, domain.IPRule{Pattern: p, Matcher: m})
	}
	return def
}

func TestAuthorize_EmptyRulesDenyEveryone(t *testing.T) {
	auditor := &recordingAuditor{}
	guard := NewGuard(auditor)
	def := definition(t)

	for _, ip := range []string{"127.0.0.1", "10.0.0.1", "192.168.222.136", "::1", "8.8.8.8"} {
		err := guard.Authorize(context.Background(), def, ip)
		assert.True(t, stderrors.Is(err, errors.ErrDenied), ip)
	}
	require.Len(t, auditor.entries, 5)
	assert.Equal(t, Denied, auditor.entries[0].Decision)
	assert.Equal(t, "no ip rules (default deny)", auditor.entries[0].Rule)
}

func TestAuthorize_Matching(t *testing.T) {
	guard := NewGuard(nil)
	def := definition(t, "192.168.222.136", "10.20.0.0/16", "172.16.5.*", "fe80::/10")

	tests := []struct {
		ip      string
		allowed bool
	}{
		{"192.168.222.136", true},
		{"192.168.222.137", false},
		{"10.20.99.1", true},
		{"10.21.0.1", false},
		{"172.16.5.200", true},
		{"172.16.6.1", false},
		{"fe80::1", true},
		{"::ffff:192.168.222.136", true},
		{"not-an-ip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := guard.Authorize(context.Background(), def, tt.ip)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, stderrors.Is(err, errors.ErrDenied))
			}
		})
	}
}

func TestAuthorize_DeniedNamesCallerAndAPI(t *testing.T) {
	guard := NewGuard(nil)

	err := guard.Authorize(context.Background(), definition(t, "10.0.0.0/8"), "8.8.8.8")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDenied, errors.CodeOf(err))

	var denial *errors.AccessDenial
	require.True(t, stderrors.As(err, &denial))
	assert.Equal(t, "T2T_01_MULTIPLE_API", denial.APICode)
	assert.Equal(t, "8.8.8.8", denial.CallerIP)
	assert.Contains(t, err.Error(), "caller 8.8.8.8 is not allowed to call T2T_01_MULTIPLE_API")
}

func TestAuthorize_AuditEntry(t *testing.T) {
	auditor := &recordingAuditor{}
	guard := NewGuard(auditor)
	fixed := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return fixed }

	ctx := domain.WithRequestID(context.Background(), "req-1")
	require.NoError(t, guard.Authorize(ctx, definition(t, "10.0.0.0/8"), "10.1.1.1"))

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, AuditEntry{
		APICode:   "T2T_01_MULTIPLE_API",
		CallerIP:  "10.1.1.1",
		Decision:  Allowed,
		Rule:      "10.0.0.0/8",
		RequestID: "req-1",
		Time:      fixed,
	}, auditor.entries[0])
}

func TestLogAuditor(t *testing.T) {
	var buf bytes.Buffer
	NewLogAuditor(&buf).Record(AuditEntry{
		APICode:  "A1",
		CallerIP: "10.0.0.9",
		Decision: Denied,
		Rule:     "not in allowlist",
		Time:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "access_decision", line["event"])
	assert.Equal(t, "A1", line["api_code"])
	assert.Equal(t, "10.0.0.9", line["caller_ip"])
	assert.Equal(t, "denied", line["decision"])
	assert.Equal(t, "2024-01-01T00:00:00Z", line["timestamp"])
	assert.NotContains(t, line, "request_id")
}

func TestParseRule_Invalid(t *testing.T) {
	for _, p := range []string{"", "10.0.0.0/33", "10.*.1.1", "host.example"} {
		_, err := ParseRule(p)
		assert.Error(t, err, p)
	}
}

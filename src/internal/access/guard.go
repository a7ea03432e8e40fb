// Package access enforces the per-API caller IP allowlist.
package access

import (
	"context"
	"net"
	"time"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// Guard checks caller addresses against an API's IpRules.
type Guard struct {
	auditor Auditor
	now     func() time.Time
}

// NewGuard creates a guard reporting to auditor. A nil auditor discards entries.
func NewGuard(auditor Auditor) *Guard {
	if auditor == nil {
		auditor = NopAuditor{}
	}
	return &Guard{auditor: auditor, now: time.Now}
}

// Authorize returns nil when callerIP matches one of def's rules and a
// DENIED error otherwise. An API without rules denies every caller.
func (g *Guard) Authorize(ctx context.Context, def *domain.ApiDefinition, callerIP string) error {
	decision, rule := evaluate(def.IPRules, callerIP)

	g.auditor.Record(AuditEntry{
		APICode:   def.Code,
		CallerIP:  callerIP,
		Decision:  decision,
		Rule:      rule,
		RequestID: domain.RequestIDFrom(ctx),
		Time:      g.now(),
	})

	if decision == Denied {
		return errors.NewAccessDeniedError(def.Code, callerIP)
	}
	return nil
}

func evaluate(rules []domain.IPRule, callerIP string) (Decision, string) {
	// Explicit fail-closed check: no rules never means allow-all
	if len(rules) == 0 {
		return Denied, "no ip rules (default deny)"
	}

	ip := net.ParseIP(callerIP)
	if ip == nil {
		return Denied, "invalid caller ip"
	}

	for _, rule := range rules {
		if rule.Matcher != nil && rule.Matcher.Match(ip) {
			return Allowed, rule.Pattern
		}
	}
	return Denied, "not in allowlist"
}

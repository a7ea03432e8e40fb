package access

import (
	"fmt"
	"net"
	"strings"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/utils"
)

// ParseRule compiles an ACCESSED_IP value.
//
// Accepted forms: an exact address ("10.1.2.3", "fe80::1"), a CIDR
// ("10.1.0.0/16"), an IPv4 wildcard with trailing '*' octets ("10.1.*.*")
// and a lone "*" matching every caller.
func ParseRule(pattern string) (domain.IPMatcher, error) {
	p := strings.TrimSpace(pattern)
	switch {
	case p == "":
		return nil, fmt.Errorf("empty ip rule")
	case p == "*":
		return anyMatcher{}, nil
	case strings.Contains(p, "/"):
		_, ipNet, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", p, err)
		}
		return netMatcher{ipNet}, nil
	case strings.Contains(p, "*"):
		ipNet, err := utils.WildcardToIPNet(p)
		if err != nil {
			return nil, err
		}
		return netMatcher{ipNet}, nil
	}

	ip := net.ParseIP(p)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip rule %q", p)
	}
	return exactMatcher{ip}, nil
}

type anyMatcher struct{}

func (anyMatcher) Match(net.IP) bool { return true }

type netMatcher struct {
	ipNet *net.IPNet
}

func (m netMatcher) Match(ip net.IP) bool {
	return m.ipNet.Contains(ip)
}

type exactMatcher struct {
	ip net.IP
}

func (m exactMatcher) Match(ip net.IP) bool {
	return m.ip.Equal(ip)
}

package utils

import (
	"fmt"
	"net"
	"strings"
)

// IPv4ToNetmask builds a network from an IPv4 address and dotted mask.
func IPv4ToNetmask(ipStr, maskStr string) (*net.IPNet, error) {
	ip := net.ParseIP(ipStr)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid IPv4 address: %s", ipStr)
	}

	mask := net.ParseIP(maskStr)
	if mask == nil || mask.To4() == nil {
		return nil, fmt.Errorf("invalid IPv4 mask: %s", maskStr)
	}

	ipMask := net.IPMask(mask.To4())
	return &net.IPNet{IP: ip.To4().Mask(ipMask), Mask: ipMask}, nil
}

// WildcardToIPNet converts an IPv4 pattern with trailing '*' octets
// (e.g. "192.168.1.*", "10.*.*.*") into the equivalent network.
// Wildcards are only allowed as a suffix.
func WildcardToIPNet(pattern string) (*net.IPNet, error) {
	octets := strings.Split(pattern, ".")
	if len(octets) != 4 {
		return nil, fmt.Errorf("invalid IPv4 wildcard: %s", pattern)
	}

	ip := make([]string, 4)
	mask := make([]string, 4)
	wildcard := false
	for i, octet := range octets {
		if octet == "*" {
			wildcard = true
			ip[i], mask[i] = "0", "0"
			continue
		}
		if wildcard {
			return nil, fmt.Errorf("wildcard must only be used in trailing octets: %s", pattern)
		}
		ip[i], mask[i] = octet, "255"
	}

	return IPv4ToNetmask(strings.Join(ip, "."), strings.Join(mask, "."))
}

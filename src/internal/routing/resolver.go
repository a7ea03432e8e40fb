package routing

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

var logger = log.Named("routing")

// Resolver turns a host address into something dialable.
type Resolver interface {
	Resolve(ctx context.Context, address string) (string, error)
}

// DNSResolver resolves host names against one DNS server. IP literals are
// returned unchanged. Answers are cached for their TTL.
type DNSResolver struct {
	server string
	client *dns.Client

	mu    sync.Mutex
	cache map[string]cachedAddr
	now   func() time.Time
}

type cachedAddr struct {
	addr    string
	expires time.Time
}

// NewDNSResolver queries server ("host:port") over UDP.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
		cache:  make(map[string]cachedAddr),
		now:    time.Now,
	}
}

// Resolve returns the first A record of address, falling back to AAAA.
func (r *DNSResolver) Resolve(ctx context.Context, address string) (string, error) {
	if net.ParseIP(address) != nil {
		return address, nil
	}

	name := dns.Fqdn(strings.ToLower(address))

	r.mu.Lock()
	if c, ok := r.cache[name]; ok && r.now().Before(c.expires) {
		r.mu.Unlock()
		return c.addr, nil
	}
	r.mu.Unlock()

	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, ttl, err := r.query(ctx, name, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		if addr == "" {
			continue
		}

		r.mu.Lock()
		r.cache[name] = cachedAddr{addr: addr, expires: r.now().Add(time.Duration(ttl) * time.Second)}
		r.mu.Unlock()

		logger.Debugf("Resolved %s to %s (ttl %ds)", address, addr, ttl)
		return addr, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", address, lastErr)
	}
	return "", fmt.Errorf("no address records for %s", address)
}

func (r *DNSResolver) query(ctx context.Context, name string, qtype uint16) (string, uint32, error) {
	req := new(dns.Msg)
	req.SetQuestion(name, qtype)
	req.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, req, r.server)
	if err != nil {
		return "", 0, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", 0, fmt.Errorf("server answered %s", dns.RcodeToString[resp.Rcode])
	}

	for _, rr := range resp.Answer {
		switch v := rr.(type) {
		case *dns.A:
			return v.A.String(), v.Hdr.Ttl, nil
		case *dns.AAAA:
			return v.AAAA.String(), v.Hdr.Ttl, nil
		}
	}
	return "", 0, nil
}

// StaticResolver returns addresses unchanged.
type StaticResolver struct{}

func (StaticResolver) Resolve(_ context.Context, address string) (string, error) {
	return address, nil
}

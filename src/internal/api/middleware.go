package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type callerIPKey struct{}

// RequestID middleware assigns every request an id. A well-formed UUID sent
// by the client is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(domain.WithRequestID(r.Context(), id)))
	})
}

// JSONContentType middleware enforces JSON content type for requests with body.
func JSONContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength > 0 {
				ct := r.Header.Get("Content-Type")
				if i := strings.IndexByte(ct, ';'); i >= 0 {
					ct = ct[:i]
				}
				if ct = strings.TrimSpace(ct); ct != "application/json" && ct != "" {
					WriteInvalidRequest(w, "Content-Type must be application/json")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Logger middleware logs all HTTP requests.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		logger.Infof("[%s] %s %s from %s - %d (%v)",
			domain.RequestIDFrom(r.Context()), r.Method, r.URL.Path, CallerIPFrom(r.Context()), wrapped.statusCode, time.Since(start))
	})
}

// Recovery middleware recovers from panics and returns a 500 error.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorf("[%s] Panic recovered: %v", domain.RequestIDFrom(r.Context()), err)
				WriteInternalError(w, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CallerIP middleware stores the caller address used for allowlist checks.
//
// Forwarding headers are honored only when the direct peer is a trusted
// proxy. The caller is then the right-most X-Forwarded-For entry that is not
// itself a trusted proxy.
func CallerIP(trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trusted)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerIPKey{}, ip)))
		})
	}
}

// CallerIPFrom returns the address stored by CallerIP.
func CallerIPFrom(ctx context.Context) string {
	if ip, ok := ctx.Value(callerIPKey{}).(string); ok {
		return ip
	}
	return ""
}

func clientIP(r *http.Request, trusted []*net.IPNet) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) {
				return hop
			}
		}
		return strings.TrimSpace(hops[0])
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func isTrusted(addr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, block := range trusted {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ParseTrustedProxies parses CIDRs and single addresses.
func ParseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, block, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, err
		}
		nets = append(nets, block)
	}
	return nets, nil
}

var privateIPBlocks = func() []*net.IPNet {
	var blocks []*net.IPNet
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"fc00::/7",  // IPv6 Unique Local Address
		"fe80::/10", // IPv6 Link-Local
		"::1/128",
	} {
		_, block, _ := net.ParseCIDR(cidr)
		blocks = append(blocks, block)
	}
	return blocks
}()

// PrivateSubnetOnly middleware restricts access to callers on private subnets.
// It relies on CallerIP running first.
func PrivateSubnetOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := CallerIPFrom(r.Context())

		ip := net.ParseIP(clientIP)
		if ip == nil {
			logger.Warnf("Invalid client IP: %s", clientIP)
			WriteForbidden(w, "access denied")
			return
		}

		for _, block := range privateIPBlocks {
			if block.Contains(ip) {
				next.ServeHTTP(w, r)
				return
			}
		}

		logger.Warnf("Access denied from non-private IP: %s", clientIP)
		WriteForbidden(w, "access denied: only private networks are allowed")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

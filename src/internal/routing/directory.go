// Package routing maps host codes to backend endpoints and walks an API's
// host bindings in priority order.
package routing

import (
	"sort"
	"strings"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
)

// Directory is the fixed host code lookup. It is immutable after creation.
type Directory struct {
	hosts map[string]domain.HostEndpoint
}

// NewDirectory builds the lookup from the [[host]] sections.
func NewDirectory(hosts []*config.HostConfig) *Directory {
	d := &Directory{hosts: make(map[string]domain.HostEndpoint, len(hosts))}
	for _, h := range hosts {
		code := strings.TrimSpace(h.Code)
		d.hosts[strings.ToUpper(code)] = domain.HostEndpoint{
			Code:    code,
			Name:    h.Name,
			Address: h.Address,
			SSHPort: h.GetSSHPort(),
		}
	}
	return d
}

// Lookup returns the endpoint for code. Codes compare case-insensitively.
func (d *Directory) Lookup(code string) (domain.HostEndpoint, bool) {
	e, ok := d.hosts[strings.ToUpper(strings.TrimSpace(code))]
	return e, ok
}

// Endpoints returns every endpoint ordered by code.
func (d *Directory) Endpoints() []domain.HostEndpoint {
	endpoints := make([]domain.HostEndpoint, 0, len(d.hosts))
	for _, e := range d.hosts {
		endpoints = append(endpoints, e)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Code < endpoints[j].Code })
	return endpoints
}

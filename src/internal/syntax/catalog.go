// Package syntax holds the statement catalogue: the SQL properties file that
// maps syntax-configuration keys to statement and command text.
package syntax

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

var logger = log.Named("syntax")

// Catalog is a reloadable view of one properties file. It is safe for
// concurrent use; readers never observe a partially loaded file.
type Catalog struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// Load reads path into a new catalog.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromMap builds a catalog that is not backed by a file.
func FromMap(entries map[string]string) *Catalog {
	copied := make(map[string]string, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Catalog{entries: copied}
}

// Path returns the backing file, or an empty string.
func (c *Catalog) Path() string {
	return c.path
}

// Lookup returns the text registered under key.
func (c *Catalog) Lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[key]
	return text, ok
}

// Keys returns all keys in sorted order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reload re-reads the backing file. On failure the previous entries stay in place.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}

	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("failed to open SQL properties file: %w", err)
	}
	defer f.Close()

	entries, err := ParseProperties(f)
	if err != nil {
		return fmt.Errorf("failed to parse SQL properties file %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	logger.Debugf("Loaded %d statement(s) from %s", len(entries), c.path)
	return nil
}

package schema

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mikependon/repodb/dialect"
)

// Cache keeps the discovered fields of every table. Concurrent lookups of
// the same table share a single query.
type Cache struct {
	mu     sync.RWMutex
	tables map[string]Fields
	group  singleflight.Group
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{tables: make(map[string]Fields)}
}

func cacheKey(table string) string {
	return strings.ToLower(strings.TrimSpace(table))
}

// Get returns the fields of the table, querying them with the helper on
// the first lookup. Failed lookups are not cached.
func (c *Cache) Get(ctx context.Context, h Helper, q dialect.ExecQuerier, table string) (Fields, error) {
	key := cacheKey(table)
	c.mu.RLock()
	fields, ok := c.tables[key]
	c.mu.RUnlock()
	if ok {
		return fields, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		fields, ok := c.tables[key]
		c.mu.RUnlock()
		if ok {
			return fields, nil
		}
		fields, err := h.Fields(ctx, q, table)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[key] = fields
		c.mu.Unlock()
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Fields), nil
}

// Seed sets the fields of a table without querying the database.
func (c *Cache) Seed(table string, fields ...*Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[cacheKey(table)] = fields
}

// Invalidate forgets the fields of a table.
func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, cacheKey(table))
}

// Clear forgets the fields of every table.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.tables)
}

// Package photocache is the local photo lookup keyed by case id. Capture
// and import collaborators write to it; the sync enrichment step is its
// only reader.
package photocache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultExpiration = 24 * time.Hour
	cleanupInterval   = time.Hour
)

// Cache maps a case id to the URI of a locally captured or imported photo.
type Cache struct {
	c *gocache.Cache
}

func New() *Cache {
	return &Cache{c: gocache.New(defaultExpiration, cleanupInterval)}
}

// Put records the photo URI for a case.
func (c *Cache) Put(caseID, uri string) {
	c.c.Set(caseID, uri, gocache.DefaultExpiration)
}

// PhotoFor returns the cached photo URI for a case, if any.
func (c *Cache) PhotoFor(caseID string) (string, bool) {
	v, ok := c.c.Get(caseID)
	if !ok {
		return "", false
	}
	uri, ok := v.(string)
	return uri, ok
}

// Purge drops the cached photo for a case, typically on case deletion.
func (c *Cache) Purge(caseID string) {
	c.c.Delete(caseID)
}

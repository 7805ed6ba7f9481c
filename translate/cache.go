package translate

import (
	"strings"
	"sync"

	"github.com/mbolis/quick-form/model"
)

type cacheKey struct {
	text string
	lang model.Language
}

// Cache memoizes fragment translations by trimmed source text and target
// language. It is unbounded and lives as long as its overlay.
type Cache struct {
	mu sync.RWMutex
	m  map[cacheKey]string
}

func NewCache() *Cache {
	return &Cache{m: map[cacheKey]string{}}
}

func (c *Cache) Get(text string, lang model.Language) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.m[cacheKey{strings.TrimSpace(text), lang}]
	return s, ok
}

func (c *Cache) Put(text string, lang model.Language, translated string) {
	c.mu.Lock()
	c.m[cacheKey{strings.TrimSpace(text), lang}] = translated
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.m = map[cacheKey]string{}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

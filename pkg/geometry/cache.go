package geometry

import (
	"sync"
	"sync/atomic"
)

// Token identifies one immutable cube. Tokens are never reused.
type Token uint64

var lastToken atomic.Uint64

// NewToken returns a fresh token.
func NewToken() Token {
	return Token(lastToken.Add(1))
}

type entry struct {
	once sync.Once
	g    *Geometry
	err  error
}

// Cache memoizes geometries by cube token. Cubes never change after
// construction, so entries are never invalidated. It is safe for
// concurrent use; each token is computed at most once.
type Cache struct {
	mu      sync.Mutex
	entries map[Token]*entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Token]*entry)}
}

// Get returns the geometry stored for tok, computing it first if needed.
// A failed computation is memoized too.
func (c *Cache) Get(tok Token, compute func() (*Geometry, error)) (*Geometry, error) {
	c.mu.Lock()
	e, ok := c.entries[tok]
	if !ok {
		e = &entry{}
		c.entries[tok] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.g, e.err = compute()
	})
	return e.g, e.err
}

// Len returns the number of memoized tokens.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

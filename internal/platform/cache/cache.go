// Package cache memoises pure computation results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a size- and age-bounded map from request keys to results.
// A nil *Cache is valid and never stores anything.
type Cache struct {
	lru *expirable.LRU[string, any]
}

// New returns a cache holding at most size entries for at most ttl. A size
// of zero or less disables caching and returns nil.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		return nil
	}
	return &Cache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) Add(key string, v any) {
	if c == nil {
		return
	}
	c.lru.Add(key, v)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Key derives a stable key from an operation name and its request. The
// request is JSON encoded, so struct field order makes it canonical.
func Key(operation string, request any) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(data)
	return operation + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

package cache

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/config"
)

// The cache holds objects that are expensive to build and are shared for
// the life of the process, such as parsed fixture suites that the shell,
// the bench runner and the solve service all read.

type cache struct {
	sync.Mutex
	objects map[string]any
}

// LoadFunc builds the object stored under key.
type LoadFunc func(cfg *config.Config, key string) (any, error)

var globalCache = newCache()

func newCache() *cache {
	return &cache{objects: make(map[string]any)}
}

func (c *cache) get(cfg *config.Config, key string, load LoadFunc) (any, error) {
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("key", key).Msg("cache-hit")
		return obj, nil
	}
	log.Debug().Str("key", key).Msg("cache-loading")
	obj, err := load(cfg, key)
	if err != nil {
		return nil, err
	}
	c.objects[key] = obj
	return obj, nil
}

func (c *cache) evict(key string) bool {
	c.Lock()
	defer c.Unlock()
	_, ok := c.objects[key]
	delete(c.objects, key)
	return ok
}

// Load returns the object cached under key, building it with load the first
// time it is asked for. A failed load is not cached.
func Load(cfg *config.Config, key string, load LoadFunc) (any, error) {
	return globalCache.get(cfg, key, load)
}

// Evict drops key from the cache and reports whether it was present.
func Evict(key string) bool {
	return globalCache.evict(key)
}

// Clear empties the cache.
func Clear() {
	globalCache.Lock()
	defer globalCache.Unlock()
	globalCache.objects = make(map[string]any)
}
